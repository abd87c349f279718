package job

import (
	"time"

	"recipe-extractor/internal/pkg/common"
)

// Status 任務狀態
type Status string

const (
	// StatusPending 等待爬蟲回呼補齊內容
	StatusPending Status = "PENDING"
	// StatusReady 已產出食譜，為最終狀態
	StatusReady Status = "READY"
	// StatusFailed 萃取失敗，附帶錯誤明細
	StatusFailed Status = "FAILED"
)

// Detail 失敗明細，Type 對應錯誤代碼
type Detail struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Meta 任務中繼資料，欄位齊備後供 AI 萃取使用
type Meta struct {
	SourceURL     string          `json:"source_url,omitempty"`
	Platform      common.Platform `json:"platform,omitempty"`
	Caption       string          `json:"caption,omitempty"`
	Transcript    string          `json:"transcript,omitempty"`
	Author        string          `json:"author,omitempty"`
	CreatorHandle string          `json:"creator_handle,omitempty"`
	Thumbnail     string          `json:"thumbnail,omitempty"`
	Provider      string          `json:"provider,omitempty"`
	Model         string          `json:"model,omitempty"`
	RunID         string          `json:"run_id,omitempty"`
	DatasetID     string          `json:"dataset_id,omitempty"`
	FetchMS       int64           `json:"fetch_ms,omitempty"`
	NormalizeMS   int64           `json:"normalize_ms,omitempty"`
	Attempts      int             `json:"attempts,omitempty"`
}

// Job 一支影片的萃取任務，key 格式為 platform:id
type Job struct {
	Key       string         `json:"key"`
	Status    Status         `json:"status"`
	Value     *common.Recipe `json:"value,omitempty"`
	Error     *Detail        `json:"error,omitempty"`
	Meta      Meta           `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Patch 對任務的一次部分更新
type Patch struct {
	Status Status
	Value  *common.Recipe
	Error  *Detail
	Meta   Meta
	Force  bool
}

// Clone 深拷貝任務，避免呼叫端共享內部切片
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Value = cloneRecipe(j.Value)
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	return &out
}

func cloneRecipe(r *common.Recipe) *common.Recipe {
	if r == nil {
		return nil
	}
	out := *r
	if r.Ingredients != nil {
		out.Ingredients = append([]common.Ingredient(nil), r.Ingredients...)
	}
	if r.Steps != nil {
		out.Steps = append([]common.Step(nil), r.Steps...)
	}
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.Media != nil {
		m := *r.Media
		out.Media = &m
	}
	return &out
}

// MergeMeta 逐欄位合併中繼資料，新值非空則採用，否則保留舊值
func MergeMeta(old, patch Meta) Meta {
	out := old
	if patch.SourceURL != "" {
		out.SourceURL = patch.SourceURL
	}
	if patch.Platform != "" {
		out.Platform = patch.Platform
	}
	if patch.Caption != "" {
		out.Caption = patch.Caption
	}
	if patch.Transcript != "" {
		out.Transcript = patch.Transcript
	}
	if patch.Author != "" {
		out.Author = patch.Author
	}
	if patch.CreatorHandle != "" {
		out.CreatorHandle = patch.CreatorHandle
	}
	if patch.Thumbnail != "" {
		out.Thumbnail = patch.Thumbnail
	}
	if patch.Provider != "" {
		out.Provider = patch.Provider
	}
	if patch.Model != "" {
		out.Model = patch.Model
	}
	if patch.RunID != "" {
		out.RunID = patch.RunID
	}
	if patch.DatasetID != "" {
		out.DatasetID = patch.DatasetID
	}
	if patch.FetchMS != 0 {
		out.FetchMS = patch.FetchMS
	}
	if patch.NormalizeMS != 0 {
		out.NormalizeMS = patch.NormalizeMS
	}
	if patch.Attempts != 0 {
		out.Attempts = patch.Attempts
	}
	return out
}

// Apply 將部分更新套用到現有任務，回傳新的任務文件。
// current 為 nil 時建立新任務；READY 為最終狀態，除非 Force，
// 後續更新只能補齊中繼資料，不得改寫狀態、食譜與錯誤。
func Apply(current *Job, key string, p Patch, now time.Time) *Job {
	if current == nil {
		status := p.Status
		if status == "" {
			status = StatusPending
		}
		j := &Job{
			Key:       key,
			Status:    status,
			Value:     cloneRecipe(p.Value),
			Meta:      MergeMeta(Meta{}, p.Meta),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if p.Error != nil {
			e := *p.Error
			j.Error = &e
		}
		if j.Status == StatusReady {
			j.Error = nil
		}
		return j
	}

	next := current.Clone()
	next.Meta = MergeMeta(current.Meta, p.Meta)
	next.UpdatedAt = now

	// READY 不可回退，晚到的回呼只能補中繼資料
	if current.Status == StatusReady && !p.Force {
		return next
	}

	if p.Status != "" {
		next.Status = p.Status
	}
	if p.Value != nil {
		next.Value = cloneRecipe(p.Value)
	}
	if p.Error != nil {
		e := *p.Error
		next.Error = &e
	}

	// 重新排程清掉上一輪的錯誤，強制重跑連同結果一起清
	if p.Status == StatusPending {
		if p.Error == nil {
			next.Error = nil
		}
		if p.Force && p.Value == nil {
			next.Value = nil
		}
	}

	// 成功後不再保留錯誤明細
	if next.Status == StatusReady {
		next.Error = nil
	}
	return next
}
