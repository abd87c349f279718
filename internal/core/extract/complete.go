package extract

import (
	"context"
	"fmt"
	"strings"

	"recipe-extractor/internal/core/job"
	"recipe-extractor/internal/core/scraper"
	"recipe-extractor/internal/pkg/common"

	"go.uber.org/zap"
)

// webhookEnvelope 爬蟲平台回呼的外層結構；沒有 resource 視為內嵌結果
type webhookEnvelope struct {
	EventType string `json:"eventType"`
	Resource  *struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"resource"`
}

// runInfo 回呼帶回的爬蟲任務識別資訊
type runInfo struct {
	RunID     string
	DatasetID string
}

var failureEventTypes = map[string]bool{
	"ACTOR.RUN.FAILED":    true,
	"ACTOR.RUN.TIMED_OUT": true,
	"ACTOR.RUN.ABORTED":   true,
}

var failureStatuses = map[string]bool{
	"FAILED":    true,
	"TIMED-OUT": true,
	"TIMED_OUT": true,
	"ABORTED":   true,
}

// Complete 處理爬蟲完成回呼，把 PENDING 任務推進到 READY 或 FAILED。
// 已完成的任務直接回覆，重複送達的回呼因此不會產生第二次效果。
func (s *Service) Complete(ctx context.Context, key string, payload []byte) (*job.Job, error) {
	platform, videoID := parseKey(key)
	if platform == "" {
		return nil, common.WrapError(common.ErrInvalidPayload, fmt.Errorf("malformed job key %q", key))
	}

	current, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, common.WrapError(common.ErrDatastore, err)
	}
	if current != nil && current.Status == job.StatusReady {
		common.LogInfo("回呼晚到，任務已完成", zap.String("key", key))
		return current, nil
	}

	item, run, failure, err := s.resolvePayload(ctx, payload)
	if err != nil {
		return nil, err
	}

	meta := job.Meta{
		Platform:  platform,
		RunID:     run.RunID,
		DatasetID: run.DatasetID,
	}
	if failure != "" {
		return s.fail(ctx, key, common.ErrCodeNoContent,
			fmt.Sprintf("scrape run ended with status %s", failure), meta)
	}

	if k := inlineKey(item); k != "" && k != key {
		return nil, common.WrapError(common.ErrInvalidPayload,
			fmt.Errorf("payload key %q does not match %q", k, key))
	}
	if id := item.VideoID(); id != "" && id != videoID {
		common.LogWarn("資料集影片編號與任務鍵不符",
			zap.String("key", key),
			zap.String("item_id", id),
		)
	}

	meta.Caption = item.Caption()
	meta.Transcript = item.Transcript()
	meta.Author = item.Author()
	meta.CreatorHandle = item.Handle()
	meta.Thumbnail = item.Thumbnail()
	meta.SourceURL = item.SourceURL()

	if meta.Caption == "" && meta.Transcript == "" {
		return s.fail(ctx, key, common.ErrCodeNoContent, "scrape produced no caption or transcript", meta)
	}

	// Gemini 的影片理解需要來源網址，缺了就用影片 ID 還原
	if meta.SourceURL == "" && platform == common.PlatformYouTube &&
		(current == nil || current.Meta.SourceURL == "") {
		meta.SourceURL = "https://www.youtube.com/watch?v=" + videoID
	}

	// 先把爬到的素材合併進任務，之後任何一步失敗都不會弄丟
	merged, err := s.store.Upsert(ctx, key, job.Patch{Meta: meta})
	if err != nil {
		return nil, common.WrapError(common.ErrDatastore, err)
	}
	if merged.Status == job.StatusReady {
		common.LogInfo("回呼晚到，任務已完成", zap.String("key", key))
		return merged, nil
	}

	normalizer, err := s.route(platform)
	if err != nil {
		if common.IsErrorCode(err, common.ErrCodeMissingCredential) {
			return s.fail(ctx, key, common.ErrCodeMissingCredential, "供應商金鑰未設定", job.Meta{})
		}
		return nil, err
	}

	result, err := normalizer.Normalize(ctx, inputFromMeta(key, merged.Meta))
	if err != nil {
		return s.fail(ctx, key, common.ErrCodeNormalizationFailed, err.Error(), job.Meta{})
	}

	jb, err := s.store.Upsert(ctx, key, job.Patch{
		Status: job.StatusReady,
		Value:  result.Recipe,
		Meta: job.Meta{
			Provider:    normalizer.Name(),
			Model:       result.Model,
			NormalizeMS: result.ElapsedMS,
		},
	})
	if err != nil {
		return nil, common.WrapError(common.ErrDatastore, err)
	}
	common.LogInfo("慢路徑萃取完成",
		zap.String("key", key),
		zap.String("provider", normalizer.Name()),
		zap.Int64("normalize_ms", result.ElapsedMS),
	)
	return jb, nil
}

// resolvePayload 判別回呼載荷的形狀並取出爬蟲結果。
// 回傳值依序是結果項目、任務識別、終止失敗的狀態描述。
func (s *Service) resolvePayload(ctx context.Context, payload []byte) (scraper.Item, runInfo, string, error) {
	var env webhookEnvelope
	if err := common.ParseJSONBytes(payload, &env); err != nil {
		return nil, runInfo{}, "", common.WrapError(common.ErrInvalidPayload, err)
	}

	// 內嵌形狀：載荷本身就是一筆爬蟲項目
	if env.Resource == nil {
		var item scraper.Item
		if err := common.ParseJSONBytes(payload, &item); err != nil {
			return nil, runInfo{}, "", common.WrapError(common.ErrInvalidPayload, err)
		}
		return item, runInfo{}, "", nil
	}

	run := runInfo{RunID: env.Resource.ID, DatasetID: env.Resource.DefaultDatasetID}
	if status := terminalFailure(env.EventType, env.Resource.Status); status != "" {
		return nil, run, status, nil
	}
	if run.DatasetID == "" {
		return nil, run, "", common.WrapError(common.ErrInvalidPayload, fmt.Errorf("webhook resource missing dataset id"))
	}

	// 資料集抓不到時回傳未分類錯誤，讓上游以 5xx 觸發重送
	items, err := s.scraper.FetchDataset(ctx, run.DatasetID)
	if err != nil {
		return nil, run, "", err
	}
	if len(items) == 0 {
		return scraper.Item{}, run, "", nil
	}
	return items[0], run, "", nil
}

// terminalFailure 判斷回呼是否代表爬蟲終止失敗，回傳狀態描述
func terminalFailure(eventType, status string) string {
	if failureEventTypes[eventType] {
		if status != "" {
			return status
		}
		return strings.TrimPrefix(eventType, "ACTOR.RUN.")
	}
	if failureStatuses[strings.ToUpper(status)] {
		return status
	}
	return ""
}

// inlineKey 內嵌載荷可以自帶任務鍵，用來比對路由上的 key
func inlineKey(it scraper.Item) string {
	if v, ok := it["key"].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// fail 把任務標記為 FAILED 並記下錯誤明細。
// 已是 READY 的任務不會被降級，狀態機會把這次寫入當成補充中繼資料。
func (s *Service) fail(ctx context.Context, key, code, message string, meta job.Meta) (*job.Job, error) {
	jb, err := s.store.Upsert(ctx, key, job.Patch{
		Status: job.StatusFailed,
		Error:  &job.Detail{Type: code, Message: message},
		Meta:   meta,
	})
	if err != nil {
		return nil, common.WrapError(common.ErrDatastore, err)
	}
	common.LogInfo("任務以失敗收場",
		zap.String("key", key),
		zap.String("error_type", code),
	)
	return jb, nil
}
