package provider

import (
	"fmt"
	"strings"

	"recipe-extractor/internal/pkg/common"
)

// CleanResponse 移除 markdown 圍欄與 JSON 前後的雜訊
func CleanResponse(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// 只留第一個 { 到最後一個 } 之間
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

// ParseRecipe 解析模型輸出為食譜，並以權威素材寫回識別欄位
func ParseRecipe(raw string, in *Input) (*common.Recipe, error) {
	cleaned := CleanResponse(raw)
	if cleaned == "" {
		return nil, common.WrapError(common.ErrNormalizationFailed, fmt.Errorf("empty model output"))
	}

	var recipe common.Recipe
	if err := common.ParseJSON(cleaned, &recipe); err != nil {
		// 鍵漏掉引號是最常見的壞輸出，補上引號再試一次
		repaired := common.QuoteJSONKeys(cleaned)
		if err2 := common.ParseJSON(repaired, &recipe); err2 != nil {
			return nil, common.WrapError(common.ErrNormalizationFailed, fmt.Errorf("failed to parse model output: %w", err))
		}
	}

	if strings.TrimSpace(recipe.Title) == "" {
		return nil, common.WrapError(common.ErrNormalizationFailed, fmt.Errorf("model found no recipe in the material"))
	}
	if len(recipe.Ingredients) == 0 && len(recipe.Steps) == 0 {
		return nil, common.WrapError(common.ErrNormalizationFailed, fmt.Errorf("recipe has neither ingredients nor steps"))
	}

	Backfill(&recipe, in)
	return &recipe, nil
}

// Backfill 以權威素材覆蓋模型產出的識別欄位，模型不可信的欄位一律改寫
func Backfill(r *common.Recipe, in *Input) {
	r.ID = idFromKey(in.Key)
	r.SourceURL = in.SourceURL
	if in.Author != "" {
		r.Author = in.Author
	}
	if in.CreatorHandle != "" {
		r.CreatorHandle = in.CreatorHandle
	}
	if in.Thumbnail != "" {
		if r.Media == nil {
			r.Media = &common.Media{}
		}
		r.Media.Thumbnail = in.Thumbnail
	}

	// 模型偶爾漏編步驟編號
	for i := range r.Steps {
		if r.Steps[i].StepNumber == 0 {
			r.Steps[i].StepNumber = i + 1
		}
	}
}

// idFromKey 從 platform:id 取出影片 ID
func idFromKey(key string) string {
	if i := strings.Index(key, ":"); i >= 0 {
		return key[i+1:]
	}
	return key
}
