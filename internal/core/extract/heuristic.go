package extract

import (
	"strings"
	"unicode/utf8"

	"recipe-extractor/internal/infrastructure/config"
)

// LooksLikeRecipe 判斷說明文字是否足以直接萃取，不夠就交給爬蟲補逐字稿。
// 長度以 rune 計，關鍵字比對不分大小寫，同一個關鍵字只算一次。
func LooksLikeRecipe(caption string, cfg *config.HeuristicConfig) bool {
	text := strings.TrimSpace(caption)
	if utf8.RuneCountInString(text) < cfg.MinLength {
		return false
	}
	if cfg.MinKeywords <= 0 {
		return true
	}

	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range cfg.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			hits++
			if hits >= cfg.MinKeywords {
				return true
			}
		}
	}
	return false
}
