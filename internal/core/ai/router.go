package ai

import (
	"fmt"
	"net/http"

	"recipe-extractor/internal/core/ai/gemini"
	"recipe-extractor/internal/core/ai/openai"
	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"
)

// Router 依平台與設定選擇 AI 供應商
type Router struct {
	config *config.Config
	openai *openai.Client
	gemini *gemini.Client
}

// NewRouter 建立供應商路由
func NewRouter(cfg *config.Config) *Router {
	return &Router{
		config: cfg,
		openai: openai.NewClient(cfg),
		gemini: gemini.NewClient(cfg),
	}
}

// Route 選擇供應商。YouTube 固定走 Gemini（沒有逐字稿時能直接看影片），
// TikTok 預設走 OpenAI，可由設定切到 Gemini。
func (r *Router) Route(platform common.Platform) (provider.Normalizer, error) {
	switch platform {
	case common.PlatformYouTube:
		return r.geminiOrErr()
	case common.PlatformTikTok:
		if r.config.AI.TikTokProvider == "gemini" {
			return r.geminiOrErr()
		}
		return r.openaiOrErr()
	}
	return nil, common.NewError(common.ErrCodeInternalError, fmt.Sprintf("不支援的平台: %s", platform), http.StatusInternalServerError, nil)
}

func (r *Router) geminiOrErr() (provider.Normalizer, error) {
	if r.config.Gemini.APIKey == "" {
		return nil, common.WrapError(common.ErrMissingCredential, fmt.Errorf("gemini api key not configured"))
	}
	return r.gemini, nil
}

func (r *Router) openaiOrErr() (provider.Normalizer, error) {
	if r.config.OpenAI.APIKey == "" {
		return nil, common.WrapError(common.ErrMissingCredential, fmt.Errorf("openai api key not configured"))
	}
	return r.openai, nil
}
