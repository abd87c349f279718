package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// Client Gemini API 客戶端
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient 建立 Gemini 客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.Gemini.BaseURL).
		SetTimeout(cfg.Gemini.Timeout).
		SetHeader("x-goog-api-key", cfg.Gemini.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		config: cfg,
		client: client,
	}
}

// FileData 以 URI 引用的媒體
type FileData struct {
	FileURI string `json:"file_uri"`
}

// Part 內容片段
type Part struct {
	Text     string    `json:"text,omitempty"`
	FileData *FileData `json:"file_data,omitempty"`
}

// Content 對話內容
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig 生成設定
type GenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

// Request 表示 generateContent 請求
type Request struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Name 供應商名稱
func (c *Client) Name() string {
	return "gemini"
}

// Model 使用的模型名稱
func (c *Client) Model() string {
	return c.config.Gemini.Model
}

// Normalize 以 generateContent 萃取食譜。YouTube 影片沒有逐字稿時，
// 直接把影片連結附成 file_data，讓模型看影片內容。
func (c *Client) Normalize(ctx context.Context, in *provider.Input) (*provider.Result, error) {
	start := time.Now()

	parts := make([]Part, 0, 2)
	if in.Platform == common.PlatformYouTube && strings.TrimSpace(in.Transcript) == "" {
		parts = append(parts, Part{FileData: &FileData{FileURI: in.SourceURL}})
	}
	parts = append(parts, Part{Text: provider.BuildPrompt(in)})

	req := &Request{
		Contents: []Content{
			{Role: "user", Parts: parts},
		},
		GenerationConfig: &GenerationConfig{
			Temperature:      0.1,
			MaxOutputTokens:  c.config.Gemini.MaxTokens,
			ResponseMimeType: "application/json",
		},
	}

	// 發送請求
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.config.Gemini.Model))
	if err != nil {
		common.LogAICall(c.Name(), c.Model(), time.Since(start), err)
		return nil, common.WrapError(common.ErrNormalizationFailed, fmt.Errorf("failed to send request to Gemini: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("Gemini API returned %d: %s", resp.StatusCode(), resp.String())
		common.LogAICall(c.Name(), c.Model(), time.Since(start), err)
		return nil, common.WrapError(common.ErrNormalizationFailed, err)
	}

	// 解析回應
	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, common.WrapError(common.ErrNormalizationFailed, fmt.Errorf("failed to parse Gemini response: %w", err))
	}
	if len(result.Candidates) == 0 {
		return nil, common.WrapError(common.ErrNormalizationFailed, fmt.Errorf("no candidates in Gemini response"))
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	recipe, err := provider.ParseRecipe(sb.String(), in)
	common.LogAICall(c.Name(), c.Model(), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &provider.Result{
		Recipe:    recipe,
		Model:     c.config.Gemini.Model,
		ElapsedMS: time.Since(start).Milliseconds(),
	}, nil
}
