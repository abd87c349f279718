package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// Client OpenAI API 客戶端
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient 建立 OpenAI 客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.OpenAI.BaseURL).
		SetTimeout(cfg.OpenAI.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenAI.APIKey)).
		SetHeader("Content-Type", "application/json")

	return &Client{
		config: cfg,
		client: client,
	}
}

// Name 供應商名稱
func (c *Client) Name() string {
	return "openai"
}

// Model 使用的模型名稱
func (c *Client) Model() string {
	return c.config.OpenAI.Model
}

// Normalize 以 chat completions 萃取食譜
func (c *Client) Normalize(ctx context.Context, in *provider.Input) (*provider.Result, error) {
	start := time.Now()

	// 構建請求
	req := map[string]interface{}{
		"model": c.config.OpenAI.Model,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": provider.BuildPrompt(in),
			},
		},
		"temperature":     0.1,
		"max_tokens":      c.config.OpenAI.MaxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}

	// 發送請求
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/v1/chat/completions")
	if err != nil {
		common.LogAICall(c.Name(), c.Model(), time.Since(start), err)
		return nil, common.WrapError(common.ErrNormalizationFailed, fmt.Errorf("failed to send request to OpenAI: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode(), resp.String())
		common.LogAICall(c.Name(), c.Model(), time.Since(start), err)
		return nil, common.WrapError(common.ErrNormalizationFailed, err)
	}

	// 解析回應
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, common.WrapError(common.ErrNormalizationFailed, fmt.Errorf("failed to parse OpenAI response: %w", err))
	}
	if len(result.Choices) == 0 {
		return nil, common.WrapError(common.ErrNormalizationFailed, fmt.Errorf("no choices in OpenAI response"))
	}

	recipe, err := provider.ParseRecipe(result.Choices[0].Message.Content, in)
	common.LogAICall(c.Name(), c.Model(), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &provider.Result{
		Recipe:    recipe,
		Model:     c.config.OpenAI.Model,
		ElapsedMS: time.Since(start).Milliseconds(),
	}, nil
}
