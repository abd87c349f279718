package scraper

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 爬蟲平台會對這些事件送出回呼
var webhookEventTypes = []string{
	"ACTOR.RUN.SUCCEEDED",
	"ACTOR.RUN.FAILED",
	"ACTOR.RUN.TIMED_OUT",
	"ACTOR.RUN.ABORTED",
}

// Run 一次爬蟲啟動
type Run struct {
	ID        string
	ActorID   string
	DatasetID string
	Status    string
}

// Client Apify 爬蟲客戶端，啟動 actor 後由回呼收尾，不做輪詢
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient 建立爬蟲客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.Apify.BaseURL).
		SetTimeout(cfg.Apify.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		config: cfg,
		client: client,
	}
}

// Enabled 是否設定了爬蟲憑證
func (c *Client) Enabled() bool {
	return c.config.Apify.Token != ""
}

// actorFor 依平台選擇 actor
func (c *Client) actorFor(platform common.Platform) string {
	switch platform {
	case common.PlatformTikTok:
		return c.config.Apify.TikTokActor
	case common.PlatformYouTube:
		return c.config.Apify.YouTubeActor
	}
	return ""
}

// buildInput 依平台組出 actor 輸入，欄位名稱各家 actor 不同
func buildInput(platform common.Platform, videoURL string) map[string]interface{} {
	switch platform {
	case common.PlatformYouTube:
		return map[string]interface{}{
			"startUrls":  []map[string]string{{"url": videoURL}},
			"maxResults": 1,
		}
	default:
		return map[string]interface{}{
			"postURLs":       []string{videoURL},
			"resultsPerPage": 1,
		}
	}
}

// webhookParam 組出回呼定義並做 base64 編碼，key 與共享密鑰夾帶在回呼網址上
func (c *Client) webhookParam(key string) (string, error) {
	requestURL := fmt.Sprintf("%s%s?key=%s&secret=%s",
		c.config.Webhook.BaseURL,
		c.config.Webhook.Path,
		url.QueryEscape(key),
		url.QueryEscape(c.config.Webhook.Secret),
	)

	hooks := []map[string]interface{}{
		{
			"eventTypes": webhookEventTypes,
			"requestUrl": requestURL,
		},
	}
	data, err := json.Marshal(hooks)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// StartRun 啟動指定平台的爬蟲，結果由回呼送回
func (c *Client) StartRun(ctx context.Context, platform common.Platform, videoURL, key string) (*Run, error) {
	actor := c.actorFor(platform)
	if actor == "" {
		return nil, common.WrapError(common.ErrUpstreamTriggerFailed, fmt.Errorf("no actor configured for platform %q", platform))
	}

	webhooks, err := c.webhookParam(key)
	if err != nil {
		return nil, common.WrapError(common.ErrUpstreamTriggerFailed, err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("token", c.config.Apify.Token).
		SetQueryParam("webhooks", webhooks).
		SetBody(buildInput(platform, videoURL)).
		Post(fmt.Sprintf("/v2/acts/%s/runs", actor))
	if err != nil {
		return nil, common.WrapError(common.ErrUpstreamTriggerFailed, fmt.Errorf("failed to start actor run: %w", err))
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, common.WrapError(common.ErrUpstreamTriggerFailed, fmt.Errorf("actor run returned %d: %s", resp.StatusCode(), resp.String()))
	}

	// 解析回應
	var result struct {
		Data struct {
			ID               string `json:"id"`
			ActID            string `json:"actId"`
			Status           string `json:"status"`
			DefaultDatasetID string `json:"defaultDatasetId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, common.WrapError(common.ErrUpstreamTriggerFailed, fmt.Errorf("failed to parse run response: %w", err))
	}
	if result.Data.ID == "" {
		return nil, common.WrapError(common.ErrUpstreamTriggerFailed, fmt.Errorf("run response missing id: %s", resp.String()))
	}

	common.LogInfo("爬蟲已啟動",
		zap.String("key", key),
		zap.String("actor", actor),
		zap.String("run_id", result.Data.ID),
	)

	return &Run{
		ID:        result.Data.ID,
		ActorID:   actor,
		DatasetID: result.Data.DefaultDatasetID,
		Status:    result.Data.Status,
	}, nil
}

// FetchDataset 取回爬蟲結果。以 UseNumber 解碼，避免長數字 ID 因浮點數轉換失真
func (c *Client) FetchDataset(ctx context.Context, datasetID string) ([]Item, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("token", c.config.Apify.Token).
		SetQueryParam("clean", "true").
		SetQueryParam("format", "json").
		Get(fmt.Sprintf("/v2/datasets/%s/items", datasetID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("dataset fetch returned %d: %s", resp.StatusCode(), resp.String())
	}

	var items []Item
	if err := common.ParseJSONBytes(resp.Body(), &items); err != nil {
		return nil, fmt.Errorf("failed to parse dataset items: %w", err)
	}
	return items, nil
}
