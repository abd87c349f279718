package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Metadata oEmbed 查得的影片中繼資料
type Metadata struct {
	Identity  Identity
	Caption   string
	Author    string
	Handle    string
	Thumbnail string
}

// Key 任務鍵
func (m *Metadata) Key() string {
	return m.Identity.Key()
}

// Fetcher oEmbed 中繼資料查詢器
type Fetcher struct {
	config *config.Config
	client *resty.Client
}

// NewFetcher 建立中繼資料查詢器
func NewFetcher(cfg *config.Config) *Fetcher {
	client := resty.New().
		SetTimeout(cfg.OEmbed.Timeout).
		SetHeader("Accept", "application/json")

	return &Fetcher{
		config: cfg,
		client: client,
	}
}

var (
	tiktokEmbedIDPattern = regexp.MustCompile(`data-video-id="(\d+)"`)
	youtubeThumbPattern  = regexp.MustCompile(`/vi/([A-Za-z0-9_-]{6,})/`)
	tiktokProductPattern = regexp.MustCompile(`^\d+$`)
)

// Fetch 查詢 oEmbed 中繼資料並補齊影片 ID
func (f *Fetcher) Fetch(ctx context.Context, ident Identity) (*Metadata, error) {
	endpoint := f.config.OEmbed.TikTokURL
	if ident.Platform == common.PlatformYouTube {
		endpoint = f.config.OEmbed.YouTubeURL
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("url", ident.URL).
		SetQueryParam("format", "json").
		Get(endpoint)
	if err != nil {
		return nil, common.WrapError(common.ErrMetadataUnavailable, fmt.Errorf("failed to call oembed: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.WrapError(common.ErrMetadataUnavailable, fmt.Errorf("oembed returned %d: %s", resp.StatusCode(), resp.String()))
	}

	// 解析回應
	var result struct {
		Title          string `json:"title"`
		AuthorName     string `json:"author_name"`
		AuthorURL      string `json:"author_url"`
		AuthorUniqueID string `json:"author_unique_id"`
		ThumbnailURL   string `json:"thumbnail_url"`
		EmbedProductID string `json:"embed_product_id"`
		HTML           string `json:"html"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, common.WrapError(common.ErrMetadataUnavailable, fmt.Errorf("failed to parse oembed response: %w", err))
	}

	meta := &Metadata{
		Identity:  ident,
		Caption:   result.Title,
		Author:    result.AuthorName,
		Handle:    handleFrom(result.AuthorUniqueID, result.AuthorURL),
		Thumbnail: result.ThumbnailURL,
	}

	// 短連結的 ID 從 oEmbed 回應補齊
	if meta.Identity.ID == "" {
		meta.Identity.ID = videoIDFrom(ident.Platform, result.EmbedProductID, result.HTML, result.ThumbnailURL)
	}
	if meta.Identity.ID == "" {
		common.LogWarn("oEmbed 回應中找不到影片 ID",
			zap.String("url", ident.URL),
			zap.String("platform", string(ident.Platform)),
		)
		return nil, common.ErrVideoIDUnavailable
	}

	return meta, nil
}

// videoIDFrom 依平台從 oEmbed 各欄位推出影片 ID
func videoIDFrom(platform common.Platform, productID, html, thumbnail string) string {
	switch platform {
	case common.PlatformTikTok:
		if tiktokProductPattern.MatchString(productID) {
			return productID
		}
		if m := tiktokEmbedIDPattern.FindStringSubmatch(html); m != nil {
			return m[1]
		}
	case common.PlatformYouTube:
		if m := youtubeThumbPattern.FindStringSubmatch(thumbnail); m != nil {
			return m[1]
		}
	}
	return ""
}

// handleFrom 取得建立者帳號，優先用 oEmbed 的 unique id，否則從作者連結推出
func handleFrom(uniqueID, authorURL string) string {
	if uniqueID != "" {
		if strings.HasPrefix(uniqueID, "@") {
			return uniqueID
		}
		return "@" + uniqueID
	}
	if authorURL == "" {
		return ""
	}
	u, err := url.Parse(authorURL)
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 {
		return ""
	}
	last := segs[len(segs)-1]
	if last == "" {
		return ""
	}
	if strings.HasPrefix(last, "@") {
		return last
	}
	return "@" + last
}
