package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/core/job"
	"recipe-extractor/internal/core/scraper"
	"recipe-extractor/internal/core/video"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"go.uber.org/zap"
)

// MetadataFetcher 取得影片中繼資料
type MetadataFetcher interface {
	Fetch(ctx context.Context, ident video.Identity) (*video.Metadata, error)
}

// Scraper 啟動爬蟲並取回結果
type Scraper interface {
	Enabled() bool
	StartRun(ctx context.Context, platform common.Platform, videoURL, key string) (*scraper.Run, error)
	FetchDataset(ctx context.Context, datasetID string) ([]scraper.Item, error)
}

// RouteFunc 依平台選擇 AI 供應商
type RouteFunc func(platform common.Platform) (provider.Normalizer, error)

// Service 萃取協調器：快取查詢、快路徑萃取與慢路徑爬蟲排程
type Service struct {
	config  *config.Config
	store   job.Store
	meta    MetadataFetcher
	scraper Scraper
	route   RouteFunc
}

// NewService 建立萃取協調器
func NewService(cfg *config.Config, store job.Store, meta MetadataFetcher, scr Scraper, route RouteFunc) *Service {
	return &Service{
		config:  cfg,
		store:   store,
		meta:    meta,
		scraper: scr,
		route:   route,
	}
}

// Extract 處理一次影片提交。已有任務（不論狀態）直接回覆，
// 只有 force 會重跑，保護爬蟲額度不被重複請求消耗。
// 回傳的任務狀態決定 HTTP 狀態碼。
func (s *Service) Extract(ctx context.Context, rawURL string, force bool) (*job.Job, error) {
	ident, err := video.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	// 長網址先查快取，命中就不碰任何外部服務
	var prior *job.Job
	if key := ident.Key(); key != "" {
		jb, err := s.lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		if jb != nil {
			if !force {
				common.LogCacheHit(key)
				return jb, nil
			}
			prior = jb
		} else {
			common.LogCacheMiss(key)
		}
	}

	fetchStart := time.Now()
	md, err := s.meta.Fetch(ctx, ident)
	if err != nil {
		return nil, err
	}
	fetchMS := time.Since(fetchStart).Milliseconds()

	key := md.Key()
	// 短連結到這裡才知道 key，補一次快取查詢
	if prior == nil && ident.Key() == "" {
		jb, err := s.lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		if jb != nil {
			if !force {
				common.LogCacheHit(key)
				return jb, nil
			}
			prior = jb
		} else {
			common.LogCacheMiss(key)
		}
	}

	// 憑證要在動用爬蟲額度之前就位
	normalizer, err := s.route(md.Identity.Platform)
	if err != nil {
		return nil, err
	}

	attempts := 1
	if prior != nil {
		attempts = prior.Meta.Attempts + 1
	}
	meta := job.Meta{
		SourceURL:     ident.URL,
		Platform:      md.Identity.Platform,
		Caption:       md.Caption,
		Author:        md.Author,
		CreatorHandle: md.Handle,
		Thumbnail:     md.Thumbnail,
		FetchMS:       fetchMS,
		Attempts:      attempts,
	}

	// 說明文字夠像食譜就先試快路徑
	if LooksLikeRecipe(md.Caption, &s.config.Heuristic) {
		jb, err := s.fastNormalize(ctx, normalizer, key, meta, force)
		if err != nil {
			return nil, err
		}
		if jb != nil {
			return jb, nil
		}
	}

	// 慢路徑：啟動爬蟲，完成事件由回呼送回
	if !s.scraper.Enabled() {
		return nil, common.WrapError(common.ErrUpstreamTriggerFailed, fmt.Errorf("scraper not configured"))
	}
	run, err := s.scraper.StartRun(ctx, md.Identity.Platform, ident.URL, key)
	if err != nil {
		return nil, err
	}
	meta.RunID = run.ID
	meta.DatasetID = run.DatasetID

	jb, err := s.store.Upsert(ctx, key, job.Patch{Status: job.StatusPending, Meta: meta, Force: force})
	if err != nil {
		return nil, common.WrapError(common.ErrDatastore, err)
	}
	common.LogInfo("任務已排入慢路徑",
		zap.String("key", key),
		zap.String("run_id", run.ID),
		zap.Int("attempts", attempts),
	)
	return jb, nil
}

// Result 查詢任務現況，不觸發任何處理。不存在時回 (nil, nil)
func (s *Service) Result(ctx context.Context, key string) (*job.Job, error) {
	return s.lookup(ctx, key)
}

// lookup 查任務快取，不存在時回 (nil, nil)
func (s *Service) lookup(ctx context.Context, key string) (*job.Job, error) {
	jb, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, common.WrapError(common.ErrDatastore, err)
	}
	return jb, nil
}

// fastNormalize 快路徑萃取。模型失敗不阻斷流程，靜默退回慢路徑；
// 儲存失敗才往上報錯。
func (s *Service) fastNormalize(ctx context.Context, n provider.Normalizer, key string, meta job.Meta, force bool) (*job.Job, error) {
	result, err := n.Normalize(ctx, inputFromMeta(key, meta))
	if err != nil {
		common.LogWarn("快路徑萃取失敗，改走爬蟲",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, nil
	}

	meta.Provider = n.Name()
	meta.Model = result.Model
	meta.NormalizeMS = result.ElapsedMS

	jb, err := s.store.Upsert(ctx, key, job.Patch{
		Status: job.StatusReady,
		Value:  result.Recipe,
		Meta:   meta,
		Force:  force,
	})
	if err != nil {
		return nil, common.WrapError(common.ErrDatastore, err)
	}
	common.LogInfo("快路徑萃取完成",
		zap.String("key", key),
		zap.String("provider", meta.Provider),
		zap.Int64("normalize_ms", meta.NormalizeMS),
	)
	return jb, nil
}

// inputFromMeta 把任務中繼資料整理成 AI 供應商的輸入
func inputFromMeta(key string, m job.Meta) *provider.Input {
	return &provider.Input{
		Platform:      m.Platform,
		Key:           key,
		SourceURL:     m.SourceURL,
		Caption:       m.Caption,
		Transcript:    m.Transcript,
		Author:        m.Author,
		CreatorHandle: m.CreatorHandle,
		Thumbnail:     m.Thumbnail,
	}
}

// parseKey 拆開 platform:id 任務鍵
func parseKey(key string) (common.Platform, string) {
	i := strings.Index(key, ":")
	if i <= 0 || i == len(key)-1 {
		return "", ""
	}
	p := common.Platform(key[:i])
	switch p {
	case common.PlatformTikTok, common.PlatformYouTube:
		return p, key[i+1:]
	}
	return "", ""
}
