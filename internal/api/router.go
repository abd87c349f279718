package api

import (
	"context"
	"net/http"
	"time"

	"recipe-extractor/internal/api/handlers"
	"recipe-extractor/internal/api/handlers/health"
	"recipe-extractor/internal/api/middleware"
	"recipe-extractor/internal/core/ai"
	"recipe-extractor/internal/core/extract"
	"recipe-extractor/internal/core/job"
	"recipe-extractor/internal/core/scraper"
	"recipe-extractor/internal/core/video"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (1MB)，這個服務只收網址與回呼載荷
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, store job.Store) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 速率限制
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("scraper_enabled", cfg.Apify.Token != ""),
		zap.String("tiktok_provider", cfg.AI.TikTokProvider),
		zap.Duration("timeout", timeoutDuration),
	)

	// 初始化服務
	fetcher := video.NewFetcher(cfg)
	scrapeClient := scraper.NewClient(cfg)
	aiRouter := ai.NewRouter(cfg)
	extractService := extract.NewService(cfg, store, fetcher, scrapeClient, aiRouter.Route)

	// 全局中間件：設置超時和服務
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()

		// 創建新的請求上下文
		req := c.Request.WithContext(ctx)
		c.Request = req

		// 設置配置與任務儲存，健康檢查會用到
		c.Set("config", cfg)
		c.Set("job_store", store)

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
				"details": gin.H{
					"timeout": timeoutDuration.String(),
				},
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// 萃取 API 路由組
	extractHandler := handlers.NewExtractHandler(extractService)
	api := router.Group("/api/v1")
	{
		api.POST("/extract", extractHandler.HandleExtract)
		api.GET("/result", extractHandler.HandleResult)
	}

	// 爬蟲完成回呼，路徑可設定，與啟動爬蟲時註冊的網址一致
	webhookHandler := handlers.NewWebhookHandler(cfg, extractService)
	router.POST(cfg.Webhook.Path, webhookHandler.HandleScrapeComplete)

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.String("webhook_path", cfg.Webhook.Path),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router
}
