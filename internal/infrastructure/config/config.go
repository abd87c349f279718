package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	AI        AIConfig        `mapstructure:"ai"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Apify     ApifyConfig     `mapstructure:"apify"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Heuristic HeuristicConfig `mapstructure:"heuristic"`
	OEmbed    OEmbedConfig    `mapstructure:"oembed"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	LogLevel  string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// RedisConfig 任務儲存設定，未啟用時退回記憶體儲存
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// AIConfig AI 供應商路由設定
type AIConfig struct {
	TikTokProvider string `mapstructure:"tiktok_provider"`
}

// OpenAIConfig OpenAI 配置
type OpenAIConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// GeminiConfig Gemini 配置
type GeminiConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ApifyConfig 影片爬蟲平台配置
type ApifyConfig struct {
	Token        string        `mapstructure:"token"`
	BaseURL      string        `mapstructure:"base_url"`
	TikTokActor  string        `mapstructure:"tiktok_actor"`
	YouTubeActor string        `mapstructure:"youtube_actor"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// WebhookConfig 爬蟲完成回呼設定
type WebhookConfig struct {
	Path    string `mapstructure:"path"`
	Secret  string `mapstructure:"secret"`
	BaseURL string `mapstructure:"base_url"`
}

// HeuristicConfig 字幕是否足以直接萃取的判斷門檻
type HeuristicConfig struct {
	MinLength   int      `mapstructure:"min_length"`
	MinKeywords int      `mapstructure:"min_keywords"`
	Keywords    []string `mapstructure:"keywords"`
}

// OEmbedConfig 影片中繼資料查詢設定
type OEmbedConfig struct {
	TikTokURL  string        `mapstructure:"tiktok_url"`
	YouTubeURL string        `mapstructure:"youtube_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("openai.model", "OPENAI_MODEL")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("gemini.model", "GEMINI_MODEL")
	viper.BindEnv("ai.tiktok_provider", "TIKTOK_PROVIDER")
	viper.BindEnv("apify.token", "APIFY_TOKEN")
	viper.BindEnv("apify.tiktok_actor", "APIFY_TIKTOK_ACTOR")
	viper.BindEnv("apify.youtube_actor", "APIFY_YOUTUBE_ACTOR")
	viper.BindEnv("webhook.path", "WEBHOOK_PATH")
	viper.BindEnv("webhook.secret", "WEBHOOK_SECRET")
	viper.BindEnv("webhook.base_url", "WEBHOOK_BASE_URL")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("redis.ttl", "REDIS_TTL")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 添加調試日誌（logger 尚未初始化，改用 fmt.Println）
	fmt.Println("Loading configuration",
		"openai_api_key:", maskAPIKey(viper.GetString("openai.api_key")),
		"gemini_api_key:", maskAPIKey(viper.GetString("gemini.api_key")),
		"apify_token:", maskAPIKey(viper.GetString("apify.token")))

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-extractor")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// 任務儲存設定
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", "0s") // 0 表示不過期

	// AI 路由設定
	viper.SetDefault("ai.tiktok_provider", "openai")

	// OpenAI 設定
	viper.SetDefault("openai.base_url", "https://api.openai.com")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.max_tokens", 2000)
	viper.SetDefault("openai.timeout", "60s")

	// Gemini 設定
	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	viper.SetDefault("gemini.model", "gemini-2.0-flash")
	viper.SetDefault("gemini.max_tokens", 2000)
	viper.SetDefault("gemini.timeout", "90s")

	// 爬蟲平台設定
	viper.SetDefault("apify.base_url", "https://api.apify.com")
	viper.SetDefault("apify.tiktok_actor", "clockworks~tiktok-scraper")
	viper.SetDefault("apify.youtube_actor", "streamers~youtube-scraper")
	viper.SetDefault("apify.timeout", "30s")

	// 回呼設定
	viper.SetDefault("webhook.path", "/webhooks/scrape")

	// 字幕門檻設定
	viper.SetDefault("heuristic.min_length", 20)
	viper.SetDefault("heuristic.min_keywords", 3)
	viper.SetDefault("heuristic.keywords", []string{
		"recipe", "ingredient", "cook", "bake", "mix", "stir",
		"oven", "cup", "tbsp", "tsp", "gram", "minutes", "sauce", "serve",
		"食譜", "材料", "作法", "做法", "料理", "步驟", "烹飪", "分鐘", "克",
	})

	// 中繼資料查詢設定
	viper.SetDefault("oembed.tiktok_url", "https://www.tiktok.com/oembed")
	viper.SetDefault("oembed.youtube_url", "https://www.youtube.com/oembed")
	viper.SetDefault("oembed.timeout", "10s")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證任務儲存設定
	if config.Redis.Enabled && config.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}

	// 驗證 AI 路由設定
	switch config.AI.TikTokProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("invalid tiktok provider: %s", config.AI.TikTokProvider)
	}

	// 啟用爬蟲時回呼位址與密鑰為必填，否則完成事件無法送達
	if config.Apify.Token != "" {
		if config.Webhook.BaseURL == "" {
			return fmt.Errorf("webhook base_url is required when apify token is set")
		}
		if config.Webhook.Secret == "" {
			return fmt.Errorf("webhook secret is required when apify token is set")
		}
	}

	// 驗證字幕門檻設定
	if config.Heuristic.MinLength <= 0 {
		return fmt.Errorf("invalid heuristic min length")
	}
	if config.Heuristic.MinKeywords < 0 {
		return fmt.Errorf("invalid heuristic min keywords")
	}

	return nil
}
