package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingCredential 表示缺少调用外部 API 所需的密钥
var ErrMissingCredential = errors.New("missing credential")

const (
	PoolProviderFeeds = "feeds"
	PoolProviderEmpty = "empty"
)

// 卡片数量与原先侧边栏滑块一致：6~20，步长 2
const (
	MinCards = 6
	MaxCards = 20
	cardStep = 2
)

type Config struct {
	AppPort  string
	LogLevel string

	DataDir     string
	LogDir      string
	SourcesPath string

	PoolProvider    string
	RedisAddr       string
	PoolCacheTTL    time.Duration
	PoolRefreshCron string
	IdleFlushAfter  time.Duration

	CardsDefault int
	LogBOM       bool
	HTTPTimeout  time.Duration

	PostgresDSN string

	YouTubeAPIKey string
	LastFMAPIKey  string
}

// Load 先尝试加载 .env，再从环境变量读取配置
func Load() *Config {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "data")
	cfg := &Config{
		AppPort:         getEnv("APP_PORT", "9000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DataDir:         dataDir,
		LogDir:          getEnv("LOG_DIR", filepath.Join(dataDir, "logs")),
		SourcesPath:     getEnv("SOURCES_PATH", filepath.Join(dataDir, "news_sources.yaml")),
		PoolProvider:    strings.ToLower(getEnv("POOL_PROVIDER", PoolProviderFeeds)),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		PoolCacheTTL:    getDuration("POOL_CACHE_TTL", 10*time.Minute),
		PoolRefreshCron: getEnv("POOL_REFRESH_CRON", "*/10 * * * *"),
		IdleFlushAfter:  getDuration("IDLE_FLUSH_AFTER", 15*time.Minute),
		CardsDefault:    ClampCards(getInt("CARDS_DEFAULT", 12)),
		LogBOM:          getBool("LOG_BOM", true),
		HTTPTimeout:     getDuration("HTTP_TIMEOUT", 30*time.Second),
		PostgresDSN:     getEnv("POSTGRES_DSN", ""),
		YouTubeAPIKey:   getEnv("YOUTUBE_API_KEY", ""),
		LastFMAPIKey:    getEnv("LASTFM_API_KEY", ""),
	}

	if cfg.PoolProvider != PoolProviderFeeds && cfg.PoolProvider != PoolProviderEmpty {
		cfg.PoolProvider = PoolProviderFeeds
	}
	return cfg
}

// RequireYouTubeKey 报告 buzz 流程必需的密钥是否存在
func (c *Config) RequireYouTubeKey() error {
	if c.YouTubeAPIKey == "" {
		return fmt.Errorf("env YOUTUBE_API_KEY required: %w", ErrMissingCredential)
	}
	return nil
}

// ClampCards 把卡片数限制在 [MinCards, MaxCards]，并对齐到步长
func ClampCards(n int) int {
	if n < MinCards {
		return MinCards
	}
	if n > MaxCards {
		return MaxCards
	}
	return n - (n-MinCards)%cardStep
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// Now returns current time in UTC，日志分区统一按 UTC 日期
func Now() time.Time {
	return time.Now().UTC()
}
