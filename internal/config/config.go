package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// デフォルト値
const (
	DefaultAPIURL    = "/api"
	DefaultAppOrigin = "http://localhost:8080"
)

// StorageBackend はクレデンシャル・テーマ設定の永続化先を表す。
type StorageBackend string

const (
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
	StorageMemory StorageBackend = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIURL    string // 環境変数の値（相対パスの場合あり）
	APIBase   string // APP_ORIGIN で解決済みの絶対URL
	AppOrigin string

	// Server
	ServerPort string

	// Storage
	StorageBackend StorageBackend
	StoragePath    string
	StoragePrefix  string
	RedisURL       string

	// Rate Limit
	RateLimitWrite int // req/min

	// Image
	ImageFetchTimeout time.Duration
	ImageMaxSize      int64

	// CORS
	CORSAllowedOrigin string

	// Cookie
	CookieSecure bool

	// Logging
	LogLevel slog.Level
}

// Load は環境変数からConfigを読み込む。
// 必須項目はないが、列挙値やURLが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.APIURL = getEnvString("API_URL", DefaultAPIURL)
	cfg.AppOrigin = strings.TrimRight(getEnvString("APP_ORIGIN", DefaultAppOrigin), "/")

	base, err := ResolveAPIBase(cfg.APIURL, cfg.AppOrigin)
	if err != nil {
		return nil, err
	}
	cfg.APIBase = base

	cfg.StorageBackend = StorageBackend(getEnvString("STORAGE_BACKEND", string(StorageFile)))
	switch cfg.StorageBackend {
	case StorageFile, StorageRedis, StorageMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND: %q (allowed: file, redis, memory)", cfg.StorageBackend)
	}

	level, err := parseLogLevel(getEnvString("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.StoragePath = getEnvString("STORAGE_PATH", defaultStoragePath())
	cfg.StoragePrefix = getEnvString("STORAGE_PREFIX", "reviews:")
	cfg.RedisURL = getEnvString("REDIS_URL", "redis://localhost:6379/0")
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	cfg.ImageFetchTimeout = getEnvDuration("IMAGE_FETCH_TIMEOUT", 10*time.Second)
	cfg.ImageMaxSize = getEnvInt64("IMAGE_MAX_SIZE", 5242880)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:8100")
	cfg.CookieSecure = strings.HasPrefix(cfg.AppOrigin, "https://")

	return cfg, nil
}

// ResolveAPIBase はAPIベースURLを絶対URLに解決する。
// 絶対URLはそのまま、相対プレフィックス（例: /api）はoriginを基準に解決する。
func ResolveAPIBase(apiURL, origin string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid API_URL: %w", err)
	}
	if u.IsAbs() {
		return strings.TrimRight(u.String(), "/"), nil
	}

	o, err := url.Parse(origin)
	if err != nil || !o.IsAbs() {
		return "", fmt.Errorf("invalid APP_ORIGIN: %q", origin)
	}
	return strings.TrimRight(o.ResolveReference(u).String(), "/"), nil
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "reviews", "storage.json")
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL: %q", s)
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
