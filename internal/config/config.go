package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis（任意。設定時は認可コードの使用済みマーカーをRedisで管理する）
	RedisURL string

	// Cognito
	CognitoDomain       string
	CognitoClientID     string
	CognitoClientSecret string
	CognitoRedirectURL  string
	CognitoScope        string
	AdminGroup          string

	// Backend（API Gateway のベースURL）
	RecipesAPIURL    string
	CategoriesAPIURL string
	CoreAPIURL       string
	ChatAPIURL       string
	BackendTimeout   time.Duration

	// Session
	SessionMaxAge       int
	SessionAwaitTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitChat    int

	// Image probe
	ImageProbeTimeout time.Duration
	ImageProbeMaxSize int64

	// Cleanup
	CodeMarkerRetention time.Duration

	// Server
	ServerPort string
	BaseURL    string
	StaticDir  string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.CognitoDomain = os.Getenv("COGNITO_DOMAIN")
	if cfg.CognitoDomain == "" {
		missing = append(missing, "COGNITO_DOMAIN")
	}

	cfg.CognitoClientID = os.Getenv("COGNITO_CLIENT_ID")
	if cfg.CognitoClientID == "" {
		missing = append(missing, "COGNITO_CLIENT_ID")
	}

	cfg.CognitoClientSecret = os.Getenv("COGNITO_CLIENT_SECRET")
	if cfg.CognitoClientSecret == "" {
		missing = append(missing, "COGNITO_CLIENT_SECRET")
	}

	cfg.CognitoRedirectURL = os.Getenv("COGNITO_REDIRECT_URL")
	if cfg.CognitoRedirectURL == "" {
		missing = append(missing, "COGNITO_REDIRECT_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.CognitoScope = getEnvString("COGNITO_SCOPE", "openid email profile")
	cfg.AdminGroup = getEnvString("ADMIN_GROUP", "Admin")
	cfg.RecipesAPIURL = getEnvString("RECIPES_API_URL", "https://qbk52rz2nl.execute-api.us-east-1.amazonaws.com/dev")
	cfg.CategoriesAPIURL = getEnvString("CATEGORIES_API_URL", "https://f5xanmlhpc.execute-api.us-east-1.amazonaws.com/dev")
	cfg.CoreAPIURL = getEnvString("CORE_API_URL", "https://6atvdcxzgf.execute-api.us-east-1.amazonaws.com/dev")
	cfg.ChatAPIURL = getEnvString("CHAT_API_URL", cfg.CoreAPIURL)
	cfg.BackendTimeout = getEnvDuration("BACKEND_TIMEOUT", 10*time.Second)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionAwaitTimeout = getEnvDuration("SESSION_AWAIT_TIMEOUT", 5*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitChat = getEnvInt("RATE_LIMIT_CHAT", 20)
	cfg.ImageProbeTimeout = getEnvDuration("IMAGE_PROBE_TIMEOUT", 5*time.Second)
	cfg.ImageProbeMaxSize = getEnvInt64("IMAGE_PROBE_MAX_SIZE", 1048576)
	cfg.CodeMarkerRetention = getEnvDuration("CODE_MARKER_RETENTION", 24*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.StaticDir = getEnvString("STATIC_DIR", "")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
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
