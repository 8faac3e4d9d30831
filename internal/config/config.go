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

	// OAuth
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Season / Rollover
	SeasonDuration       time.Duration
	PromoteBelow         float64
	DemoteFrom           float64
	RolloverInterval     time.Duration
	OperatorToken        string // 空の場合、Rolloverの手動トリガーAPIは無効
	SessionSweepInterval time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitXpGrant int

	// Discord API
	DiscordTimeout time.Duration
	DiscordMaxSize int64

	// Server
	ServerPort string
	BaseURL    string

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

	cfg.DiscordClientID = os.Getenv("DISCORD_CLIENT_ID")
	if cfg.DiscordClientID == "" {
		missing = append(missing, "DISCORD_CLIENT_ID")
	}

	cfg.DiscordClientSecret = os.Getenv("DISCORD_CLIENT_SECRET")
	if cfg.DiscordClientSecret == "" {
		missing = append(missing, "DISCORD_CLIENT_SECRET")
	}

	cfg.DiscordRedirectURL = os.Getenv("DISCORD_REDIRECT_URL")
	if cfg.DiscordRedirectURL == "" {
		missing = append(missing, "DISCORD_REDIRECT_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SeasonDuration = getEnvDuration("SEASON_DURATION", 90*24*time.Hour)
	cfg.PromoteBelow = getEnvFloat("PROMOTE_BELOW", 0.10)
	cfg.DemoteFrom = getEnvFloat("DEMOTE_FROM", 0.80)
	cfg.RolloverInterval = getEnvDuration("ROLLOVER_CHECK_INTERVAL", 1*time.Hour)
	cfg.OperatorToken = getEnvString("OPERATOR_TOKEN", "")
	cfg.SessionSweepInterval = getEnvDuration("SESSION_SWEEP_INTERVAL", 24*time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitXpGrant = getEnvInt("RATE_LIMIT_XP_GRANT", 30)
	cfg.DiscordTimeout = getEnvDuration("DISCORD_TIMEOUT", 10*time.Second)
	cfg.DiscordMaxSize = getEnvInt64("DISCORD_MAX_SIZE", 1048576)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.PromoteBelow < 0 || cfg.PromoteBelow > 1 || cfg.DemoteFrom < 0 || cfg.DemoteFrom > 1 {
		return nil, fmt.Errorf("PROMOTE_BELOW and DEMOTE_FROM must be in [0, 1]")
	}
	if cfg.PromoteBelow >= cfg.DemoteFrom {
		return nil, fmt.Errorf("PROMOTE_BELOW (%v) must be less than DEMOTE_FROM (%v)", cfg.PromoteBelow, cfg.DemoteFrom)
	}

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

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
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
