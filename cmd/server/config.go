package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string
	AppEnv  string

	GeminiAPIKey string
	GeminiModel  string
	AgentModel   string
	MockAI       bool

	TavilyAPIKey   string
	SerperAPIKey   string
	RedisURL       string
	SearchCacheTTL time.Duration

	EnableDB      bool
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	SentryDSN      string
	ReportsDir     string
	ProfilesFile   string
	MaxUploadBytes int64
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "release"),
		AppEnv:  getEnv("APP_ENV", "development"),

		GeminiAPIKey: getEnv("GOOGLE_API_KEY", os.Getenv("GEMINI_API_KEY")),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AgentModel:   getEnv("AGENT_MODEL", "gemini-2.5-flash"),
		MockAI:       envBool("MOCK_AI"),

		TavilyAPIKey: os.Getenv("TAVILY_API_KEY"),
		SerperAPIKey: os.Getenv("SERPER_API_KEY"),
		RedisURL:     os.Getenv("REDIS_URL"),

		EnableDB:      envBool("ENABLE_DB"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "radiolens"),

		SentryDSN:    os.Getenv("SENTRY_DSN"),
		ReportsDir:   getEnv("REPORTS_DIR", filepath.Join(os.TempDir(), "radiolens-reports")),
		ProfilesFile: os.Getenv("PROFILES_FILE"),
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	if cfg.GeminiAPIKey == "" && !cfg.MockAI {
		return nil, fmt.Errorf("GOOGLE_API_KEY or GEMINI_API_KEY is required unless MOCK_AI=true")
	}

	ttl, err := time.ParseDuration(getEnv("SEARCH_CACHE_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("SEARCH_CACHE_TTL must be a positive duration")
	}
	cfg.SearchCacheTTL = ttl

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer")
	}
	cfg.MaxUploadBytes = maxUpload

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envBool(key string) bool {
	return strings.EqualFold(getEnv(key, "false"), "true")
}
