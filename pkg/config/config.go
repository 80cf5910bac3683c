package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Browser origins allowed to open websockets besides the server's own
	AllowedOrigins []string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	Insight      InsightConfig
	AlphaVantage AlphaVantageConfig
	Ephemeris    EphemerisConfig

	// Domain
	Market   MarketConfig
	Analysis AnalysisConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
	SentryDSN      string // empty disables error tracking
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// InsightConfig selects and configures the language-model collaborator.
// Provider "template" is the offline build: no network, deterministic text.
type InsightConfig struct {
	Provider        string // deepseek, openai, anthropic, template
	DeepSeekAPIKey  string
	DeepSeekModel   string
	DeepSeekBaseURL string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
	Concurrency     int
	RatePerSecond   float64
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey       string
	BaseURL      string
	SymbolSuffix string // exchange suffix appended to bare symbols (.BSE)
	CallsPerMin  int
}

// EphemerisConfig points at the ephemeris service.
// An empty URL means no ephemeris is available.
type EphemerisConfig struct {
	URL      string
	Ayanamsa string
}

// MarketConfig controls tracked symbols and the market-data TTL cache
type MarketConfig struct {
	TrackedStocks []string
	WatchlistPath string // YAML watchlist; replaces TrackedStocks when set
	CacheTTL      time.Duration
	UseRealData   bool
}

// AnalysisConfig holds pipeline-level defaults
type AnalysisConfig struct {
	Timezone            string
	RecommendationLimit int
	CacheRetentionDays  int
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port:           getEnv("PORT", "8089"),
		Env:            getEnv("ENV", "development"),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", ""),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// External APIs
		Insight: InsightConfig{
			Provider:        strings.ToLower(getEnv("INSIGHT_PROVIDER", "deepseek")),
			DeepSeekAPIKey:  getEnv("DEEPSEEK_API_KEY", ""),
			DeepSeekModel:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			DeepSeekBaseURL: getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			Temperature:     getEnvAsFloat("INSIGHT_TEMPERATURE", 0.7),
			MaxTokens:       getEnvAsInt("INSIGHT_MAX_TOKENS", 200),
			Timeout:         getEnvAsDuration("INSIGHT_TIMEOUT", "60s"),
			Concurrency:     getEnvAsInt("INSIGHT_CONCURRENCY", 4),
			RatePerSecond:   getEnvAsFloat("INSIGHT_RATE_PER_SEC", 2),
		},

		AlphaVantage: AlphaVantageConfig{
			APIKey:       getEnv("ALPHA_VANTAGE_API_KEY", "demo"),
			BaseURL:      getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
			SymbolSuffix: getEnv("ALPHA_VANTAGE_SUFFIX", ".BSE"),
			CallsPerMin:  getEnvAsInt("ALPHA_VANTAGE_CALLS_PER_MIN", 5),
		},

		Ephemeris: EphemerisConfig{
			URL:      getEnv("EPHEMERIS_URL", ""),
			Ayanamsa: strings.ToLower(getEnv("EPHEMERIS_AYANAMSA", "lahiri")),
		},

		Market: MarketConfig{
			TrackedStocks: getEnvAsList("NSE_STOCKS", "RELIANCE,TCS,HDFCBANK,INFY,TATASTEEL,SUNPHARMA,ITC,HINDUNILVR,SBIN,BAJFINANCE"),
			WatchlistPath: getEnv("WATCHLIST_PATH", ""),
			CacheTTL:      time.Duration(getEnvAsInt("MARKET_DATA_CACHE_TTL_HOURS", 1)) * time.Hour,
			UseRealData:   getEnvAsBool("USE_REAL_MARKET_DATA", true),
		},

		Analysis: AnalysisConfig{
			Timezone:            getEnv("DEFAULT_TIMEZONE", "Asia/Kolkata"),
			RecommendationLimit: getEnvAsInt("RECOMMENDATION_LIMIT", 10),
			CacheRetentionDays:  getEnvAsInt("CACHE_RETENTION_DAYS", 30),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Insight.Provider {
	case "deepseek", "openai", "anthropic", "template":
	default:
		return fmt.Errorf("INSIGHT_PROVIDER must be one of: deepseek, openai, anthropic, template")
	}

	if _, err := time.LoadLocation(c.Analysis.Timezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE is invalid: %w", err)
	}

	if c.Analysis.RecommendationLimit <= 0 {
		return fmt.Errorf("RECOMMENDATION_LIMIT must be positive")
	}

	return nil
}

// Location returns the analysis timezone; validate() guarantees it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Analysis.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string, defaultValue string) []string {
	raw := getEnv(key, defaultValue)

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
