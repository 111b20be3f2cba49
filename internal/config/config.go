package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ScraperConfig carries every pipeline threshold. The defaults mirror the
// documented matching rules; they are configuration, not constants, because
// the noise-token list and thresholds are expected to evolve.
type ScraperConfig struct {
	BaseURL           string
	ScoreThreshold    float64
	MinVendorButtons  int
	MinSuccessRate    float64
	VendorTimeout     time.Duration
	RetryBackoff      time.Duration
	PoolWidth         int
	SuggestionTimeout time.Duration
	RateLimitMin      time.Duration
	RateLimitMax      time.Duration
	NoiseTokens       []string
	SearchKeywords    []string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr   string
	Stream string
}

type QueueConfig struct {
	MaxSize   int
	BatchSize int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			BaseURL:           getEnvOrDefault("SCRAPER_BASE_URL", "https://www.zap.co.il"),
			ScoreThreshold:    getFloatOrDefault("SCRAPER_SCORE_THRESHOLD", 8.0),
			MinVendorButtons:  getIntOrDefault("SCRAPER_MIN_VENDOR_BUTTONS", 10),
			MinSuccessRate:    getFloatOrDefault("SCRAPER_MIN_SUCCESS_RATE", 0.70),
			VendorTimeout:     getDurationOrDefault("SCRAPER_VENDOR_TIMEOUT", 30*time.Second),
			RetryBackoff:      getDurationOrDefault("SCRAPER_RETRY_BACKOFF", 3*time.Second),
			PoolWidth:         getIntOrDefault("SCRAPER_POOL_WIDTH", 5),
			SuggestionTimeout: getDurationOrDefault("SCRAPER_SUGGESTION_TIMEOUT", 5*time.Second),
			RateLimitMin:      getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 2*time.Second),
			RateLimitMax:      getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 5*time.Second),
			NoiseTokens:       getStringSliceOrDefault("SCRAPER_NOISE_TOKENS", nil),
			SearchKeywords:    getStringSliceOrDefault("SCRAPER_SEARCH_KEYWORDS", defaultSearchKeywords()),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "he-IL,he;q=0.9,en;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Jerusalem"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "he-IL"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "zap_scraper"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:   getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Stream: getEnvOrDefault("REDIS_STREAM", "stream:scrape_results"),
		},
		Queue: QueueConfig{
			MaxSize:   getIntOrDefault("QUEUE_MAX_SIZE", 1000),
			BatchSize: getIntOrDefault("QUEUE_BATCH_SIZE", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.PoolWidth < 1 {
		return fmt.Errorf("SCRAPER_POOL_WIDTH must be at least 1")
	}

	if c.Scraper.MinSuccessRate < 0 || c.Scraper.MinSuccessRate > 1 {
		return fmt.Errorf("SCRAPER_MIN_SUCCESS_RATE must be between 0 and 1")
	}

	if c.Scraper.ScoreThreshold < 0 || c.Scraper.ScoreThreshold > 10 {
		return fmt.Errorf("SCRAPER_SCORE_THRESHOLD must be between 0 and 10")
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	if c.Queue.BatchSize < 1 {
		return fmt.Errorf("QUEUE_BATCH_SIZE must be at least 1")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// defaultSearchKeywords is the allowlist that keeps unrelated product
// categories out of the suggestion dropdown.
func defaultSearchKeywords() []string {
	return []string{
		"מזגן", "INV", "INVERTER",
		"ELECTRA", "TORNADO", "TADIRAN", "ELCO", "GREE", "MIDEA", "HAIER",
	}
}
