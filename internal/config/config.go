package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Marketplace MarketplaceConfig
	Browser     BrowserConfig
	Scraper     ScraperConfig
	Output      OutputConfig
	Archive     ArchiveConfig
	Events      EventsConfig
	Server      ServerConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

type MarketplaceConfig struct {
	BaseURL   string
	ImageSize int
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

type ScraperConfig struct {
	MaxRetries   int
	RateLimitMin time.Duration
	RateLimitMax time.Duration
}

type OutputConfig struct {
	SaveImages bool
	ImagesDir  string
}

type ArchiveConfig struct {
	// DatabaseURL enables the Postgres archive when non-empty.
	DatabaseURL string
}

type EventsConfig struct {
	// RedisAddr enables stream publishing when non-empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Stream        string
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type MetricsConfig struct {
	// Addr exposes the run's Prometheus registry over HTTP when non-empty,
	// e.g. ":9090".
	Addr string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	// Optional; plain env vars win when no .env file exists.
	_ = godotenv.Load()

	cfg := &Config{
		Marketplace: MarketplaceConfig{
			BaseURL:   getEnvOrDefault("AMAZON_BASE_URL", "https://www.amazon.in"),
			ImageSize: getIntOrDefault("IMAGE_SIZE", 1500),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-IN,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Kolkata"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-IN"),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Scraper: ScraperConfig{
			MaxRetries:   getIntOrDefault("SCRAPER_MAX_RETRIES", 1),
			RateLimitMin: getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 400*time.Millisecond),
			RateLimitMax: getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 2*time.Second),
		},
		Output: OutputConfig{
			SaveImages: getBoolOrDefault("SAVE_IMAGES", false),
			ImagesDir:  getEnvOrDefault("IMAGES_DIR", "images"),
		},
		Archive: ArchiveConfig{
			DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Events: EventsConfig{
			RedisAddr:     getEnvOrDefault("REDIS_ADDR", ""),
			RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
			RedisDB:       getIntOrDefault("REDIS_DB", 0),
			Stream:        getEnvOrDefault("EVENTS_STREAM", "pdp.extracted"),
		},
		Server: ServerConfig{
			Port:            getIntOrDefault("SERVER_PORT", 8084),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Metrics: MetricsConfig{
			Addr: getEnvOrDefault("METRICS_ADDR", ""),
		},
		Logging: LoggingConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Marketplace.ImageSize < 200 {
		return fmt.Errorf("IMAGE_SIZE must be at least 200")
	}

	if !strings.HasPrefix(c.Marketplace.BaseURL, "http") {
		return fmt.Errorf("AMAZON_BASE_URL must be an absolute URL")
	}

	if c.Scraper.MaxRetries < 0 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES cannot be negative")
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
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
