package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.amazon.in", cfg.Marketplace.BaseURL)
	assert.Equal(t, 1500, cfg.Marketplace.ImageSize)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1, cfg.Scraper.MaxRetries)
	assert.Equal(t, 400*time.Millisecond, cfg.Scraper.RateLimitMin)
	assert.Equal(t, 2*time.Second, cfg.Scraper.RateLimitMax)
	assert.False(t, cfg.Output.SaveImages)
	assert.Equal(t, "pdp.extracted", cfg.Events.Stream)
	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AMAZON_BASE_URL", "https://www.amazon.com")
	t.Setenv("IMAGE_SIZE", "1000")
	t.Setenv("SCRAPER_MAX_RETRIES", "2")
	t.Setenv("SAVE_IMAGES", "true")
	t.Setenv("BROWSER_TIMEOUT", "45s")
	t.Setenv("METRICS_ADDR", ":9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.amazon.com", cfg.Marketplace.BaseURL)
	assert.Equal(t, 1000, cfg.Marketplace.ImageSize)
	assert.Equal(t, 2, cfg.Scraper.MaxRetries)
	assert.True(t, cfg.Output.SaveImages)
	assert.Equal(t, 45*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("IMAGE_SIZE", "not-a-number")
	t.Setenv("SAVE_IMAGES", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500, cfg.Marketplace.ImageSize)
	assert.False(t, cfg.Output.SaveImages)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "image size too small",
			mutate:  func(c *Config) { c.Marketplace.ImageSize = 100 },
			wantErr: "IMAGE_SIZE",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.Marketplace.BaseURL = "www.amazon.in" },
			wantErr: "AMAZON_BASE_URL",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Scraper.MaxRetries = -1 },
			wantErr: "SCRAPER_MAX_RETRIES",
		},
		{
			name: "rate limit min above max",
			mutate: func(c *Config) {
				c.Scraper.RateLimitMin = 3 * time.Second
				c.Scraper.RateLimitMax = time.Second
			},
			wantErr: "SCRAPER_RATE_LIMIT_MIN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
