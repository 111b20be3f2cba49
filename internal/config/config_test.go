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

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://www.zap.co.il", cfg.Scraper.BaseURL)
	assert.Equal(t, 8.0, cfg.Scraper.ScoreThreshold)
	assert.Equal(t, 10, cfg.Scraper.MinVendorButtons)
	assert.Equal(t, 0.70, cfg.Scraper.MinSuccessRate)
	assert.Equal(t, 5, cfg.Scraper.PoolWidth)
	assert.Equal(t, 3*time.Second, cfg.Scraper.RetryBackoff)
	assert.Nil(t, cfg.Scraper.NoiseTokens)
	assert.Contains(t, cfg.Scraper.SearchKeywords, "מזגן")
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "he-IL", cfg.Browser.Locale)
	assert.Equal(t, "stream:scrape_results", cfg.Redis.Stream)
	assert.Equal(t, 1000, cfg.Queue.MaxSize)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SCRAPER_SCORE_THRESHOLD", "9.5")
	t.Setenv("SCRAPER_MIN_VENDOR_BUTTONS", "3")
	t.Setenv("SCRAPER_VENDOR_TIMEOUT", "45s")
	t.Setenv("SCRAPER_NOISE_TOKENS", "OUTLET,REFURB")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("DB_PORT", "5433")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9.5, cfg.Scraper.ScoreThreshold)
	assert.Equal(t, 3, cfg.Scraper.MinVendorButtons)
	assert.Equal(t, 45*time.Second, cfg.Scraper.VendorTimeout)
	assert.Equal(t, []string{"OUTLET", "REFURB"}, cfg.Scraper.NoiseTokens)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 5433, cfg.Database.Port)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("SCRAPER_SCORE_THRESHOLD", "not-a-number")
	t.Setenv("SCRAPER_VENDOR_TIMEOUT", "soon")
	t.Setenv("BROWSER_HEADLESS", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8.0, cfg.Scraper.ScoreThreshold)
	assert.Equal(t, 30*time.Second, cfg.Scraper.VendorTimeout)
	assert.True(t, cfg.Browser.Headless)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("pool width", func(t *testing.T) {
		cfg := valid()
		cfg.Scraper.PoolWidth = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("success rate range", func(t *testing.T) {
		cfg := valid()
		cfg.Scraper.MinSuccessRate = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("score threshold range", func(t *testing.T) {
		cfg := valid()
		cfg.Scraper.ScoreThreshold = 11
		assert.Error(t, cfg.Validate())
	})

	t.Run("rate limit ordering", func(t *testing.T) {
		cfg := valid()
		cfg.Scraper.RateLimitMin = 10 * time.Second
		cfg.Scraper.RateLimitMax = 2 * time.Second
		assert.Error(t, cfg.Validate())
	})

	t.Run("batch size", func(t *testing.T) {
		cfg := valid()
		cfg.Queue.BatchSize = 0
		assert.Error(t, cfg.Validate())
	})
}
