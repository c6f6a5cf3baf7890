package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

const validYAML = `
name: market-rotator
host: 0.0.0.0
port: 8080
log_level: INFO
feed:
  url: wss://ws-feed.example.com
  products:
    - BTC-USD
    - ETH-USD
  connect_timeout_ms: 5000
groups:
  - id: main-board
    scheduler:
      fixed_slots: 4
      spotlight_slots: 1
      rotation_interval_seconds: 21
      fairness_window: 2
      sector_diversity: true
      market_hours_weighting: true
      day_parts:
        - name: overnight
          start_hour: 22
          end_hour: 6
          weights:
            crypto: 1.5
          priority_symbols:
            - BTC-USD
    items:
      - id: btc
        symbol: BTC-USD
        category: crypto
        base_weight: 10
        pinned: true
      - id: gold
        symbol: GOLD
        category: commodity
        base_weight: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfigValid(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "market-rotator", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, cfg.Feed.Products)
	require.Len(t, cfg.Groups, 1)

	group := cfg.Groups[0]
	assert.Equal(t, "main-board", group.ID)
	assert.Equal(t, 4, group.Scheduler.FixedSlots)
	assert.Equal(t, 2, group.Scheduler.FairnessWindow)
	require.Len(t, group.Scheduler.DayParts, 1)
	assert.Equal(t, 22, group.Scheduler.DayParts[0].StartHour)
	require.Len(t, group.Items, 2)
	assert.True(t, group.Items[0].Pinned)
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestNewConfigMalformedYAML(t *testing.T) {
	_, err := NewConfig(writeConfig(t, "name: [unclosed"))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"empty host", func(c *Config) { c.Host = "" }},
		{"privileged port", func(c *Config) { c.Port = 80 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"empty feed url", func(c *Config) { c.Feed.URL = "" }},
		{"non websocket url", func(c *Config) { c.Feed.URL = "https://example.com" }},
		{"no products", func(c *Config) { c.Feed.Products = nil }},
		{"negative timeout", func(c *Config) { c.Feed.ConnectTimeoutMs = -1 }},
		{"group without id", func(c *Config) { c.Groups[0].ID = "" }},
		{"negative slots", func(c *Config) { c.Groups[0].Scheduler.FixedSlots = -1 }},
		{"negative interval", func(c *Config) { c.Groups[0].Scheduler.RotationIntervalSeconds = -5 }},
		{"negative fairness", func(c *Config) { c.Groups[0].Scheduler.FairnessWindow = -1 }},
		{"day part hour out of range", func(c *Config) { c.Groups[0].Scheduler.DayParts[0].EndHour = 24 }},
		{"unnamed day part", func(c *Config) { c.Groups[0].Scheduler.DayParts[0].Name = "" }},
		{"zero day part multiplier", func(c *Config) {
			c.Groups[0].Scheduler.DayParts[0].Weights["crypto"] = 0
		}},
		{"item without symbol", func(c *Config) { c.Groups[0].Items[0].Symbol = "" }},
		{"unknown item category", func(c *Config) { c.Groups[0].Items[0].Category = "meme" }},
		{"non positive item weight", func(c *Config) { c.Groups[0].Items[0].BaseWeight = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(writeConfig(t, validYAML))
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateDuplicateGroupIDs(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.Groups = append(cfg.Groups, cfg.Groups[0])
	assert.Error(t, cfg.Validate())
}

func TestValidateZeroSlotsIsLegal(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.Groups[0].Scheduler.FixedSlots = 0
	cfg.Groups[0].Scheduler.SpotlightSlots = 0
	assert.NoError(t, cfg.Validate())
}

// -----------------------------------------------------------------------------

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	reloaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.MConfig, reloaded.MConfig)
}
