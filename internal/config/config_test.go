package config

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"terminal", func(c *Config) { c.Display = DisplayTerminal }, ""},
		{"unthrottled", func(c *Config) { c.CycleDelay = 0 }, ""},
		{"unknown display", func(c *Config) { c.Display = "vga" }, "unsupported display"},
		{"negative cycle delay", func(c *Config) { c.CycleDelay = -time.Millisecond }, "cycle delay"},
		{"zero timer interval", func(c *Config) { c.TimerInterval = 0 }, "timer interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_VMOptions(t *testing.T) {
	cfg := Default()
	cfg.Seed = 42

	opts := cfg.VMOptions(nil)
	assert.Equal(t, DefaultCycleDelay, opts.CycleDelay)
	assert.Equal(t, cfg.TimerInterval, opts.TimerInterval)
	assert.Equal(t, uint64(42), opts.Seed)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger(&buf, false)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	logger.Info("hello", "n", 1)
	assert.Contains(t, buf.String(), "msg=hello")

	logger = NewLogger(&buf, true)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
