// Package config handles application configuration and setup
package config

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kapitanov/chip8core/internal/vm"
)

const (
	DisplaySDL      = "sdl"
	DisplayTerminal = "terminal"

	DefaultCycleDelay = 1200 * time.Microsecond
)

// Config is what the command line resolves to.
type Config struct {
	ROMPath       string
	Verbose       bool
	Display       string
	CycleDelay    time.Duration
	TimerInterval time.Duration
	Seed          uint64
	LogFile       string
}

func Default() Config {
	return Config{
		Display:       DisplaySDL,
		CycleDelay:    DefaultCycleDelay,
		TimerInterval: vm.DefaultTimerInterval,
	}
}

func (c Config) Validate() error {
	switch c.Display {
	case DisplaySDL, DisplayTerminal:
	default:
		return fmt.Errorf("unsupported display %q, expected %q or %q", c.Display, DisplaySDL, DisplayTerminal)
	}

	if c.CycleDelay < 0 {
		return fmt.Errorf("cycle delay must not be negative, got %s", c.CycleDelay)
	}

	if c.TimerInterval <= 0 {
		return fmt.Errorf("timer interval must be positive, got %s", c.TimerInterval)
	}

	return nil
}

// VMOptions carries the machine related settings over.
func (c Config) VMOptions(speaker vm.Speaker) vm.Options {
	return vm.Options{
		CycleDelay:    c.CycleDelay,
		TimerInterval: c.TimerInterval,
		Seed:          c.Seed,
		Speaker:       speaker,
	}
}

// NewLogger creates a text logger writing to w, at debug level when verbose is set.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	loggerOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if verbose {
		loggerOpts.Level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, loggerOpts))
}
