package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kapitanov/chip8core/internal/config"
	"github.com/kapitanov/chip8core/internal/hal"
	"github.com/kapitanov/chip8core/internal/hal/sdlhal"
	"github.com/kapitanov/chip8core/internal/hal/termhal"
	"github.com/kapitanov/chip8core/internal/vm"
	"github.com/retroenv/retrogolib/app"
	"github.com/spf13/cobra"
)

func init() {
	// SDL has to be driven from the main thread.
	runtime.LockOSThread()
}

func main() {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := cmd.Flags()
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable verbose logging")
	flags.StringVarP(&cfg.Display, "display", "d", cfg.Display, "display to use: sdl or terminal")
	flags.DurationVar(&cfg.CycleDelay, "cycle-delay", cfg.CycleDelay, "pause between cpu cycles, 0 to run unthrottled")
	flags.DurationVar(&cfg.TimerInterval, "timer-interval", cfg.TimerInterval, "delay and sound timer decrement interval")
	flags.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random number seed, 0 picks one from the clock")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file")

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		cfg.ROMPath = args[0]
		if err := cfg.Validate(); err != nil {
			return err
		}

		logOutput, closeLog, err := openLog(cfg)
		if err != nil {
			return err
		}
		defer closeLog()
		slog.SetDefault(config.NewLogger(logOutput, cfg.Verbose))

		path := cfg.ROMPath
		bs, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to load file %q: %w", path, err)
		}

		h, err := newHAL(cfg.Display)
		if err != nil {
			return fmt.Errorf("unable to initialize hal: %w", err)
		}
		defer h.Shutdown()

		return run(app.Context(), cfg, bs, h)
	}

	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func newHAL(display string) (hal.HAL, error) {
	if display == config.DisplayTerminal {
		return termhal.New()
	}
	return sdlhal.New()
}

// openLog keeps stderr out of the way when the terminal itself is the display.
func openLog(cfg config.Config) (io.Writer, func(), error) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open log file %q: %w", cfg.LogFile, err)
		}
		return f, func() { _ = f.Close() }, nil
	}

	if cfg.Display == config.DisplayTerminal {
		return io.Discard, func() {}, nil
	}
	return os.Stderr, func() {}, nil
}

func run(ctx context.Context, cfg config.Config, program []byte, h hal.HAL) error {
	for {
		err := boot(ctx, cfg, program, h)

		switch {
		case errors.Is(err, hal.ErrReboot):
			slog.Info("reboot")
			continue
		case errors.Is(err, hal.ErrQuit), errors.Is(err, context.Canceled):
			return nil
		default:
			return err
		}
	}
}

// boot runs one machine until the frontend or the machine stops it, and returns why.
func boot(parent context.Context, cfg config.Config, program []byte, h hal.HAL) error {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	keys := vm.NewKeyQueue()
	frames := vm.NewFrameQueue()

	machine, err := vm.New(program, keys, frames, cfg.VMOptions(h))
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := machine.Run(ctx); err != nil {
			cancel(err)
		}
	}()

	if err := h.Run(ctx, cancel, frames.Frames(), keys); err != nil {
		cancel(err)
	}
	<-done

	return context.Cause(ctx)
}
