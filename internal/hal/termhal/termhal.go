// Package termhal renders the machine into the terminal with termbox.
// Each pixel is two cells wide so the screen keeps its aspect ratio.
package termhal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kapitanov/chip8core/internal/hal"
	"github.com/kapitanov/chip8core/internal/vm"
	"github.com/nsf/termbox-go"
)

const (
	pixelWidth = 2
	eventQueue = 64
)

var _ hal.HAL = (*HAL)(nil)

type HAL struct {
	events chan termbox.Event
	exited chan struct{}
}

func New() (*HAL, error) {
	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("failed to init termbox: %w", err)
	}
	termbox.SetInputMode(termbox.InputEsc)
	slog.Debug("hal: init terminal")

	h := &HAL{
		events: make(chan termbox.Event, eventQueue),
		exited: make(chan struct{}),
	}
	go h.pollEvents()

	return h, nil
}

// pollEvents never blocks outside of PollEvent, so Interrupt always reaches it.
func (h *HAL) pollEvents() {
	defer close(h.exited)

	for {
		ev := termbox.PollEvent()
		if ev.Type == termbox.EventInterrupt {
			return
		}

		select {
		case h.events <- ev:
		default:
			slog.Debug("hal: input dropped")
		}
	}
}

func (h *HAL) Shutdown() {
	termbox.Interrupt()
	<-h.exited
	termbox.Close()
}

// StartSound rings the terminal bell; the terminal cannot hold a tone.
func (h *HAL) StartSound() {
	if _, err := os.Stdout.WriteString("\a"); err != nil {
		slog.Error("failed to ring terminal bell", "err", err)
	}
}

func (h *HAL) StopSound() {}

func (h *HAL) Run(ctx context.Context, cancel context.CancelCauseFunc, frames <-chan vm.Frame, keys *vm.KeyQueue) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case gfx := <-frames:
			if err := h.Draw(&gfx); err != nil {
				return err
			}

		case ev := <-h.events:
			if err := h.processEvent(ev, keys.Push); err != nil {
				cancel(err)
			}
		}
	}
}

func (h *HAL) processEvent(ev termbox.Event, keyDown func(vm.Key)) error {
	switch ev.Type {
	case termbox.EventError:
		return fmt.Errorf("terminal input: %w", ev.Err)

	case termbox.EventResize:
		return termbox.Sync()

	case termbox.EventKey:
		return processKey(ev.Key, ev.Ch, keyDown)
	}

	return nil
}

func processKey(k termbox.Key, ch rune, keyDown func(vm.Key)) error {
	switch k {
	case termbox.KeyEsc, termbox.KeyCtrlC:
		slog.Debug("hal: exit requested")
		return hal.ErrQuit
	case termbox.KeyBackspace, termbox.KeyBackspace2:
		slog.Debug("hal: reboot requested")
		return hal.ErrReboot
	}

	if key, ok := hal.KeyForRune(ch); ok {
		keyDown(key)
	}
	return nil
}

func (h *HAL) Draw(gfx *vm.Frame) error {
	const (
		fgColor = termbox.ColorYellow
		bgColor = termbox.ColorDefault
	)

	if err := termbox.Clear(bgColor, bgColor); err != nil {
		return fmt.Errorf("failed to clear terminal: %w", err)
	}

	for y := 0; y < vm.ScreenHeight; y++ {
		for x := 0; x < vm.ScreenWidth; x++ {
			if gfx.Pixel(x, y) == 0 {
				continue
			}

			for dx := 0; dx < pixelWidth; dx++ {
				termbox.SetCell(x*pixelWidth+dx, y, '█', fgColor, bgColor)
			}
		}
	}

	if err := termbox.Flush(); err != nil {
		return fmt.Errorf("failed to flush terminal: %w", err)
	}
	return nil
}
