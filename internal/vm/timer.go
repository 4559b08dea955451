package vm

import (
	"context"
	"log/slog"
	"time"
)

const DefaultTimerInterval = 15 * time.Millisecond

// Speaker is turned on while the sound timer is non-zero.
type Speaker interface {
	StartSound()
	StopSound()
}

type nopSpeaker struct{}

func (nopSpeaker) StartSound() {}
func (nopSpeaker) StopSound()  {}

// Ticker decrements the timers at a fixed cadence, independent of instruction throughput.
type Ticker struct {
	timers   *Timers
	interval time.Duration
	speaker  Speaker
}

func NewTicker(timers *Timers, interval time.Duration, speaker Speaker) *Ticker {
	if interval <= 0 {
		interval = DefaultTimerInterval
	}
	if speaker == nil {
		speaker = nopSpeaker{}
	}

	return &Ticker{
		timers:   timers,
		interval: interval,
		speaker:  speaker,
	}
}

// Run ticks until ctx is done.
func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	slog.Debug("timer: start", "interval", t.interval)

	sounding := false
	defer func() {
		if sounding {
			t.speaker.StopSound()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("timer: stop")
			return
		case <-ticker.C:
		}

		// the sound timer may have been set since the last tick
		if !sounding && t.timers.Sound() > 0 {
			sounding = true
			t.speaker.StartSound()
		}

		if !t.timers.Tick() && sounding {
			sounding = false
			t.speaker.StopSound()
		}
	}
}
