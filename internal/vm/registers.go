package vm

import "sync"

// Registers is the CPU register file. Only the timers are shared with the ticker goroutine.
type Registers struct {
	PC uint16               // Program counter
	I  uint16               // Index register
	V  [RegisterCount]uint8 // V registers (V0-VF)

	Timers *Timers
}

func NewRegisters() *Registers {
	return &Registers{
		PC:     ProgramStart,
		Timers: &Timers{},
	}
}

// Timers holds the delay and sound counters. Every access holds the lock for a single read or write.
type Timers struct {
	mu    sync.Mutex
	delay uint8
	sound uint8
}

func (t *Timers) Delay() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

func (t *Timers) SetDelay(v uint8) {
	t.mu.Lock()
	t.delay = v
	t.mu.Unlock()
}

func (t *Timers) Sound() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sound
}

func (t *Timers) SetSound(v uint8) {
	t.mu.Lock()
	t.sound = v
	t.mu.Unlock()
}

// Tick decrements both timers toward zero and reports whether the sound timer is still running.
func (t *Timers) Tick() (sounding bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.delay > 0 {
		t.delay--
	}
	if t.sound > 0 {
		t.sound--
	}
	return t.sound > 0
}
