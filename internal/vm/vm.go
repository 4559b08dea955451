package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	InstructionSize = 2
)

var (
	ErrUnknownOpcode   = errors.New("unknown op code")
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrAddressOverflow = errors.New("address overflow")
	ErrOutOfBounds     = errors.New("memory out of range")
	ErrROMTooLarge     = errors.New("program too large")
)

// Options tune a VM. The zero value is usable.
type Options struct {
	CycleDelay    time.Duration // pause between cycles, 0 runs unthrottled
	TimerInterval time.Duration // timer decrement cadence, DefaultTimerInterval if 0
	Seed          uint64        // random source seed, time based if 0
	Speaker       Speaker
}

type VM struct {
	mem  *Memory
	reg  *Registers
	gfx  *Framebuffer
	keys *KeyQueue

	frames *FrameQueue
	ticker *Ticker
	rand   *rand.Rand

	cycleDelay time.Duration
}

// New builds a machine with program loaded at ProgramStart. Key presses are read from keys
// and a frame is published to frames after every cycle.
func New(program []byte, keys *KeyQueue, frames *FrameQueue, opts Options) (*VM, error) {
	mem := NewMemory()
	if err := mem.Load(program); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	reg := NewRegisters()

	return &VM{
		mem:        mem,
		reg:        reg,
		gfx:        NewFramebuffer(),
		keys:       keys,
		frames:     frames,
		ticker:     NewTicker(reg.Timers, opts.TimerInterval, opts.Speaker),
		rand:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		cycleDelay: opts.CycleDelay,
	}, nil
}

// Run executes the program until ctx is cancelled or the program faults.
// Cancellation is not an error.
func (vm *VM) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		vm.ticker.Run(ctx)
	}()

	// the ticker has to observe cancellation before we wait for it
	defer wg.Wait()
	defer cancel()

	vm.frames.Publish(vm.gfx.Snapshot())

	for {
		if ctx.Err() != nil {
			return nil
		}

		err := vm.step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, errInfiniteLoop):
			vm.idle(ctx)
			return nil
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			return nil
		default:
			return err
		}

		if err := vm.waitForNextCycle(ctx); err != nil {
			return nil
		}
	}
}

// step runs a single fetch, decode, execute, publish cycle.
func (vm *VM) step(ctx context.Context) error {
	bs, err := vm.mem.Read(vm.reg.PC)
	if err != nil {
		return err
	}

	if err := vm.executeOpcode(ctx, bs); err != nil {
		return err
	}

	vm.frames.Publish(vm.gfx.Snapshot())
	return nil
}

// idle publishes the final frame of a program that jumped to itself and blocks until ctx is done.
func (vm *VM) idle(ctx context.Context) {
	slog.Info("program looped", "pc", fmt.Sprintf("0x%04x", vm.reg.PC))
	vm.frames.Publish(vm.gfx.Snapshot())
	<-ctx.Done()
}

func (vm *VM) waitForNextCycle(ctx context.Context) error {
	if vm.cycleDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(vm.cycleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
