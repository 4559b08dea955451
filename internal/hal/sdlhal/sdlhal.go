// Package sdlhal renders the machine into an SDL window and reads the keyboard from it.
package sdlhal

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"github.com/kapitanov/chip8core/internal/hal"
	"github.com/kapitanov/chip8core/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	WindowWidth  = 1024
	WindowHeight = 512

	audioFrequency = 44100
	toneFrequency  = 440
)

var _ hal.HAL = (*HAL)(nil)

type HAL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	backBuffer      []uint32
	backBufferPitch int

	audio sdl.AudioDeviceID // 0 when no audio device could be opened
	tone  []byte
}

func New() (*HAL, error) {
	if err := sdl.Init(sdl.INIT_EVERYTHING); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, WindowWidth, WindowHeight, sdl.WINDOW_SHOWN|sdl.WINDOW_UTILITY)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	slog.Debug("hal: create window")
	window.Show()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	err = renderer.SetLogicalSize(WindowWidth, WindowHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl texture: %w", err)
	}
	slog.Debug("hal: create texture")

	h := &HAL{
		window:          window,
		renderer:        renderer,
		texture:         texture,
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: int(vm.ScreenWidth) * int(unsafe.Sizeof(uint32(0))),
	}
	h.openAudio()

	return h, nil
}

func (h *HAL) openAudio() {
	spec := &sdl.AudioSpec{
		Freq:     audioFrequency,
		Format:   sdl.AUDIO_U8,
		Channels: 1,
		Samples:  2048,
	}

	dev, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		slog.Warn("hal: audio unavailable", "err", err)
		return
	}
	slog.Debug("hal: open audio device")

	h.audio = dev
	h.tone = squareWave(audioFrequency, toneFrequency, time.Second)
}

// squareWave renders d worth of unsigned 8 bit mono samples.
func squareWave(sampleRate, freq int, d time.Duration) []byte {
	n := int(int64(sampleRate) * int64(d) / int64(time.Second))
	period := sampleRate / freq

	samples := make([]byte, n)
	for i := range samples {
		if (i % period) < period/2 {
			samples[i] = 0xA0
		} else {
			samples[i] = 0x60
		}
	}
	return samples
}

func (h *HAL) Shutdown() {
	if h.audio != 0 {
		sdl.CloseAudioDevice(h.audio)
	}

	if err := h.texture.Destroy(); err != nil {
		slog.Error("failed to destroy sdl texture", "err", err)
	}

	if err := h.renderer.Destroy(); err != nil {
		slog.Error("failed to destroy sdl renderer", "err", err)
	}

	if err := h.window.Destroy(); err != nil {
		slog.Error("failed to destroy sdl window", "err", err)
	}

	sdl.Quit()
}

// StartSound is called from the timer goroutine; SDL audio queueing is thread safe.
func (h *HAL) StartSound() {
	if h.audio == 0 {
		return
	}

	sdl.ClearQueuedAudio(h.audio)
	if err := sdl.QueueAudio(h.audio, h.tone); err != nil {
		slog.Error("failed to queue sdl audio", "err", err)
		return
	}
	sdl.PauseAudioDevice(h.audio, false)
}

func (h *HAL) StopSound() {
	if h.audio == 0 {
		return
	}

	sdl.PauseAudioDevice(h.audio, true)
	sdl.ClearQueuedAudio(h.audio)
}

// Run must be called from the main thread.
func (h *HAL) Run(ctx context.Context, cancel context.CancelCauseFunc, frames <-chan vm.Frame, keys *vm.KeyQueue) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case gfx := <-frames:
			if err := h.Draw(&gfx); err != nil {
				return err
			}
		default:
		}

		if err := h.ReadInput(keys.Push); err != nil {
			cancel(err)
		}

		h.WaitForNextFrame()
	}
}

func (h *HAL) ReadInput(keyDown func(vm.Key)) error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e.GetType() {
		case sdl.QUIT:
			slog.Debug("hal: exit requested")
			return hal.ErrQuit

		case sdl.KEYDOWN:
			err := h.processKeyDown(e.(*sdl.KeyboardEvent), keyDown)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (h *HAL) processKeyDown(e *sdl.KeyboardEvent, callback func(vm.Key)) error {
	switch e.Keysym.Scancode {
	case sdl.SCANCODE_BACKSPACE:
		slog.Debug("hal: reboot requested")
		return hal.ErrReboot
	case sdl.SCANCODE_ESCAPE:
		slog.Debug("hal: exit requested")
		return hal.ErrQuit
	}

	// held keys repeat, the machine only sees presses
	if e.Repeat != 0 {
		return nil
	}

	key, ok := keyMap(e.Keysym.Scancode)
	if ok {
		callback(key)
	}

	return nil
}

// keyMap maps scancodes so the layout follows key positions, not the active keyboard layout.
func keyMap(code sdl.Scancode) (vm.Key, bool) {
	switch code {
	case sdl.SCANCODE_X:
		return vm.Key0, true
	case sdl.SCANCODE_1:
		return vm.Key1, true
	case sdl.SCANCODE_2:
		return vm.Key2, true
	case sdl.SCANCODE_3:
		return vm.Key3, true
	case sdl.SCANCODE_Q:
		return vm.Key4, true
	case sdl.SCANCODE_W:
		return vm.Key5, true
	case sdl.SCANCODE_E:
		return vm.Key6, true
	case sdl.SCANCODE_A:
		return vm.Key7, true
	case sdl.SCANCODE_S:
		return vm.Key8, true
	case sdl.SCANCODE_D:
		return vm.Key9, true
	case sdl.SCANCODE_Z:
		return vm.KeyA, true
	case sdl.SCANCODE_C:
		return vm.KeyB, true
	case sdl.SCANCODE_4:
		return vm.KeyC, true
	case sdl.SCANCODE_R:
		return vm.KeyD, true
	case sdl.SCANCODE_F:
		return vm.KeyE, true
	case sdl.SCANCODE_V:
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (h *HAL) Draw(gfx *vm.Frame) error {
	const (
		bgColor = uint32(0x000000)
		fgColor = uint32(0xbea700)
	)

	for y := 0; y < vm.ScreenHeight; y++ {
		for x := 0; x < vm.ScreenWidth; x++ {
			i := x + y*vm.ScreenWidth

			color := bgColor
			if gfx[i] != 0 {
				color = fgColor
			}

			h.backBuffer[i] = color
		}
	}

	backBufferPtr := unsafe.Pointer(&h.backBuffer[0])
	if err := h.texture.Update(nil, backBufferPtr, h.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := h.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := h.renderer.Copy(h.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	h.renderer.Present()
	return nil
}

func (h *HAL) WaitForNextFrame() {
	const delayDuration = 1200 * time.Microsecond
	time.Sleep(delayDuration)
}
