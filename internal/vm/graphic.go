package vm

// Frame is an independent copy of the screen, one byte per pixel, row-major.
type Frame [ScreenWidth * ScreenHeight]uint8

// Pixel returns the pixel at column x, row y.
func (f *Frame) Pixel(x, y int) uint8 {
	return f[getScreenAddr(uint16(x), uint16(y))]
}

// Framebuffer is the live monochrome screen. Every pixel is 0 or 1.
type Framebuffer struct {
	gfx Frame
}

func NewFramebuffer() *Framebuffer {
	return &Framebuffer{}
}

func (fb *Framebuffer) Clear() {
	for i := range fb.gfx {
		fb.gfx[i] = 0
	}
}

// DrawSprite XORs an 8 pixel wide sprite onto the screen at (x, y), wrapping on both axes.
// It reports whether any set pixel was flipped off.
func (fb *Framebuffer) DrawSprite(x, y uint8, sprite []uint8) bool {
	const width = uint16(8)

	xLocation, yLocation := uint16(x), uint16(y)
	collision := false

	for row, pixel := range sprite {
		for col := uint16(0); col < width; col++ {
			mask := uint8(0x80 >> col)
			if pixel&mask == 0 {
				continue
			}

			screenAddr := getScreenAddr(xLocation+col, yLocation+uint16(row))
			if fb.gfx[screenAddr] != 0 {
				collision = true
			}
			fb.gfx[screenAddr] ^= 1
		}
	}

	return collision
}

// Snapshot copies the current screen.
func (fb *Framebuffer) Snapshot() Frame {
	return fb.gfx
}

func getScreenAddr(x, y uint16) uint16 {
	x %= ScreenWidth
	y %= ScreenHeight

	screenAddr := ScreenWidth*(y) + x
	return screenAddr
}

// FrameQueue carries snapshots to the display. It holds at most one frame;
// publishing replaces a frame the display has not picked up yet.
type FrameQueue struct {
	ch chan Frame
}

func NewFrameQueue() *FrameQueue {
	return &FrameQueue{ch: make(chan Frame, 1)}
}

// Publish never blocks.
func (q *FrameQueue) Publish(f Frame) {
	for {
		select {
		case q.ch <- f:
			return
		default:
		}

		// drop the stale frame and retry
		select {
		case <-q.ch:
		default:
		}
	}
}

// Frames is the consumer side.
func (q *FrameQueue) Frames() <-chan Frame {
	return q.ch
}
