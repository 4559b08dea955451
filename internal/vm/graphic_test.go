package vm

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestFramebuffer_DrawSprite(t *testing.T) {
	fb := NewFramebuffer()

	x, y := 1, 2
	collision := fb.DrawSprite(uint8(x), uint8(y), []uint8{0xF0, 0x0F, 0xFF})
	assert.False(t, collision)

	frame := fb.Snapshot()
	rows := [][]uint8{
		{1, 1, 1, 1, 0, 0, 0, 0},
		{0, 0, 0, 0, 1, 1, 1, 1},
		{1, 1, 1, 1, 1, 1, 1, 1},
	}
	for row, pixels := range rows {
		for col, want := range pixels {
			assert.Equal(t, want, frame.Pixel(x+col, y+row))
		}
	}

	// nothing outside the sprite
	assert.Equal(t, uint8(0), frame.Pixel(x-1, y))
	assert.Equal(t, uint8(0), frame.Pixel(x+8, y))
	assert.Equal(t, uint8(0), frame.Pixel(x, y+3))
}

func TestFramebuffer_DrawSpriteTwiceRestores(t *testing.T) {
	fb := NewFramebuffer()
	fb.DrawSprite(0, 0, []uint8{0x80})
	before := fb.Snapshot()

	sprite := []uint8{0x3C, 0x42, 0x81}
	assert.False(t, fb.DrawSprite(10, 10, sprite))
	assert.True(t, fb.DrawSprite(10, 10, sprite))

	assert.Equal(t, before, fb.Snapshot())
}

func TestFramebuffer_DrawSpriteWraps(t *testing.T) {
	fb := NewFramebuffer()

	fb.DrawSprite(60, 30, []uint8{0xFF, 0xFF, 0xFF})
	frame := fb.Snapshot()

	for col := 0; col < 8; col++ {
		x := (60 + col) % ScreenWidth
		assert.Equal(t, uint8(1), frame.Pixel(x, 30))
		assert.Equal(t, uint8(1), frame.Pixel(x, 31))
		// third row wraps to the top
		assert.Equal(t, uint8(1), frame.Pixel(x, 0))
	}

	// sprite columns 4-7 land on screen columns 0-3
	assert.Equal(t, uint8(1), frame.Pixel(3, 30))
	assert.Equal(t, uint8(0), frame.Pixel(4, 30))
	assert.Equal(t, uint8(0), frame.Pixel(59, 30))
}

func TestFramebuffer_CollisionIsPerPixel(t *testing.T) {
	fb := NewFramebuffer()

	assert.False(t, fb.DrawSprite(0, 0, []uint8{0x01}))
	// second row misses, first row only touches the one lit pixel
	assert.True(t, fb.DrawSprite(0, 0, []uint8{0x81, 0x00}))

	frame := fb.Snapshot()
	assert.Equal(t, uint8(1), frame.Pixel(0, 0))
	assert.Equal(t, uint8(0), frame.Pixel(7, 0))

	// adjacent but not overlapping
	assert.False(t, fb.DrawSprite(1, 0, []uint8{0x40}))
}

func TestFramebuffer_Clear(t *testing.T) {
	fb := NewFramebuffer()
	fb.DrawSprite(5, 5, []uint8{0xFF, 0xFF})

	fb.Clear()

	assert.Equal(t, Frame{}, fb.Snapshot())
	assert.False(t, fb.DrawSprite(5, 5, []uint8{0xFF}))
}

func TestFramebuffer_SnapshotIsIndependent(t *testing.T) {
	fb := NewFramebuffer()
	snapshot := fb.Snapshot()

	fb.DrawSprite(0, 0, []uint8{0x80})

	current := fb.Snapshot()
	assert.Equal(t, uint8(0), snapshot.Pixel(0, 0))
	assert.Equal(t, uint8(1), current.Pixel(0, 0))
}

func TestFrameQueue_KeepsLatest(t *testing.T) {
	q := NewFrameQueue()

	var first, second Frame
	first[0] = 1
	second[1] = 1

	q.Publish(first)
	q.Publish(second)

	got := <-q.Frames()
	assert.Equal(t, second, got)

	select {
	case <-q.Frames():
		t.Fatal("stale frame left in queue")
	default:
	}
}
