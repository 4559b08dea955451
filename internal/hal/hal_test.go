package hal

import (
	"testing"

	"github.com/kapitanov/chip8core/internal/vm"
	"github.com/retroenv/retrogolib/assert"
)

func TestKeyForRune(t *testing.T) {
	tests := []struct {
		r        rune
		expected vm.Key
	}{
		{'1', vm.Key1},
		{'2', vm.Key2},
		{'3', vm.Key3},
		{'4', vm.KeyC},
		{'q', vm.Key4},
		{'w', vm.Key5},
		{'e', vm.Key6},
		{'r', vm.KeyD},
		{'a', vm.Key7},
		{'s', vm.Key8},
		{'d', vm.Key9},
		{'f', vm.KeyE},
		{'z', vm.KeyA},
		{'x', vm.Key0},
		{'c', vm.KeyB},
		{'v', vm.KeyF},
		{'V', vm.KeyF},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			key, ok := KeyForRune(tt.r)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, key)
		})
	}
}

func TestKeyForRune_Unmapped(t *testing.T) {
	for _, r := range []rune{0, ' ', '5', 'g', 'p', 'Ж'} {
		_, ok := KeyForRune(r)
		assert.False(t, ok)
	}
}

func TestKeyLayoutCoversAllKeys(t *testing.T) {
	seen := map[vm.Key]bool{}
	for _, key := range keyLayout {
		seen[key] = true
	}
	assert.Equal(t, vm.KeyCount, len(seen))
}
