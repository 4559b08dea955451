// Package hal defines the boundary between the machine and the outside world:
// something that shows frames, turns physical key presses into CHIP-8 keys and can beep.
package hal

import (
	"context"
	"errors"

	"github.com/kapitanov/chip8core/internal/vm"
)

var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

// HAL is implemented by every frontend.
//
// Run draws frames and forwards key presses to keys until ctx is done. A frontend stops the
// machine by calling cancel with ErrQuit or ErrReboot.
type HAL interface {
	vm.Speaker

	Run(ctx context.Context, cancel context.CancelCauseFunc, frames <-chan vm.Frame, keys *vm.KeyQueue) error
	Shutdown()
}

// Physical                Logical
// ================        =================
// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
// | q | w | e | r |       | 4 | 5 | 6 | D |
// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
// | z | x | c | v |       | A | 0 | B | F |
// ================        =================
var keyLayout = map[rune]vm.Key{
	'x': vm.Key0,
	'1': vm.Key1,
	'2': vm.Key2,
	'3': vm.Key3,
	'q': vm.Key4,
	'w': vm.Key5,
	'e': vm.Key6,
	'a': vm.Key7,
	's': vm.Key8,
	'd': vm.Key9,
	'z': vm.KeyA,
	'c': vm.KeyB,
	'4': vm.KeyC,
	'r': vm.KeyD,
	'f': vm.KeyE,
	'v': vm.KeyF,
}

// KeyForRune maps a character of the physical layout to a CHIP-8 key.
// Upper case letters map like their lower case counterparts.
func KeyForRune(r rune) (vm.Key, bool) {
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	key, ok := keyLayout[r]
	return key, ok
}
