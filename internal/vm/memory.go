package vm

import (
	"fmt"
	"log/slog"
)

const (
	FontBase        = uint16(0x000)
	FontGlyphLength = uint16(5)
)

// chip8Font holds the hexadecimal digit glyphs 0-F, 5 bytes each.
var chip8Font = []uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the 4k address space together with the call stack.
// The font occupies the lowest addresses and is never written after construction.
type Memory struct {
	all   [MemorySize]uint8
	stack []uint16
}

func NewMemory() *Memory {
	m := &Memory{
		stack: make([]uint16, 0, StackSize),
	}

	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontBase), "n", len(chip8Font))
	copy(m.all[FontBase:], chip8Font)

	return m
}

// Load copies a program into memory starting at ProgramStart.
func (m *Memory) Load(program []byte) error {
	if len(program) > MemorySize-int(ProgramStart) {
		return fmt.Errorf("%w: %d bytes, at most %d fit", ErrROMTooLarge, len(program), MemorySize-int(ProgramStart))
	}

	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(program))
	copy(m.all[ProgramStart:], program)
	return nil
}

// Read fetches the two opcode bytes at pc.
func (m *Memory) Read(pc uint16) ([2]uint8, error) {
	if int(pc)+1 >= MemorySize {
		return [2]uint8{}, fmt.Errorf("%w: fetch at 0x%04x", ErrOutOfBounds, pc)
	}
	return [2]uint8{m.all[pc], m.all[pc+1]}, nil
}

// Bytes returns a copy of n bytes starting at addr.
func (m *Memory) Bytes(addr uint16, n int) ([]uint8, error) {
	if err := checkRange(addr, n); err != nil {
		return nil, err
	}

	bs := make([]uint8, n)
	copy(bs, m.all[addr:int(addr)+n])
	return bs, nil
}

// Store writes data starting at addr. The font area is read-only.
func (m *Memory) Store(addr uint16, data ...uint8) error {
	if err := checkRange(addr, len(data)); err != nil {
		return err
	}
	if addr < FontBase+uint16(len(chip8Font)) && len(data) > 0 {
		return fmt.Errorf("%w: write to font area at 0x%04x", ErrOutOfBounds, addr)
	}

	copy(m.all[addr:], data)
	return nil
}

func checkRange(addr uint16, n int) error {
	if n < 0 || int(addr)+n > MemorySize {
		return fmt.Errorf("%w: %d bytes at 0x%04x", ErrOutOfBounds, n, addr)
	}
	return nil
}

// Push stores a return address on the call stack.
func (m *Memory) Push(addr uint16) error {
	if len(m.stack) >= StackSize {
		return fmt.Errorf("%w: depth %d", ErrStackOverflow, len(m.stack))
	}
	m.stack = append(m.stack, addr)
	return nil
}

// Pop removes and returns the most recent return address.
func (m *Memory) Pop() (uint16, error) {
	if len(m.stack) == 0 {
		return 0, ErrStackUnderflow
	}

	addr := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return addr, nil
}

// Depth is the number of addresses currently on the call stack.
func (m *Memory) Depth() int {
	return len(m.stack)
}
