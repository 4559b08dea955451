package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

var (
	errInfiniteLoop = errors.New("infinite loop")
)

const maxAddress = uint16(0x0FFF)

func (vm *VM) executeOpcode(ctx context.Context, bs [2]uint8) error {
	instr, err := Decode(bs)
	if err != nil {
		return fmt.Errorf("pc 0x%04x: %w", vm.reg.PC, err)
	}

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", vm.reg.PC),
			"opcode", fmt.Sprintf("0x%04x", instr.Opcode),
			"instr", instr.String(),
		)
	}

	if err := instructions[instr.Op].Execute(ctx, vm, instr); err != nil {
		return fmt.Errorf("pc 0x%04x: %s: %w", vm.reg.PC, instr, err)
	}
	return nil
}

type instruction struct {
	Name    func(in Instruction) string
	Execute func(ctx context.Context, vm *VM, in Instruction) error
}

// advance moves the program counter by n instructions.
func (vm *VM) advance(n uint16) error {
	pc, err := addAddress(vm.reg.PC, n*InstructionSize)
	if err != nil {
		return err
	}
	vm.reg.PC = pc
	return nil
}

// skipIf advances past the next instruction when cond holds.
func (vm *VM) skipIf(cond bool) error {
	if cond {
		return vm.advance(2)
	}
	return vm.advance(1)
}

func addAddress(a, b uint16) (uint16, error) {
	sum := uint32(a) + uint32(b)
	if sum > uint32(maxAddress) {
		return 0, fmt.Errorf("%w: 0x%04x + 0x%04x", ErrAddressOverflow, a, b)
	}
	return uint16(sum), nil
}

func boolToFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func mnemonic(id chip8.OpcodeID) string {
	return chip8.OpcodeIDToName[id]
}

func regByte(name string, in Instruction) string {
	return fmt.Sprintf("%s v%x, 0x%02x", name, in.X, in.KK)
}

func regReg(name string, in Instruction) string {
	return fmt.Sprintf("%s v%x, v%x", name, in.X, in.Y)
}

func reg(name string, in Instruction) string {
	return fmt.Sprintf("%s v%x", name, in.X)
}

var instructions = [opCount]instruction{
	// 0nnn	sys nnn	call machine code routine, ignored
	OpSys: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("sys 0x%03x", in.NNN)
		},
		Execute: func(_ context.Context, vm *VM, _ Instruction) error {
			return vm.advance(1)
		},
	},

	// 00E0	cls	clear the screen
	OpCls: {
		Name: func(in Instruction) string {
			return mnemonic(chip8.Cls)
		},
		Execute: func(_ context.Context, vm *VM, _ Instruction) error {
			vm.gfx.Clear()
			return vm.advance(1)
		},
	},

	// 00EE	ret	return from subroutine call
	OpRet: {
		Name: func(in Instruction) string {
			return mnemonic(chip8.Ret)
		},
		Execute: func(_ context.Context, vm *VM, _ Instruction) error {
			pc, err := vm.mem.Pop()
			if err != nil {
				return err
			}
			vm.reg.PC = pc
			return nil
		},
	},

	// 1nnn	jp nnn	jump to address nnn
	OpJp: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s 0x%03x", mnemonic(chip8.Jp), in.NNN)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			if in.NNN == vm.reg.PC {
				return errInfiniteLoop
			}
			vm.reg.PC = in.NNN
			return nil
		},
	},

	// 2nnn	call nnn	jump to subroutine at nnn, the following instruction is the return address
	OpCall: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s 0x%03x", mnemonic(chip8.Call), in.NNN)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			ret, err := addAddress(vm.reg.PC, InstructionSize)
			if err != nil {
				return err
			}
			if err := vm.mem.Push(ret); err != nil {
				return err
			}
			vm.reg.PC = in.NNN
			return nil
		},
	},

	// 3xkk	se vx, kk	skip if register x = constant
	OpSeByte: {
		Name: func(in Instruction) string {
			return regByte(mnemonic(chip8.Se), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			return vm.skipIf(vm.reg.V[in.X] == in.KK)
		},
	},

	// 4xkk	sne vx, kk	skip if register x <> constant
	OpSneByte: {
		Name: func(in Instruction) string {
			return regByte(mnemonic(chip8.Sne), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			return vm.skipIf(vm.reg.V[in.X] != in.KK)
		},
	},

	// 5xy0	se vx, vy	skip if register x = register y
	OpSeReg: {
		Name: func(in Instruction) string {
			return regReg(mnemonic(chip8.Se), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			return vm.skipIf(vm.reg.V[in.X] == vm.reg.V[in.Y])
		},
	},

	// 6xkk	ld vx, kk	move constant to register x
	OpLdByte: {
		Name: func(in Instruction) string {
			return regByte(mnemonic(chip8.Ld), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			vm.reg.V[in.X] = in.KK
			return vm.advance(1)
		},
	},

	// 7xkk	add vx, kk	add constant to register x, no carry generated
	OpAddByte: {
		Name: func(in Instruction) string {
			return regByte(mnemonic(chip8.Add), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			vm.reg.V[in.X] += in.KK
			return vm.advance(1)
		},
	},

	// 8xy0	ld vx, vy	move register y into register x
	OpLdReg: {
		Name: func(in Instruction) string {
			return regReg(mnemonic(chip8.Ld), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			vm.reg.V[in.X] = vm.reg.V[in.Y]
			return vm.advance(1)
		},
	},

	// 8xy1	or vx, vy
	OpOr: {
		Name: func(in Instruction) string {
			return regReg(mnemonic(chip8.Or), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			vm.reg.V[in.X] |= vm.reg.V[in.Y]
			return vm.advance(1)
		},
	},

	// 8xy2	and vx, vy
	OpAnd: {
		Name: func(in Instruction) string {
			return regReg(mnemonic(chip8.And), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			vm.reg.V[in.X] &= vm.reg.V[in.Y]
			return vm.advance(1)
		},
	},

	// 8xy3	xor vx, vy
	OpXor: {
		Name: func(in Instruction) string {
			return regReg(mnemonic(chip8.Xor), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			vm.reg.V[in.X] ^= vm.reg.V[in.Y]
			return vm.advance(1)
		},
	},

	// 8xy4	add vx, vy	add register y to register x, carry in vf
	OpAddReg: {
		Name: func(in Instruction) string {
			return regReg(mnemonic(chip8.Add), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			sum := uint16(vm.reg.V[in.X]) + uint16(vm.reg.V[in.Y])

			vm.reg.V[in.X] = uint8(sum)
			vm.reg.V[0x0F] = boolToFlag(sum > 0xFF)
			return vm.advance(1)
		},
	},

	// 8xy5	sub vx, vy	subtract register y from register x, vf set to 1 if there is no borrow
	OpSub: {
		Name: func(in Instruction) string {
			return regReg(mnemonic(chip8.Sub), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			x := vm.reg.V[in.X]
			y := vm.reg.V[in.Y]

			vm.reg.V[in.X] = x - y
			vm.reg.V[0x0F] = boolToFlag(x >= y)
			return vm.advance(1)
		},
	},

	// 8x06	shr vx	shift register x right, bit 0 goes into vf
	OpShr: {
		Name: func(in Instruction) string {
			return reg(mnemonic(chip8.Shr), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			x := vm.reg.V[in.X]

			vm.reg.V[0x0F] = x & 0x1
			vm.reg.V[in.X] = x >> 1
			return vm.advance(1)
		},
	},

	// 8xy7	subn vx, vy	subtract register x from register y, result in x, vf set to 1 if there is no borrow
	OpSubn: {
		Name: func(in Instruction) string {
			return regReg(mnemonic(chip8.Subn), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			x := vm.reg.V[in.X]
			y := vm.reg.V[in.Y]

			vm.reg.V[in.X] = y - x
			vm.reg.V[0x0F] = boolToFlag(y >= x)
			return vm.advance(1)
		},
	},

	// 8x0e	shl vx	shift register x left, bit 7 goes into vf
	OpShl: {
		Name: func(in Instruction) string {
			return reg(mnemonic(chip8.Shl), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			x := vm.reg.V[in.X]

			vm.reg.V[0x0F] = (x >> 7) & 0x1
			vm.reg.V[in.X] = x << 1
			return vm.advance(1)
		},
	},

	// 9xy0	sne vx, vy	skip if register x <> register y
	OpSneReg: {
		Name: func(in Instruction) string {
			return regReg(mnemonic(chip8.Sne), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			return vm.skipIf(vm.reg.V[in.X] != vm.reg.V[in.Y])
		},
	},

	// annn	ld i, nnn	load index register with constant nnn
	OpLdI: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s i, 0x%03x", mnemonic(chip8.Ld), in.NNN)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			vm.reg.I = in.NNN
			return vm.advance(1)
		},
	},

	// bnnn	jp v0, nnn	jump to address nnn + register v0
	OpJpV0: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s v0, 0x%03x", mnemonic(chip8.Jp), in.NNN)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			pc, err := addAddress(in.NNN, uint16(vm.reg.V[0]))
			if err != nil {
				return err
			}
			vm.reg.PC = pc
			return nil
		},
	},

	// cxkk	rnd vx, kk	vx = random byte masked by kk
	OpRnd: {
		Name: func(in Instruction) string {
			return regByte(mnemonic(chip8.Rnd), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			vm.reg.V[in.X] = uint8(vm.rand.IntN(256)) & in.KK
			return vm.advance(1)
		},
	},

	// dxyn	drw vx, vy, n	draw n byte sprite from memory at I at (vx, vy)
	// All drawing is xor drawing, wraps around the screen.
	// If a set pixel is cleared vf is set to 1, otherwise it is zero.
	OpDrw: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s v%x, v%x, %d", mnemonic(chip8.Drw), in.X, in.Y, in.N)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			sprite, err := vm.mem.Bytes(vm.reg.I, int(in.N))
			if err != nil {
				return err
			}

			collision := vm.gfx.DrawSprite(vm.reg.V[in.X], vm.reg.V[in.Y], sprite)
			vm.reg.V[0x0F] = boolToFlag(collision)
			return vm.advance(1)
		},
	},

	// ex9e	skp vx	skip if the next pending key press equals vx
	OpSkp: {
		Name: func(in Instruction) string {
			return reg(mnemonic(chip8.Skp), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			key, ok := vm.keys.Poll()
			return vm.skipIf(ok && uint8(key) == vm.reg.V[in.X])
		},
	},

	// exa1	sknp vx	skip unless the next pending key press equals vx
	OpSknp: {
		Name: func(in Instruction) string {
			return reg(mnemonic(chip8.Sknp), in)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			key, ok := vm.keys.Poll()
			return vm.skipIf(!ok || uint8(key) != vm.reg.V[in.X])
		},
	},

	// fx07	ld vx, dt	get delay timer into vx
	OpLdVxDT: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s v%x, dt", mnemonic(chip8.Ld), in.X)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			vm.reg.V[in.X] = vm.reg.Timers.Delay()
			return vm.advance(1)
		},
	},

	// fx0a	ld vx, k	wait for a key press, put key in vx
	// The only instruction that suspends the loop; cancellation still ends the wait.
	OpLdVxK: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s v%x, k", mnemonic(chip8.Ld), in.X)
		},
		Execute: func(ctx context.Context, vm *VM, in Instruction) error {
			key, err := vm.keys.Wait(ctx)
			if err != nil {
				return err
			}
			vm.reg.V[in.X] = uint8(key)
			return vm.advance(1)
		},
	},

	// fx15	ld dt, vx	set the delay timer to vx
	OpLdDTVx: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s dt, v%x", mnemonic(chip8.Ld), in.X)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			vm.reg.Timers.SetDelay(vm.reg.V[in.X])
			return vm.advance(1)
		},
	},

	// fx18	ld st, vx	set the sound timer to vx
	OpLdSTVx: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s st, v%x", mnemonic(chip8.Ld), in.X)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			vm.reg.Timers.SetSound(vm.reg.V[in.X])
			return vm.advance(1)
		},
	},

	// fx1e	add i, vx	add register x to the index register
	OpAddI: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s i, v%x", mnemonic(chip8.Add), in.X)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			index, err := addAddress(vm.reg.I, uint16(vm.reg.V[in.X]))
			if err != nil {
				return err
			}
			vm.reg.I = index
			return vm.advance(1)
		},
	},

	// fx29	ld f, vx	point I to the font glyph for the hex digit in vx
	OpLdF: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s f, v%x", mnemonic(chip8.Ld), in.X)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			digit := uint16(vm.reg.V[in.X])
			vm.reg.I = FontBase + digit*FontGlyphLength
			return vm.advance(1)
		},
	},

	// fx33	ld b, vx	store the bcd representation of vx at I, I+1, I+2, doesn't change I
	OpLdB: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s b, v%x", mnemonic(chip8.Ld), in.X)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			x := vm.reg.V[in.X]
			if err := vm.mem.Store(vm.reg.I, x/100, (x/10)%10, x%10); err != nil {
				return err
			}
			return vm.advance(1)
		},
	},

	// fx55	ld [i], vx	store v0-vx at I onwards, I = I + x + 1
	OpLdIVx: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s [i], v%x", mnemonic(chip8.Ld), in.X)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			n := uint16(in.X) + 1
			index, err := addAddress(vm.reg.I, n)
			if err != nil {
				return err
			}

			if err := vm.mem.Store(vm.reg.I, vm.reg.V[:n]...); err != nil {
				return err
			}
			vm.reg.I = index
			return vm.advance(1)
		},
	},

	// fx65	ld vx, [i]	load v0-vx from I onwards, I = I + x + 1
	OpLdVxI: {
		Name: func(in Instruction) string {
			return fmt.Sprintf("%s v%x, [i]", mnemonic(chip8.Ld), in.X)
		},
		Execute: func(_ context.Context, vm *VM, in Instruction) error {
			n := uint16(in.X) + 1
			bs, err := vm.mem.Bytes(vm.reg.I, int(n))
			if err != nil {
				return err
			}

			index, err := addAddress(vm.reg.I, n)
			if err != nil {
				return err
			}
			copy(vm.reg.V[:n], bs)
			vm.reg.I = index
			return vm.advance(1)
		},
	},
}
