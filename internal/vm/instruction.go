package vm

import "fmt"

// Op identifies one of the CHIP-8 instruction kinds.
type Op uint8

const (
	OpSys     Op = iota // 0NNN
	OpCls               // 00E0
	OpRet               // 00EE
	OpJp                // 1NNN
	OpCall              // 2NNN
	OpSeByte            // 3XKK
	OpSneByte           // 4XKK
	OpSeReg             // 5XY0
	OpLdByte            // 6XKK
	OpAddByte           // 7XKK
	OpLdReg             // 8XY0
	OpOr                // 8XY1
	OpAnd               // 8XY2
	OpXor               // 8XY3
	OpAddReg            // 8XY4
	OpSub               // 8XY5
	OpShr               // 8XY6
	OpSubn              // 8XY7
	OpShl               // 8XYE
	OpSneReg            // 9XY0
	OpLdI               // ANNN
	OpJpV0              // BNNN
	OpRnd               // CXKK
	OpDrw               // DXYN
	OpSkp               // EX9E
	OpSknp              // EXA1
	OpLdVxDT            // FX07
	OpLdVxK             // FX0A
	OpLdDTVx            // FX15
	OpLdSTVx            // FX18
	OpAddI              // FX1E
	OpLdF               // FX29
	OpLdB               // FX33
	OpLdIVx             // FX55
	OpLdVxI             // FX65

	opCount
)

// Instruction is a decoded opcode. Only the operand fields its Op uses are meaningful.
type Instruction struct {
	Op     Op
	Opcode uint16

	X   uint8  // bits 8-11
	Y   uint8  // bits 4-7
	N   uint8  // bits 0-3
	KK  uint8  // bits 0-7
	NNN uint16 // bits 0-11
}

func (in Instruction) String() string {
	if in.Op >= opCount {
		return fmt.Sprintf("unknown 0x%04X", in.Opcode)
	}
	return instructions[in.Op].Name(in)
}

// Decode classifies two opcode bytes, as fetched from memory.
func Decode(bs [2]uint8) (Instruction, error) {
	opcode := uint16(bs[0])<<8 | uint16(bs[1]) // Op code is two bytes

	in := Instruction{
		Opcode: opcode,
		X:      uint8((opcode & 0x0F00) >> 8),
		Y:      uint8((opcode & 0x00F0) >> 4),
		N:      uint8(opcode & 0x000F),
		KK:     uint8(opcode & 0x00FF),
		NNN:    opcode & 0x0FFF,
	}

	op, ok := decodeOp(opcode)
	if !ok {
		return in, fmt.Errorf("%w 0x%04X", ErrUnknownOpcode, opcode)
	}

	in.Op = op
	return in, nil
}

func decodeOp(opcode uint16) (Op, bool) {
	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode {
		case 0x00E0:
			return OpCls, true
		case 0x00EE:
			return OpRet, true
		default:
			// 0NNN - machine code routine, ignored
			return OpSys, true
		}

	case 0x1000:
		return OpJp, true

	case 0x2000:
		return OpCall, true

	case 0x3000:
		return OpSeByte, true

	case 0x4000:
		return OpSneByte, true

	case 0x5000:
		if opcode&0x000F == 0 {
			return OpSeReg, true
		}

	case 0x6000:
		return OpLdByte, true

	case 0x7000:
		return OpAddByte, true

	case 0x8000:
		// 8XY_
		switch opcode & 0x000F {
		case 0x0000:
			return OpLdReg, true
		case 0x0001:
			return OpOr, true
		case 0x0002:
			return OpAnd, true
		case 0x0003:
			return OpXor, true
		case 0x0004:
			return OpAddReg, true
		case 0x0005:
			return OpSub, true
		case 0x0006:
			return OpShr, true
		case 0x0007:
			return OpSubn, true
		case 0x000E:
			return OpShl, true
		}

	case 0x9000:
		if opcode&0x000F == 0 {
			return OpSneReg, true
		}

	case 0xA000:
		return OpLdI, true

	case 0xB000:
		return OpJpV0, true

	case 0xC000:
		return OpRnd, true

	case 0xD000:
		return OpDrw, true

	case 0xE000:
		switch opcode & 0x00FF {
		case 0x009E:
			return OpSkp, true
		case 0x00A1:
			return OpSknp, true
		}

	case 0xF000:
		switch opcode & 0x00FF {
		case 0x0007:
			return OpLdVxDT, true
		case 0x000A:
			return OpLdVxK, true
		case 0x0015:
			return OpLdDTVx, true
		case 0x0018:
			return OpLdSTVx, true
		case 0x001E:
			return OpAddI, true
		case 0x0029:
			return OpLdF, true
		case 0x0033:
			return OpLdB, true
		case 0x0055:
			return OpLdIVx, true
		case 0x0065:
			return OpLdVxI, true
		}
	}

	return 0, false
}
