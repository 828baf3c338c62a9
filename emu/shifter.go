package emu

import (
	"math/bits"

	"github.com/sarchlab/arm7core/insts"
)

// OperandForm identifies one of the eleven addressing mode 1 encodings.
type OperandForm uint8

// Addressing mode 1 operand forms.
const (
	OperandImmediate OperandForm = iota
	OperandRegister
	OperandLSLImm
	OperandLSLReg
	OperandLSRImm
	OperandLSRReg
	OperandASRImm
	OperandASRReg
	OperandRORImm
	OperandRORReg
	OperandRRX
)

var operandFormNames = [...]string{
	"#imm", "Rm", "Rm, LSL #imm", "Rm, LSL Rs", "Rm, LSR #imm",
	"Rm, LSR Rs", "Rm, ASR #imm", "Rm, ASR Rs", "Rm, ROR #imm",
	"Rm, ROR Rs", "Rm, RRX",
}

// String returns the assembler shape of the operand form.
func (f OperandForm) String() string {
	if int(f) < len(operandFormNames) {
		return operandFormNames[f]
	}
	return "unknown"
}

// OperandFormOf selects the operand form of a data processing opcode from
// bit 25 and bits 11-4.
func OperandFormOf(opcode uint32) OperandForm {
	if opcode&(1<<25) != 0 {
		return OperandImmediate
	}

	kind := insts.ShiftType((opcode >> 5) & 0x3)
	if opcode&(1<<4) != 0 {
		return [...]OperandForm{OperandLSLReg, OperandLSRReg, OperandASRReg, OperandRORReg}[kind]
	}

	amount := (opcode >> 7) & 0x1F
	switch kind {
	case insts.ShiftLSL:
		if amount == 0 {
			return OperandRegister
		}
		return OperandLSLImm
	case insts.ShiftLSR:
		return OperandLSRImm
	case insts.ShiftASR:
		return OperandASRImm
	default:
		if amount == 0 {
			return OperandRRX
		}
		return OperandRORImm
	}
}

// ShiftOperand computes the addressing mode 1 operand of a data processing
// opcode and the shifter carry-out. The carry is not committed; callers
// write it to C only when the instruction sets flags.
func ShiftOperand(opcode uint32, rf *RegFile) (uint32, bool) {
	carry := rf.C()

	if opcode&(1<<25) != 0 {
		return RotateImmediate(opcode&0xFF, uint8((opcode>>7)&0x1E), carry)
	}

	rm := rf.ReadReg(uint8(opcode & 0xF))
	kind := insts.ShiftType((opcode >> 5) & 0x3)

	if opcode&(1<<4) != 0 {
		amount := uint8(rf.ReadReg(uint8((opcode >> 8) & 0xF)))
		return ShiftRegister(kind, rm, amount, carry)
	}

	return ShiftImmediate(kind, rm, uint8((opcode>>7)&0x1F), carry)
}

// RotateImmediate rotates an 8-bit immediate right by an even amount.
func RotateImmediate(imm uint32, rotate uint8, carryIn bool) (uint32, bool) {
	if rotate == 0 {
		return imm, carryIn
	}
	value := bits.RotateLeft32(imm, -int(rotate))
	return value, value&0x80000000 != 0
}

// ShiftImmediate applies a shift encoded with a 5-bit immediate amount. An
// amount of 0 encodes LSL #0, LSR #32, ASR #32 or RRX depending on kind.
func ShiftImmediate(kind insts.ShiftType, value uint32, amount uint8, carryIn bool) (uint32, bool) {
	amount &= 0x1F

	switch kind {
	case insts.ShiftLSL:
		if amount == 0 {
			return value, carryIn
		}
		return value << amount, bitAt(value, 32-amount)
	case insts.ShiftLSR:
		if amount == 0 {
			return 0, bitAt(value, 31)
		}
		return value >> amount, bitAt(value, amount-1)
	case insts.ShiftASR:
		if amount == 0 {
			return signFill(value), bitAt(value, 31)
		}
		return uint32(int32(value) >> amount), bitAt(value, amount-1)
	default:
		if amount == 0 {
			return rrx(value, carryIn)
		}
		return bits.RotateLeft32(value, -int(amount)), bitAt(value, amount-1)
	}
}

// ShiftRegister applies a shift whose amount is the bottom byte of Rs. An
// amount of 0 leaves both value and carry untouched.
func ShiftRegister(kind insts.ShiftType, value uint32, amount uint8, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return value, carryIn
	}

	switch kind {
	case insts.ShiftLSL:
		switch {
		case amount < 32:
			return value << amount, bitAt(value, 32-amount)
		case amount == 32:
			return 0, bitAt(value, 0)
		default:
			return 0, false
		}
	case insts.ShiftLSR:
		switch {
		case amount < 32:
			return value >> amount, bitAt(value, amount-1)
		case amount == 32:
			return 0, bitAt(value, 31)
		default:
			return 0, false
		}
	case insts.ShiftASR:
		if amount < 32 {
			return uint32(int32(value) >> amount), bitAt(value, amount-1)
		}
		return signFill(value), bitAt(value, 31)
	default:
		rot := amount & 0x1F
		if rot == 0 {
			return value, bitAt(value, 31)
		}
		return bits.RotateLeft32(value, -int(rot)), bitAt(value, rot-1)
	}
}

func rrx(value uint32, carryIn bool) (uint32, bool) {
	result := value >> 1
	if carryIn {
		result |= 0x80000000
	}
	return result, value&1 != 0
}

func signFill(value uint32) uint32 {
	if value&0x80000000 != 0 {
		return 0xFFFFFFFF
	}
	return 0
}

func bitAt(value uint32, n uint8) bool {
	return (value>>n)&1 != 0
}
