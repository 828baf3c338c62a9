package emu

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/arm7core/insts"
)

// ALU implements ARM data processing and multiply operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// aluResult is the outcome of one data processing operation before commit.
type aluResult struct {
	value      uint32
	carry      bool
	overflow   bool
	arithmetic bool
}

// DataProcessing executes one of the sixteen data processing operations.
// Operand 2 comes from the barrel shifter. With S set and Rd = r15 the CPSR
// is restored from the SPSR, which fails in User and System mode without
// side effects.
func (a *ALU) DataProcessing(inst *insts.Instruction) error {
	var spsr uint32
	restore := inst.SetFlags && inst.Rd == RegPC && !inst.Op.IsCompare()
	if restore {
		var err error
		if spsr, err = a.regFile.SPSR(); err != nil {
			return fmt.Errorf("exception return: %w", err)
		}
	}

	op2, shifterCarry := ShiftOperand(inst.Raw, a.regFile)
	rn := a.regFile.ReadReg(inst.Rn)

	res, err := a.compute(inst.Op, rn, op2, shifterCarry)
	if err != nil {
		return err
	}

	if !inst.Op.IsCompare() {
		a.regFile.WriteReg(inst.Rd, res.value)
	}

	switch {
	case restore:
		return a.regFile.SetCPSR(spsr)
	case inst.SetFlags:
		a.regFile.SetNZ(res.value)
		a.regFile.SetC(res.carry)
		if res.arithmetic {
			a.regFile.SetV(res.overflow)
		}
	}
	return nil
}

func (a *ALU) compute(op insts.Op, rn, op2 uint32, shifterCarry bool) (aluResult, error) {
	var carryIn uint32
	if a.regFile.C() {
		carryIn = 1
	}

	switch op {
	case insts.OpAND, insts.OpTST:
		return aluResult{value: rn & op2, carry: shifterCarry}, nil
	case insts.OpEOR, insts.OpTEQ:
		return aluResult{value: rn ^ op2, carry: shifterCarry}, nil
	case insts.OpORR:
		return aluResult{value: rn | op2, carry: shifterCarry}, nil
	case insts.OpMOV:
		return aluResult{value: op2, carry: shifterCarry}, nil
	case insts.OpBIC:
		return aluResult{value: rn &^ op2, carry: shifterCarry}, nil
	case insts.OpMVN:
		return aluResult{value: ^op2, carry: shifterCarry}, nil
	case insts.OpADD, insts.OpCMN:
		return addWithCarry(rn, op2, 0), nil
	case insts.OpADC:
		return addWithCarry(rn, op2, carryIn), nil
	case insts.OpSUB, insts.OpCMP:
		return addWithCarry(rn, ^op2, 1), nil
	case insts.OpSBC:
		return addWithCarry(rn, ^op2, carryIn), nil
	case insts.OpRSB:
		return addWithCarry(op2, ^rn, 1), nil
	case insts.OpRSC:
		return addWithCarry(op2, ^rn, carryIn), nil
	}

	return aluResult{}, fmt.Errorf("%w: data processing op %v", ErrUndefined, op)
}

// addWithCarry returns x + y + carryIn with the ARM carry and overflow.
// Subtraction is x + ^y + 1, so C is the inverted borrow.
func addWithCarry(x, y, carryIn uint32) aluResult {
	sum, carryOut := bits.Add32(x, y, carryIn)
	return aluResult{
		value:      sum,
		carry:      carryOut != 0,
		overflow:   (x^sum)&(y^sum)&0x80000000 != 0,
		arithmetic: true,
	}
}

// Multiply executes MUL, MLA and the long multiplies. Results wrap. With S
// set, N and Z follow the full result; C and V are left unchanged.
func (a *ALU) Multiply(inst *insts.Instruction) error {
	rm := a.regFile.ReadReg(inst.Rm)
	rs := a.regFile.ReadReg(inst.Rs)

	switch inst.Op {
	case insts.OpMUL, insts.OpMLA:
		result := rm * rs
		if inst.Op == insts.OpMLA {
			result += a.regFile.ReadReg(inst.Rn)
		}
		a.regFile.WriteReg(inst.Rd, result)
		if inst.SetFlags {
			a.regFile.SetNZ(result)
		}
		return nil
	case insts.OpUMULL, insts.OpUMLAL, insts.OpSMULL, insts.OpSMLAL:
		return a.multiplyLong(inst, rm, rs)
	}

	return fmt.Errorf("%w: multiply %#08x", ErrUndefined, inst.Raw)
}

// multiplyLong writes the 64-bit product to RdHi (inst.Rd) and RdLo
// (inst.Rn).
func (a *ALU) multiplyLong(inst *insts.Instruction, rm, rs uint32) error {
	var result uint64
	switch inst.Op {
	case insts.OpUMULL, insts.OpUMLAL:
		result = uint64(rm) * uint64(rs)
	default:
		result = uint64(int64(int32(rm)) * int64(int32(rs)))
	}

	if inst.Op == insts.OpUMLAL || inst.Op == insts.OpSMLAL {
		acc := uint64(a.regFile.ReadReg(inst.Rd))<<32 | uint64(a.regFile.ReadReg(inst.Rn))
		result += acc
	}

	a.regFile.WriteReg(inst.Rn, uint32(result))
	a.regFile.WriteReg(inst.Rd, uint32(result>>32))

	if inst.SetFlags {
		a.regFile.SetN(result&(1<<63) != 0)
		a.regFile.SetZ(result == 0)
	}
	return nil
}
