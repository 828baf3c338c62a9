package emu

import "github.com/sarchlab/arm7core/insts"

// Passes evaluates the condition field (bits 31-28) of an ARM opcode
// against the given flags.
func Passes(opcode uint32, f Flags) bool {
	return ConditionPassed(insts.CondOf(opcode), f)
}

// ConditionPassed evaluates an ARM condition code against the given flags.
// The reserved NV encoding never passes.
func ConditionPassed(cond insts.Cond, f Flags) bool {
	switch cond {
	case insts.CondEQ:
		return f.Z
	case insts.CondNE:
		return !f.Z
	case insts.CondCS:
		return f.C
	case insts.CondCC:
		return !f.C
	case insts.CondMI:
		return f.N
	case insts.CondPL:
		return !f.N
	case insts.CondVS:
		return f.V
	case insts.CondVC:
		return !f.V
	case insts.CondHI:
		return f.C && !f.Z
	case insts.CondLS:
		return !f.C || f.Z
	case insts.CondGE:
		return f.N == f.V
	case insts.CondLT:
		return f.N != f.V
	case insts.CondGT:
		return !f.Z && f.N == f.V
	case insts.CondLE:
		return f.Z || f.N != f.V
	case insts.CondAL:
		return true
	default:
		return false
	}
}
