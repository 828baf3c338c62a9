package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arm7core/emu"
	"github.com/sarchlab/arm7core/insts"
)

// conditionTable mirrors the ARM condition table one row per code.
var conditionTable = map[insts.Cond]func(n, z, c, v bool) bool{
	insts.CondEQ: func(n, z, c, v bool) bool { return z },
	insts.CondNE: func(n, z, c, v bool) bool { return !z },
	insts.CondCS: func(n, z, c, v bool) bool { return c },
	insts.CondCC: func(n, z, c, v bool) bool { return !c },
	insts.CondMI: func(n, z, c, v bool) bool { return n },
	insts.CondPL: func(n, z, c, v bool) bool { return !n },
	insts.CondVS: func(n, z, c, v bool) bool { return v },
	insts.CondVC: func(n, z, c, v bool) bool { return !v },
	insts.CondHI: func(n, z, c, v bool) bool { return c && !z },
	insts.CondLS: func(n, z, c, v bool) bool { return !c || z },
	insts.CondGE: func(n, z, c, v bool) bool { return n == v },
	insts.CondLT: func(n, z, c, v bool) bool { return n != v },
	insts.CondGT: func(n, z, c, v bool) bool { return !z && n == v },
	insts.CondLE: func(n, z, c, v bool) bool { return z || n != v },
	insts.CondAL: func(n, z, c, v bool) bool { return true },
	insts.CondNV: func(n, z, c, v bool) bool { return false },
}

var _ = Describe("Condition evaluator", func() {
	It("should match the condition table for every code and flag combination", func() {
		for code := uint32(0); code < 16; code++ {
			for nzcv := uint32(0); nzcv < 16; nzcv++ {
				f := emu.Flags{
					N: nzcv&8 != 0,
					Z: nzcv&4 != 0,
					C: nzcv&2 != 0,
					V: nzcv&1 != 0,
				}
				want := conditionTable[insts.Cond(code)](f.N, f.Z, f.C, f.V)

				opcode := code<<28 | 0x01A00000
				Expect(emu.Passes(opcode, f)).To(Equal(want),
					"cond %v with NZCV=%04b", insts.Cond(code), nzcv)
				Expect(emu.ConditionPassed(insts.Cond(code), f)).To(Equal(want))
			}
		}
	})

	It("should never pass the reserved condition", func() {
		Expect(emu.Passes(0xF1A00000, emu.Flags{})).To(BeFalse())
		Expect(emu.Passes(0xF1A00000, emu.Flags{N: true, Z: true, C: true, V: true})).To(BeFalse())
	})

	It("should read the flags of a PSR word", func() {
		Expect(emu.FlagsOf(0x600000DF)).To(Equal(emu.Flags{Z: true, C: true}))
	})
})
