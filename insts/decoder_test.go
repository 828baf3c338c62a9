package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arm7core/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Data processing", func() {
		// MOV R1, #42 -> 0xE3A0102A
		// Encoding: cond=AL, I=1, opcode=1101, S=0, Rn=0, Rd=1, rot=0, imm=42
		It("should decode MOV R1, #42", func() {
			inst := decoder.Decode(0xE3A0102A)

			Expect(inst.Family).To(Equal(insts.FamilyDataProcessing))
			Expect(inst.Op).To(Equal(insts.OpMOV))
			Expect(inst.Cond).To(Equal(insts.CondAL))
			Expect(inst.SetFlags).To(BeFalse())
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Immediate).To(BeTrue())
			Expect(inst.Imm).To(Equal(uint32(42)))
			Expect(inst.Rotate).To(Equal(uint8(0)))
		})

		// ADDS R0, R1, R2 -> 0xE0910002
		It("should decode ADDS R0, R1, R2", func() {
			inst := decoder.Decode(0xE0910002)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.SetFlags).To(BeTrue())
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rn).To(Equal(uint8(1)))
			Expect(inst.Rm).To(Equal(uint8(2)))
			Expect(inst.Immediate).To(BeFalse())
			Expect(inst.ShiftByReg).To(BeFalse())
		})

		// SUBNE R3, R4, R5, LSR R6 -> 0x10443635
		It("should decode a register-shifted register operand", func() {
			inst := decoder.Decode(0x10443635)

			Expect(inst.Op).To(Equal(insts.OpSUB))
			Expect(inst.Cond).To(Equal(insts.CondNE))
			Expect(inst.Rn).To(Equal(uint8(4)))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rm).To(Equal(uint8(5)))
			Expect(inst.Rs).To(Equal(uint8(6)))
			Expect(inst.ShiftByReg).To(BeTrue())
			Expect(inst.ShiftType).To(Equal(insts.ShiftLSR))
		})

		// MOV R0, R1, ASR #3 -> 0xE1A001C1
		It("should decode an immediate shift", func() {
			inst := decoder.Decode(0xE1A001C1)

			Expect(inst.Op).To(Equal(insts.OpMOV))
			Expect(inst.ShiftType).To(Equal(insts.ShiftASR))
			Expect(inst.ShiftAmount).To(Equal(uint8(3)))
			Expect(inst.Rm).To(Equal(uint8(1)))
		})

		// CMP R0, #0xFF000000 -> 0xE35004FF (imm=0xFF, rot=4 -> 8)
		It("should double the rotate field", func() {
			inst := decoder.Decode(0xE35004FF)

			Expect(inst.Op).To(Equal(insts.OpCMP))
			Expect(inst.Op.IsCompare()).To(BeTrue())
			Expect(inst.SetFlags).To(BeTrue())
			Expect(inst.Rotate).To(Equal(uint8(8)))
			Expect(inst.Imm).To(Equal(uint32(0xFF)))
		})
	})

	Describe("Branches", func() {
		It("should decode a forward B", func() {
			inst := decoder.Decode(0xEA000002)

			Expect(inst.Op).To(Equal(insts.OpB))
			Expect(inst.BranchOffset).To(Equal(int32(8)))
		})

		It("should sign-extend a backward BL", func() {
			inst := decoder.Decode(0xEBFFFFFE)

			Expect(inst.Op).To(Equal(insts.OpBL))
			Expect(inst.BranchOffset).To(Equal(int32(-8)))
		})

		It("should decode BX", func() {
			inst := decoder.Decode(0xE12FFF13)

			Expect(inst.Op).To(Equal(insts.OpBX))
			Expect(inst.Rm).To(Equal(uint8(3)))
		})

		It("should decode SWI with its comment field", func() {
			inst := decoder.Decode(0xEF00ABCD)

			Expect(inst.Op).To(Equal(insts.OpSWI))
			Expect(inst.Comment).To(Equal(uint32(0xABCD)))
		})
	})

	Describe("Multiplies", func() {
		// MLAS R0, R1, R2, R3 -> 0xE0303291
		It("should decode MLAS", func() {
			inst := decoder.Decode(0xE0303291)

			Expect(inst.Op).To(Equal(insts.OpMLA))
			Expect(inst.SetFlags).To(BeTrue())
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rn).To(Equal(uint8(3)))
			Expect(inst.Rs).To(Equal(uint8(2)))
			Expect(inst.Rm).To(Equal(uint8(1)))
		})

		DescribeTable("long multiplies",
			func(word uint32, op insts.Op) {
				Expect(decoder.Decode(word).Op).To(Equal(op))
			},
			Entry("UMULL", uint32(0xE0821093), insts.OpUMULL),
			Entry("UMLAL", uint32(0xE0A21093), insts.OpUMLAL),
			Entry("SMULL", uint32(0xE0C21093), insts.OpSMULL),
			Entry("SMLAL", uint32(0xE0E21093), insts.OpSMLAL),
		)
	})

	Describe("Transfers", func() {
		// LDR R1, [R0, #4]! -> 0xE5B01004
		It("should decode LDR with pre-index writeback", func() {
			inst := decoder.Decode(0xE5B01004)

			Expect(inst.Op).To(Equal(insts.OpLDR))
			Expect(inst.Load).To(BeTrue())
			Expect(inst.PreIndex).To(BeTrue())
			Expect(inst.Up).To(BeTrue())
			Expect(inst.Writeback).To(BeTrue())
			Expect(inst.Byte).To(BeFalse())
			Expect(inst.Immediate).To(BeTrue())
			Expect(inst.Imm).To(Equal(uint32(4)))
			Expect(inst.Rn).To(Equal(uint8(0)))
			Expect(inst.Rd).To(Equal(uint8(1)))
		})

		// STRB R2, [R3], -R4, LSL #2 -> 0xE6432104
		It("should decode STRB with a scaled register offset", func() {
			inst := decoder.Decode(0xE6432104)

			Expect(inst.Op).To(Equal(insts.OpSTR))
			Expect(inst.Byte).To(BeTrue())
			Expect(inst.PreIndex).To(BeFalse())
			Expect(inst.Up).To(BeFalse())
			Expect(inst.Immediate).To(BeFalse())
			Expect(inst.Rm).To(Equal(uint8(4)))
			Expect(inst.ShiftAmount).To(Equal(uint8(2)))
		})

		// LDRSH R1, [R0, #-0x12] -> 0xE15011F2
		It("should join the split halfword immediate", func() {
			inst := decoder.Decode(0xE15011F2)

			Expect(inst.Op).To(Equal(insts.OpLDRSH))
			Expect(inst.Immediate).To(BeTrue())
			Expect(inst.Imm).To(Equal(uint32(0x12)))
			Expect(inst.Up).To(BeFalse())
		})

		It("should decode STRH and LDRSB", func() {
			Expect(decoder.Decode(0xE1C010B0).Op).To(Equal(insts.OpSTRH))
			Expect(decoder.Decode(0xE1D010D0).Op).To(Equal(insts.OpLDRSB))
		})

		It("should leave signed halfword stores unknown", func() {
			Expect(decoder.Decode(0xE1C010F0).Op).To(Equal(insts.OpUnknown))
		})

		// STMDB SP!, {R4-R6, LR} -> 0xE92D4070
		It("should decode a block transfer", func() {
			inst := decoder.Decode(0xE92D4070)

			Expect(inst.Op).To(Equal(insts.OpSTM))
			Expect(inst.PreIndex).To(BeTrue())
			Expect(inst.Up).To(BeFalse())
			Expect(inst.Writeback).To(BeTrue())
			Expect(inst.Rn).To(Equal(uint8(13)))
			Expect(inst.RegList).To(Equal(uint16(0x4070)))
		})

		It("should decode SWPB", func() {
			inst := decoder.Decode(0xE1412093)

			Expect(inst.Op).To(Equal(insts.OpSWP))
			Expect(inst.Byte).To(BeTrue())
			Expect(inst.Rn).To(Equal(uint8(1)))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rm).To(Equal(uint8(3)))
		})
	})

	Describe("PSR transfers", func() {
		It("should decode MRS from SPSR", func() {
			inst := decoder.Decode(0xE14F0000)

			Expect(inst.Op).To(Equal(insts.OpMRS))
			Expect(inst.Byte).To(BeTrue())
			Expect(inst.Rd).To(Equal(uint8(0)))
		})

		It("should decode MSR field masks", func() {
			inst := decoder.Decode(0xE129F000)

			Expect(inst.Op).To(Equal(insts.OpMSR))
			Expect(inst.Byte).To(BeFalse())
			Expect(inst.FieldMask).To(Equal(uint8(0x9)))
			Expect(inst.Rm).To(Equal(uint8(0)))
		})
	})

	Describe("Undefined", func() {
		It("should keep the raw opcode and report the undefined family", func() {
			inst := decoder.Decode(0xEE010F10)

			Expect(inst.Raw).To(Equal(uint32(0xEE010F10)))
			Expect(inst.Family).To(Equal(insts.FamilyUndefined))
			Expect(inst.Op).To(Equal(insts.OpUnknown))
		})
	})

	Describe("Cond", func() {
		It("should extract and name the condition field", func() {
			Expect(insts.CondOf(0x0A000000)).To(Equal(insts.CondEQ))
			Expect(insts.CondOf(0xCA000000)).To(Equal(insts.CondGT))
			Expect(insts.CondGT.String()).To(Equal("gt"))
			Expect(insts.OpSMLAL.String()).To(Equal("smlal"))
		})
	})
})
