package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arm7core/emu"
)

var _ = Describe("Addressing modes", func() {
	var regFile *emu.RegFile

	BeforeEach(func() {
		regFile = emu.NewRegFile()
		regFile.WriteReg(0, 0x2000)
	})

	Describe("AddressMode2", func() {
		// LDR R1, [R0], #4
		It("should expose the original base for post-indexing", func() {
			ea, err := emu.AddressMode2(0xE4901004, regFile)
			Expect(err).NotTo(HaveOccurred())

			Expect(ea.Addr).To(Equal(uint32(0x2000)))
			Expect(ea.Writeback).To(BeTrue())
			Expect(ea.NewBase).To(Equal(uint32(0x2004)))

			ea.Commit(regFile, true)
			Expect(regFile.ReadReg(0)).To(Equal(uint32(0x2004)))
		})

		It("should leave the base alone when the condition fails", func() {
			ea, err := emu.AddressMode2(0xE4901004, regFile)
			Expect(err).NotTo(HaveOccurred())

			ea.Commit(regFile, false)
			Expect(regFile.ReadReg(0)).To(Equal(uint32(0x2000)))
		})

		DescribeTable("indexing forms",
			func(opcode uint32, addr uint32, writeback bool, newBase uint32) {
				regFile.WriteReg(2, 3)
				ea, err := emu.AddressMode2(opcode, regFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(ea.Base).To(Equal(uint8(0)))
				Expect(ea.Addr).To(Equal(addr))
				Expect(ea.Writeback).To(Equal(writeback))
				if writeback {
					Expect(ea.NewBase).To(Equal(newBase))
				}
			},
			Entry("offset, LDR R1, [R0, #4]", uint32(0xE5901004), uint32(0x2004), false, uint32(0)),
			Entry("pre-indexed, LDR R1, [R0, #4]!", uint32(0xE5B01004), uint32(0x2004), true, uint32(0x2004)),
			Entry("subtracted offset, LDR R1, [R0, #-4]", uint32(0xE5101004), uint32(0x1FFC), false, uint32(0)),
			Entry("register, LDR R1, [R0, R2]", uint32(0xE7901002), uint32(0x2003), false, uint32(0)),
			Entry("scaled register, LDR R1, [R0, R2, LSL #2]", uint32(0xE7901102), uint32(0x200C), false, uint32(0)),
			Entry("post-indexed register, STR R1, [R0], -R2", uint32(0xE6001002), uint32(0x2000), true, uint32(0x1FFD)),
			Entry("user translation, LDRT R1, [R0], #8", uint32(0xE4B01008), uint32(0x2000), true, uint32(0x2008)),
		)
	})

	Describe("AddressMode3", func() {
		DescribeTable("indexing forms",
			func(opcode uint32, addr uint32, writeback bool, newBase uint32) {
				regFile.WriteReg(2, 6)
				ea, err := emu.AddressMode3(opcode, regFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(ea.Addr).To(Equal(addr))
				Expect(ea.Writeback).To(Equal(writeback))
				if writeback {
					Expect(ea.NewBase).To(Equal(newBase))
				}
			},
			Entry("split immediate, LDRH R1, [R0, #-0x12]", uint32(0xE15011B2), uint32(0x1FEE), false, uint32(0)),
			Entry("pre-indexed, LDRH R1, [R0, #0x12]!", uint32(0xE1F011B2), uint32(0x2012), true, uint32(0x2012)),
			Entry("register, LDRH R1, [R0, R2]", uint32(0xE19010B2), uint32(0x2006), false, uint32(0)),
			Entry("post-indexed, LDRH R1, [R0], #2", uint32(0xE0D010B2), uint32(0x2000), true, uint32(0x2002)),
		)

		It("should reject a scaled register offset", func() {
			_, err := emu.AddressMode3(0xE19011B2, regFile)
			Expect(err).To(MatchError(emu.ErrUndefined))
		})

		It("should reject post-indexing with writeback", func() {
			_, err := emu.AddressMode3(0xE0F010B2, regFile)
			Expect(err).To(MatchError(emu.ErrUndefined))
		})
	})

	Describe("AddressMode4", func() {
		BeforeEach(func() {
			regFile.WriteReg(0, 0x1000)
		})

		DescribeTable("block ranges for {R0, R2, R13, R15}",
			func(opcode uint32, start, end, newBase uint32) {
				br, err := emu.AddressMode4(opcode, regFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(br.Count).To(Equal(uint32(4)))
				Expect(br.Start).To(Equal(start))
				Expect(br.End).To(Equal(end))
				Expect(br.NewBase).To(Equal(newBase))
				Expect(br.Writeback).To(BeTrue())
			},
			Entry("increment after", uint32(0xE8A0A005), uint32(0x1000), uint32(0x100C), uint32(0x1010)),
			Entry("increment before", uint32(0xE9A0A005), uint32(0x1004), uint32(0x1010), uint32(0x1010)),
			Entry("decrement after", uint32(0xE820A005), uint32(0x0FF4), uint32(0x1000), uint32(0x0FF0)),
			Entry("decrement before", uint32(0xE920A005), uint32(0x0FF0), uint32(0x0FFC), uint32(0x0FF0)),
		)

		It("should commit writeback only with W set and a passing condition", func() {
			br, err := emu.AddressMode4(0xE920A005, regFile)
			Expect(err).NotTo(HaveOccurred())
			br.Commit(regFile, false)
			Expect(regFile.ReadReg(0)).To(Equal(uint32(0x1000)))
			br.Commit(regFile, true)
			Expect(regFile.ReadReg(0)).To(Equal(uint32(0x0FF0)))

			br, err = emu.AddressMode4(0xE880A005, regFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(br.Writeback).To(BeFalse())
			br.Commit(regFile, true)
			Expect(regFile.ReadReg(0)).To(Equal(uint32(0x0FF0)))
		})

		It("should reject an empty register list", func() {
			_, err := emu.AddressMode4(0xE8A00000, regFile)
			Expect(err).To(MatchError(emu.ErrUndefined))
		})
	})
})
