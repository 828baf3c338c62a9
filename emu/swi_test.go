package emu_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arm7core/emu"
)

var _ = Describe("SemihostingHandler", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		stdout  *bytes.Buffer
		stderr  *bytes.Buffer
		handler *emu.SemihostingHandler
	)

	BeforeEach(func() {
		regFile = emu.NewRegFile()
		memory = emu.NewMemory()
		stdout = new(bytes.Buffer)
		stderr = new(bytes.Buffer)
		handler = emu.NewSemihostingHandler(regFile, memory, stdout, stderr)
	})

	It("should decline SWIs other than the semihosting call", func() {
		result, err := handler.Handle(0x11)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Handled).To(BeFalse())
	})

	It("should write a character", func() {
		Expect(memory.Write8(0x100, 'A')).To(Succeed())
		regFile.WriteReg(0, emu.SysWriteC)
		regFile.WriteReg(1, 0x100)

		result, err := handler.Handle(emu.SemihostingSWI)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Handled).To(BeTrue())
		Expect(stdout.String()).To(Equal("A"))
	})

	It("should write a NUL-terminated string", func() {
		Expect(memory.LoadProgram(0x200, []byte("hello\x00ignored"))).To(Succeed())
		regFile.WriteReg(0, emu.SysWrite0)
		regFile.WriteReg(1, 0x200)

		_, err := handler.Handle(emu.SemihostingSWI)

		Expect(err).NotTo(HaveOccurred())
		Expect(stdout.String()).To(Equal("hello"))
	})

	It("should write a buffer to stderr and report nothing left", func() {
		Expect(memory.LoadProgram(0x300, []byte("oops"))).To(Succeed())
		Expect(emu.Write32(memory, 0x400, 2)).To(Succeed())
		Expect(emu.Write32(memory, 0x404, 0x300)).To(Succeed())
		Expect(emu.Write32(memory, 0x408, 4)).To(Succeed())
		regFile.WriteReg(0, emu.SysWrite)
		regFile.WriteReg(1, 0x400)

		_, err := handler.Handle(emu.SemihostingSWI)

		Expect(err).NotTo(HaveOccurred())
		Expect(stderr.String()).To(Equal("oops"))
		Expect(regFile.ReadReg(0)).To(BeZero())
	})

	It("should copy a buffer larger than one chunk", func() {
		data := bytes.Repeat([]byte("0123456789"), 1000)
		Expect(memory.LoadProgram(0x1000, data)).To(Succeed())
		Expect(emu.Write32(memory, 0x400, 1)).To(Succeed())
		Expect(emu.Write32(memory, 0x404, 0x1000)).To(Succeed())
		Expect(emu.Write32(memory, 0x408, uint32(len(data)))).To(Succeed())
		regFile.WriteReg(0, emu.SysWrite)
		regFile.WriteReg(1, 0x400)

		_, err := handler.Handle(emu.SemihostingSWI)

		Expect(err).NotTo(HaveOccurred())
		Expect(stdout.Bytes()).To(Equal(data))
		Expect(regFile.ReadReg(0)).To(BeZero())
	})

	It("should stop a huge write at the first bus fault", func() {
		memory = emu.NewMemory(emu.WithAddressLimit(0x10000))
		handler = emu.NewSemihostingHandler(regFile, memory, stdout, stderr)
		Expect(emu.Write32(memory, 0x400, 1)).To(Succeed())
		Expect(emu.Write32(memory, 0x404, 0x300)).To(Succeed())
		Expect(emu.Write32(memory, 0x408, 0x40000000)).To(Succeed())
		regFile.WriteReg(0, emu.SysWrite)
		regFile.WriteReg(1, 0x400)

		_, err := handler.Handle(emu.SemihostingSWI)

		Expect(err).To(MatchError(emu.ErrBusFault))
		Expect(stdout.Len()).To(BeNumerically("<", 0x10000))
	})

	It("should report every byte unwritten for an unknown descriptor", func() {
		Expect(emu.Write32(memory, 0x400, 7)).To(Succeed())
		Expect(emu.Write32(memory, 0x408, 4)).To(Succeed())
		regFile.WriteReg(0, emu.SysWrite)
		regFile.WriteReg(1, 0x400)

		_, err := handler.Handle(emu.SemihostingSWI)

		Expect(err).NotTo(HaveOccurred())
		Expect(regFile.ReadReg(0)).To(Equal(uint32(4)))
	})

	It("should exit with 0 for a normal application exit", func() {
		regFile.WriteReg(0, emu.SysExit)
		regFile.WriteReg(1, emu.ADPStoppedApplicationExit)

		result, _ := handler.Handle(emu.SemihostingSWI)

		Expect(result.Exited).To(BeTrue())
		Expect(result.ExitCode).To(Equal(int64(0)))
	})

	It("should exit with 1 for any other reason", func() {
		regFile.WriteReg(0, emu.SysExit)
		regFile.WriteReg(1, 0x20023)

		result, _ := handler.Handle(emu.SemihostingSWI)

		Expect(result.Exited).To(BeTrue())
		Expect(result.ExitCode).To(Equal(int64(1)))
	})

	It("should return -1 for unsupported operations", func() {
		regFile.WriteReg(0, 0x30)

		result, err := handler.Handle(emu.SemihostingSWI)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Handled).To(BeTrue())
		Expect(regFile.ReadReg(0)).To(Equal(uint32(0xFFFFFFFF)))
	})
})
