package emu

import (
	"fmt"
	"io"
)

// SemihostingSWI is the ARM-state SWI comment that requests a semihosting
// operation.
const SemihostingSWI uint32 = 0x123456

// Semihosting operation numbers, passed in r0.
const (
	SysWriteC uint32 = 0x03 // write the character at [r1]
	SysWrite0 uint32 = 0x04 // write the NUL-terminated string at r1
	SysWrite  uint32 = 0x05 // write a buffer; r1 points to {fd, buf, len}
	SysExit   uint32 = 0x18 // stop; r1 holds the reason code
)

// ADPStoppedApplicationExit is the SysExit reason for a normal exit.
const ADPStoppedApplicationExit uint32 = 0x20026

// maxString bounds SysWrite0 reads.
const maxString = 1 << 16

// writeChunk is the number of bytes SysWrite copies from guest memory at a
// time.
const writeChunk = 4096

// SWIResult represents the result of a software interrupt.
type SWIResult struct {
	// Handled is false when the handler declines the SWI, in which case the
	// core performs the architectural Supervisor mode entry.
	Handled bool

	// Exited is true if the SWI requested program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64
}

// SWIHandler services software interrupts in place of the SWI vector.
type SWIHandler interface {
	// Handle services the SWI with the given 24-bit comment field using the
	// register file state.
	Handle(comment uint32) (SWIResult, error)
}

// SemihostingHandler implements the ARM semihosting subset a bare-metal
// test program needs: console output and exit. Other SWIs are declined.
type SemihostingHandler struct {
	regFile *RegFile
	bus     Bus
	stdout  io.Writer
	stderr  io.Writer
}

// NewSemihostingHandler creates a semihosting handler.
func NewSemihostingHandler(regFile *RegFile, bus Bus, stdout, stderr io.Writer) *SemihostingHandler {
	return &SemihostingHandler{
		regFile: regFile,
		bus:     bus,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// Handle executes the semihosting operation selected by r0.
func (h *SemihostingHandler) Handle(comment uint32) (SWIResult, error) {
	if comment != SemihostingSWI {
		return SWIResult{}, nil
	}

	switch op := h.regFile.ReadReg(0); op {
	case SysWriteC:
		return h.handleWriteC()
	case SysWrite0:
		return h.handleWrite0()
	case SysWrite:
		return h.handleWrite()
	case SysExit:
		return h.handleExit(), nil
	default:
		h.regFile.WriteReg(0, 0xFFFFFFFF)
		return SWIResult{Handled: true}, nil
	}
}

func (h *SemihostingHandler) handleWriteC() (SWIResult, error) {
	c, err := h.bus.Read8(h.regFile.ReadReg(1))
	if err != nil {
		return SWIResult{}, fmt.Errorf("semihosting writec: %w", err)
	}

	if _, err := h.stdout.Write([]byte{c}); err != nil {
		return SWIResult{}, fmt.Errorf("semihosting writec: %w", err)
	}
	return SWIResult{Handled: true}, nil
}

func (h *SemihostingHandler) handleWrite0() (SWIResult, error) {
	addr := h.regFile.ReadReg(1)

	var buf []byte
	for len(buf) < maxString {
		c, err := h.bus.Read8(addr + uint32(len(buf)))
		if err != nil {
			return SWIResult{}, fmt.Errorf("semihosting write0: %w", err)
		}
		if c == 0 {
			break
		}
		buf = append(buf, c)
	}

	if _, err := h.stdout.Write(buf); err != nil {
		return SWIResult{}, fmt.Errorf("semihosting write0: %w", err)
	}
	return SWIResult{Handled: true}, nil
}

// handleWrite writes to fd 1 or 2 in chunks and returns the number of
// bytes not written in r0. A bus fault stops the copy at the faulting
// chunk.
func (h *SemihostingHandler) handleWrite() (SWIResult, error) {
	block := h.regFile.ReadReg(1)

	var args [3]uint32
	for i := range args {
		v, err := Read32(h.bus, block+uint32(4*i))
		if err != nil {
			return SWIResult{}, fmt.Errorf("semihosting write: %w", err)
		}
		args[i] = v
	}
	fd, ptr, count := args[0], args[1], args[2]

	var writer io.Writer
	switch fd {
	case 1:
		writer = h.stdout
	case 2:
		writer = h.stderr
	default:
		h.regFile.WriteReg(0, count)
		return SWIResult{Handled: true}, nil
	}

	buf := make([]byte, min(count, writeChunk))
	for done := uint32(0); done < count; {
		n := min(count-done, writeChunk)
		for i := range buf[:n] {
			b, err := h.bus.Read8(ptr + done + uint32(i))
			if err != nil {
				return SWIResult{}, fmt.Errorf("semihosting write: %w", err)
			}
			buf[i] = b
		}

		written, err := writer.Write(buf[:n])
		done += uint32(written)
		if err != nil || uint32(written) < n {
			h.regFile.WriteReg(0, count-done)
			return SWIResult{Handled: true}, nil
		}
	}

	h.regFile.WriteReg(0, 0)
	return SWIResult{Handled: true}, nil
}

func (h *SemihostingHandler) handleExit() SWIResult {
	code := int64(1)
	if h.regFile.ReadReg(1) == ADPStoppedApplicationExit {
		code = 0
	}
	return SWIResult{
		Handled:  true,
		Exited:   true,
		ExitCode: code,
	}
}
