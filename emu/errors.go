package emu

import "errors"

// Errors surfaced by the core. They are wrapped with PC/opcode context, so
// callers should match them with errors.Is.
var (
	// ErrUndefined reports an opcode that matches no instruction family or
	// uses an encoding the architecture does not define.
	ErrUndefined = errors.New("undefined instruction")

	// ErrNoSPSR reports an SPSR access from User or System mode, which
	// have no saved program status register.
	ErrNoSPSR = errors.New("no SPSR in current mode")

	// ErrInvalidMode reports mode bits that name no processor mode.
	ErrInvalidMode = errors.New("invalid processor mode")

	// ErrInvalidRegister reports a register index outside the register
	// file, or a raw write to the CPSR, which must go through SetCPSR.
	ErrInvalidRegister = errors.New("invalid register")

	// ErrBusFault reports an access outside the memory's address range.
	ErrBusFault = errors.New("bus fault")

	// ErrThumbExecution reports an attempt to execute in THUMB state. THUMB
	// opcodes are classified but not executed.
	ErrThumbExecution = errors.New("thumb execution not supported")

	// ErrMaxInstructions reports that the instruction limit was reached.
	ErrMaxInstructions = errors.New("max instructions reached")
)
