package emu

import "fmt"

// Program status register bits.
const (
	PSRN uint32 = 1 << 31 // Negative
	PSRZ uint32 = 1 << 30 // Zero
	PSRC uint32 = 1 << 29 // Carry
	PSRV uint32 = 1 << 28 // Overflow
	PSRQ uint32 = 1 << 27 // Sticky overflow
	PSRI uint32 = 1 << 7  // IRQ disable
	PSRF uint32 = 1 << 6  // FIQ disable
	PSRT uint32 = 1 << 5  // THUMB state

	// PSRModeMask selects the mode field.
	PSRModeMask uint32 = 0x1F
)

// Mode is a processor mode as encoded in the PSR mode field.
type Mode uint8

// Processor modes.
const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeAbort      Mode = 0x17
	ModeUndefined  Mode = 0x1B
	ModeSystem     Mode = 0x1F
)

// ModeOf extracts the mode field of a PSR value.
func ModeOf(psr uint32) Mode {
	return Mode(psr & PSRModeMask)
}

// Valid reports whether m names one of the seven processor modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeUser, ModeFIQ, ModeIRQ, ModeSupervisor,
		ModeAbort, ModeUndefined, ModeSystem:
		return true
	}
	return false
}

// Privileged reports whether m is any mode other than User.
func (m Mode) Privileged() bool {
	return m.Valid() && m != ModeUser
}

// HasSPSR reports whether m owns a saved program status register.
func (m Mode) HasSPSR() bool {
	return m.Valid() && m != ModeUser && m != ModeSystem
}

// String returns the conventional short mode name.
func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "usr"
	case ModeFIQ:
		return "fiq"
	case ModeIRQ:
		return "irq"
	case ModeSupervisor:
		return "svc"
	case ModeAbort:
		return "abt"
	case ModeUndefined:
		return "und"
	case ModeSystem:
		return "sys"
	}
	return fmt.Sprintf("mode(%#02x)", uint8(m))
}

// Flags is a snapshot of the condition flags.
type Flags struct {
	// N is the negative flag.
	N bool
	// Z is the zero flag.
	Z bool
	// C is the carry flag.
	C bool
	// V is the overflow flag.
	V bool
}

// FlagsOf extracts the condition flags of a PSR value.
func FlagsOf(psr uint32) Flags {
	return Flags{
		N: psr&PSRN != 0,
		Z: psr&PSRZ != 0,
		C: psr&PSRC != 0,
		V: psr&PSRV != 0,
	}
}
