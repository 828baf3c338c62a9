// Package emu provides functional ARMv4T emulation.
package emu

import "fmt"

// Logical register numbers with a special role.
const (
	RegSP   uint8 = 13
	RegLR   uint8 = 14
	RegPC   uint8 = 15
	RegCPSR uint8 = 16
)

// NumPhysicalRegisters is the number of physical register slots.
const NumPhysicalRegisters = 37

// Physical slot layout. Slots 0-15 are the User/System view of r0-r15.
const (
	slotCPSR    = 16
	slotSPIRQ   = 17
	slotLRIRQ   = 18
	slotSPSRIRQ = 19
	slotR8FIQ   = 20 // r8_fiq-r12_fiq occupy 20-24
	slotSPFIQ   = 25
	slotLRFIQ   = 26
	slotSPSRFIQ = 27
	slotSPSVC   = 28
	slotLRSVC   = 29
	slotSPSRSVC = 30
	slotSPABT   = 31
	slotLRABT   = 32
	slotSPSRABT = 33
	slotSPUND   = 34
	slotLRUND   = 35
	slotSPSRUND = 36

	noSPSR = -1
)

// bank lists the physical slots a mode maps r8-r14 and the SPSR onto.
type bank struct {
	high [5]uint8
	sp   uint8
	lr   uint8
	spsr int8
}

var userHigh = [5]uint8{8, 9, 10, 11, 12}

func bankOf(m Mode) bank {
	switch m {
	case ModeFIQ:
		return bank{
			high: [5]uint8{slotR8FIQ, slotR8FIQ + 1, slotR8FIQ + 2, slotR8FIQ + 3, slotR8FIQ + 4},
			sp:   slotSPFIQ, lr: slotLRFIQ, spsr: slotSPSRFIQ,
		}
	case ModeIRQ:
		return bank{high: userHigh, sp: slotSPIRQ, lr: slotLRIRQ, spsr: slotSPSRIRQ}
	case ModeSupervisor:
		return bank{high: userHigh, sp: slotSPSVC, lr: slotLRSVC, spsr: slotSPSRSVC}
	case ModeAbort:
		return bank{high: userHigh, sp: slotSPABT, lr: slotLRABT, spsr: slotSPSRABT}
	case ModeUndefined:
		return bank{high: userHigh, sp: slotSPUND, lr: slotLRUND, spsr: slotSPSRUND}
	default:
		return bank{high: userHigh, sp: 13, lr: 14, spsr: noSPSR}
	}
}

// ResetState holds the register values loaded at reset.
type ResetState struct {
	// SPUser is the User/System stack pointer.
	SPUser uint32
	// SPIRQ is the IRQ banked stack pointer.
	SPIRQ uint32
	// SPSupervisor is the Supervisor banked stack pointer.
	SPSupervisor uint32
	// SPUndefined is the Undefined banked stack pointer.
	SPUndefined uint32
	// PC is the ROM entry address.
	PC uint32
	// CPSR is the initial status register, including the mode.
	CPSR uint32
}

// DefaultResetState returns the reset values of a cartridge-booted
// ARM7TDMI: stacks in internal work RAM, PC at the ROM base, System mode in
// ARM state with IRQ and FIQ masked.
func DefaultResetState() ResetState {
	return ResetState{
		SPUser:       0x03007F00,
		SPIRQ:        0x03007FA0,
		SPSupervisor: 0x03007FE0,
		SPUndefined:  0x03007FF0,
		PC:           0x08000000,
		CPSR:         uint32(ModeSystem) | PSRI | PSRF,
	}
}

// RegFile is the banked ARM register file. Logical registers r0-r15 and
// r16 (CPSR) resolve to physical slots through a mapping table that is
// rebuilt only when the mode changes. A RegFile is a plain value: copying
// it snapshots the whole processor state.
type RegFile struct {
	slots [NumPhysicalRegisters]uint32
	idx   [17]uint8
	spsr  int8

	// pcWritten records a write to r15 since the last clearPCWritten.
	pcWritten bool
}

// NewRegFile creates a register file in the default reset state.
func NewRegFile() *RegFile {
	r, err := NewRegFileWithReset(DefaultResetState())
	if err != nil {
		panic(err) // the default reset state is always valid
	}
	return r
}

// NewRegFileWithReset creates a register file in the given reset state.
func NewRegFileWithReset(rs ResetState) (*RegFile, error) {
	r := &RegFile{}
	if err := r.Reset(rs); err != nil {
		return nil, err
	}
	return r, nil
}

// Reset clears every slot and loads the reset state.
func (r *RegFile) Reset(rs ResetState) error {
	mode := ModeOf(rs.CPSR)
	if !mode.Valid() {
		return fmt.Errorf("%w: reset CPSR %#08x", ErrInvalidMode, rs.CPSR)
	}

	*r = RegFile{}
	r.slots[RegSP] = rs.SPUser
	r.slots[RegPC] = rs.PC
	r.slots[slotSPIRQ] = rs.SPIRQ
	r.slots[slotSPSVC] = rs.SPSupervisor
	r.slots[slotSPUND] = rs.SPUndefined
	r.slots[slotCPSR] = rs.CPSR
	r.remap(mode)

	return nil
}

// remap rebuilds the mapping table for mode m.
func (r *RegFile) remap(m Mode) {
	b := bankOf(m)
	for i := uint8(0); i < 8; i++ {
		r.idx[i] = i
	}
	copy(r.idx[8:13], b.high[:])
	r.idx[RegSP] = b.sp
	r.idx[RegLR] = b.lr
	r.idx[RegPC] = RegPC
	r.idx[RegCPSR] = slotCPSR
	r.spsr = b.spsr
}

// Mode returns the current processor mode.
func (r *RegFile) Mode() Mode {
	return ModeOf(r.slots[slotCPSR])
}

// EnterMode switches to mode m. Banked registers are re-addressed, never
// copied.
func (r *RegFile) EnterMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %#02x", ErrInvalidMode, uint8(m))
	}
	r.slots[slotCPSR] = r.slots[slotCPSR]&^PSRModeMask | uint32(m)
	r.remap(m)
	return nil
}

// ReadReg reads logical register reg (0-15, or 16 for the CPSR) in the
// current mode. It panics with ErrInvalidRegister for any other index.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg > RegCPSR {
		panic(fmt.Errorf("%w: r%d", ErrInvalidRegister, reg))
	}
	return r.slots[r.idx[reg]]
}

// WriteReg writes logical register reg (0-15) in the current mode. The
// CPSR is not writable here since a mode change must remap the bank; use
// SetCPSR. Any index above 15 panics with ErrInvalidRegister.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg > RegPC {
		panic(fmt.Errorf("%w: write to r%d, use SetCPSR for the CPSR", ErrInvalidRegister, reg))
	}
	if reg == RegPC {
		r.pcWritten = true
	}
	r.slots[r.idx[reg]] = value
}

// ReadUserReg reads the User mode view of register reg (0-15), regardless
// of the current mode.
func (r *RegFile) ReadUserReg(reg uint8) uint32 {
	if reg > RegPC {
		panic(fmt.Errorf("%w: user r%d", ErrInvalidRegister, reg))
	}
	return r.slots[reg]
}

// WriteUserReg writes the User mode view of register reg (0-15).
func (r *RegFile) WriteUserReg(reg uint8, value uint32) {
	if reg > RegPC {
		panic(fmt.Errorf("%w: user r%d", ErrInvalidRegister, reg))
	}
	if reg == RegPC {
		r.pcWritten = true
	}
	r.slots[reg] = value
}

// PC returns r15.
func (r *RegFile) PC() uint32 {
	return r.slots[RegPC]
}

// SetPC writes r15.
func (r *RegFile) SetPC(pc uint32) {
	r.WriteReg(RegPC, pc)
}

// Physical returns the raw contents of physical slot i. It is meant for
// inspection and tests.
func (r *RegFile) Physical(i int) (uint32, error) {
	if i < 0 || i >= NumPhysicalRegisters {
		return 0, fmt.Errorf("%w: physical slot %d", ErrInvalidRegister, i)
	}
	return r.slots[i], nil
}

// CPSR returns the current program status register.
func (r *RegFile) CPSR() uint32 {
	return r.slots[slotCPSR]
}

// SetCPSR writes the current program status register. A change of the mode
// field goes through EnterMode so the mapping table follows.
func (r *RegFile) SetCPSR(value uint32) error {
	mode := ModeOf(value)
	if !mode.Valid() {
		return fmt.Errorf("%w: CPSR %#08x", ErrInvalidMode, value)
	}

	r.slots[slotCPSR] = value&^PSRModeMask | r.slots[slotCPSR]&PSRModeMask
	if mode != r.Mode() {
		return r.EnterMode(mode)
	}
	return nil
}

// SPSR returns the saved program status register of the current mode.
func (r *RegFile) SPSR() (uint32, error) {
	if r.spsr == noSPSR {
		return 0, fmt.Errorf("%w: %v", ErrNoSPSR, r.Mode())
	}
	return r.slots[r.spsr], nil
}

// SetSPSR writes the saved program status register of the current mode.
func (r *RegFile) SetSPSR(value uint32) error {
	if r.spsr == noSPSR {
		return fmt.Errorf("%w: %v", ErrNoSPSR, r.Mode())
	}
	r.slots[r.spsr] = value
	return nil
}

// Flags returns a snapshot of the condition flags.
func (r *RegFile) Flags() Flags {
	return FlagsOf(r.slots[slotCPSR])
}

// N returns the negative flag.
func (r *RegFile) N() bool { return r.psrBit(PSRN) }

// Z returns the zero flag.
func (r *RegFile) Z() bool { return r.psrBit(PSRZ) }

// C returns the carry flag.
func (r *RegFile) C() bool { return r.psrBit(PSRC) }

// V returns the overflow flag.
func (r *RegFile) V() bool { return r.psrBit(PSRV) }

// Q returns the sticky overflow flag.
func (r *RegFile) Q() bool { return r.psrBit(PSRQ) }

// Thumb reports whether the T bit selects THUMB decoding.
func (r *RegFile) Thumb() bool { return r.psrBit(PSRT) }

// IRQDisabled reports whether the I bit masks interrupts.
func (r *RegFile) IRQDisabled() bool { return r.psrBit(PSRI) }

// FIQDisabled reports whether the F bit masks fast interrupts.
func (r *RegFile) FIQDisabled() bool { return r.psrBit(PSRF) }

// SetN sets the negative flag.
func (r *RegFile) SetN(on bool) { r.setPSRBit(PSRN, on) }

// SetZ sets the zero flag.
func (r *RegFile) SetZ(on bool) { r.setPSRBit(PSRZ, on) }

// SetC sets the carry flag.
func (r *RegFile) SetC(on bool) { r.setPSRBit(PSRC, on) }

// SetV sets the overflow flag.
func (r *RegFile) SetV(on bool) { r.setPSRBit(PSRV, on) }

// SetQ sets the sticky overflow flag.
func (r *RegFile) SetQ(on bool) { r.setPSRBit(PSRQ, on) }

// SetThumb sets the T bit.
func (r *RegFile) SetThumb(on bool) { r.setPSRBit(PSRT, on) }

// SetIRQDisabled sets the I bit.
func (r *RegFile) SetIRQDisabled(on bool) { r.setPSRBit(PSRI, on) }

// SetFIQDisabled sets the F bit.
func (r *RegFile) SetFIQDisabled(on bool) { r.setPSRBit(PSRF, on) }

// SetNZ sets N and Z from a 32-bit result.
func (r *RegFile) SetNZ(result uint32) {
	r.SetN(result&0x80000000 != 0)
	r.SetZ(result == 0)
}

func (r *RegFile) psrBit(mask uint32) bool {
	return r.slots[slotCPSR]&mask != 0
}

func (r *RegFile) setPSRBit(mask uint32, on bool) {
	if on {
		r.slots[slotCPSR] |= mask
	} else {
		r.slots[slotCPSR] &^= mask
	}
}

func (r *RegFile) clearPCWritten() {
	r.pcWritten = false
}
