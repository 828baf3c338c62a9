package emu

import (
	"fmt"

	"github.com/sarchlab/arm7core/insts"
)

// MSR field mask bits, in instruction bit order 16-19.
const (
	fieldControl   = 1 << 0
	fieldExtension = 1 << 1
	fieldStatus    = 1 << 2
	fieldFlags     = 1 << 3
)

// PSRUnit implements MRS and MSR.
type PSRUnit struct {
	regFile *RegFile
}

// NewPSRUnit creates a new PSRUnit connected to the given register file.
func NewPSRUnit(regFile *RegFile) *PSRUnit {
	return &PSRUnit{regFile: regFile}
}

// MRS copies the CPSR, or the SPSR when R is set, into Rd.
func (p *PSRUnit) MRS(inst *insts.Instruction) error {
	value := p.regFile.CPSR()
	if inst.Byte {
		var err error
		if value, err = p.regFile.SPSR(); err != nil {
			return fmt.Errorf("mrs: %w", err)
		}
	}

	p.regFile.WriteReg(inst.Rd, value)
	return nil
}

// MSR writes the fields selected by the field mask of the CPSR, or the SPSR
// when R is set. The source is Rm or a rotated 8-bit immediate. User mode
// may only write the flags byte of the CPSR, and the T bit is never written
// through the CPSR.
func (p *PSRUnit) MSR(inst *insts.Instruction) error {
	var source uint32
	if inst.Immediate {
		source, _ = RotateImmediate(inst.Imm, inst.Rotate, false)
	} else {
		source = p.regFile.ReadReg(inst.Rm)
	}

	mask := fieldMask(inst.FieldMask)

	if inst.Byte {
		spsr, err := p.regFile.SPSR()
		if err != nil {
			return fmt.Errorf("msr: %w", err)
		}
		return p.regFile.SetSPSR(spsr&^mask | source&mask)
	}

	if !p.regFile.Mode().Privileged() {
		mask &= 0xFF000000
	}
	mask &^= PSRT

	cpsr := p.regFile.CPSR()
	if err := p.regFile.SetCPSR(cpsr&^mask | source&mask); err != nil {
		return fmt.Errorf("msr: %w", err)
	}
	return nil
}

func fieldMask(fields uint8) uint32 {
	var mask uint32
	if fields&fieldControl != 0 {
		mask |= 0x000000FF
	}
	if fields&fieldExtension != 0 {
		mask |= 0x0000FF00
	}
	if fields&fieldStatus != 0 {
		mask |= 0x00FF0000
	}
	if fields&fieldFlags != 0 {
		mask |= 0xFF000000
	}
	return mask
}
