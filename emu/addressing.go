package emu

import (
	"fmt"

	"github.com/sarchlab/arm7core/insts"
)

// EffectiveAddress is the outcome of addressing modes 2 and 3: the address
// exposed to the transfer and the base register writeback it requests.
type EffectiveAddress struct {
	// Addr is the transfer address. It is the updated base for offset and
	// pre-indexed forms and the original base for post-indexed forms.
	Addr uint32
	// Base is the base register number (Rn).
	Base uint8
	// Writeback reports whether Rn is to be updated.
	Writeback bool
	// NewBase is the value written to Rn on commit.
	NewBase uint32
}

// Commit writes the new base back to Rn if writeback was requested and the
// instruction's condition passed.
func (ea EffectiveAddress) Commit(rf *RegFile, passed bool) {
	if passed && ea.Writeback {
		rf.WriteReg(ea.Base, ea.NewBase)
	}
}

// AddressMode2 computes the address of a word or unsigned byte transfer.
// The offset is a 12-bit immediate (I=0) or Rm, optionally shifted by an
// immediate amount (I=1). Post-indexing always writes back; P=0 with W=1 is
// the user translation form and addresses the same way.
func AddressMode2(opcode uint32, rf *RegFile) (EffectiveAddress, error) {
	var offset uint32
	if opcode&(1<<25) == 0 {
		offset = opcode & 0xFFF
	} else {
		if opcode&(1<<4) != 0 {
			return EffectiveAddress{}, fmt.Errorf(
				"%w: register-shifted offset in word transfer %#08x", ErrUndefined, opcode)
		}
		rm := rf.ReadReg(uint8(opcode & 0xF))
		kind := insts.ShiftType((opcode >> 5) & 0x3)
		offset, _ = ShiftImmediate(kind, rm, uint8((opcode>>7)&0x1F), rf.C())
	}

	return indexAddress(opcode, rf, offset), nil
}

// AddressMode3 computes the address of a halfword or signed transfer. The
// offset is an 8-bit immediate split across bits 11-8 and 3-0 (bit 22 set)
// or an unshifted Rm. A register form with non-zero bits 11-8 and the
// post-indexed form with W=1 are undefined.
func AddressMode3(opcode uint32, rf *RegFile) (EffectiveAddress, error) {
	var offset uint32
	if opcode&(1<<22) != 0 {
		offset = (opcode>>4)&0xF0 | opcode&0xF
	} else {
		if opcode&0xF00 != 0 {
			return EffectiveAddress{}, fmt.Errorf(
				"%w: scaled register offset in halfword transfer %#08x", ErrUndefined, opcode)
		}
		offset = rf.ReadReg(uint8(opcode & 0xF))
	}

	if opcode&(1<<24) == 0 && opcode&(1<<21) != 0 {
		return EffectiveAddress{}, fmt.Errorf(
			"%w: post-indexed halfword transfer with writeback %#08x", ErrUndefined, opcode)
	}

	return indexAddress(opcode, rf, offset), nil
}

// indexAddress applies the P, U and W bits shared by modes 2 and 3.
func indexAddress(opcode uint32, rf *RegFile, offset uint32) EffectiveAddress {
	rn := uint8((opcode >> 16) & 0xF)
	base := rf.ReadReg(rn)

	updated := base + offset
	if opcode&(1<<23) == 0 {
		updated = base - offset
	}

	if opcode&(1<<24) != 0 {
		return EffectiveAddress{
			Addr:      updated,
			Base:      rn,
			Writeback: opcode&(1<<21) != 0,
			NewBase:   updated,
		}
	}

	return EffectiveAddress{
		Addr:      base,
		Base:      rn,
		Writeback: true,
		NewBase:   updated,
	}
}
