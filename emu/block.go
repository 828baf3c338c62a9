package emu

import (
	"fmt"
	"math/bits"
)

// BlockRange is the outcome of addressing mode 4: the ascending address
// range covered by a block transfer and the base writeback it requests.
type BlockRange struct {
	// Start is the lowest address transferred.
	Start uint32
	// End is the highest address transferred.
	End uint32
	// Count is the number of registers in the list.
	Count uint32
	// Base is the base register number (Rn).
	Base uint8
	// Writeback reports whether the W bit requests a base update.
	Writeback bool
	// NewBase is the value written to Rn on commit.
	NewBase uint32
}

// Commit writes the new base back to Rn if the W bit was set and the
// instruction's condition passed.
func (br BlockRange) Commit(rf *RegFile, passed bool) {
	if passed && br.Writeback {
		rf.WriteReg(br.Base, br.NewBase)
	}
}

// AddressMode4 computes the address range of a block data transfer from the
// P and U bits. Decrementing forms move the base down. An empty register
// list is undefined.
func AddressMode4(opcode uint32, rf *RegFile) (BlockRange, error) {
	list := uint16(opcode)
	if list == 0 {
		return BlockRange{}, fmt.Errorf("%w: empty register list %#08x", ErrUndefined, opcode)
	}

	rn := uint8((opcode >> 16) & 0xF)
	base := rf.ReadReg(rn)
	count := uint32(bits.OnesCount16(list))
	span := 4 * count

	br := BlockRange{
		Count:     count,
		Base:      rn,
		Writeback: opcode&(1<<21) != 0,
	}

	pre := opcode&(1<<24) != 0
	up := opcode&(1<<23) != 0

	switch {
	case up && !pre: // IA
		br.Start = base
		br.End = base + span - 4
		br.NewBase = base + span
	case up && pre: // IB
		br.Start = base + 4
		br.End = base + span
		br.NewBase = base + span
	case !up && !pre: // DA
		br.Start = base - span + 4
		br.End = base
		br.NewBase = base - span
	default: // DB
		br.Start = base - span
		br.End = base - 4
		br.NewBase = base - span
	}

	return br, nil
}
