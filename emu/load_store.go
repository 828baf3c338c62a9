package emu

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/arm7core/insts"
)

// pendingWrite is a byte store held back until the instruction completes.
type pendingWrite struct {
	addr  uint32
	value uint8
}

// transaction buffers the bus stores of one instruction so a failing
// instruction leaves memory untouched. Reads see the instruction's own
// earlier stores.
type transaction struct {
	bus    Bus
	writes []pendingWrite
}

func (t *transaction) reset() {
	t.writes = t.writes[:0]
}

func (t *transaction) read8(addr uint32) (uint8, error) {
	for i := len(t.writes) - 1; i >= 0; i-- {
		if t.writes[i].addr == addr {
			return t.writes[i].value, nil
		}
	}
	return t.bus.Read8(addr)
}

func (t *transaction) read16(addr uint32) (uint16, error) {
	lo, err := t.read8(addr)
	if err != nil {
		return 0, err
	}
	hi, err := t.read8(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

func (t *transaction) read32(addr uint32) (uint32, error) {
	lo, err := t.read16(addr)
	if err != nil {
		return 0, err
	}
	hi, err := t.read16(addr + 2)
	if err != nil {
		return 0, err
	}
	return uint32(lo) | uint32(hi)<<16, nil
}

func (t *transaction) write8(addr uint32, value uint8) {
	t.writes = append(t.writes, pendingWrite{addr: addr, value: value})
}

func (t *transaction) write16(addr uint32, value uint16) {
	t.write8(addr, uint8(value))
	t.write8(addr+1, uint8(value>>8))
}

func (t *transaction) write32(addr uint32, value uint32) {
	t.write16(addr, uint16(value))
	t.write16(addr+2, uint16(value>>16))
}

// commit checks every buffered address, then performs the stores. If a
// store still faults, the bytes already written are put back. It returns
// the addresses written.
func (t *transaction) commit() ([]uint32, error) {
	if len(t.writes) == 0 {
		return nil, nil
	}

	checker, _ := t.bus.(WriteChecker)
	for _, w := range t.writes {
		var err error
		if checker != nil {
			err = checker.CanWrite8(w.addr)
		} else {
			_, err = t.bus.Read8(w.addr)
		}
		if err != nil {
			return nil, fmt.Errorf("store to %#08x: %w", w.addr, err)
		}
	}

	written := make([]uint32, 0, len(t.writes))
	old := make([]uint8, 0, len(t.writes))
	for _, w := range t.writes {
		prev, err := t.bus.Read8(w.addr)
		if err == nil {
			err = t.bus.Write8(w.addr, w.value)
		}
		if err != nil {
			t.rollback(written, old)
			return written, fmt.Errorf("store to %#08x: %w", w.addr, err)
		}
		written = append(written, w.addr)
		old = append(old, prev)
	}
	return written, nil
}

// rollback restores the previous bytes in reverse store order.
func (t *transaction) rollback(written []uint32, old []uint8) {
	for i := len(written) - 1; i >= 0; i-- {
		_ = t.bus.Write8(written[i], old[i])
	}
}

// LoadStoreUnit implements ARM single, halfword, block and swap transfers.
type LoadStoreUnit struct {
	regFile *RegFile
	tx      *transaction
}

// newLoadStoreUnit creates a LoadStoreUnit connected to the given
// register file and bus transaction.
func newLoadStoreUnit(regFile *RegFile, tx *transaction) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		tx:      tx,
	}
}

// SingleTransfer executes LDR, STR, LDRB and STRB. An unaligned word load
// rotates the aligned word so the addressed byte lands in bits 7-0.
func (lsu *LoadStoreUnit) SingleTransfer(inst *insts.Instruction) error {
	ea, err := AddressMode2(inst.Raw, lsu.regFile)
	if err != nil {
		return err
	}

	if !inst.Load {
		value := lsu.regFile.ReadReg(inst.Rd)
		if inst.Byte {
			lsu.tx.write8(ea.Addr, uint8(value))
		} else {
			lsu.tx.write32(ea.Addr&^3, value)
		}
		ea.Commit(lsu.regFile, true)
		return nil
	}

	var value uint32
	if inst.Byte {
		b, err := lsu.tx.read8(ea.Addr)
		if err != nil {
			return err
		}
		value = uint32(b)
	} else {
		word, err := lsu.tx.read32(ea.Addr &^ 3)
		if err != nil {
			return err
		}
		value = bits.RotateLeft32(word, -int(8*(ea.Addr&3)))
	}

	// A loaded Rd wins over the base writeback when Rd == Rn.
	ea.Commit(lsu.regFile, true)
	lsu.writeLoaded(inst.Rd, value)
	return nil
}

// HalfwordTransfer executes LDRH, STRH, LDRSB and LDRSH.
func (lsu *LoadStoreUnit) HalfwordTransfer(inst *insts.Instruction) error {
	if inst.Op == insts.OpUnknown {
		return fmt.Errorf("%w: halfword transfer %#08x", ErrUndefined, inst.Raw)
	}

	ea, err := AddressMode3(inst.Raw, lsu.regFile)
	if err != nil {
		return err
	}

	if inst.Op == insts.OpSTRH {
		lsu.tx.write16(ea.Addr&^1, uint16(lsu.regFile.ReadReg(inst.Rd)))
		ea.Commit(lsu.regFile, true)
		return nil
	}

	var value uint32
	switch inst.Op {
	case insts.OpLDRH:
		h, err := lsu.tx.read16(ea.Addr &^ 1)
		if err != nil {
			return err
		}
		value = bits.RotateLeft32(uint32(h), -int(8*(ea.Addr&1)))
	case insts.OpLDRSB:
		b, err := lsu.tx.read8(ea.Addr)
		if err != nil {
			return err
		}
		value = uint32(int32(int8(b)))
	default: // LDRSH; an odd address loads a sign-extended byte
		if ea.Addr&1 != 0 {
			b, err := lsu.tx.read8(ea.Addr)
			if err != nil {
				return err
			}
			value = uint32(int32(int8(b)))
		} else {
			h, err := lsu.tx.read16(ea.Addr)
			if err != nil {
				return err
			}
			value = uint32(int32(int16(h)))
		}
	}

	ea.Commit(lsu.regFile, true)
	lsu.writeLoaded(inst.Rd, value)
	return nil
}

// BlockTransfer executes LDM and STM. Registers move in ascending order from
// the lowest address. With the S bit, a list without r15 (or any STM)
// transfers the User bank; LDM with r15 in the list also restores CPSR from
// SPSR.
func (lsu *LoadStoreUnit) BlockTransfer(inst *insts.Instruction) error {
	br, err := AddressMode4(inst.Raw, lsu.regFile)
	if err != nil {
		return err
	}

	list := inst.RegList
	withPC := list&(1<<RegPC) != 0
	userBank := inst.Byte && (!inst.Load || !withPC)

	if inst.Load {
		return lsu.loadMultiple(inst, br, userBank, withPC)
	}
	return lsu.storeMultiple(inst, br, userBank)
}

func (lsu *LoadStoreUnit) loadMultiple(inst *insts.Instruction, br BlockRange, userBank, withPC bool) error {
	var spsr uint32
	if inst.Byte && withPC {
		var err error
		if spsr, err = lsu.regFile.SPSR(); err != nil {
			return err
		}
	}

	values := make([]uint32, 0, br.Count)
	addr := br.Start &^ 3
	for reg := uint8(0); reg < 16; reg++ {
		if inst.RegList&(1<<reg) == 0 {
			continue
		}
		v, err := lsu.tx.read32(addr)
		if err != nil {
			return err
		}
		values = append(values, v)
		addr += 4
	}

	br.Commit(lsu.regFile, true)

	pcMask := ^uint32(3)
	if inst.Byte && withPC && spsr&PSRT != 0 {
		pcMask = ^uint32(1)
	}

	i := 0
	for reg := uint8(0); reg < 16; reg++ {
		if inst.RegList&(1<<reg) == 0 {
			continue
		}
		switch {
		case userBank:
			lsu.regFile.WriteUserReg(reg, values[i])
		case reg == RegPC:
			lsu.regFile.WriteReg(RegPC, values[i]&pcMask)
		default:
			lsu.regFile.WriteReg(reg, values[i])
		}
		i++
	}

	if inst.Byte && withPC {
		return lsu.regFile.SetCPSR(spsr)
	}
	return nil
}

func (lsu *LoadStoreUnit) storeMultiple(inst *insts.Instruction, br BlockRange, userBank bool) error {
	// The base is stored unchanged when it is the lowest listed register,
	// and as its written-back value otherwise.
	lowest := uint8(bits.TrailingZeros16(inst.RegList))

	addr := br.Start &^ 3
	for reg := uint8(0); reg < 16; reg++ {
		if inst.RegList&(1<<reg) == 0 {
			continue
		}

		var v uint32
		switch {
		case reg == br.Base && br.Writeback && reg != lowest:
			v = br.NewBase
		case userBank:
			v = lsu.regFile.ReadUserReg(reg)
		default:
			v = lsu.regFile.ReadReg(reg)
		}

		lsu.tx.write32(addr, v)
		addr += 4
	}

	br.Commit(lsu.regFile, true)
	return nil
}

// Swap executes SWP and SWPB: Rd is loaded from [Rn] and Rm is stored there.
func (lsu *LoadStoreUnit) Swap(inst *insts.Instruction) error {
	addr := lsu.regFile.ReadReg(inst.Rn)
	source := lsu.regFile.ReadReg(inst.Rm)

	var loaded uint32
	if inst.Byte {
		b, err := lsu.tx.read8(addr)
		if err != nil {
			return err
		}
		loaded = uint32(b)
		lsu.tx.write8(addr, uint8(source))
	} else {
		word, err := lsu.tx.read32(addr &^ 3)
		if err != nil {
			return err
		}
		loaded = bits.RotateLeft32(word, -int(8*(addr&3)))
		lsu.tx.write32(addr&^3, source)
	}

	lsu.writeLoaded(inst.Rd, loaded)
	return nil
}

// writeLoaded writes a loaded value, clearing the low bits of a PC load.
func (lsu *LoadStoreUnit) writeLoaded(reg uint8, value uint32) {
	if reg == RegPC {
		value &^= 3
	}
	lsu.regFile.WriteReg(reg, value)
}
