package emu

// pipelineOffset is the distance between an executing ARM instruction and
// the PC value branch targets are relative to.
const pipelineOffset = 8

// BranchUnit implements ARM branch operations.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// B performs a PC-relative branch. The offset is in bytes and is relative
// to the instruction address plus 8.
func (b *BranchUnit) B(offset int32) {
	pc := b.regFile.PC()
	b.regFile.SetPC(uint32(int32(pc) + pipelineOffset + offset))
}

// BL performs a branch with link. The return address (PC + 4) is saved to
// the link register of the current mode before branching.
func (b *BranchUnit) BL(offset int32) {
	b.regFile.WriteReg(RegLR, b.regFile.PC()+4)
	b.B(offset)
}

// BX branches to the address in Rm. Bit 0 of the target selects THUMB
// state and is cleared from the new PC.
func (b *BranchUnit) BX(rm uint8) {
	target := b.regFile.ReadReg(rm)

	b.regFile.SetThumb(target&1 != 0)
	b.regFile.SetPC(target &^ 1)
}
