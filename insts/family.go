package insts

// InstructionSet selects which encoding an opcode belongs to.
type InstructionSet uint8

// Instruction sets of the ARMv4T architecture.
const (
	SetARM InstructionSet = iota
	SetTHUMB
)

// String returns the instruction set name.
func (s InstructionSet) String() string {
	if s == SetTHUMB {
		return "THUMB"
	}
	return "ARM"
}

// Family identifies the instruction family an opcode belongs to.
type Family uint8

// ARM families.
const (
	FamilyUndefined Family = iota
	FamilyBranchExchange
	FamilyBlockDataTransfer
	FamilyBranch
	FamilySoftwareInterrupt
	FamilySingleDataTransfer
	FamilySingleDataSwap
	FamilyMultiply
	FamilyHalfwordTransferReg
	FamilyHalfwordTransferImm
	FamilyPSRTransferMRS
	FamilyPSRTransferMSR
	FamilyDataProcessing
)

// THUMB families.
const (
	FamilyThumbSoftwareInterrupt Family = iota + 32
	FamilyThumbUnconditionalBranch
	FamilyThumbConditionalBranch
	FamilyThumbMultipleLoadStore
	FamilyThumbLongBranchWithLink
	FamilyThumbAddOffsetToSP
	FamilyThumbPushPop
	FamilyThumbLoadStoreHalfword
	FamilyThumbSPRelativeLoadStore
	FamilyThumbLoadAddress
	FamilyThumbLoadStoreImmOffset
	FamilyThumbLoadStoreRegOffset
	FamilyThumbLoadStoreSignExtended
	FamilyThumbPCRelativeLoad
	FamilyThumbHiRegisterOps
	FamilyThumbALUOps
	FamilyThumbMoveCompareAddSubImm
	FamilyThumbAddSubtract
	FamilyThumbMoveShiftedRegister
)

var familyNames = map[Family]string{
	FamilyUndefined:           "undefined",
	FamilyBranchExchange:      "branch and exchange",
	FamilyBlockDataTransfer:   "block data transfer",
	FamilyBranch:              "branch",
	FamilySoftwareInterrupt:   "software interrupt",
	FamilySingleDataTransfer:  "single data transfer",
	FamilySingleDataSwap:      "single data swap",
	FamilyMultiply:            "multiply",
	FamilyHalfwordTransferReg: "halfword transfer (register)",
	FamilyHalfwordTransferImm: "halfword transfer (immediate)",
	FamilyPSRTransferMRS:      "psr transfer (mrs)",
	FamilyPSRTransferMSR:      "psr transfer (msr)",
	FamilyDataProcessing:      "data processing",

	FamilyThumbSoftwareInterrupt:     "thumb software interrupt",
	FamilyThumbUnconditionalBranch:   "thumb unconditional branch",
	FamilyThumbConditionalBranch:     "thumb conditional branch",
	FamilyThumbMultipleLoadStore:     "thumb load/store multiple",
	FamilyThumbLongBranchWithLink:    "thumb long branch with link",
	FamilyThumbAddOffsetToSP:         "thumb add offset to sp",
	FamilyThumbPushPop:               "thumb push/pop",
	FamilyThumbLoadStoreHalfword:     "thumb load/store halfword",
	FamilyThumbSPRelativeLoadStore:   "thumb sp-relative load/store",
	FamilyThumbLoadAddress:           "thumb load address",
	FamilyThumbLoadStoreImmOffset:    "thumb load/store immediate offset",
	FamilyThumbLoadStoreRegOffset:    "thumb load/store register offset",
	FamilyThumbLoadStoreSignExtended: "thumb load/store sign-extended",
	FamilyThumbPCRelativeLoad:        "thumb pc-relative load",
	FamilyThumbHiRegisterOps:         "thumb hi-register operation",
	FamilyThumbALUOps:                "thumb alu operation",
	FamilyThumbMoveCompareAddSubImm:  "thumb move/compare/add/subtract immediate",
	FamilyThumbAddSubtract:           "thumb add/subtract",
	FamilyThumbMoveShiftedRegister:   "thumb move shifted register",
}

// String returns a human readable family name.
func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// IsThumb reports whether the family belongs to the THUMB instruction set.
func (f Family) IsThumb() bool {
	return f >= FamilyThumbSoftwareInterrupt
}

// pattern is one row of a classification table. An opcode belongs to the
// family when opcode&mask == format.
type pattern struct {
	mask   uint32
	format uint32
	family Family
}

// armPatterns is checked in order and the first match wins. Several rows
// overlap: BX also matches the MSR row, swap and multiply also match the
// halfword register row, and everything below bit 26 matches data
// processing. The order is therefore part of the contract.
var armPatterns = []pattern{
	{0x0FFFFFF0, 0x012FFF10, FamilyBranchExchange},
	{0x0E000000, 0x08000000, FamilyBlockDataTransfer},
	{0x0E000000, 0x0A000000, FamilyBranch},
	{0x0F000000, 0x0F000000, FamilySoftwareInterrupt},
	{0x0E000010, 0x06000010, FamilyUndefined},
	{0x0C000000, 0x04000000, FamilySingleDataTransfer},
	{0x0FB00FF0, 0x01000090, FamilySingleDataSwap},
	{0x0FC000F0, 0x00000090, FamilyMultiply},
	{0x0F8000F0, 0x00800090, FamilyMultiply},
	{0x0E400090, 0x00000090, FamilyHalfwordTransferReg},
	{0x0E400090, 0x00400090, FamilyHalfwordTransferImm},
	{0x0FBF0FFF, 0x010F0000, FamilyPSRTransferMRS},
	{0x0DB0F000, 0x0120F000, FamilyPSRTransferMSR},
	{0x0C000000, 0x00000000, FamilyDataProcessing},
}

// thumbPatterns is checked in order and the first match wins. Add/subtract
// sits inside the move shifted register space and conditional branch
// condition 0b1110 is reserved.
var thumbPatterns = []pattern{
	{0xFF00, 0xDF00, FamilyThumbSoftwareInterrupt},
	{0xFF00, 0xDE00, FamilyUndefined},
	{0xF800, 0xE000, FamilyThumbUnconditionalBranch},
	{0xF000, 0xD000, FamilyThumbConditionalBranch},
	{0xF000, 0xC000, FamilyThumbMultipleLoadStore},
	{0xF000, 0xF000, FamilyThumbLongBranchWithLink},
	{0xFF00, 0xB000, FamilyThumbAddOffsetToSP},
	{0xF600, 0xB400, FamilyThumbPushPop},
	{0xF000, 0x8000, FamilyThumbLoadStoreHalfword},
	{0xF000, 0x9000, FamilyThumbSPRelativeLoadStore},
	{0xF000, 0xA000, FamilyThumbLoadAddress},
	{0xE000, 0x6000, FamilyThumbLoadStoreImmOffset},
	{0xF200, 0x5000, FamilyThumbLoadStoreRegOffset},
	{0xF200, 0x5200, FamilyThumbLoadStoreSignExtended},
	{0xF800, 0x4800, FamilyThumbPCRelativeLoad},
	{0xFC00, 0x4400, FamilyThumbHiRegisterOps},
	{0xFC00, 0x4000, FamilyThumbALUOps},
	{0xE000, 0x2000, FamilyThumbMoveCompareAddSubImm},
	{0xF800, 0x1800, FamilyThumbAddSubtract},
	{0xE000, 0x0000, FamilyThumbMoveShiftedRegister},
}

// Classify returns the family of an opcode. THUMB opcodes use the low 16
// bits of opcode. Opcodes that match no row classify as FamilyUndefined.
func Classify(set InstructionSet, opcode uint32) Family {
	table := armPatterns
	if set == SetTHUMB {
		table = thumbPatterns
		opcode &= 0xFFFF
	}

	for _, p := range table {
		if opcode&p.mask == p.format {
			return p.family
		}
	}

	return FamilyUndefined
}

// ClassifyARM classifies a 32-bit ARM opcode.
func ClassifyARM(opcode uint32) Family {
	return Classify(SetARM, opcode)
}

// ClassifyThumb classifies a 16-bit THUMB opcode.
func ClassifyThumb(opcode uint16) Family {
	return Classify(SetTHUMB, uint32(opcode))
}
