package insts

// Op represents a decoded ARM operation.
type Op uint16

// ARM operations. The data processing operations keep their 4-bit opcode
// order so that OpAND+opcode maps directly.
const (
	OpUnknown Op = iota
	OpAND
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN
	OpB
	OpBL
	OpBX
	OpSWI
	OpMUL
	OpMLA
	OpUMULL
	OpUMLAL
	OpSMULL
	OpSMLAL
	OpLDR
	OpSTR
	OpLDRH
	OpSTRH
	OpLDRSB
	OpLDRSH
	OpLDM
	OpSTM
	OpSWP
	OpMRS
	OpMSR
)

var opNames = [...]string{
	"unknown", "and", "eor", "sub", "rsb", "add", "adc", "sbc", "rsc",
	"tst", "teq", "cmp", "cmn", "orr", "mov", "bic", "mvn",
	"b", "bl", "bx", "swi", "mul", "mla", "umull", "umlal", "smull", "smlal",
	"ldr", "str", "ldrh", "strh", "ldrsb", "ldrsh", "ldm", "stm", "swp",
	"mrs", "msr",
}

// String returns the assembler mnemonic of the operation.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

// IsCompare reports whether the operation only updates flags.
func (o Op) IsCompare() bool {
	return o >= OpTST && o <= OpCMN
}

// Cond represents an ARM condition code.
type Cond uint8

// ARM condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always (unconditional)
	CondNV Cond = 0b1111 // Reserved, never executes
)

var condNames = [...]string{"eq", "ne", "cs", "cc", "mi", "pl", "vs",
	"vc", "hi", "ls", "ge", "lt", "gt", "le", "al", "nv"}

// String returns the condition suffix.
func (c Cond) String() string {
	return condNames[c&0xF]
}

// CondOf extracts the condition field (bits 31-28) of an ARM opcode.
func CondOf(opcode uint32) Cond {
	return Cond(opcode >> 28)
}

// ShiftType represents the barrel shifter operation applied to Rm.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = 0b00 // Logical shift left
	ShiftLSR ShiftType = 0b01 // Logical shift right
	ShiftASR ShiftType = 0b10 // Arithmetic shift right
	ShiftROR ShiftType = 0b11 // Rotate right (RRX when the amount is 0)
)

// Instruction represents a decoded ARM instruction.
type Instruction struct {
	Raw    uint32 // Opcode the instruction was decoded from
	Family Family // Classification result
	Op     Op     // Operation
	Cond   Cond   // Condition field

	SetFlags bool  // S bit
	Rd       uint8 // Destination register (RdHi for long multiplies)
	Rn       uint8 // First operand / base register (RdLo for long multiplies)
	Rs       uint8 // Shift or multiplier register
	Rm       uint8 // Second operand register

	// Operand 2 and transfer offset
	Immediate   bool      // Operand is an immediate (I bit, or bit 22 for halfwords)
	Imm         uint32    // Unrotated/unshifted immediate value
	Rotate      uint8     // Immediate rotation, already doubled
	ShiftType   ShiftType // Shift applied to Rm
	ShiftAmount uint8     // Immediate shift amount
	ShiftByReg  bool      // Shift amount comes from Rs

	// Transfer control bits
	PreIndex  bool   // P bit
	Up        bool   // U bit
	Byte      bool   // B bit (also the S bit of block transfers, and R of PSR transfers)
	Writeback bool   // W bit
	Load      bool   // L bit
	Signed    bool   // Halfword transfer S bit
	Halfword  bool   // Halfword transfer H bit
	RegList   uint16 // Block transfer register list
	FieldMask uint8  // MSR field mask (c, x, s, f)

	BranchOffset int32  // Signed branch displacement in bytes
	Comment      uint32 // SWI comment field
}

// Decoder decodes ARM machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new ARM instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit ARM instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Raw:    word,
		Family: ClassifyARM(word),
		Op:     OpUnknown,
		Cond:   CondOf(word),
	}

	switch inst.Family {
	case FamilyBranchExchange:
		inst.Op = OpBX
		inst.Rm = uint8(word & 0xF)
	case FamilyBlockDataTransfer:
		d.decodeBlockTransfer(word, inst)
	case FamilyBranch:
		d.decodeBranch(word, inst)
	case FamilySoftwareInterrupt:
		inst.Op = OpSWI
		inst.Comment = word & 0xFFFFFF
	case FamilySingleDataTransfer:
		d.decodeSingleTransfer(word, inst)
	case FamilySingleDataSwap:
		inst.Op = OpSWP
		inst.Byte = bit(word, 22)
		inst.Rn = uint8((word >> 16) & 0xF)
		inst.Rd = uint8((word >> 12) & 0xF)
		inst.Rm = uint8(word & 0xF)
	case FamilyMultiply:
		d.decodeMultiply(word, inst)
	case FamilyHalfwordTransferReg, FamilyHalfwordTransferImm:
		d.decodeHalfwordTransfer(word, inst)
	case FamilyPSRTransferMRS:
		inst.Op = OpMRS
		inst.Byte = bit(word, 22)
		inst.Rd = uint8((word >> 12) & 0xF)
	case FamilyPSRTransferMSR:
		d.decodePSRTransfer(word, inst)
	case FamilyDataProcessing:
		d.decodeDataProcessing(word, inst)
	}

	return inst
}

// decodeDataProcessing decodes data processing instructions.
// Format: cond | 00 | I | opcode | S | Rn | Rd | operand2
func (d *Decoder) decodeDataProcessing(word uint32, inst *Instruction) {
	inst.Op = OpAND + Op((word>>21)&0xF)
	inst.SetFlags = bit(word, 20)
	inst.Rn = uint8((word >> 16) & 0xF)
	inst.Rd = uint8((word >> 12) & 0xF)
	d.decodeOperand2(word, inst)
}

// decodeOperand2 fills the shifter operand fields shared by data processing
// and MSR. Single data transfers invert the meaning of the I bit and use
// decodeOffset instead.
func (d *Decoder) decodeOperand2(word uint32, inst *Instruction) {
	if bit(word, 25) {
		inst.Immediate = true
		inst.Imm = word & 0xFF
		inst.Rotate = uint8((word>>8)&0xF) * 2
		return
	}
	d.decodeShiftedRegister(word, inst)
}

func (d *Decoder) decodeShiftedRegister(word uint32, inst *Instruction) {
	inst.Rm = uint8(word & 0xF)
	inst.ShiftType = ShiftType((word >> 5) & 0x3)
	if bit(word, 4) {
		inst.ShiftByReg = true
		inst.Rs = uint8((word >> 8) & 0xF)
		return
	}
	inst.ShiftAmount = uint8((word >> 7) & 0x1F)
}

// decodeBranch decodes B and BL.
// Format: cond | 101 | L | signed_immed_24
func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	if bit(word, 24) {
		inst.Op = OpBL
	} else {
		inst.Op = OpB
	}

	// Sign-extend imm24 and multiply by 4
	inst.BranchOffset = int32(word<<8) >> 6
}

// decodeMultiply decodes MUL, MLA and the long multiplies.
// MUL/MLA:  cond | 000000 | A | S | Rd | Rn | Rs | 1001 | Rm
// Long:     cond | 00001 | U | A | S | RdHi | RdLo | Rs | 1001 | Rm
func (d *Decoder) decodeMultiply(word uint32, inst *Instruction) {
	inst.SetFlags = bit(word, 20)
	inst.Rd = uint8((word >> 16) & 0xF)
	inst.Rn = uint8((word >> 12) & 0xF)
	inst.Rs = uint8((word >> 8) & 0xF)
	inst.Rm = uint8(word & 0xF)

	accumulate := bit(word, 21)
	if !bit(word, 23) {
		if accumulate {
			inst.Op = OpMLA
		} else {
			inst.Op = OpMUL
		}
		return
	}

	signed := bit(word, 22)
	switch {
	case signed && accumulate:
		inst.Op = OpSMLAL
	case signed:
		inst.Op = OpSMULL
	case accumulate:
		inst.Op = OpUMLAL
	default:
		inst.Op = OpUMULL
	}
}

// decodeSingleTransfer decodes LDR/STR/LDRB/STRB.
// Format: cond | 01 | I | P | U | B | W | L | Rn | Rd | offset
func (d *Decoder) decodeSingleTransfer(word uint32, inst *Instruction) {
	d.decodeTransferBits(word, inst)
	inst.Byte = bit(word, 22)
	if inst.Load {
		inst.Op = OpLDR
	} else {
		inst.Op = OpSTR
	}

	if bit(word, 25) {
		d.decodeShiftedRegister(word, inst)
		return
	}
	inst.Immediate = true
	inst.Imm = word & 0xFFF
}

// decodeHalfwordTransfer decodes LDRH/STRH/LDRSB/LDRSH.
// Format: cond | 000 | P | U | I | W | L | Rn | Rd | immH | 1SH1 | Rm/immL
func (d *Decoder) decodeHalfwordTransfer(word uint32, inst *Instruction) {
	d.decodeTransferBits(word, inst)
	inst.Signed = bit(word, 6)
	inst.Halfword = bit(word, 5)

	if bit(word, 22) {
		inst.Immediate = true
		inst.Imm = (word>>4)&0xF0 | word&0xF
	} else {
		inst.Rm = uint8(word & 0xF)
	}

	switch {
	case inst.Load && inst.Signed && inst.Halfword:
		inst.Op = OpLDRSH
	case inst.Load && inst.Signed:
		inst.Op = OpLDRSB
	case inst.Load && inst.Halfword:
		inst.Op = OpLDRH
	case !inst.Load && !inst.Signed && inst.Halfword:
		inst.Op = OpSTRH
	default:
		// SH=00 is the swap/multiply space and signed stores do not exist
		// on ARMv4T.
		inst.Op = OpUnknown
	}
}

// decodeBlockTransfer decodes LDM/STM.
// Format: cond | 100 | P | U | S | W | L | Rn | register_list
func (d *Decoder) decodeBlockTransfer(word uint32, inst *Instruction) {
	d.decodeTransferBits(word, inst)
	inst.Byte = bit(word, 22)
	inst.RegList = uint16(word)
	if inst.Load {
		inst.Op = OpLDM
	} else {
		inst.Op = OpSTM
	}
}

// decodePSRTransfer decodes MSR in its register and immediate forms.
// Format: cond | 00 | I | 10 | R | 10 | field_mask | 1111 | operand
func (d *Decoder) decodePSRTransfer(word uint32, inst *Instruction) {
	inst.Op = OpMSR
	inst.Byte = bit(word, 22)
	inst.FieldMask = uint8((word >> 16) & 0xF)
	d.decodeOperand2(word, inst)
}

func (d *Decoder) decodeTransferBits(word uint32, inst *Instruction) {
	inst.PreIndex = bit(word, 24)
	inst.Up = bit(word, 23)
	inst.Writeback = bit(word, 21)
	inst.Load = bit(word, 20)
	inst.Rn = uint8((word >> 16) & 0xF)
	inst.Rd = uint8((word >> 12) & 0xF)
}

func bit(word uint32, n uint) bool {
	return (word>>n)&1 == 1
}
