// Package insts provides ARMv4T instruction classification and decoding.
//
// This package maps raw ARM (32-bit) and THUMB (16-bit) opcodes onto
// instruction families with ordered mask/format tables, and extracts the
// operand fields of ARM instructions. It supports:
//   - Classification of all ARM families: branch and exchange, block data
//     transfer, branch with link, software interrupt, single data transfer,
//     single data swap, multiply and multiply long, halfword transfers,
//     PSR transfers and data processing
//   - Classification of the nineteen THUMB formats
//   - Field decoding of ARM instructions for the execution unit
//
// Usage:
//
//	family := insts.Classify(insts.SetARM, 0xE1A00000) // MOV R0, R0
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0xE3A0102A) // MOV R1, #42
//	fmt.Printf("Family: %v, Op: %v, Rd: %d\n", inst.Family, inst.Op, inst.Rd)
package insts
