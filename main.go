// Package main provides the entry point for arm7core.
// arm7core is a functional ARM7TDMI (ARMv4T) instruction-set emulator.
//
// For the full CLI, use: go run ./cmd/arm7core
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("arm7core - ARM7TDMI Functional Emulator")
	fmt.Println("Decode cache built on Akita")
	fmt.Println("")
	fmt.Println("Usage: arm7core [options] <program>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to core configuration JSON file")
	fmt.Println("  -raw       Load a raw binary instead of an ELF file")
	fmt.Println("  -base      Load address of a raw binary")
	fmt.Println("  -max       Maximum instructions to execute")
	fmt.Println("  -trace     Trace every instruction")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/arm7core' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/arm7core' instead.")
	}
}
