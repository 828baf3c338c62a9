// Package main provides accuracy validation for the decode cache.
// Ensures that caching decoded instructions preserves emulation results.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/sarchlab/arm7core/cache"
	"github.com/sarchlab/arm7core/emu"
	"github.com/sarchlab/arm7core/insts"
)

// testDecodeAgreement checks that the cache returns the same decoding as
// the decoder for a deterministic opcode stream, including words that
// alias in the same cache set.
func testDecodeAgreement() bool {
	decoder := insts.NewDecoder()
	decodeCache, err := cache.New(cache.Config{Sets: 16, Ways: 2}, decoder)
	if err != nil {
		fmt.Printf("❌ Creating cache: %v\n", err)
		return false
	}

	seed := uint32(0x12345678)
	mismatches := 0
	for i := 0; i < 100000; i++ {
		seed = seed*1664525 + 1013904223
		addr := uint32(i%64) * 4
		word := seed

		got := decodeCache.Fetch(addr, word)
		want := decoder.Decode(word)
		if !reflect.DeepEqual(got, want) {
			if mismatches < 5 {
				fmt.Printf("❌ Decode mismatch for 0x%08X at 0x%X\n", word, addr)
				fmt.Printf("  Decoder: %+v\n", want)
				fmt.Printf("  Cache:   %+v\n", got)
			}
			mismatches++
		}
	}

	if mismatches > 0 {
		fmt.Printf("❌ %d decode mismatches\n", mismatches)
		return false
	}

	stats := decodeCache.Stats()
	fmt.Printf("✅ 100000 decodes agree (hits=%d misses=%d evictions=%d)\n",
		stats.Hits, stats.Misses, stats.Evictions)
	return true
}

// loopProgram sums 1..n into R1 with a self-modifying tail: the STR
// rewrites the MOV after the loop before it executes.
var loopProgram = []uint32{
	0xE3A01000, // MOV R1, #0
	0xE0811000, // ADD R1, R1, R0
	0xE2500001, // SUBS R0, R0, #1
	0x1AFFFFFC, // BNE loop
	0xE59F3014, // LDR R3, [PC, #20]
	0xE58F3004, // STR R3, [PC, #4]
	0xE1A00000, // NOP (patched)
	0xE3A00018, // MOV R0, #SYS_EXIT
	0xEF123456, // SWI 0x123456
	0xE3A02007, // MOV R2, #7 (patch source)
}

func runLoop(n uint32, opts ...emu.EmulatorOption) (*emu.RegFile, int64, error) {
	image := make([]byte, 4*len(loopProgram))
	for i, w := range loopProgram {
		binary.LittleEndian.PutUint32(image[4*i:], w)
	}

	opts = append(opts,
		emu.WithSemihosting(),
		emu.WithStdout(io.Discard),
		emu.WithStderr(io.Discard),
	)
	e, err := emu.NewEmulator(opts...)
	if err != nil {
		return nil, 0, err
	}
	if err := e.LoadProgram(0x08000000, image); err != nil {
		return nil, 0, err
	}
	e.RegFile().WriteReg(0, n)

	return e.RegFile(), e.Run(), nil
}

// testCachedExecution checks that execution with and without the decode
// cache ends in the same architectural state.
func testCachedExecution() bool {
	allPassed := true

	for i, n := range []uint32{1, 10, 255} {
		cached, code1, err1 := runLoop(n)
		direct, code2, err2 := runLoop(n, emu.WithoutDecodeCache())
		if err1 != nil || err2 != nil {
			fmt.Printf("❌ Test case %d: setup failed: %v %v\n", i, err1, err2)
			allPassed = false
			continue
		}

		sum := n * (n + 1) / 2
		same := code1 == code2 && cached.CPSR() == direct.CPSR()
		for r := uint8(0); r < 16; r++ {
			same = same && cached.ReadReg(r) == direct.ReadReg(r)
		}

		if !same || cached.ReadReg(1) != sum || cached.ReadReg(2) != 7 {
			fmt.Printf("❌ Test case %d failed:\n", i)
			fmt.Printf("  N: %d\n", n)
			fmt.Printf("  Expected R1: %d, Got: %d (direct %d)\n", sum, cached.ReadReg(1), direct.ReadReg(1))
			fmt.Printf("  Expected R2: 7, Got: %d (direct %d)\n", cached.ReadReg(2), direct.ReadReg(2))
			fmt.Printf("  Exit codes: %d / %d\n", code1, code2)
			allPassed = false
			continue
		}

		fmt.Printf("✅ Test case %d: N=%d → R1=%d, R2=%d (exit %d)\n",
			i, n, cached.ReadReg(1), cached.ReadReg(2), code1)
	}

	return allPassed
}

func main() {
	fmt.Println("arm7core Accuracy Validation - Decode Cache")
	fmt.Println("===========================================")

	allPassed := true

	if !testDecodeAgreement() {
		allPassed = false
	}

	if !testCachedExecution() {
		allPassed = false
	}

	fmt.Println("\n===========================================")
	if allPassed {
		fmt.Println("🎉 ALL ACCURACY TESTS PASSED")
		fmt.Println("✅ The decode cache preserves emulation results")
		os.Exit(0)
	} else {
		fmt.Println("❌ ACCURACY TESTS FAILED")
		fmt.Println("🚨 The decode cache may have introduced errors")
		os.Exit(1)
	}
}
