// Validate the decode cache - measures decode throughput and allocations
// with and without the cache in front of the decoder.
package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sarchlab/arm7core/cache"
	"github.com/sarchlab/arm7core/insts"
)

// workload is a short loop body, as (address, opcode) pairs.
var workload = []struct {
	addr uint32
	word uint32
}{
	{0x08000000, 0xE0802001}, // ADD R2, R0, R1
	{0x08000004, 0xE1B000A1}, // MOVS R0, R1, LSR #1
	{0x08000008, 0xE5902004}, // LDR R2, [R0, #4]
	{0x0800000C, 0xE92D000F}, // STMDB SP!, {R0-R3}
	{0x08000010, 0xE0C21093}, // SMULL R1, R2, R3, R0
	{0x08000014, 0x1AFFFFF9}, // BNE loop
}

type result struct {
	elapsed     time.Duration
	allocations uint64
	bytes       uint64
}

func measure(iterations int, decode func(addr, word uint32) *insts.Instruction) result {
	// Warm up
	for i := 0; i < 1000; i++ {
		for _, w := range workload {
			decode(w.addr, w.word)
		}
	}

	runtime.GC()
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)

	start := time.Now()
	for i := 0; i < iterations; i++ {
		for _, w := range workload {
			decode(w.addr, w.word)
		}
	}
	elapsed := time.Since(start)
	runtime.ReadMemStats(&m2)

	return result{
		elapsed:     elapsed,
		allocations: m2.Mallocs - m1.Mallocs,
		bytes:       m2.TotalAlloc - m1.TotalAlloc,
	}
}

func report(name string, r result, total int) {
	fmt.Printf("%s:\n", name)
	fmt.Printf("  Time elapsed: %v\n", r.elapsed)
	fmt.Printf("  Decodes per second: %.0f\n", float64(total)/r.elapsed.Seconds())
	fmt.Printf("  Allocations per decode: %.3f\n", float64(r.allocations)/float64(total))
	fmt.Printf("  Bytes per decode: %.1f\n", float64(r.bytes)/float64(total))
}

func main() {
	decoder := insts.NewDecoder()
	decodeCache, err := cache.New(cache.DefaultConfig(), decoder)
	if err != nil {
		panic(err)
	}

	iterations := 100000
	total := iterations * len(workload)

	direct := measure(iterations, func(_, word uint32) *insts.Instruction {
		return decoder.Decode(word)
	})
	cached := measure(iterations, decodeCache.Fetch)

	fmt.Printf("Decode Cache Validation Results:\n")
	fmt.Printf("================================\n")
	fmt.Printf("Total decode operations: %d\n\n", total)
	report("Decoder", direct, total)
	report("Decode cache", cached, total)

	stats := decodeCache.Stats()
	fmt.Printf("\nCache lookups: %d, hits: %d, misses: %d\n", stats.Lookups, stats.Hits, stats.Misses)

	if cached.allocations == 0 {
		fmt.Printf("\nSUCCESS: the cached path does not allocate\n")
	} else {
		fmt.Printf("\nWARNING: the cached path allocates %d times\n", cached.allocations)
	}
}
