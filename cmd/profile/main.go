// Package main provides a profiling wrapper for arm7core to identify
// performance bottlenecks in the interpreter loop.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/arm7core/core"
	"github.com/sarchlab/arm7core/emu"
	"github.com/sarchlab/arm7core/loader"
)

var (
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions to execute (0 = unlimited)")
	noCache     = flag.Bool("no-cache", false, "disable the decode cache")
	raw         = flag.Bool("raw", false, "treat the program as a raw binary loaded at 0x08000000")
	quiet       = flag.Bool("quiet", false, "discard program output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	var prog *loader.Program
	var err error
	if *raw {
		prog, err = loader.LoadRaw(programPath, 0x08000000)
	} else {
		prog, err = loader.Load(programPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Entry point: 0x%08X\n", prog.EntryPoint)

	start := time.Now()

	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	c, err := newProfiledCore(prog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating emulator: %v\n", err)
		os.Exit(1)
	}
	exitCode := c.Run()

	elapsed := time.Since(start)

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	stats := c.Stats()
	instrCount := stats.Steps

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Exit code: %d\n", exitCode)
	if err := c.Err(); err != nil {
		fmt.Printf("Stopped by: %v\n", err)
	}
	fmt.Printf("Instructions executed: %d (%d skipped)\n", instrCount, stats.Skipped)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
	if dc := c.Emulator.DecodeCache(); dc != nil {
		cs := dc.Stats()
		if cs.Lookups > 0 {
			fmt.Printf("Decode cache hit rate: %.2f%%\n", 100*float64(cs.Hits)/float64(cs.Lookups))
		}
	}
}

// newProfiledCore loads prog into a fresh memory and wraps the emulator in
// a core.
func newProfiledCore(prog *loader.Program) (*core.Core, error) {
	memory := emu.NewMemory()
	if err := prog.LoadInto(memory); err != nil {
		return nil, err
	}

	var stdout io.Writer = os.Stdout
	if *quiet {
		stdout = io.Discard
	}

	opts := []emu.EmulatorOption{
		emu.WithMemory(memory),
		emu.WithSemihosting(),
		emu.WithStdout(stdout),
		emu.WithMaxInstructions(*instruction),
	}
	if *noCache {
		opts = append(opts, emu.WithoutDecodeCache())
	}

	emulator, err := emu.NewEmulator(opts...)
	if err != nil {
		return nil, err
	}

	c := core.NewCore(emulator)
	c.SetPC(prog.EntryPoint)
	return c, nil
}
