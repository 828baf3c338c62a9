// Package main provides the arm7core command, which runs a bare-metal
// ARMv4T program to a semihosting exit.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/arm7core/config"
	"github.com/sarchlab/arm7core/core"
	"github.com/sarchlab/arm7core/emu"
	"github.com/sarchlab/arm7core/loader"
)

var (
	configPath = flag.String("config", "", "Path to core configuration JSON file")
	verbose    = flag.Bool("v", false, "Verbose output")
	trace      = flag.Bool("trace", false, "Trace every instruction to stderr")
	maxInsts   = flag.Uint64("max", 0, "Maximum instructions to execute (0 for the config value)")
	raw        = flag.Bool("raw", false, "Treat the program as a raw binary instead of an ELF file")
	base       = flag.String("base", "0x08000000", "Load address of a raw binary")
	trapUndef  = flag.Bool("trap-undefined", false, "Take the Undefined exception instead of stopping")
)

var log = logrus.New()

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: arm7core [options] <program>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	programPath := flag.Arg(0)

	coreConfig, err := loadCoreConfig()
	if err != nil {
		log.WithError(err).WithField("path", *configPath).Fatal("Error loading core config")
	}

	prog, err := loadProgram(programPath)
	if err != nil {
		log.WithError(err).WithField("path", programPath).Fatal("Error loading program")
	}

	log.WithFields(logrus.Fields{
		"path":     programPath,
		"entry":    fmt.Sprintf("0x%08X", prog.EntryPoint),
		"segments": len(prog.Segments),
	}).Debug("Loaded program")

	os.Exit(int(runEmulation(coreConfig, prog, programPath)))
}

func loadCoreConfig() (*config.CoreConfig, error) {
	coreConfig := config.DefaultCoreConfig()
	if *configPath != "" {
		var err error
		if coreConfig, err = config.LoadConfig(*configPath); err != nil {
			return nil, err
		}
	}

	if *maxInsts != 0 {
		coreConfig.MaxInstructions = *maxInsts
	}

	return coreConfig, coreConfig.Validate()
}

func loadProgram(path string) (*loader.Program, error) {
	if !*raw {
		return loader.Load(path)
	}

	addr, err := strconv.ParseUint(*base, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid base address %q: %w", *base, err)
	}
	return loader.LoadRaw(path, uint32(addr))
}

// runEmulation runs the program and returns its exit code.
func runEmulation(coreConfig *config.CoreConfig, prog *loader.Program, programPath string) int64 {
	memory := coreConfig.NewMemory()
	if err := prog.LoadInto(memory); err != nil {
		log.WithError(err).Error("Error loading program")
		return 1
	}

	opts := append(coreConfig.EmulatorOptions(),
		emu.WithMemory(memory),
		emu.WithSemihosting(),
	)
	if *trace {
		opts = append(opts, emu.WithTrace(os.Stderr))
	}

	emulator, err := emu.NewEmulator(opts...)
	if err != nil {
		log.WithError(err).Error("Error creating emulator")
		return 1
	}

	coreOpts := []core.Option{core.WithLogger(log)}
	if *trapUndef {
		coreOpts = append(coreOpts, core.WithUndefinedTrap())
	}
	c := core.NewCore(emulator, coreOpts...)
	c.SetPC(prog.EntryPoint)

	exitCode := c.Run()

	if *verbose {
		stats := c.Stats()
		fmt.Printf("\nProgram: %s\n", programPath)
		fmt.Printf("Exit code: %d\n", exitCode)
		fmt.Printf("Instructions executed: %d\n", stats.Executed)
		fmt.Printf("Instructions skipped: %d\n", stats.Skipped)
		fmt.Printf("Undefined traps: %d\n", stats.UndefinedTraps)
		fmt.Printf("Final mode: %s\n", emulator.RegFile().Mode())

		if dc := emulator.DecodeCache(); dc != nil {
			cs := dc.Stats()
			fmt.Printf("Decode cache: %d lookups, %d hits, %d misses, %d evictions\n",
				cs.Lookups, cs.Hits, cs.Misses, cs.Evictions)
		}
	}

	return exitCode
}
