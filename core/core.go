// Package core drives an emulator: it steps until the program halts,
// keeps per-outcome statistics and optionally routes undefined
// instructions to the Undefined vector.
package core

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/arm7core/emu"
)

// Stats holds execution statistics for the core.
type Stats struct {
	// Steps is the number of Step calls that completed without error.
	Steps uint64
	// Executed is the number of instructions whose condition passed.
	Executed uint64
	// Skipped is the number of instructions whose condition failed.
	Skipped uint64
	// UndefinedTraps is the number of undefined instructions routed to
	// the Undefined vector.
	UndefinedTraps uint64
}

// Option configures a Core.
type Option func(*Core)

// WithUndefinedTrap makes the core take the Undefined exception instead of
// halting on an undefined instruction.
func WithUndefinedTrap() Option {
	return func(c *Core) {
		c.trapUndefined = true
	}
}

// WithLogger sets the logger that receives halt and trap events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// Core runs an emulator step by step.
type Core struct {
	// Emulator is the underlying functional core.
	Emulator *emu.Emulator

	trapUndefined bool
	logger        logrus.FieldLogger

	halted   bool
	exitCode int64
	err      error
	stats    Stats
}

// NewCore creates a Core around the given emulator.
func NewCore(emulator *emu.Emulator, opts ...Option) *Core {
	c := &Core{Emulator: emulator}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		c.logger = logger
	}
	return c
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.Emulator.RegFile().SetPC(pc)
}

// Tick executes one instruction. It does nothing once the core has halted.
func (c *Core) Tick() {
	if c.halted {
		return
	}

	pc := c.Emulator.RegFile().PC()
	result := c.Emulator.Step()
	if result.Err != nil {
		if c.trapUndefined && errors.Is(result.Err, emu.ErrUndefined) {
			if err := c.Emulator.RaiseUndefined(); err != nil {
				c.halt(-1, err)
				return
			}
			c.stats.UndefinedTraps++
			c.logger.WithFields(logrus.Fields{
				"pc":   pc,
				"mode": c.Emulator.RegFile().Mode().String(),
			}).Debug("undefined instruction trapped")
			return
		}
		c.halt(-1, result.Err)
		return
	}

	c.stats.Steps++
	if result.Executed {
		c.stats.Executed++
	} else {
		c.stats.Skipped++
	}

	if result.Exited {
		c.halt(result.ExitCode, nil)
	}
}

func (c *Core) halt(code int64, err error) {
	c.halted = true
	c.exitCode = code
	c.err = err

	fields := logrus.Fields{
		"exit_code":    code,
		"instructions": c.stats.Steps,
		"pc":           c.Emulator.RegFile().PC(),
	}
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Error("core halted")
		return
	}
	c.logger.WithFields(fields).Debug("program exited")
}

// Halted returns true if the program exited or an error stopped the core.
func (c *Core) Halted() bool {
	return c.halted
}

// ExitCode returns the exit code if the core has halted, -1 after an error.
func (c *Core) ExitCode() int64 {
	return c.exitCode
}

// Err returns the error that halted the core, if any.
func (c *Core) Err() error {
	return c.err
}

// Stats returns execution statistics for the core.
func (c *Core) Stats() Stats {
	return c.stats
}

// Run executes the core until it halts.
// Returns the exit code.
func (c *Core) Run() int64 {
	for !c.halted {
		c.Tick()
	}
	return c.exitCode
}

// RunSteps executes at most n instructions.
// Returns true if still running, false if halted.
func (c *Core) RunSteps(n uint64) bool {
	for i := uint64(0); i < n && !c.halted; i++ {
		c.Tick()
	}
	return !c.halted
}

// Reset returns the emulator to its reset state and clears the halt state
// and statistics.
func (c *Core) Reset() error {
	c.halted = false
	c.exitCode = 0
	c.err = nil
	c.stats = Stats{}
	return c.Emulator.Reset()
}
