package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/arm7core/cache"
	"github.com/sarchlab/arm7core/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated (via a semihosting exit).
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Executed is false when the condition check skipped the instruction.
	Executed bool

	// Err is set if an error occurred during execution. A failed
	// instruction has no side effects.
	Err error
}

// Emulator executes ARM instructions functionally.
type Emulator struct {
	regFile     *RegFile
	bus         Bus
	memory      *Memory
	decoder     *insts.Decoder
	decodeCache *cache.DecodeCache
	swiHandler  SWIHandler

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit
	psrUnit    *PSRUnit
	tx         *transaction

	// I/O
	stdout io.Writer
	stderr io.Writer
	trace  io.Writer

	// Configuration
	resetState   ResetState
	cacheConfig  cache.Config
	cacheEnabled bool
	semihosting  bool

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStderr sets a custom stderr writer.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithTrace writes one line per fetched instruction to w.
func WithTrace(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.trace = w
	}
}

// WithSWIHandler sets a handler that services software interrupts instead
// of the Supervisor vector.
func WithSWIHandler(handler SWIHandler) EmulatorOption {
	return func(e *Emulator) {
		e.swiHandler = handler
	}
}

// WithSemihosting installs a SemihostingHandler writing to the emulator's
// stdout and stderr.
func WithSemihosting() EmulatorOption {
	return func(e *Emulator) {
		e.semihosting = true
	}
}

// WithMemory sets the memory the core transfers through.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
		e.bus = m
	}
}

// WithBus sets a custom bus. Memory() returns nil for a non-Memory bus.
func WithBus(bus Bus) EmulatorOption {
	return func(e *Emulator) {
		e.bus = bus
		e.memory, _ = bus.(*Memory)
	}
}

// WithResetState sets the register values loaded at reset.
func WithResetState(rs ResetState) EmulatorOption {
	return func(e *Emulator) {
		e.resetState = rs
	}
}

// WithDecodeCache sets the decoded-instruction cache geometry.
func WithDecodeCache(config cache.Config) EmulatorOption {
	return func(e *Emulator) {
		e.cacheConfig = config
		e.cacheEnabled = true
	}
}

// WithoutDecodeCache decodes every fetched word.
func WithoutDecodeCache() EmulatorOption {
	return func(e *Emulator) {
		e.cacheEnabled = false
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new ARM7TDMI emulator in its reset state.
func NewEmulator(opts ...EmulatorOption) (*Emulator, error) {
	e := &Emulator{
		decoder:      insts.NewDecoder(),
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		resetState:   DefaultResetState(),
		cacheConfig:  cache.DefaultConfig(),
		cacheEnabled: true,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.bus == nil {
		e.memory = NewMemory()
		e.bus = e.memory
	}

	regFile, err := NewRegFileWithReset(e.resetState)
	if err != nil {
		return nil, err
	}
	e.regFile = regFile

	if e.cacheEnabled {
		e.decodeCache, err = cache.New(e.cacheConfig, e.decoder)
		if err != nil {
			return nil, err
		}
	}

	// Create execution units
	e.tx = &transaction{bus: e.bus}
	e.alu = NewALU(regFile)
	e.lsu = newLoadStoreUnit(regFile, e.tx)
	e.branchUnit = NewBranchUnit(regFile)
	e.psrUnit = NewPSRUnit(regFile)

	if e.semihosting && e.swiHandler == nil {
		e.swiHandler = NewSemihostingHandler(regFile, e.bus, e.stdout, e.stderr)
	}

	return e, nil
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory, or nil when a custom bus is used.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// Bus returns the bus the core transfers through.
func (e *Emulator) Bus() Bus {
	return e.bus
}

// DecodeCache returns the decoded-instruction cache, or nil if disabled.
func (e *Emulator) DecodeCache() *cache.DecodeCache {
	return e.decodeCache
}

// InstructionCount returns the number of instructions retired, including
// those skipped by their condition.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram writes program to the bus at entry and sets the PC to entry.
func (e *Emulator) LoadProgram(entry uint32, program []byte) error {
	for i, b := range program {
		addr := entry + uint32(i)
		if err := e.bus.Write8(addr, b); err != nil {
			return fmt.Errorf("loading program at %#08x: %w", entry, err)
		}
		e.invalidate(addr)
	}

	e.regFile.SetPC(entry)
	return nil
}

// Reset returns the register file to the reset state and empties the
// decode cache. Memory is kept.
func (e *Emulator) Reset() error {
	if err := e.regFile.Reset(e.resetState); err != nil {
		return err
	}
	if e.decodeCache != nil {
		e.decodeCache.Reset()
	}
	e.tx.reset()
	e.instructionCount = 0
	return nil
}

// RaiseUndefined takes the undefined instruction trap for the instruction
// at the current PC: Undefined mode, LR_und = PC + 4, vector 0x04.
func (e *Emulator) RaiseUndefined() error {
	pc := e.regFile.PC()
	return e.regFile.EnterException(ModeUndefined, VectorUndefined, pc+4)
}

// Step executes a single instruction. Either the instruction completes, or
// StepResult.Err is set and registers and memory are left as they were.
func (e *Emulator) Step() StepResult {
	// Check instruction limit before executing
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{
			Err: fmt.Errorf("%w: %d", ErrMaxInstructions, e.maxInstructions),
		}
	}

	rf := e.regFile
	pc := rf.PC()

	if rf.Thumb() {
		return e.stepThumb(pc)
	}

	// 1. Fetch
	word, err := Read32(e.bus, pc)
	if err != nil {
		return StepResult{Err: fmt.Errorf("fetch at %#08x: %w", pc, err)}
	}

	// 2. Decode
	inst := e.decode(pc, word)

	// 3. Condition gate
	passed := ConditionPassed(inst.Cond, rf.Flags())
	e.traceInstruction(pc, inst, passed)

	if !passed {
		rf.slots[RegPC] = pc + 4
		e.instructionCount++
		return StepResult{}
	}

	// 4. Execute against a snapshot
	saved := *rf
	rf.clearPCWritten()
	e.tx.reset()

	result, err := e.execute(pc, inst)
	if err == nil {
		err = e.commitStores()
	}
	if err != nil {
		*rf = saved
		e.tx.reset()
		return StepResult{Err: fmt.Errorf("%s %#08x at %#08x: %w", inst.Op, word, pc, err)}
	}

	if !rf.pcWritten {
		rf.slots[RegPC] = pc + 4
	}

	e.instructionCount++
	result.Executed = true
	return result
}

// Run executes instructions until the program exits or an error occurs.
// Returns the exit code (-1 if error).
func (e *Emulator) Run() int64 {
	for {
		result := e.Step()
		if result.Exited {
			return result.ExitCode
		}
		if result.Err != nil {
			_, _ = fmt.Fprintf(e.stderr, "Emulation error: %v\n", result.Err)
			return -1
		}
	}
}

// stepThumb classifies the THUMB halfword at pc. THUMB execution is not
// supported.
func (e *Emulator) stepThumb(pc uint32) StepResult {
	half, err := Read16(e.bus, pc)
	if err != nil {
		return StepResult{Err: fmt.Errorf("fetch at %#08x: %w", pc, err)}
	}

	family := insts.ClassifyThumb(half)
	if e.trace != nil {
		_, _ = fmt.Fprintf(e.trace, "%08x: %04x     %-28s thumb\n", pc, half, family)
	}

	return StepResult{
		Err: fmt.Errorf("%w: %s %#04x at %#08x", ErrThumbExecution, family, half, pc),
	}
}

func (e *Emulator) decode(pc, word uint32) *insts.Instruction {
	if e.decodeCache != nil {
		return e.decodeCache.Fetch(pc, word)
	}
	return e.decoder.Decode(word)
}

func (e *Emulator) invalidate(addr uint32) {
	if e.decodeCache != nil {
		e.decodeCache.Invalidate(addr)
	}
}

func (e *Emulator) commitStores() error {
	written, err := e.tx.commit()
	for _, addr := range written {
		e.invalidate(addr)
	}
	return err
}

func (e *Emulator) traceInstruction(pc uint32, inst *insts.Instruction, passed bool) {
	if e.trace == nil {
		return
	}

	outcome := "executed"
	if !passed {
		outcome = "skipped"
	}
	_, _ = fmt.Fprintf(e.trace, "%08x: %08x %-6s%-2s %-22s %s\n",
		pc, inst.Raw, inst.Op, inst.Cond, inst.Family, outcome)
}

// execute dispatches a decoded, condition-passed instruction.
func (e *Emulator) execute(pc uint32, inst *insts.Instruction) (StepResult, error) {
	var err error

	switch inst.Family {
	case insts.FamilyBranch:
		if inst.Op == insts.OpBL {
			e.branchUnit.BL(inst.BranchOffset)
		} else {
			e.branchUnit.B(inst.BranchOffset)
		}
	case insts.FamilyBranchExchange:
		e.branchUnit.BX(inst.Rm)
	case insts.FamilyDataProcessing:
		err = e.alu.DataProcessing(inst)
	case insts.FamilyMultiply:
		err = e.alu.Multiply(inst)
	case insts.FamilySingleDataTransfer:
		err = e.lsu.SingleTransfer(inst)
	case insts.FamilyHalfwordTransferReg, insts.FamilyHalfwordTransferImm:
		err = e.lsu.HalfwordTransfer(inst)
	case insts.FamilyBlockDataTransfer:
		err = e.lsu.BlockTransfer(inst)
	case insts.FamilySingleDataSwap:
		err = e.lsu.Swap(inst)
	case insts.FamilyPSRTransferMRS:
		err = e.psrUnit.MRS(inst)
	case insts.FamilyPSRTransferMSR:
		err = e.psrUnit.MSR(inst)
	case insts.FamilySoftwareInterrupt:
		return e.executeSWI(pc, inst)
	default:
		err = fmt.Errorf("%w: %s", ErrUndefined, inst.Family)
	}

	return StepResult{}, err
}

// executeSWI offers the SWI to the handler and otherwise enters Supervisor
// mode at the SWI vector.
func (e *Emulator) executeSWI(pc uint32, inst *insts.Instruction) (StepResult, error) {
	if e.swiHandler != nil {
		res, err := e.swiHandler.Handle(inst.Comment)
		if err != nil {
			return StepResult{}, err
		}
		if res.Handled {
			return StepResult{Exited: res.Exited, ExitCode: res.ExitCode}, nil
		}
	}

	return StepResult{}, e.regFile.EnterException(ModeSupervisor, VectorSWI, pc+4)
}

// IsUndefined reports whether a StepResult error is an undefined
// instruction.
func IsUndefined(err error) bool {
	return errors.Is(err, ErrUndefined)
}
