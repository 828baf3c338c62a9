// Package config holds the JSON-serializable core configuration: the reset
// register values, the decode cache geometry and the run limits.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/arm7core/cache"
	"github.com/sarchlab/arm7core/emu"
)

// CoreConfig configures an emulator instance.
type CoreConfig struct {
	// ResetSPUser is the stack pointer shared by User and System mode.
	// Default: 0x03007F00.
	ResetSPUser uint32 `json:"reset_sp_usr"`

	// ResetSPIRQ is the IRQ mode stack pointer. Default: 0x03007FA0.
	ResetSPIRQ uint32 `json:"reset_sp_irq"`

	// ResetSPSupervisor is the Supervisor mode stack pointer.
	// Default: 0x03007FE0.
	ResetSPSupervisor uint32 `json:"reset_sp_svc"`

	// ResetSPUndefined is the Undefined mode stack pointer.
	// Default: 0x03007FF0.
	ResetSPUndefined uint32 `json:"reset_sp_und"`

	// ResetPC is the program counter after reset. Default: 0x08000000.
	ResetPC uint32 `json:"reset_pc"`

	// ResetCPSR is the status register after reset. Default: 0xDF
	// (System mode, IRQ and FIQ masked).
	ResetCPSR uint32 `json:"reset_cpsr"`

	// DecodeCacheSets is the number of decode cache sets. Zero disables
	// the cache. Default: 256.
	DecodeCacheSets int `json:"decode_cache_sets"`

	// DecodeCacheWays is the decode cache associativity. Default: 2.
	DecodeCacheWays int `json:"decode_cache_ways"`

	// MaxInstructions stops execution after this many instructions.
	// Zero means no limit.
	MaxInstructions uint64 `json:"max_instructions"`

	// MemoryLimit is the first address that faults. Zero means the whole
	// 32-bit space is backed.
	MemoryLimit uint64 `json:"memory_limit"`
}

// DefaultCoreConfig returns a CoreConfig with the GBA-style reset values.
func DefaultCoreConfig() *CoreConfig {
	rs := emu.DefaultResetState()
	cc := cache.DefaultConfig()

	return &CoreConfig{
		ResetSPUser:       rs.SPUser,
		ResetSPIRQ:        rs.SPIRQ,
		ResetSPSupervisor: rs.SPSupervisor,
		ResetSPUndefined:  rs.SPUndefined,
		ResetPC:           rs.PC,
		ResetCPSR:         rs.CPSR,
		DecodeCacheSets:   cc.Sets,
		DecodeCacheWays:   cc.Ways,
	}
}

// LoadConfig loads a CoreConfig from a JSON file. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (*CoreConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read core config file: %w", err)
	}

	config := DefaultCoreConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse core config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a CoreConfig to a JSON file.
func (c *CoreConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize core config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write core config file: %w", err)
	}

	return nil
}

// Validate checks the reset mode and the cache geometry.
func (c *CoreConfig) Validate() error {
	if !emu.ModeOf(c.ResetCPSR).Valid() {
		return fmt.Errorf("reset_cpsr %#x: %w", c.ResetCPSR, emu.ErrInvalidMode)
	}
	if c.ResetCPSR&emu.PSRT != 0 {
		return fmt.Errorf("reset_cpsr must select ARM state")
	}
	if c.ResetPC&3 != 0 {
		return fmt.Errorf("reset_pc must be word aligned")
	}
	if c.DecodeCacheEnabled() {
		if err := c.CacheConfig().Validate(); err != nil {
			return fmt.Errorf("decode cache: %w", err)
		}
	}
	return nil
}

// Clone returns a copy of the CoreConfig.
func (c *CoreConfig) Clone() *CoreConfig {
	clone := *c
	return &clone
}

// ResetState returns the register values loaded at reset.
func (c *CoreConfig) ResetState() emu.ResetState {
	return emu.ResetState{
		SPUser:       c.ResetSPUser,
		SPIRQ:        c.ResetSPIRQ,
		SPSupervisor: c.ResetSPSupervisor,
		SPUndefined:  c.ResetSPUndefined,
		PC:           c.ResetPC,
		CPSR:         c.ResetCPSR,
	}
}

// DecodeCacheEnabled reports whether a decode cache is configured.
func (c *CoreConfig) DecodeCacheEnabled() bool {
	return c.DecodeCacheSets > 0
}

// CacheConfig returns the decode cache geometry.
func (c *CoreConfig) CacheConfig() cache.Config {
	return cache.Config{Sets: c.DecodeCacheSets, Ways: c.DecodeCacheWays}
}

// NewMemory creates a memory honoring MemoryLimit.
func (c *CoreConfig) NewMemory() *emu.Memory {
	if c.MemoryLimit == 0 {
		return emu.NewMemory()
	}
	return emu.NewMemory(emu.WithAddressLimit(c.MemoryLimit))
}

// EmulatorOptions translates the configuration into emulator options. The
// memory option is left to the caller, which usually loads the program
// first.
func (c *CoreConfig) EmulatorOptions() []emu.EmulatorOption {
	opts := []emu.EmulatorOption{
		emu.WithResetState(c.ResetState()),
		emu.WithMaxInstructions(c.MaxInstructions),
	}

	if c.DecodeCacheEnabled() {
		opts = append(opts, emu.WithDecodeCache(c.CacheConfig()))
	} else {
		opts = append(opts, emu.WithoutDecodeCache())
	}

	return opts
}
