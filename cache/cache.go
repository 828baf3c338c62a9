// Package cache provides a decoded-instruction cache built on Akita cache
// components.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/arm7core/insts"
)

// BlockSize is the span of one cache block: a single ARM instruction word.
const BlockSize = 4

// Config holds decode cache geometry.
type Config struct {
	// Sets is the number of sets.
	Sets int
	// Ways is the associativity.
	Ways int
}

// DefaultConfig returns a 256-set, 2-way geometry (2 KiB of code).
func DefaultConfig() Config {
	return Config{
		Sets: 256,
		Ways: 2,
	}
}

// Validate checks that the geometry is usable.
func (c Config) Validate() error {
	if c.Sets <= 0 {
		return fmt.Errorf("decode cache sets must be positive, got %d", c.Sets)
	}
	if c.Ways <= 0 {
		return fmt.Errorf("decode cache ways must be positive, got %d", c.Ways)
	}
	return nil
}

// Statistics holds decode cache counters.
type Statistics struct {
	Lookups       uint64
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Invalidations uint64
}

// entry is the payload of one cache block.
type entry struct {
	raw  uint32
	inst *insts.Instruction
}

// DecodeCache maps fetch addresses to decoded instructions. Tags and LRU
// state live in an Akita directory; the decoded payload is kept alongside,
// indexed by (setID * ways + wayID).
type DecodeCache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	entries   []entry
	backing   Decoder
	stats     Statistics
}

// New creates a decode cache that decodes misses with the given decoder.
func New(config Config, backing Decoder) (*DecodeCache, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &DecodeCache{
		config: config,
		directory: akitacache.NewDirectory(
			config.Sets,
			config.Ways,
			BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		entries: make([]entry, config.Sets*config.Ways),
		backing: backing,
	}, nil
}

// Config returns the cache geometry.
func (c *DecodeCache) Config() Config {
	return c.config
}

// Stats returns the cache counters.
func (c *DecodeCache) Stats() Statistics {
	return c.stats
}

// ResetStats clears the cache counters.
func (c *DecodeCache) ResetStats() {
	c.stats = Statistics{}
}

func (c *DecodeCache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Ways + block.WayID
}

func blockAddr(addr uint32) uint64 {
	return uint64(addr &^ (BlockSize - 1))
}

// Lookup returns the cached instruction for addr if it was decoded from raw.
// A block whose opcode no longer matches is treated as a miss.
func (c *DecodeCache) Lookup(addr, raw uint32) (*insts.Instruction, bool) {
	c.stats.Lookups++

	block := c.directory.Lookup(0, blockAddr(addr))
	if block != nil && block.IsValid {
		e := c.entries[c.blockIndex(block)]
		if e.raw == raw && e.inst != nil {
			c.stats.Hits++
			c.directory.Visit(block)
			return e.inst, true
		}
	}

	c.stats.Misses++
	return nil, false
}

// Store caches inst as the decoding of the word at addr, evicting the least
// recently used block of the set if needed.
func (c *DecodeCache) Store(addr uint32, inst *insts.Instruction) {
	tag := blockAddr(addr)

	block := c.directory.Lookup(0, tag)
	if block == nil || !block.IsValid {
		block = c.directory.FindVictim(tag)
		if block == nil {
			return
		}
		if block.IsValid {
			c.stats.Evictions++
		}
	}

	block.Tag = tag
	block.IsValid = true
	block.IsDirty = false
	c.entries[c.blockIndex(block)] = entry{raw: inst.Raw, inst: inst}
	c.directory.Visit(block)
}

// Fetch returns the decoded instruction for raw at addr, decoding through
// the backing decoder and filling the cache on a miss.
func (c *DecodeCache) Fetch(addr, raw uint32) *insts.Instruction {
	if inst, ok := c.Lookup(addr, raw); ok {
		return inst
	}

	inst := c.backing.Decode(raw)
	c.Store(addr, inst)
	return inst
}

// Invalidate drops the block holding addr, if cached.
func (c *DecodeCache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		c.entries[c.blockIndex(block)] = entry{}
		c.stats.Invalidations++
	}
}

// Reset invalidates every block and clears the counters.
func (c *DecodeCache) Reset() {
	c.directory.Reset()
	for i := range c.entries {
		c.entries[i] = entry{}
	}
	c.stats = Statistics{}
}
