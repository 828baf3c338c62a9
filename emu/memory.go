package emu

import "fmt"

// Bus is the byte-addressable memory the core transfers through. Wider
// accesses are composed from byte accesses by the core, little-endian.
type Bus interface {
	Read8(addr uint32) (uint8, error)
	Write8(addr uint32, value uint8) error
}

// WriteChecker is implemented by buses that can tell ahead of time whether
// a store would fault. The core checks every buffered store with it before
// writing any byte. Buses without it are probed with Read8.
type WriteChecker interface {
	CanWrite8(addr uint32) error
}

const (
	pageShift = 12
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1
)

// Memory is a sparse, paged implementation of Bus covering the 32-bit
// address space. Pages are allocated on first write; unwritten memory reads
// as zero.
type Memory struct {
	pages map[uint32]*[pageSize]byte

	// limit is the first faulting address; 0 means the whole space.
	limit uint64
}

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithAddressLimit makes every access at or above limit fault with
// ErrBusFault. A limit of 0 disables the check.
func WithAddressLimit(limit uint64) MemoryOption {
	return func(m *Memory) {
		m.limit = limit
	}
}

// NewMemory creates an empty memory.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		pages: make(map[uint32]*[pageSize]byte),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Limit returns the configured address limit, or 0 when unlimited.
func (m *Memory) Limit() uint64 {
	return m.limit
}

func (m *Memory) check(addr uint32) error {
	if m.limit != 0 && uint64(addr) >= m.limit {
		return fmt.Errorf("%w: address %#08x beyond limit %#x", ErrBusFault, addr, m.limit)
	}
	return nil
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint32) (uint8, error) {
	if err := m.check(addr); err != nil {
		return 0, err
	}

	page, ok := m.pages[addr>>pageShift]
	if !ok {
		return 0, nil
	}
	return page[addr&pageMask], nil
}

// CanWrite8 reports whether a store to addr would fault.
func (m *Memory) CanWrite8(addr uint32) error {
	return m.check(addr)
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint32, value uint8) error {
	if err := m.check(addr); err != nil {
		return err
	}

	key := addr >> pageShift
	page, ok := m.pages[key]
	if !ok {
		page = new([pageSize]byte)
		m.pages[key] = page
	}
	page[addr&pageMask] = value
	return nil
}

// LoadProgram copies data into memory starting at addr.
func (m *Memory) LoadProgram(addr uint32, data []byte) error {
	for i, b := range data {
		if err := m.Write8(addr+uint32(i), b); err != nil {
			return fmt.Errorf("loading %d bytes at %#08x: %w", len(data), addr, err)
		}
	}
	return nil
}

// PageCount returns the number of allocated pages.
func (m *Memory) PageCount() int {
	return len(m.pages)
}

// Read16 reads a little-endian halfword from a bus.
func Read16(bus Bus, addr uint32) (uint16, error) {
	var v uint16
	for i := uint32(0); i < 2; i++ {
		b, err := bus.Read8(addr + i)
		if err != nil {
			return 0, err
		}
		v |= uint16(b) << (8 * i)
	}
	return v, nil
}

// Read32 reads a little-endian word from a bus.
func Read32(bus Bus, addr uint32) (uint32, error) {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		b, err := bus.Read8(addr + i)
		if err != nil {
			return 0, err
		}
		v |= uint32(b) << (8 * i)
	}
	return v, nil
}

// Write32 writes a little-endian word to a bus.
func Write32(bus Bus, addr uint32, value uint32) error {
	for i := uint32(0); i < 4; i++ {
		if err := bus.Write8(addr+i, uint8(value>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}
