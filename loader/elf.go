// Package loader reads ARM32 program images: ELF executables and raw
// binaries.
package loader

import (
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/arm7core/emu"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment is a contiguous region of the image.
type Segment struct {
	// Addr is where the segment is placed.
	Addr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory. Bytes past len(Data) are zero.
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program is an image ready to be placed in memory.
type Program struct {
	// EntryPoint is the address execution starts at.
	EntryPoint uint32
	// Segments holds the loadable regions.
	Segments []Segment
}

// Load parses a little-endian 32-bit ARM ELF executable.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}
	if f.Machine != elf.EM_ARM {
		return nil, fmt.Errorf("not an ARM ELF file (machine type: %v)", f.Machine)
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}
	if f.Entry&3 != 0 {
		return nil, fmt.Errorf("entry point %#x is not an ARM-state address", f.Entry)
	}

	prog := &Program{EntryPoint: uint32(f.Entry)}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			Addr:    uint32(phdr.Vaddr),
			Data:    data,
			MemSize: uint32(phdr.Memsz),
			Flags:   flags,
		})
	}

	return prog, nil
}

// LoadRaw reads a flat binary placed at base. Execution starts at base.
func LoadRaw(path string, base uint32) (*Program, error) {
	if base&3 != 0 {
		return nil, fmt.Errorf("base %#x is not word aligned", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw image: %w", err)
	}

	return &Program{
		EntryPoint: base,
		Segments: []Segment{{
			Addr:    base,
			Data:    data,
			MemSize: uint32(len(data)),
			Flags:   SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}, nil
}

// LoadInto writes every segment into memory, zero-filling the tail of
// segments whose memory size exceeds their file size.
func (p *Program) LoadInto(memory *emu.Memory) error {
	for _, seg := range p.Segments {
		if err := memory.LoadProgram(seg.Addr, seg.Data); err != nil {
			return err
		}
		for i := uint32(len(seg.Data)); i < seg.MemSize; i++ {
			if err := memory.Write8(seg.Addr+i, 0); err != nil {
				return err
			}
		}
	}
	return nil
}
