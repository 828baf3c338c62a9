package cache

import "github.com/sarchlab/arm7core/insts"

// Decoder fills the cache on a miss.
type Decoder interface {
	Decode(word uint32) *insts.Instruction
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(word uint32) *insts.Instruction

// Decode calls f(word).
func (f DecoderFunc) Decode(word uint32) *insts.Instruction {
	return f(word)
}
