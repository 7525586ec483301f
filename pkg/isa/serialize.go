package isa

import (
	"encoding/binary"
	"fmt"
)

// SerializeAll encodes a whole program as a byte stream: a little-endian
// uint32 instruction count followed by that many little-endian uint32
// words. The framing is an implementation choice (spec.md §9(b) — only
// cross-call self-consistency with DeserializeAll is required, not
// cross-implementation binary compatibility of the container).
func SerializeAll(xs []Instruction) ([]byte, error) {
	out := make([]byte, 4, 4+4*len(xs))
	binary.LittleEndian.PutUint32(out, uint32(len(xs)))
	for idx, ins := range xs {
		w, err := Encode(ins)
		if err != nil {
			return nil, fmt.Errorf("isa: cannot serialize instruction %d: %w", idx, err)
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], w)
		out = append(out, buf[:]...)
	}
	return out, nil
}

// DeserializeAll is the inverse of SerializeAll.
func DeserializeAll(b []byte) ([]Instruction, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: truncated length prefix", ErrInvalidInstruction)
	}
	count := binary.LittleEndian.Uint32(b)
	b = b[4:]
	if uint64(len(b)) < 4*uint64(count) {
		return nil, fmt.Errorf("%w: truncated instruction stream", ErrInvalidInstruction)
	}
	out := make([]Instruction, 0, count)
	for i := uint32(0); i < count; i++ {
		w := binary.LittleEndian.Uint32(b[4*i : 4*i+4])
		ins, err := Decode(w)
		if err != nil {
			return nil, fmt.Errorf("isa: cannot deserialize word %d: %w", i, err)
		}
		out = append(out, ins)
	}
	return out, nil
}
