package binary

import (
	"bytes"
	"strconv"

	"github.com/icza/bitio"

	"github.com/simonhull/audiotag/internal/types"
)

// MaxSynchsafe is the largest value a 4-byte synchsafe integer holds.
const MaxSynchsafe = 1<<28 - 1

// DecodeSynchsafe decodes a synchsafe integer: 7 significant bits per byte,
// most significant byte first, high bit of every byte clear.
func DecodeSynchsafe(b []byte) (uint32, error) {
	r := bitio.NewReader(bytes.NewReader(b))
	var v uint32
	for i := range b {
		high, err := r.ReadBool()
		if err != nil {
			return 0, err
		}
		if high {
			return 0, &types.OutOfRangeValueError{
				Field:  "synchsafe",
				Reason: "byte " + strconv.Itoa(i),
				Value:  uint64(b[i]),
				Max:    0x7F,
			}
		}
		bits, err := r.ReadBits(7)
		if err != nil {
			return 0, err
		}
		v = v<<7 | uint32(bits)
	}
	return v, nil
}

// EncodeSynchsafe encodes v as a synchsafe integer of width bytes.
func EncodeSynchsafe(v uint32, width int) ([]byte, error) {
	if limit := uint64(1)<<(7*uint(width)) - 1; uint64(v) > limit {
		return nil, &types.OutOfRangeValueError{Field: "synchsafe", Value: uint64(v), Max: limit}
	}
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	for i := width - 1; i >= 0; i-- {
		if err := w.WriteBool(false); err != nil {
			return nil, err
		}
		if err := w.WriteBits(uint64(v>>(7*uint(i)))&0x7F, 7); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
