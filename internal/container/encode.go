package container

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/encoding/charmap"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/types"
)

// EncodeHeader builds a header for a payload of payloadLen bytes. Bytes of
// the header outside the identifier and length fields (ID3 frame flags,
// the FLAC last-block bit) are zero and may be set by the caller.
//
// An MP4 box too large for a 32-bit size gets a 64-bit extended size.
func EncodeHeader(l Layout, id string, payloadLen int64) ([]byte, error) {
	if payloadLen < 0 {
		return nil, &types.InvalidChunkSizeError{ID: id, Reason: "negative payload length", Available: payloadLen}
	}

	raw := make([]byte, l.HeaderSize)

	idBytes, err := encodeID(l, id)
	if err != nil {
		return nil, err
	}
	copy(raw[l.IDOffset:], idBytes)

	declared := uint64(payloadLen)
	if l.LengthIncludesHeader {
		declared += uint64(l.HeaderSize)
	}

	lengthField := raw[l.LengthOffset : l.LengthOffset+l.LengthWidth]
	maxLength := uint64(1)<<(8*uint(l.LengthWidth)) - 1
	switch {
	case l.Synchsafe:
		if declared > math.MaxUint32 {
			return nil, &types.OutOfRangeValueError{Field: id, Reason: "frame size", Value: declared, Max: binary.MaxSynchsafe}
		}
		b, err := binary.EncodeSynchsafe(uint32(declared), l.LengthWidth)
		if err != nil {
			return nil, err
		}
		copy(lengthField, b)
	case declared > maxLength && l.ExtendedSize:
		binary.PutUint(lengthField, 1, l.Order)
		ext := make([]byte, 8)
		binary.PutUint(ext, declared+8, l.Order)
		raw = append(raw, ext...)
	case declared > maxLength:
		return nil, &types.OutOfRangeValueError{Field: id, Reason: l.Name + " length", Value: declared, Max: maxLength}
	default:
		binary.PutUint(lengthField, declared, l.Order)
	}

	return raw, nil
}

// Pad returns the alignment bytes that follow a payload of payloadLen bytes.
func Pad(l Layout, payloadLen int64) []byte {
	if l.Align == AlignEven && payloadLen%2 == 1 {
		return []byte{0}
	}
	return nil
}

// EncodeChunk returns header, payload and alignment padding.
func EncodeChunk(l Layout, id string, payload []byte) ([]byte, error) {
	header, err := EncodeHeader(l, id, int64(len(payload)))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(header)+len(payload)+1)
	out = append(out, header...)
	out = append(out, payload...)
	return append(out, Pad(l, int64(len(payload)))...), nil
}

func encodeID(l Layout, id string) ([]byte, error) {
	if l.NumericID {
		n, err := strconv.ParseUint(id, 10, 8*l.IDWidth)
		if err != nil {
			return nil, fmt.Errorf("%s identifier %q: %w", l.Name, id, err)
		}
		if l.IDMask != 0 && n > uint64(l.IDMask) {
			return nil, &types.OutOfRangeValueError{Field: l.Name + " identifier", Value: n, Max: uint64(l.IDMask)}
		}
		b := make([]byte, l.IDWidth)
		binary.PutUint(b, n, l.Order)
		return b, nil
	}

	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(id))
	if err != nil {
		return nil, fmt.Errorf("%s identifier %q is not ISO-8859-1: %w", l.Name, id, err)
	}
	if len(b) != l.IDWidth {
		return nil, fmt.Errorf("%s identifier %q must be %d bytes, got %d", l.Name, id, l.IDWidth, len(b))
	}
	return b, nil
}
