package binary

// Endianness represents byte order for multi-byte values.
type Endianness int

const (
	// BigEndian uses big-endian byte order.
	// Used by: MP4 boxes, ID3v2 frames, FLAC metadata block headers.
	BigEndian Endianness = iota

	// LittleEndian uses little-endian byte order.
	// Used by: RIFF chunks, Vorbis comments, Ogg pages.
	LittleEndian
)

func (e Endianness) String() string {
	if e == LittleEndian {
		return "little-endian"
	}
	return "big-endian"
}

// Uint decodes an unsigned integer of len(b) bytes (at most 8).
func Uint(b []byte, order Endianness) uint64 {
	var v uint64
	if order == LittleEndian {
		for i := len(b) - 1; i >= 0; i-- {
			v = v<<8 | uint64(b[i])
		}
		return v
	}
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// PutUint encodes the low len(b) bytes of v into b.
func PutUint(b []byte, v uint64, order Endianness) {
	n := len(b)
	for i := range n {
		shift := uint(8 * i)
		if order == LittleEndian {
			b[i] = byte(v >> shift)
		} else {
			b[n-1-i] = byte(v >> shift)
		}
	}
}

// ReadLE reads a numeric value of type T at the given offset using little-endian byte order.
//
// Example:
//
//	length, err := binary.ReadLE[uint32](sr, offset, "vorbis comment length")
func ReadLE[T Unsigned](sr *SafeReader, off int64, what string) (T, error) {
	return ReadEndian[T](sr, off, what, LittleEndian)
}

// ReadBE reads a numeric value of type T at the given offset using big-endian byte order.
//
// Example:
//
//	boxSize, err := binary.ReadBE[uint32](sr, offset, "box size")
func ReadBE[T Unsigned](sr *SafeReader, off int64, what string) (T, error) {
	return ReadEndian[T](sr, off, what, BigEndian)
}

// ReadEndian reads a numeric value of type T at the given offset with specified byte order.
func ReadEndian[T Unsigned](sr *SafeReader, off int64, what string, endian Endianness) (T, error) {
	buf := make([]byte, sizeOf[T]())
	if err := sr.ReadAt(buf, off, what); err != nil {
		var zero T
		return zero, err
	}
	return T(Uint(buf, endian)), nil
}
