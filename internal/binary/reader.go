// Package binary is the byte-source boundary of the parsing kernel: bounds
// checked random access (SafeReader), a positioned cursor with bounded views
// (Cursor), endian helpers and synchsafe integers.
package binary

import (
	"fmt"
	"io"

	"github.com/simonhull/audiotag/internal/types"
)

// Unsigned is the set of fixed-width unsigned integers the generic readers
// and writers handle.
type Unsigned interface {
	uint8 | uint16 | uint32 | uint64
}

// sizeOf returns the encoded width of T in bytes.
func sizeOf[T Unsigned]() int {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	default:
		return 8
	}
}

// SafeReader wraps io.ReaderAt with bounds checking and helpful error messages.
type SafeReader struct {
	r    io.ReaderAt
	path string
	size int64
}

// NewSafeReader creates a new SafeReader.
func NewSafeReader(r io.ReaderAt, size int64, path string) *SafeReader {
	return &SafeReader{
		r:    r,
		size: size,
		path: path,
	}
}

// Path returns the file path associated with this reader.
func (sr *SafeReader) Path() string {
	return sr.path
}

// Size returns the size of the underlying source.
func (sr *SafeReader) Size() int64 {
	return sr.size
}

// ReadAt reads bytes at the given offset with context for error messages.
//
// Reads that would leave [0, size) fail with *types.OutOfBoundsError before
// touching the underlying reader.
func (sr *SafeReader) ReadAt(b []byte, off int64, what string) error {
	return sr.readWithin(b, off, sr.size, what)
}

func (sr *SafeReader) readWithin(b []byte, off, limit int64, what string) error {
	if off < 0 || off > limit || (off == limit && len(b) > 0) || off+int64(len(b)) > limit {
		return &types.OutOfBoundsError{Path: sr.path, What: what, Offset: off, Length: len(b), Size: limit}
	}
	if len(b) == 0 {
		return nil
	}

	n, err := sr.r.ReadAt(b, off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("%s: failed to read %s at offset %d: %w", sr.path, what, off, err)
	}

	if n < len(b) {
		return fmt.Errorf("%s: short read for %s at offset %d: got %d bytes, expected %d",
			sr.path, what, off, n, len(b))
	}

	return nil
}

// Read reads a big-endian value of type T from the given offset.
func Read[T Unsigned](sr *SafeReader, off int64, what string) (T, error) {
	return ReadEndian[T](sr, off, what, BigEndian)
}

// ChainReader allows chaining multiple reads with deferred error checking.
// This avoids repetitive "if err != nil" checks.
type ChainReader struct {
	*Cursor
	order Endianness
	err   error
}

// NewChainReader creates a ChainReader reading numbers in the given byte order.
func NewChainReader(c *Cursor, order Endianness) *ChainReader {
	return &ChainReader{Cursor: c, order: order}
}

// ReadChained reads a value with deferred error checking.
// If a previous read failed, returns zero value without attempting read.
func ReadChained[T Unsigned](cr *ChainReader, what string) T {
	if cr.err != nil {
		var zero T
		return zero
	}

	val, err := ReadCursor[T](cr.Cursor, what, cr.order)
	if err != nil {
		cr.err = err
		var zero T
		return zero
	}

	return val
}

// String reads a string, accumulating any error.
func (cr *ChainReader) String(length int, what string) string {
	b := cr.Bytes(length, what)
	if b == nil {
		return ""
	}
	return string(b)
}

// Bytes reads length raw bytes, accumulating any error.
func (cr *ChainReader) Bytes(length int, what string) []byte {
	if cr.err != nil {
		return nil
	}

	b, err := cr.Cursor.Read(length, what)
	if err != nil {
		cr.err = err
		return nil
	}
	return b
}

// Skip advances n bytes, accumulating any error.
func (cr *ChainReader) Skip(n int64) {
	if cr.err != nil {
		return
	}
	cr.err = cr.Cursor.Skip(n)
}

// Error returns the accumulated error, if any.
func (cr *ChainReader) Error() error {
	return cr.err
}
