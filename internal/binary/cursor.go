package binary

import (
	"bytes"

	"github.com/simonhull/audiotag/internal/types"
)

// Cursor is a positioned reader over a window [start, limit) of a
// SafeReader. Positions are absolute file offsets.
//
// A Cursor created with View cannot read past its own limit even when the
// underlying source has more bytes; container handlers receive views so a
// malformed payload cannot spill into its neighbours.
type Cursor struct {
	sr    *SafeReader
	start int64
	limit int64
	pos   int64
}

// NewCursor returns a cursor spanning the whole source, positioned at 0.
func NewCursor(sr *SafeReader) *Cursor {
	return &Cursor{sr: sr, limit: sr.size}
}

// NewBytesCursor returns a cursor over an in-memory buffer.
func NewBytesCursor(b []byte, path string) *Cursor {
	return NewCursor(NewSafeReader(bytes.NewReader(b), int64(len(b)), path))
}

// Path returns the file path for error messages.
func (c *Cursor) Path() string { return c.sr.path }

// Position returns the absolute read position.
func (c *Cursor) Position() int64 { return c.pos }

// Start returns the absolute offset of the first byte of the window.
func (c *Cursor) Start() int64 { return c.start }

// Limit returns the absolute offset one past the last readable byte.
func (c *Cursor) Limit() int64 { return c.limit }

// Size returns the number of bytes in the window.
func (c *Cursor) Size() int64 { return c.limit - c.start }

// Remaining returns the number of bytes between the position and the limit.
func (c *Cursor) Remaining() int64 { return c.limit - c.pos }

// SeekTo moves to an absolute position inside the window. The limit itself is
// a valid position.
func (c *Cursor) SeekTo(pos int64) error {
	if pos < c.start || pos > c.limit {
		return &types.OutOfBoundsError{Path: c.sr.path, What: "seek", Offset: pos, Size: c.limit}
	}
	c.pos = pos
	return nil
}

// Skip moves the position forward (or backward for negative n).
func (c *Cursor) Skip(n int64) error {
	return c.SeekTo(c.pos + n)
}

// Read returns exactly n bytes at the position and advances past them.
// On failure the position is unchanged.
func (c *Cursor) Read(n int, what string) ([]byte, error) {
	b, err := c.Peek(n, what)
	if err != nil {
		return nil, err
	}
	c.pos += int64(n)
	return b, nil
}

// Peek returns n bytes at the position without advancing.
func (c *Cursor) Peek(n int, what string) ([]byte, error) {
	if n < 0 || int64(n) > c.limit-c.pos {
		return nil, &types.OutOfBoundsError{Path: c.sr.path, What: what, Offset: c.pos, Length: n, Size: c.limit}
	}
	b := make([]byte, n)
	if err := c.sr.readWithin(b, c.pos, c.limit, what); err != nil {
		return nil, err
	}
	return b, nil
}

// Rest reads everything from the position to the limit.
func (c *Cursor) Rest(what string) ([]byte, error) {
	return c.Read(int(c.Remaining()), what)
}

// View returns a child cursor over [offset, offset+length), positioned at
// offset. The range must lie inside this cursor's window.
func (c *Cursor) View(offset, length int64) (*Cursor, error) {
	if length < 0 || offset < c.start || offset+length > c.limit {
		return nil, &types.OutOfBoundsError{
			Path:   c.sr.path,
			What:   "view",
			Offset: offset,
			Length: int(length),
			Size:   c.limit,
		}
	}
	return &Cursor{sr: c.sr, start: offset, limit: offset + length, pos: offset}, nil
}

// ReadCursor reads a value of type T at the cursor position in the given
// byte order and advances past it.
func ReadCursor[T Unsigned](c *Cursor, what string, order Endianness) (T, error) {
	b, err := c.Read(sizeOf[T](), what)
	if err != nil {
		var zero T
		return zero, err
	}
	return T(Uint(b, order)), nil
}

// ReadValue reads a big-endian value and advances the position.
func ReadValue[T Unsigned](c *Cursor, what string) (T, error) {
	return ReadCursor[T](c, what, BigEndian)
}

// ReadValueLE reads a little-endian value and advances the position.
func ReadValueLE[T Unsigned](c *Cursor, what string) (T, error) {
	return ReadCursor[T](c, what, LittleEndian)
}
