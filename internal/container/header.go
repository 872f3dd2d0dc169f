// Package container implements the traversal kernel shared by every format:
// reading length-prefixed chunk headers (ReadHeader), walking flat or nested
// chunk sequences (Walker) and re-emitting headers with corrected lengths.
//
// A format describes itself with a Layout; the walker never hard-codes byte
// order, header width, alignment or nesting.
package container

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/encoding/charmap"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/types"
)

// ErrPadding is returned by ReadHeader when a layout with StopOnPadding
// meets a zero byte where an identifier should start.
var ErrPadding = errors.New("container: padding reached")

// Align is the boundary rule applied after each chunk payload.
type Align int

const (
	// AlignNone places the next header immediately after the payload.
	AlignNone Align = iota
	// AlignEven skips one pad byte after an odd-length payload.
	AlignEven
)

// Layout describes a container family's header format and traversal rules.
type Layout struct {
	Name  string
	Order binary.Endianness

	// HeaderSize is the fixed header width in bytes, not counting an MP4
	// extended size.
	HeaderSize int

	IDOffset  int
	IDWidth   int
	IDMask    byte // applied to the first identifier byte when non-zero
	NumericID bool // identifier is a number, rendered in decimal

	LengthOffset int
	LengthWidth  int
	Synchsafe    bool

	// LengthIncludesHeader means the declared length counts the header
	// bytes too (MP4). Otherwise it is the payload length.
	LengthIncludesHeader bool

	// ExtendedSize enables the MP4 conventions: declared 1 means a 64-bit
	// length follows the header, declared 0 means the box runs to the end
	// of its container.
	ExtendedSize bool

	Align Align

	// Parents maps identifiers whose payload is itself a chunk sequence to
	// the number of bytes preceding the first child.
	Parents map[string]int

	// Children reports nesting that depends on context rather than on the
	// identifier alone, such as MP4 ilst items.
	Children func(h Header) (prefix int, ok bool)

	// StopOnPadding ends a chunk list at the first zero identifier byte.
	StopOnPadding bool

	// Strict requires handlers to consume their whole payload view.
	Strict bool

	// ValidID rejects malformed identifiers with a CorruptHeaderError.
	ValidID func(id string) bool
}

// ParentPrefix reports whether h has children and how many bytes precede
// them in its payload.
func (l *Layout) ParentPrefix(h Header) (int, bool) {
	if prefix, ok := l.Parents[h.ID]; ok {
		return prefix, true
	}
	if l.Children != nil {
		return l.Children(h)
	}
	return 0, false
}

// Header is one decoded chunk/box/frame header.
type Header struct {
	ID       string
	Parent   string // identifier of the enclosing chunk, empty at top level
	Raw      []byte // header bytes as read, including any extended size
	Declared uint64 // length field as stored (or resolved, for MP4 size 0/1)
	Offset   int64  // absolute offset of the first header byte
	Payload  int64  // payload length in bytes
	Len      int    // header bytes consumed
}

// PayloadOffset returns the absolute offset of the first payload byte.
func (h Header) PayloadOffset() int64 {
	return h.Offset + int64(h.Len)
}

// End returns the absolute offset one past the payload, before alignment.
func (h Header) End() int64 {
	return h.PayloadOffset() + h.Payload
}

// ReadHeader reads one header at the cursor position and advances exactly
// past it. On failure the position is left where it was.
func ReadHeader(c *binary.Cursor, l Layout) (Header, error) {
	start := c.Position()

	if l.StopOnPadding && c.Remaining() > 0 {
		b, err := c.Peek(1, l.Name+" header")
		if err != nil {
			return Header{}, err
		}
		if b[0] == 0 {
			return Header{}, ErrPadding
		}
	}

	if c.Remaining() < int64(l.HeaderSize) {
		return Header{}, &types.CorruptHeaderError{
			Path:   c.Path(),
			Layout: l.Name,
			Offset: start,
			Need:   l.HeaderSize,
			Have:   c.Remaining(),
		}
	}

	raw, err := c.Read(l.HeaderSize, l.Name+" header")
	if err != nil {
		return Header{}, err
	}

	h := Header{
		ID:     decodeID(raw[l.IDOffset:l.IDOffset+l.IDWidth], l),
		Raw:    raw,
		Offset: start,
		Len:    l.HeaderSize,
	}

	fail := func(reason string) (Header, error) {
		_ = c.SeekTo(start)
		return Header{}, &types.CorruptHeaderError{Path: c.Path(), Layout: l.Name, Offset: start, Reason: reason}
	}

	if l.ValidID != nil && !l.ValidID(h.ID) {
		return fail(fmt.Sprintf("invalid identifier %q", h.ID))
	}

	lengthBytes := raw[l.LengthOffset : l.LengthOffset+l.LengthWidth]
	if l.Synchsafe {
		v, err := binary.DecodeSynchsafe(lengthBytes)
		if err != nil {
			return fail(fmt.Sprintf("length of %q is not synchsafe: %v", h.ID, err))
		}
		h.Declared = uint64(v)
	} else {
		h.Declared = binary.Uint(lengthBytes, l.Order)
	}

	toEnd := false
	if l.ExtendedSize {
		switch h.Declared {
		case 1:
			ext, err := c.Read(8, l.Name+" extended size")
			if err != nil {
				_ = c.SeekTo(start)
				return Header{}, &types.CorruptHeaderError{
					Path:   c.Path(),
					Layout: l.Name,
					Offset: start,
					Need:   l.HeaderSize + 8,
					Have:   c.Limit() - start,
				}
			}
			h.Raw = append(h.Raw, ext...)
			h.Len += 8
			h.Declared = binary.Uint(ext, l.Order)
		case 0:
			toEnd = true
			h.Declared = uint64(c.Limit() - start)
		}
	}

	if h.Declared > math.MaxInt64 {
		_ = c.SeekTo(start)
		return Header{}, sizeError(c, h, "length overflows a signed 64-bit offset")
	}

	if l.LengthIncludesHeader || toEnd {
		if h.Declared < uint64(h.Len) {
			_ = c.SeekTo(start)
			return Header{}, sizeError(c, h, fmt.Sprintf("declared length smaller than %d-byte header", h.Len))
		}
		h.Payload = int64(h.Declared) - int64(h.Len)
	} else {
		h.Payload = int64(h.Declared)
	}

	return h, nil
}

func sizeError(c *binary.Cursor, h Header, reason string) *types.InvalidChunkSizeError {
	return &types.InvalidChunkSizeError{
		Path:      c.Path(),
		ID:        h.ID,
		Reason:    reason,
		Offset:    h.Offset,
		Declared:  h.Declared,
		Available: c.Limit() - h.Offset,
	}
}

func decodeID(b []byte, l Layout) string {
	if l.IDMask != 0 {
		b = append([]byte(nil), b...)
		b[0] &= l.IDMask
	}
	if l.NumericID {
		return strconv.FormatUint(binary.Uint(b, l.Order), 10)
	}
	// ISO-8859-1 maps every byte, so decoding cannot fail.
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(s)
}
