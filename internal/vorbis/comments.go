// Package vorbis decodes Vorbis comment blocks.
//
// Vorbis comments are used by FLAC, Ogg Vorbis and Ogg Opus. The format is
// identical in all three: a vendor string and a list of UTF-8 "KEY=VALUE"
// strings, every length 32-bit little-endian.
package vorbis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/types"
)

// Comment is one KEY=VALUE entry. Key is upper-cased.
type Comment struct {
	Key   string
	Value string
}

// Comments is a decoded comment block.
type Comments struct {
	Vendor  string
	Entries []Comment

	// Invalid holds entries that are not KEY=VALUE.
	Invalid []string
}

// Decode reads a comment block at the cursor position. The cursor is left
// after the last comment, so a trailing Ogg framing bit is the caller's.
func Decode(c *binary.Cursor) (*Comments, error) {
	cr := binary.NewChainReader(c, binary.LittleEndian)

	vendorLen := binary.ReadChained[uint32](cr, "vendor string length")
	if err := checkLen(c, vendorLen, "vendor string"); err != nil {
		return nil, err
	}
	vc := &Comments{Vendor: cr.String(int(vendorLen), "vendor string")}

	count := binary.ReadChained[uint32](cr, "comment count")
	if err := cr.Error(); err != nil {
		return nil, err
	}
	// Every comment takes at least its 4-byte length.
	if int64(count)*4 > c.Remaining() {
		return nil, &types.BufferTooShortError{
			Field:  "comment list",
			Offset: int(c.Position()),
			Need:   int(count) * 4,
			Have:   int(c.Remaining()),
		}
	}

	for i := uint32(0); i < count; i++ {
		n := binary.ReadChained[uint32](cr, "comment length")
		if err := checkLen(c, n, "comment"); err != nil {
			return nil, fmt.Errorf("comment %d: %w", i, err)
		}
		s := cr.String(int(n), "comment")
		if err := cr.Error(); err != nil {
			return nil, fmt.Errorf("comment %d: %w", i, err)
		}

		key, value, ok := strings.Cut(s, "=")
		if !ok || !validKey(key) || !utf8.ValidString(value) {
			vc.Invalid = append(vc.Invalid, s)
			continue
		}
		vc.Entries = append(vc.Entries, Comment{Key: strings.ToUpper(key), Value: value})
	}
	return vc, nil
}

func checkLen(c *binary.Cursor, n uint32, what string) error {
	if int64(n) > c.Remaining() {
		return &types.BufferTooShortError{
			Field:  what,
			Offset: int(c.Position()),
			Need:   int(n),
			Have:   int(c.Remaining()),
		}
	}
	return nil
}

// validKey accepts printable ASCII 0x20-0x7D without '='.
func validKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 0x20 || key[i] > 0x7D || key[i] == '=' {
			return false
		}
	}
	return true
}

// Tags returns the entries as tags. Repeated keys keep every value in
// order.
func (vc *Comments) Tags() types.Tags {
	var tags types.Tags
	for _, e := range vc.Entries {
		tags.Add(e.Key, e.Value)
	}
	return tags
}

// Encode builds a comment block from tags. Keys are written upper-case.
func Encode(vendor string, tags *types.Tags) ([]byte, error) {
	var out []byte
	put := func(s string) {
		out = appendLE32(out, uint32(len(s)))
		out = append(out, s...)
	}

	put(vendor)
	out = appendLE32(out, 0)
	countAt := len(out) - 4
	var count uint32
	for key, values := range tags.All() {
		if !validKey(key) {
			return nil, &types.UnsupportedWriteError{Reason: fmt.Sprintf("invalid comment key %q", key)}
		}
		for _, v := range values {
			put(strings.ToUpper(key) + "=" + v)
			count++
		}
	}
	binary.PutUint(out[countAt:countAt+4], uint64(count), binary.LittleEndian)
	return out, nil
}

func appendLE32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
