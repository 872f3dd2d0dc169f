// Package field implements self-describing field codecs: each field knows
// its own byte width rule, decodes from a buffer at an offset and encodes
// back to exactly Size() bytes.
//
// Fields compose into frame bodies (package frame) and repeated groups
// (Repeated). The set of field kinds is closed.
package field

import (
	"github.com/simonhull/audiotag/internal/types"
)

// Field is one typed value inside a frame body.
type Field interface {
	// Name identifies the field within its body.
	Name() string

	// Size is the encoded width of the current value. Fixed fields report
	// their configured width whether or not a value is set.
	Size() int

	// MinSize is the number of bytes that must remain in the buffer before
	// Decode can succeed.
	MinSize() int

	// Decode reads the field from buf at off and returns the number of
	// bytes consumed. It never reads past len(buf).
	Decode(buf []byte, off int) (int, error)

	// Encode returns exactly Size() bytes, or *types.UnsetFieldValueError
	// when no value was set.
	Encode() ([]byte, error)

	// Clone returns an independent copy, value included.
	Clone() Field

	// IsSet reports whether the field holds a value.
	IsSet() bool

	sealed()
}

// Encoded is implemented by fields whose bytes depend on the text encoding
// declared elsewhere in their body.
type Encoded interface {
	Field
	Encoding() Encoding
	SetEncoding(e Encoding) error
}

func need(f Field, buf []byte, off, n int) error {
	if off < 0 || off+n > len(buf) {
		have := len(buf) - off
		if have < 0 {
			have = 0
		}
		return &types.BufferTooShortError{Field: f.Name(), Offset: off, Need: n, Have: have}
	}
	return nil
}

func unset(f Field) error {
	return &types.UnsetFieldValueError{Field: f.Name()}
}

// SizeOf sums the sizes of fs.
func SizeOf(fs []Field) int {
	n := 0
	for _, f := range fs {
		n += f.Size()
	}
	return n
}

// MinSizeOf sums the minimum sizes of fs.
func MinSizeOf(fs []Field) int {
	n := 0
	for _, f := range fs {
		n += f.MinSize()
	}
	return n
}

// CloneAll deep-copies fs.
func CloneAll(fs []Field) []Field {
	out := make([]Field, len(fs))
	for i, f := range fs {
		out[i] = f.Clone()
	}
	return out
}

// EncodeAll concatenates the encodings of fs and verifies the total
// against their summed Size.
func EncodeAll(what string, fs []Field) ([]byte, error) {
	want := SizeOf(fs)
	out := make([]byte, 0, want)
	for _, f := range fs {
		b, err := f.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	if len(out) != want {
		return nil, &types.SizeMismatchError{What: what, Want: want, Got: len(out)}
	}
	return out, nil
}

// Find returns the field called name, or nil.
func Find(fs []Field, name string) Field {
	for _, f := range fs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}
