// Package frame composes field codecs into ID3v2 frame bodies.
//
// A Body is built from an immutable template chosen by frame ID. Decoding
// walks the template members in order against a buffer that ends exactly at
// the frame boundary; encoding concatenates the members and checks the
// result against the computed size.
package frame

import (
	"fmt"
	"strings"

	"github.com/simonhull/audiotag/internal/field"
	"github.com/simonhull/audiotag/internal/types"
)

// EncodingField is the member name that carries the body's text encoding.
const EncodingField = "TextEncoding"

// Body is the decoded payload of one frame.
type Body struct {
	id     string
	fields []field.Field
	known  bool
}

// New returns an empty body for id. IDs without a template get a single
// opaque Binary member so their bytes survive a rewrite untouched.
func New(id string) *Body {
	if build, ok := lookup(id); ok {
		return &Body{id: id, fields: build(), known: true}
	}
	return &Body{id: id, fields: []field.Field{field.NewBinary("Data")}}
}

// Decode parses the body of frame id from buf, which must hold exactly the
// frame payload.
func Decode(id string, buf []byte) (*Body, error) {
	b := New(id)
	if err := b.Decode(buf); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Body) ID() string                 { return b.id }
func (b *Body) Known() bool                { return b.known }
func (b *Body) Fields() []field.Field      { return b.fields }
func (b *Body) Size() int                  { return field.SizeOf(b.fields) }
func (b *Body) Field(n string) field.Field { return field.Find(b.fields, n) }

// Decode fills the members from buf. Before each member it checks that
// the minimum width of every member still to come fits in what is left.
func (b *Body) Decode(buf []byte) error {
	off := 0
	for i, f := range b.fields {
		if rest := field.MinSizeOf(b.fields[i:]); off+rest > len(buf) {
			return &types.BufferTooShortError{Field: f.Name(), Offset: off, Need: rest, Have: len(buf) - off}
		}
		n, err := f.Decode(buf, off)
		if err != nil {
			return fmt.Errorf("frame %s: %w", b.id, err)
		}
		off += n
		if f.Name() == EncodingField {
			if err := b.propagate(b.Encoding()); err != nil {
				return fmt.Errorf("frame %s: %w", b.id, err)
			}
		}
	}
	if off != len(buf) {
		return &types.InvalidChunkSizeError{
			ID:        b.id,
			Reason:    fmt.Sprintf("%d trailing bytes after body", len(buf)-off),
			Offset:    int64(off),
			Declared:  uint64(len(buf)),
			Available: int64(off),
		}
	}
	return nil
}

// Encode concatenates the members. The result is exactly Size() bytes.
func (b *Body) Encode() ([]byte, error) {
	out, err := field.EncodeAll("frame "+b.id, b.fields)
	if err != nil {
		return nil, fmt.Errorf("frame %s: %w", b.id, err)
	}
	return out, nil
}

// Clone returns a deep copy sharing nothing with b.
func (b *Body) Clone() *Body {
	return &Body{id: b.id, fields: field.CloneAll(b.fields), known: b.known}
}

// Encoding returns the declared text encoding, or Latin1 for bodies
// without an encoding member.
func (b *Body) Encoding() field.Encoding {
	if n, ok := b.Field(EncodingField).(*field.Number); ok && n.IsSet() {
		return field.Encoding(n.Value())
	}
	return field.Latin1
}

// SetEncoding changes the declared encoding and re-encodes every text
// member. Bodies without an encoding member accept only Latin1.
func (b *Body) SetEncoding(e field.Encoding) error {
	n, ok := b.Field(EncodingField).(*field.Number)
	if !ok {
		if e != field.Latin1 {
			return fmt.Errorf("frame %s: no text encoding member", b.id)
		}
		return nil
	}
	old, wasSet := n.Value(), n.IsSet()
	if err := n.SetValue(uint64(e)); err != nil {
		return err
	}
	if err := b.propagate(e); err != nil {
		if wasSet {
			_ = n.SetValue(old)
			_ = b.propagate(field.Encoding(old))
		}
		return fmt.Errorf("frame %s: %w", b.id, err)
	}
	return nil
}

func (b *Body) propagate(e field.Encoding) error {
	for _, f := range b.fields {
		if ef, ok := f.(field.Encoded); ok {
			if err := ef.SetEncoding(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// primary names the member holding a body's main value, in lookup order.
var primary = []string{"Text", "Value", "URL", "Counter"}

// Text returns the main value of the body as a display string. Multiple
// text values are joined with "/".
func (b *Body) Text() string {
	for _, name := range primary {
		switch f := b.Field(name).(type) {
		case *field.Text:
			return strings.Join(f.Values(), "/")
		case *field.Number:
			return fmt.Sprint(f.Value())
		}
	}
	return ""
}

// Values returns the individual values of a text body.
func (b *Body) Values() []string {
	for _, name := range primary {
		if f, ok := b.Field(name).(*field.Text); ok {
			return f.Values()
		}
	}
	return nil
}

// String summarizes the body for diagnostics.
func (b *Body) String() string {
	if !b.known {
		return fmt.Sprintf("%s: %d bytes", b.id, b.Size())
	}
	if t := b.Text(); t != "" {
		return fmt.Sprintf("%s: %s", b.id, t)
	}
	return fmt.Sprintf("%s: %d bytes", b.id, b.Size())
}

// NewText builds a text information body for id holding values. The
// narrowest encoding that represents every value is chosen: ISO-8859-1,
// else UTF-8 for ID3v2.4 and UTF-16 for earlier versions.
func NewText(id string, version byte, values ...string) (*Body, error) {
	b := New(id)
	t, ok := b.Field("Text").(*field.Text)
	if _, special := templates[id]; special || !ok {
		return nil, fmt.Errorf("frame %s: not a text frame", id)
	}
	enc := field.Latin1
	for _, v := range values {
		if _, err := field.Latin1.Encode(v); err != nil {
			enc = field.UTF16
			if version >= 4 {
				enc = field.UTF8
			}
			break
		}
	}
	if err := b.SetEncoding(enc); err != nil {
		return nil, err
	}
	if err := t.SetValues(values...); err != nil {
		return nil, fmt.Errorf("frame %s: %w", id, err)
	}
	return b, nil
}
