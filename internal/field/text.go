package field

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/simonhull/audiotag/internal/types"
)

// FixedString is an ISO-8859-1 string of exactly width bytes. Shorter
// values are NUL-padded; trailing NULs are dropped on decode.
type FixedString struct {
	name    string
	width   int
	value   string
	encoded []byte
	set     bool
}

// NewFixedString returns an unset fixed string of width bytes.
func NewFixedString(name string, width int) *FixedString {
	return &FixedString{name: name, width: width}
}

func (s *FixedString) Name() string  { return s.name }
func (s *FixedString) Size() int     { return s.width }
func (s *FixedString) MinSize() int  { return s.width }
func (s *FixedString) IsSet() bool   { return s.set }
func (s *FixedString) Value() string { return s.value }
func (*FixedString) sealed()         {}

// SetValue stores v, rejecting values longer than the width or outside
// ISO-8859-1.
func (s *FixedString) SetValue(v string) error {
	b, err := Latin1.Encode(v)
	if err != nil {
		return err
	}
	if len(b) > s.width {
		return &types.OutOfRangeValueError{Field: s.name, Reason: "length", Value: uint64(len(b)), Max: uint64(s.width)}
	}
	s.value, s.encoded, s.set = v, b, true
	return nil
}

func (s *FixedString) Decode(buf []byte, off int) (int, error) {
	if err := need(s, buf, off, s.width); err != nil {
		return 0, err
	}
	raw := bytes.TrimRight(buf[off:off+s.width], "\x00")
	v, err := Latin1.Decode(raw)
	if err != nil {
		return 0, err
	}
	s.value, s.encoded, s.set = v, append([]byte(nil), raw...), true
	return s.width, nil
}

func (s *FixedString) Encode() ([]byte, error) {
	if !s.set {
		return nil, unset(s)
	}
	out := make([]byte, s.width)
	copy(out, s.encoded)
	return out, nil
}

func (s *FixedString) Clone() Field {
	c := *s
	c.encoded = append([]byte(nil), s.encoded...)
	return &c
}

// dateWidth is the YYYYMMDD width of a Date.
const dateWidth = 8

// Date is an 8-character date stored without separators. Dashes are
// stripped on both set and decode, so "2024-01-31" and "20240131" are the
// same value.
type Date struct {
	FixedString
}

// NewDate returns an unset date field.
func NewDate(name string) *Date {
	return &Date{FixedString: FixedString{name: name, width: dateWidth}}
}

// SetValue stores v with every '-' removed.
func (d *Date) SetValue(v string) error {
	return d.FixedString.SetValue(stripDashes(v))
}

func (d *Date) Decode(buf []byte, off int) (int, error) {
	n, err := d.FixedString.Decode(buf, off)
	if err != nil {
		return 0, err
	}
	if err := d.FixedString.SetValue(stripDashes(d.value)); err != nil {
		return 0, err
	}
	return n, nil
}

func (d *Date) Clone() Field {
	c := d.FixedString.Clone().(*FixedString)
	return &Date{FixedString: *c}
}

func stripDashes(s string) string {
	return strings.ReplaceAll(s, "-", "")
}

// textValue holds an encoded string shared by the delimited text fields.
type textValue struct {
	name    string
	enc     Encoding
	pinned  bool
	value   string
	encoded []byte
	set     bool
}

func (t *textValue) Name() string       { return t.name }
func (t *textValue) IsSet() bool        { return t.set }
func (t *textValue) Value() string      { return t.value }
func (t *textValue) Encoding() Encoding { return t.enc }

// SetValue stores v, rejecting strings the current encoding cannot hold.
func (t *textValue) SetValue(v string) error {
	b, err := t.enc.Encode(v)
	if err != nil {
		return fmt.Errorf("field %s: %w", t.name, err)
	}
	t.value, t.encoded, t.set = v, b, true
	return nil
}

// SetEncoding switches the encoding and re-encodes any value. Pinned
// fields keep ISO-8859-1.
func (t *textValue) SetEncoding(e Encoding) error {
	if t.pinned || e == t.enc {
		return nil
	}
	old := t.enc
	t.enc = e
	if t.set {
		if err := t.SetValue(t.value); err != nil {
			t.enc = old
			return err
		}
	}
	return nil
}

func (t *textValue) decode(raw []byte) error {
	v, err := t.enc.Decode(raw)
	if err != nil {
		return fmt.Errorf("field %s: %w", t.name, err)
	}
	// Each UTF-16 value in a multi-value list carries its own BOM.
	return t.SetValue(strings.ReplaceAll(v, "\x00\ufeff", "\x00"))
}

func (t *textValue) clone() textValue {
	c := *t
	c.encoded = append([]byte(nil), t.encoded...)
	return c
}

// TerminatedString is encoded text followed by a terminator of one byte,
// or two for UTF-16.
type TerminatedString struct {
	textValue
}

// NewTerminatedString returns an unset terminated string in ISO-8859-1.
func NewTerminatedString(name string) *TerminatedString {
	return &TerminatedString{textValue{name: name}}
}

// Latin1 pins the field to ISO-8859-1 regardless of the body encoding.
func (s *TerminatedString) Latin1() *TerminatedString {
	s.enc, s.pinned = Latin1, true
	return s
}

func (s *TerminatedString) MinSize() int { return s.enc.TerminatorLen() }
func (*TerminatedString) sealed()        {}

func (s *TerminatedString) Size() int {
	return len(s.encoded) + s.enc.TerminatorLen()
}

func (s *TerminatedString) Decode(buf []byte, off int) (int, error) {
	term := s.enc.TerminatorLen()
	if err := need(s, buf, off, term); err != nil {
		return 0, err
	}
	i := s.enc.terminatorIndex(buf[off:])
	if i < 0 {
		return 0, &types.BufferTooShortError{Field: s.name, Offset: off, Need: len(buf) - off + term, Have: len(buf) - off}
	}
	if err := s.decode(buf[off : off+i]); err != nil {
		return 0, err
	}
	return i + term, nil
}

func (s *TerminatedString) Encode() ([]byte, error) {
	if !s.set {
		return nil, unset(s)
	}
	out := make([]byte, len(s.encoded), s.Size())
	copy(out, s.encoded)
	return append(out, make([]byte, s.enc.TerminatorLen())...), nil
}

func (s *TerminatedString) Clone() Field {
	return &TerminatedString{s.clone()}
}

// Text is encoded text running to the end of the buffer. Embedded
// terminators separate multiple values (ID3v2.4). One trailing terminator
// is dropped on decode, and written on encode when the last value is
// empty, so ["a", ""] survives a round trip.
type Text struct {
	textValue
}

// NewText returns an unset to-end text field in ISO-8859-1.
func NewText(name string) *Text {
	return &Text{textValue{name: name}}
}

// Latin1 pins the field to ISO-8859-1 regardless of the body encoding.
func (s *Text) Latin1() *Text {
	s.enc, s.pinned = Latin1, true
	return s
}

func (s *Text) MinSize() int { return 0 }
func (s *Text) Size() int    { return len(s.encoded) + s.trailer() }
func (*Text) sealed()        {}

// Values splits the text at embedded terminators.
func (s *Text) Values() []string {
	if s.value == "" {
		return nil
	}
	return strings.Split(s.value, "\x00")
}

// SetValues joins values with NUL separators.
func (s *Text) SetValues(values ...string) error {
	return s.SetValue(strings.Join(values, "\x00"))
}

func (s *Text) Decode(buf []byte, off int) (int, error) {
	if err := need(s, buf, off, 0); err != nil {
		return 0, err
	}
	raw := buf[off:]
	term := s.enc.TerminatorLen()
	if len(raw) >= term && bytes.Equal(raw[len(raw)-term:], make([]byte, term)) {
		raw = raw[:len(raw)-term]
	}
	if err := s.decode(raw); err != nil {
		return 0, err
	}
	return len(buf) - off, nil
}

func (s *Text) Encode() ([]byte, error) {
	if !s.set {
		return nil, unset(s)
	}
	out := append([]byte(nil), s.encoded...)
	return append(out, make([]byte, s.trailer())...), nil
}

func (s *Text) Clone() Field {
	return &Text{s.clone()}
}

// trailer is the terminator written after a value list ending in an
// empty value.
func (s *Text) trailer() int {
	if strings.HasSuffix(s.value, "\x00") {
		return s.enc.TerminatorLen()
	}
	return 0
}

// Binary is raw bytes running to the end of the buffer.
type Binary struct {
	name  string
	value []byte
	set   bool
}

// NewBinary returns an unset binary field.
func NewBinary(name string) *Binary {
	return &Binary{name: name}
}

func (b *Binary) Name() string  { return b.name }
func (b *Binary) Size() int     { return len(b.value) }
func (b *Binary) MinSize() int  { return 0 }
func (b *Binary) IsSet() bool   { return b.set }
func (b *Binary) Value() []byte { return b.value }
func (*Binary) sealed()         {}

// SetValue stores a copy of v.
func (b *Binary) SetValue(v []byte) {
	b.value, b.set = append([]byte{}, v...), true
}

func (b *Binary) Decode(buf []byte, off int) (int, error) {
	if err := need(b, buf, off, 0); err != nil {
		return 0, err
	}
	b.SetValue(buf[off:])
	return len(buf) - off, nil
}

func (b *Binary) Encode() ([]byte, error) {
	if !b.set {
		return nil, unset(b)
	}
	return append([]byte{}, b.value...), nil
}

func (b *Binary) Clone() Field {
	c := *b
	c.value = append([]byte(nil), b.value...)
	return &c
}
