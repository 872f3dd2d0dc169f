package field

import (
	"fmt"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/types"
)

// Number is a fixed-width unsigned integer with a declared domain.
type Number struct {
	name  string
	width int
	order binary.Endianness
	min   uint64
	max   uint64
	value uint64
	set   bool
}

// NewNumber returns a big-endian number of width bytes (1..8) accepting
// every value the width can hold.
func NewNumber(name string, width int) *Number {
	if width < 1 || width > 8 {
		panic(fmt.Sprintf("field: number %s width %d outside 1..8", name, width))
	}
	return &Number{name: name, width: width, max: maxForWidth(width)}
}

// WithRange restricts the accepted values to [min, max].
func (n *Number) WithRange(lo, hi uint64) *Number {
	n.min, n.max = lo, hi
	return n
}

// LittleEndian switches the byte order.
func (n *Number) LittleEndian() *Number {
	n.order = binary.LittleEndian
	return n
}

func (n *Number) Name() string  { return n.name }
func (n *Number) Size() int     { return n.width }
func (n *Number) MinSize() int  { return n.width }
func (n *Number) IsSet() bool   { return n.set }
func (n *Number) Value() uint64 { return n.value }
func (*Number) sealed()         {}

// SetValue stores v, rejecting values outside the declared range.
func (n *Number) SetValue(v uint64) error {
	if err := n.check(v); err != nil {
		return err
	}
	n.value, n.set = v, true
	return nil
}

func (n *Number) check(v uint64) error {
	if v < n.min || v > n.max {
		return &types.OutOfRangeValueError{Field: n.name, Value: v, Min: n.min, Max: n.max}
	}
	return nil
}

func (n *Number) Decode(buf []byte, off int) (int, error) {
	if err := need(n, buf, off, n.width); err != nil {
		return 0, err
	}
	v := binary.Uint(buf[off:off+n.width], n.order)
	if err := n.check(v); err != nil {
		return 0, err
	}
	n.value, n.set = v, true
	return n.width, nil
}

func (n *Number) Encode() ([]byte, error) {
	if !n.set {
		return nil, unset(n)
	}
	b := make([]byte, n.width)
	binary.PutUint(b, n.value, n.order)
	return b, nil
}

func (n *Number) Clone() Field {
	c := *n
	return &c
}

func maxForWidth(width int) uint64 {
	if width >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(width)) - 1
}

// MaxTempo is the largest value a TempoCode holds.
const MaxTempo = 510

// TempoCode is the SYTC beats-per-minute code: values below 255 take one
// byte, 255..510 take 0xFF followed by value-255. The width is derived from
// the value alone.
type TempoCode struct {
	name  string
	value uint16
	set   bool
}

// NewTempoCode returns an unset tempo code.
func NewTempoCode(name string) *TempoCode {
	return &TempoCode{name: name}
}

func (t *TempoCode) Name() string  { return t.name }
func (t *TempoCode) MinSize() int  { return 1 }
func (t *TempoCode) IsSet() bool   { return t.set }
func (t *TempoCode) Value() uint16 { return t.value }
func (*TempoCode) sealed()         {}

func (t *TempoCode) Size() int {
	if t.set && t.value >= 0xFF {
		return 2
	}
	return 1
}

// SetValue stores v, rejecting values above MaxTempo.
func (t *TempoCode) SetValue(v uint16) error {
	if v > MaxTempo {
		return &types.OutOfRangeValueError{Field: t.name, Value: uint64(v), Max: MaxTempo}
	}
	t.value, t.set = v, true
	return nil
}

func (t *TempoCode) Decode(buf []byte, off int) (int, error) {
	if err := need(t, buf, off, 1); err != nil {
		return 0, err
	}
	if buf[off] != 0xFF {
		t.value, t.set = uint16(buf[off]), true
		return 1, nil
	}
	if err := need(t, buf, off, 2); err != nil {
		return 0, err
	}
	t.value, t.set = 0xFF+uint16(buf[off+1]), true
	return 2, nil
}

func (t *TempoCode) Encode() ([]byte, error) {
	if !t.set {
		return nil, unset(t)
	}
	if t.value < 0xFF {
		return []byte{byte(t.value)}, nil
	}
	return []byte{0xFF, byte(t.value - 0xFF)}, nil
}

func (t *TempoCode) Clone() Field {
	c := *t
	return &c
}

// Synchsafe is a fixed-width synchsafe integer (7 bits per byte).
type Synchsafe struct {
	name  string
	width int
	value uint32
	set   bool
}

// NewSynchsafe returns a synchsafe integer of width bytes (1..4).
func NewSynchsafe(name string, width int) *Synchsafe {
	if width < 1 || width > 4 {
		panic(fmt.Sprintf("field: synchsafe %s width %d outside 1..4", name, width))
	}
	return &Synchsafe{name: name, width: width}
}

func (s *Synchsafe) Name() string  { return s.name }
func (s *Synchsafe) Size() int     { return s.width }
func (s *Synchsafe) MinSize() int  { return s.width }
func (s *Synchsafe) IsSet() bool   { return s.set }
func (s *Synchsafe) Value() uint32 { return s.value }
func (*Synchsafe) sealed()         {}

// SetValue stores v, rejecting values that need more than 7 bits per byte.
func (s *Synchsafe) SetValue(v uint32) error {
	if limit := uint64(1)<<(7*uint(s.width)) - 1; uint64(v) > limit {
		return &types.OutOfRangeValueError{Field: s.name, Value: uint64(v), Max: limit}
	}
	s.value, s.set = v, true
	return nil
}

func (s *Synchsafe) Decode(buf []byte, off int) (int, error) {
	if err := need(s, buf, off, s.width); err != nil {
		return 0, err
	}
	v, err := binary.DecodeSynchsafe(buf[off : off+s.width])
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", s.name, err)
	}
	s.value, s.set = v, true
	return s.width, nil
}

func (s *Synchsafe) Encode() ([]byte, error) {
	if !s.set {
		return nil, unset(s)
	}
	return binary.EncodeSynchsafe(s.value, s.width)
}

func (s *Synchsafe) Clone() Field {
	c := *s
	return &c
}
