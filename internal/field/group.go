package field

import (
	"errors"
	"fmt"

	"github.com/simonhull/audiotag/internal/types"
)

// Group is a composite field whose size is the sum of its members.
type Group struct {
	name   string
	fields []Field
}

// NewGroup returns a group of the given member prototypes.
func NewGroup(name string, fields ...Field) *Group {
	return &Group{name: name, fields: fields}
}

func (g *Group) Name() string         { return g.name }
func (g *Group) Size() int            { return SizeOf(g.fields) }
func (g *Group) MinSize() int         { return MinSizeOf(g.fields) }
func (g *Group) Fields() []Field      { return g.fields }
func (g *Group) Field(n string) Field { return Find(g.fields, n) }
func (*Group) sealed()                {}

func (g *Group) IsSet() bool {
	for _, f := range g.fields {
		if !f.IsSet() {
			return false
		}
	}
	return true
}

func (g *Group) Decode(buf []byte, off int) (int, error) {
	start := off
	for i, f := range g.fields {
		if rest := MinSizeOf(g.fields[i:]); off+rest > len(buf) {
			return 0, &types.BufferTooShortError{Field: f.Name(), Offset: off, Need: rest, Have: len(buf) - off}
		}
		n, err := f.Decode(buf, off)
		if err != nil {
			return 0, err
		}
		off += n
	}
	return off - start, nil
}

func (g *Group) Encode() ([]byte, error) {
	return EncodeAll(g.name, g.fields)
}

func (g *Group) Clone() Field {
	return &Group{name: g.name, fields: CloneAll(g.fields)}
}

// Repeated replays a template of fields across a byte range, producing
// one instance per record. A range that ends inside a record is an error;
// partial records are never kept.
type Repeated struct {
	name      string
	template  []Field
	instances [][]Field
}

// NewRepeated returns an empty repeated group over the template fields.
// The template values are never modified. It panics on an empty template;
// templates are static tables.
func NewRepeated(name string, template ...Field) *Repeated {
	if len(template) == 0 {
		panic("field: repeated group " + name + " has an empty template")
	}
	return &Repeated{name: name, template: template}
}

func (r *Repeated) Name() string         { return r.name }
func (r *Repeated) MinSize() int         { return 0 }
func (r *Repeated) IsSet() bool          { return true }
func (r *Repeated) Instances() [][]Field { return r.instances }
func (r *Repeated) Len() int             { return len(r.instances) }
func (*Repeated) sealed()                {}

func (r *Repeated) Size() int {
	n := 0
	for _, inst := range r.instances {
		n += SizeOf(inst)
	}
	return n
}

// NewInstance returns a fresh copy of the template for filling in.
func (r *Repeated) NewInstance() []Field {
	return CloneAll(r.template)
}

// Append adds an instance built with NewInstance. Every member must be set.
func (r *Repeated) Append(inst []Field) error {
	if len(inst) != len(r.template) {
		return fmt.Errorf("group %s: instance has %d fields, template has %d", r.name, len(inst), len(r.template))
	}
	for i, f := range inst {
		if f.Name() != r.template[i].Name() {
			return fmt.Errorf("group %s: field %d is %s, want %s", r.name, i, f.Name(), r.template[i].Name())
		}
		if !f.IsSet() {
			return unset(f)
		}
	}
	r.instances = append(r.instances, inst)
	return nil
}

// Decode decodes instances from off to the end of buf.
func (r *Repeated) Decode(buf []byte, off int) (int, error) {
	if err := need(r, buf, off, 0); err != nil {
		return 0, err
	}
	if err := r.DecodeRange(buf, off, len(buf)); err != nil {
		return 0, err
	}
	return len(buf) - off, nil
}

// DecodeRange decodes instances until the offset reaches end exactly.
// Instances decoded before a failure are kept; the failing one is not.
func (r *Repeated) DecodeRange(buf []byte, start, end int) error {
	if start < 0 || end > len(buf) || start > end {
		return &types.BufferTooShortError{Field: r.name, Offset: start, Need: end - start, Have: len(buf) - start}
	}
	r.instances = nil
	if len(r.template) == 0 {
		return fmt.Errorf("group %s: empty template", r.name)
	}
	window := buf[:end]
	off := start
	for off < end {
		inst := CloneAll(r.template)
		truncated := &types.TruncatedGroupError{
			Field:     r.name,
			Instance:  len(r.instances),
			Offset:    off,
			Remaining: end - off,
		}
		if off+MinSizeOf(inst) > end {
			return truncated
		}
		pos := off
		for _, f := range inst {
			n, err := f.Decode(window, pos)
			if err != nil {
				var short *types.BufferTooShortError
				if errors.As(err, &short) {
					return truncated
				}
				return err
			}
			pos += n
		}
		if pos == off {
			return fmt.Errorf("group %s: instance %d at offset %d consumed no bytes", r.name, len(r.instances), off)
		}
		r.instances = append(r.instances, inst)
		off = pos
	}
	return nil
}

func (r *Repeated) Encode() ([]byte, error) {
	out := make([]byte, 0, r.Size())
	for _, inst := range r.instances {
		b, err := EncodeAll(r.name, inst)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (r *Repeated) Clone() Field {
	c := &Repeated{name: r.name, template: r.template}
	for _, inst := range r.instances {
		c.instances = append(c.instances, CloneAll(inst))
	}
	return c
}

// NewTempoEvent is the SYTC record template: a tempo code followed by a
// 4-byte timestamp.
func NewTempoEvent() []Field {
	return []Field{NewTempoCode("Tempo"), NewNumber("Timestamp", 4)}
}

// NewTimingEvent is the ETCO record template: a 1-byte event type followed
// by a 4-byte timestamp.
func NewTimingEvent() []Field {
	return []Field{NewNumber("EventType", 1), NewNumber("Timestamp", 4)}
}
