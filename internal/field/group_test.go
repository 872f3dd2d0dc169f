package field

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/simonhull/audiotag/internal/types"
)

func timingEvents(n int) []byte {
	var b []byte
	for i := 0; i < n; i++ {
		b = append(b, byte(i+1), 0x00, 0x00, 0x01, byte(i))
	}
	return b
}

func TestRepeatedDecodeWhole(t *testing.T) {
	r := NewRepeated("Events", NewTimingEvent()...)
	buf := timingEvents(3)

	n, err := r.Decode(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 15 || r.Len() != 3 {
		t.Fatalf("Decode = (%d, %d instances), want (15, 3)", n, r.Len())
	}
	for i, inst := range r.Instances() {
		kind := Find(inst, "EventType").(*Number).Value()
		ts := Find(inst, "Timestamp").(*Number).Value()
		if kind != uint64(i+1) || ts != uint64(0x100+i) {
			t.Errorf("instance %d = (%d, %#x)", i, kind, ts)
		}
	}

	out, err := r.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, buf) {
		t.Errorf("Encode = % x, want % x", out, buf)
	}
}

func TestRepeatedTruncated(t *testing.T) {
	// 17 bytes over a 5-byte record: three whole records and two stray bytes.
	r := NewRepeated("Events", NewTimingEvent()...)
	buf := append(timingEvents(3), 0xAA, 0xBB)

	err := r.DecodeRange(buf, 0, len(buf))

	var trunc *types.TruncatedGroupError
	if !errors.As(err, &trunc) {
		t.Fatalf("error = %v, want TruncatedGroupError", err)
	}
	if trunc.Instance != 3 || trunc.Offset != 15 || trunc.Remaining != 2 {
		t.Errorf("got instance %d offset %d remaining %d, want 3/15/2",
			trunc.Instance, trunc.Offset, trunc.Remaining)
	}
	if r.Len() != 3 {
		t.Errorf("kept %d instances, want 3", r.Len())
	}
}

func TestRepeatedTempoEvents(t *testing.T) {
	// Variable-width first member: 120 bpm, then 300 bpm.
	buf := []byte{
		0x78, 0x00, 0x00, 0x00, 0x10,
		0xFF, 0x2D, 0x00, 0x00, 0x00, 0x20,
	}
	r := NewRepeated("TempoEvents", NewTempoEvent()...)
	if err := r.DecodeRange(buf, 0, len(buf)); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
	if got := Find(r.Instances()[1], "Tempo").(*TempoCode).Value(); got != 300 {
		t.Errorf("second tempo = %d, want 300", got)
	}
	if r.Size() != len(buf) {
		t.Errorf("Size = %d, want %d", r.Size(), len(buf))
	}

	// Escape byte with nothing after it.
	short := []byte{0x78, 0x00, 0x00, 0x00, 0x10, 0xFF}
	var trunc *types.TruncatedGroupError
	if err := r.DecodeRange(short, 0, len(short)); !errors.As(err, &trunc) {
		t.Fatalf("error = %v, want TruncatedGroupError", err)
	}
	if trunc.Instance != 1 {
		t.Errorf("Instance = %d, want 1", trunc.Instance)
	}
}

func TestRepeatedRangeBounds(t *testing.T) {
	r := NewRepeated("Events", NewTimingEvent()...)
	buf := append([]byte{0xEE}, timingEvents(2)...)
	buf = append(buf, 0xEE)

	if err := r.DecodeRange(buf, 1, 11); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}

	if err := r.DecodeRange(buf, 4, 2); err == nil {
		t.Error("inverted range accepted")
	}
	if err := r.DecodeRange(buf, 0, len(buf)+1); err == nil {
		t.Error("range past buffer accepted")
	}
}

func TestRepeatedEmpty(t *testing.T) {
	r := NewRepeated("Events", NewTimingEvent()...)
	if err := r.DecodeRange(nil, 0, 0); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 0 || r.Size() != 0 {
		t.Errorf("Len/Size = %d/%d, want 0/0", r.Len(), r.Size())
	}
}

func TestRepeatedAppend(t *testing.T) {
	r := NewRepeated("Events", NewTimingEvent()...)

	inst := r.NewInstance()
	if err := r.Append(inst); err == nil {
		t.Fatal("Append accepted unset instance")
	}
	_ = Find(inst, "EventType").(*Number).SetValue(3)
	_ = Find(inst, "Timestamp").(*Number).SetValue(1000)
	if err := r.Append(inst); err != nil {
		t.Fatal(err)
	}
	if err := r.Append(inst[:1]); err == nil {
		t.Error("Append accepted short instance")
	}

	got, err := r.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{0x03, 0x00, 0x00, 0x03, 0xE8}; !bytes.Equal(got, want) {
		t.Errorf("Encode = % x, want % x", got, want)
	}

	c := r.Clone().(*Repeated)
	_ = Find(c.Instances()[0], "EventType").(*Number).SetValue(9)
	if Find(r.Instances()[0], "EventType").(*Number).Value() != 3 {
		t.Error("clone shares instances with original")
	}
}

func TestTemplateNotModified(t *testing.T) {
	tmpl := NewTimingEvent()
	r := NewRepeated("Events", tmpl...)
	if _, err := r.Decode(timingEvents(2), 0); err != nil {
		t.Fatal(err)
	}
	for _, f := range tmpl {
		if f.IsSet() {
			t.Errorf("template field %s was set by decode", f.Name())
		}
	}
}

func TestRepeatedZeroWidth(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewRepeated with an empty template did not panic")
		}
	}()

	done := make(chan error, 1)
	go func() {
		r := NewRepeated("Nothing", NewGroup("Empty"))
		done <- r.DecodeRange([]byte{1, 2, 3}, 0, 3)
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Error("zero-width instance decoded without error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("DecodeRange did not return on a zero-width instance")
	}

	if err := (&Repeated{name: "Bare"}).DecodeRange([]byte{1}, 0, 1); err == nil {
		t.Error("DecodeRange on an empty template did not fail")
	}
	NewRepeated("Empty")
}

func TestGroup(t *testing.T) {
	g := NewGroup("Event", NewTimingEvent()...)
	if g.MinSize() != 5 {
		t.Errorf("MinSize = %d, want 5", g.MinSize())
	}
	n, err := g.Decode([]byte{0x02, 0x00, 0x00, 0x00, 0x05, 0xFF}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || !g.IsSet() {
		t.Errorf("Decode = %d, set=%v", n, g.IsSet())
	}
	if g.Field("Timestamp").(*Number).Value() != 5 {
		t.Errorf("Timestamp = %d", g.Field("Timestamp").(*Number).Value())
	}

	_, err = NewGroup("Event", NewTimingEvent()...).Decode([]byte{0x02, 0x00}, 0)
	var short *types.BufferTooShortError
	if !errors.As(err, &short) {
		t.Errorf("error = %v, want BufferTooShortError", err)
	}
}

func TestEncodeAllSizes(t *testing.T) {
	enc := NewNumber("TextEncoding", 1).WithRange(0, MaxEncoding)
	_ = enc.SetValue(uint64(UTF16))
	desc := NewTerminatedString("Description")
	_ = desc.SetEncoding(UTF16)
	_ = desc.SetValue("d")
	val := NewText("Value")
	_ = val.SetEncoding(UTF16)
	_ = val.SetValue("v")
	fields := []Field{enc, desc, val}

	b, err := EncodeAll("TXXX", fields)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != SizeOf(fields) {
		t.Errorf("encoded %d, SizeOf %d", len(b), SizeOf(fields))
	}
}
