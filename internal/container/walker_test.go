package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	kbinary "github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/types"
)

// riffChunk builds a RIFF chunk with its pad byte.
func riffChunk(id string, payload []byte) []byte {
	b := make([]byte, 8, 8+len(payload)+1)
	copy(b, id)
	binary.LittleEndian.PutUint32(b[4:], uint32(len(payload)))
	b = append(b, payload...)
	if len(payload)%2 == 1 {
		b = append(b, 0)
	}
	return b
}

// box builds an MP4 box.
func box(typ string, children ...[]byte) []byte {
	payload := bytes.Join(children, nil)
	b := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(b, uint32(8+len(payload)))
	copy(b[4:], typ)
	return append(b, payload...)
}

func cursor(data []byte) *kbinary.Cursor {
	return kbinary.NewBytesCursor(data, "test")
}

func consume(h Header, c *kbinary.Cursor) error {
	_, err := c.Rest(h.ID)
	return err
}

func TestWalk_AlignmentAfterOddPayload(t *testing.T) {
	data := bytes.Join([][]byte{
		riffChunk("fmt ", make([]byte, 16)),
		riffChunk("data", make([]byte, 1001)),
		riffChunk("JUNK", make([]byte, 7)),
		riffChunk("fact", make([]byte, 4)),
	}, nil)

	w := NewWalker(RIFF)
	w.Require("fmt ", consume)
	w.Require("data", consume)

	nodes, err := w.Walk(cursor(data), 0, int64(len(data)))
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(nodes) != 4 {
		t.Fatalf("Walk() visited %d chunks, want 4", len(nodes))
	}

	// Naive start+length for JUNK would be 8+16+8+1001 = 1033.
	wantOffsets := []int64{0, 24, 1034, 1050}
	for i, n := range nodes {
		if n.Offset != wantOffsets[i] {
			t.Errorf("chunk %q at offset %d, want %d", n.ID, n.Offset, wantOffsets[i])
		}
	}
}

func TestWalk_EvenPayloadNeedsNoPad(t *testing.T) {
	data := bytes.Join([][]byte{
		riffChunk("fmt ", make([]byte, 16)),
		riffChunk("data", make([]byte, 1000)),
		riffChunk("JUNK", make([]byte, 7)),
	}, nil)

	w := NewWalker(RIFF)
	w.Require("fmt ", consume)
	w.Require("data", consume)

	nodes, err := w.Walk(cursor(data), 0, int64(len(data)))
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if got := nodes[2].Offset; got != 1032 {
		t.Errorf("JUNK at offset %d, want 1032", got)
	}
	if nodes[2].Handled {
		t.Error("JUNK should be skipped, not handled")
	}
}

func TestWalk_MissingFinalPadTolerated(t *testing.T) {
	data := riffChunk("JUNK", []byte{1, 2, 3})
	data = data[:len(data)-1]

	nodes, err := NewWalker(RIFF).Walk(cursor(data), 0, int64(len(data)))
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(nodes) != 1 {
		t.Errorf("Walk() visited %d chunks, want 1", len(nodes))
	}
}

func TestWalk_VisitsEveryBoundary(t *testing.T) {
	ids := []string{"fmt ", "bext", "data", "cue ", "smpl", "JUNK", "PAD "}
	var parts [][]byte
	for i, id := range ids {
		parts = append(parts, riffChunk(id, bytes.Repeat([]byte{byte(i)}, i+3)))
	}
	data := bytes.Join(parts, nil)

	var handled []string
	w := NewWalker(RIFF)
	for _, id := range []string{"fmt ", "data"} {
		w.Handle(id, func(h Header, c *kbinary.Cursor) error {
			handled = append(handled, h.ID)
			return consume(h, c)
		})
	}

	nodes, err := w.Walk(cursor(data), 0, int64(len(data)))
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(nodes) != len(ids) {
		t.Fatalf("Walk() visited %d chunks, want %d", len(nodes), len(ids))
	}
	for i, n := range nodes {
		if n.ID != ids[i] {
			t.Errorf("chunk %d = %q, want %q", i, n.ID, ids[i])
		}
		if want := n.ID == "fmt " || n.ID == "data"; n.Handled != want {
			t.Errorf("chunk %q Handled = %v, want %v", n.ID, n.Handled, want)
		}
	}
	if strings.Join(handled, ",") != "fmt ,data" {
		t.Errorf("handled = %v", handled)
	}
}

func TestWalk_OverlongUnknownChunkNotClamped(t *testing.T) {
	junk := riffChunk("JUNK", make([]byte, 7))
	binary.LittleEndian.PutUint32(junk[4:], 5000)
	data := append(riffChunk("fmt ", make([]byte, 16)), junk...)

	w := NewWalker(RIFF)
	w.Handle("fmt ", consume)
	nodes, err := w.Walk(cursor(data), 0, int64(len(data)))

	var sizeErr *types.InvalidChunkSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("Walk() error = %v, want *types.InvalidChunkSizeError", err)
	}
	if sizeErr.ID != "JUNK" || sizeErr.Offset != 24 || sizeErr.Declared != 5000 || sizeErr.Available != 8 {
		t.Errorf("InvalidChunkSizeError = %+v", sizeErr)
	}
	if len(nodes) != 1 {
		t.Errorf("nodes before failure = %d, want 1", len(nodes))
	}
}

func TestWalk_TruncatedHeader(t *testing.T) {
	data := append(riffChunk("fmt ", make([]byte, 16)), 'J', 'U', 'N')

	_, err := NewWalker(RIFF).Walk(cursor(data), 0, int64(len(data)))

	var hdrErr *types.CorruptHeaderError
	if !errors.As(err, &hdrErr) {
		t.Fatalf("Walk() error = %v, want *types.CorruptHeaderError", err)
	}
	if hdrErr.Offset != 24 || hdrErr.Need != 8 || hdrErr.Have != 3 {
		t.Errorf("CorruptHeaderError = %+v", hdrErr)
	}
}

func TestWalk_RequiredChunkMissing(t *testing.T) {
	data := riffChunk("fmt ", make([]byte, 16))

	w := NewWalker(RIFF)
	w.Require("fmt ", consume)
	w.Require("data", consume)

	_, err := w.Walk(cursor(data), 0, int64(len(data)))

	var missing *types.RequiredChunkMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("Walk() error = %v, want *types.RequiredChunkMissingError", err)
	}
	if missing.ID != "data" {
		t.Errorf("missing ID = %q, want %q", missing.ID, "data")
	}
}

func TestWalk_HandlerFailurePolicy(t *testing.T) {
	data := bytes.Join([][]byte{
		riffChunk("bext", make([]byte, 10)),
		riffChunk("fmt ", make([]byte, 16)),
	}, nil)
	failure := errors.New("bad payload")
	fail := func(Header, *kbinary.Cursor) error { return failure }

	t.Run("optional handler becomes warning", func(t *testing.T) {
		w := NewWalker(RIFF)
		w.Handle("bext", fail)
		w.Handle("fmt ", consume)

		nodes, err := w.Walk(cursor(data), 0, int64(len(data)))
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		if len(w.Warnings) != 1 || w.Warnings[0].Offset != 0 {
			t.Errorf("Warnings = %v, want one at offset 0", w.Warnings)
		}
		if nodes[0].Handled || !nodes[1].Handled {
			t.Errorf("Handled = %v, %v; want false, true", nodes[0].Handled, nodes[1].Handled)
		}
	})

	t.Run("warnings start empty on each walk", func(t *testing.T) {
		w := NewWalker(RIFF)
		w.Handle("bext", fail)

		for i := range 2 {
			if _, err := w.Walk(cursor(data), 0, int64(len(data))); err != nil {
				t.Fatalf("Walk() #%d error = %v", i+1, err)
			}
			if len(w.Warnings) != 1 {
				t.Errorf("Walk() #%d Warnings = %v, want one", i+1, w.Warnings)
			}
		}
	})

	t.Run("required handler aborts", func(t *testing.T) {
		w := NewWalker(RIFF)
		w.Require("fmt ", fail)

		_, err := w.Walk(cursor(data), 0, int64(len(data)))

		var chunkErr *types.ChunkError
		if !errors.As(err, &chunkErr) {
			t.Fatalf("Walk() error = %v, want *types.ChunkError", err)
		}
		if chunkErr.ID != "fmt " || chunkErr.Offset != 18 || !errors.Is(err, failure) {
			t.Errorf("ChunkError = %+v", chunkErr)
		}
	})
}

func TestWalk_StrictRequiresFullConsumption(t *testing.T) {
	data := riffChunk("fmt ", make([]byte, 16))

	w := NewWalker(RIFF)
	w.Handle("fmt ", func(h Header, c *kbinary.Cursor) error {
		_, err := c.Read(14, "partial")
		return err
	})

	_, err := w.Walk(cursor(data), 0, int64(len(data)))

	var sizeErr *types.InvalidChunkSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("Walk() error = %v, want *types.InvalidChunkSizeError", err)
	}
	if !strings.Contains(sizeErr.Reason, "2 bytes unconsumed") {
		t.Errorf("Reason = %q", sizeErr.Reason)
	}
}

func TestWalk_HandlerViewIsBounded(t *testing.T) {
	data := bytes.Join([][]byte{
		riffChunk("fmt ", make([]byte, 16)),
		riffChunk("data", make([]byte, 4)),
	}, nil)

	w := NewWalker(RIFF)
	w.Handle("fmt ", func(h Header, c *kbinary.Cursor) error {
		if c.Size() != 16 {
			t.Errorf("view size = %d, want 16", c.Size())
		}
		_, err := c.Read(20, "overrun")
		return err
	})

	if _, err := w.Walk(cursor(data), 0, int64(len(data))); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(w.Warnings) != 1 {
		t.Errorf("overrunning handler should produce a warning, got %v", w.Warnings)
	}
}

func TestWalk_FailUnknown(t *testing.T) {
	data := riffChunk("JUNK", make([]byte, 4))

	w := NewWalker(RIFF)
	w.Unknown = FailUnknown
	_, err := w.Walk(cursor(data), 0, int64(len(data)))

	if !errors.Is(err, ErrUnknownChunk) {
		t.Errorf("Walk() error = %v, want ErrUnknownChunk", err)
	}
}

func TestWalk_NestedBoxes(t *testing.T) {
	data := box("moov",
		box("mvhd", make([]byte, 100)),
		box("udta",
			box("meta", []byte{0, 0, 0, 0},
				box("hdlr", make([]byte, 25)),
				box("ilst",
					box("\xa9nam", box("data", []byte{0, 0, 0, 1, 0, 0, 0, 0}, []byte("Title"))),
					box("trkn", box("data", make([]byte, 16))),
				),
			),
		),
	)
	data = append(box("ftyp", []byte("M4A ")), data...)

	var items []string
	w := NewWalker(MP4)
	w.Handle("data", func(h Header, c *kbinary.Cursor) error {
		items = append(items, h.Parent)
		return consume(h, c)
	})

	nodes, err := w.Walk(cursor(data), 0, int64(len(data)))
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(nodes) != 2 || nodes[1].ID != "moov" {
		t.Fatalf("top level = %d nodes", len(nodes))
	}

	moov := nodes[1]
	if len(moov.Children) != 2 || moov.Children[1].ID != "udta" {
		t.Fatalf("moov children = %+v", moov.Children)
	}
	meta := moov.Children[1].Children[0]
	if meta.ID != "meta" || len(meta.Children) != 2 {
		t.Fatalf("meta = %q with %d children", meta.ID, len(meta.Children))
	}
	if got := meta.Children[0].Offset; got != meta.PayloadOffset()+4 {
		t.Errorf("hdlr offset = %d, want %d", got, meta.PayloadOffset()+4)
	}
	if strings.Join(items, ",") != "©nam,trkn" {
		t.Errorf("data parents = %q, want ©nam,trkn", items)
	}
}

func TestWalk_NestedBoxSmallerThanHeader(t *testing.T) {
	child := box("free")
	binary.BigEndian.PutUint32(child, 4)
	data := box("moov", child, make([]byte, 8))

	_, err := NewWalker(MP4).Walk(cursor(data), 0, int64(len(data)))

	var sizeErr *types.InvalidChunkSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("Walk() error = %v, want *types.InvalidChunkSizeError", err)
	}
	if sizeErr.ID != "free" || sizeErr.Offset != 8 || sizeErr.Declared != 4 {
		t.Errorf("InvalidChunkSizeError = %+v", sizeErr)
	}
}

func TestWalk_ChildEscapingParent(t *testing.T) {
	child := box("mvhd", make([]byte, 8))
	binary.BigEndian.PutUint32(child, 40)
	data := append(box("moov", child), box("free", make([]byte, 40))...)

	_, err := NewWalker(MP4).Walk(cursor(data), 0, int64(len(data)))

	var sizeErr *types.InvalidChunkSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("Walk() error = %v, want *types.InvalidChunkSizeError", err)
	}
	if sizeErr.ID != "mvhd" || sizeErr.Available != 8 {
		t.Errorf("InvalidChunkSizeError = %+v", sizeErr)
	}
}

func TestWalk_StopAfterLastBlock(t *testing.T) {
	block := func(typ byte, last bool, n int) []byte {
		b := []byte{typ, 0, 0, byte(n)}
		if last {
			b[0] |= 0x80
		}
		return append(b, make([]byte, n)...)
	}
	data := bytes.Join([][]byte{
		block(0, false, 34),
		block(4, false, 10),
		block(1, true, 6),
		{0xFF, 0xF8, 0x00}, // audio frames follow
	}, nil)

	w := NewWalker(FLACBlock)
	w.Require("0", consume)
	w.Stop = func(h Header) bool { return h.Raw[0]&0x80 != 0 }

	nodes, err := w.Walk(cursor(data), 0, int64(len(data)))
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	if strings.Join(ids, ",") != "0,4,1" {
		t.Errorf("ids = %v, want [0 4 1]", ids)
	}
	if end := nodes[len(nodes)-1].End(); end != int64(len(data)-3) {
		t.Errorf("audio offset = %d, want %d", end, len(data)-3)
	}
}

func TestWalk_StopsAtID3Padding(t *testing.T) {
	frame := append([]byte("TIT2\x00\x00\x00\x03\x00\x00"), 0, 'H', 'i')
	data := append(frame, make([]byte, 64)...)

	var got []string
	w := NewWalker(ID3v23Frame)
	w.Match = func(id string) (Handler, bool) {
		return Handler{Fn: func(h Header, c *kbinary.Cursor) error {
			got = append(got, h.ID)
			return consume(h, c)
		}}, true
	}

	if _, err := w.Walk(cursor(data), 0, int64(len(data))); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(got) != 1 || got[0] != "TIT2" {
		t.Errorf("frames = %v, want [TIT2]", got)
	}
}

func TestWalk_LogsVisits(t *testing.T) {
	data := bytes.Join([][]byte{
		riffChunk("fmt ", make([]byte, 16)),
		riffChunk("JUNK", make([]byte, 3)),
	}, nil)

	var buf bytes.Buffer
	w := NewWalker(RIFF)
	w.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	w.Handle("fmt ", consume)

	if _, err := w.Walk(cursor(data), 0, int64(len(data))); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"id":"fmt "`, `"message":"chunk"`, `"id":"JUNK"`, `"message":"skip"`, `"offset":24`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}
