package ogg

import (
	"bytes"
	"slices"
	"testing"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/vorbis"
)

func TestLastGranule(t *testing.T) {
	last := page(0, 4242, 5, 9, []byte("audio"))

	tests := []struct {
		name   string
		data   []byte
		want   uint64
		wantOK bool
	}{
		{"single page", last, 4242, true},
		{"other stream after", slices.Concat(last, page(0, 1, 6, 0, []byte("x"))), 4242, true},
		{"no granule after", slices.Concat(last, page(0, noGranule, 5, 10, []byte("x"))), 4242, true},
		{"far before end", slices.Concat(last, make([]byte, 100<<10)), 4242, true},
		// The capture pattern straddles the edge of the first window.
		{"split capture", slices.Concat(make([]byte, 100), last, make([]byte, 64<<10+2-len(last))), 4242, true},
		{"beyond scan limit", slices.Concat(last, make([]byte, 2<<20)), 0, false},
		{"no pages", make([]byte, 1000), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := binary.NewSafeReader(bytes.NewReader(tt.data), int64(len(tt.data)), "test.ogg")
			got, ok := lastGranule(sr, 5)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("lastGranule = %d, %v; want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPacketReader(t *testing.T) {
	big := bytes.Repeat([]byte{0xA5}, 510) // ends in a zero lacing value
	data := slices.Concat(
		page(flagFirst, 0, 2, 0, []byte("one"), big),
		page(0, 0, 3, 0, []byte("foreign")),
		page(0, 0, 2, 1, nil, []byte("three")),
	)
	c := binary.NewBytesCursor(data, "test.ogg")
	pr := newPacketReader(c)

	want := [][]byte{[]byte("one"), big, {}, []byte("three")}
	for i, w := range want {
		got, err := pr.next()
		if err != nil {
			t.Fatalf("packet %d: %v", i, err)
		}
		if !bytes.Equal(got, w) {
			t.Errorf("packet %d = %q, want %q", i, got, w)
		}
	}
	if pr.serial != 2 || len(pr.pages) != 2 {
		t.Errorf("serial %d, %d pages; want 2, 2", pr.serial, len(pr.pages))
	}
	if _, err := pr.next(); err == nil {
		t.Error("expected error at end of file")
	}
}

func TestOpusHeadGain(t *testing.T) {
	b := opusHead(2, 0)
	b[16], b[17] = 0x00, 0xFF // -256 in Q7.8
	h, err := readOpusHead(b, "test.opus")
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Gain(); got != -1 {
		t.Errorf("Gain() = %v, want -1", got)
	}
}

func TestDecodePictures(t *testing.T) {
	vc := &vorbis.Comments{Entries: []vorbis.Comment{
		{Key: "TITLE", Value: "x"},
		{Key: pictureKey, Value: "AAAA"}, // valid base64, truncated block
	}}
	pics, warnings := decodePictures(vc, "test.ogg")
	if len(pics) != 0 || len(warnings) != 1 {
		t.Errorf("got %d pictures, %d warnings; want 0, 1", len(pics), len(warnings))
	}
}
