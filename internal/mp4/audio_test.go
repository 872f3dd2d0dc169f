package mp4

import (
	"errors"
	"slices"
	"testing"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/types"
)

func TestCodec(t *testing.T) {
	tests := []struct {
		format     string
		objectType uint64
		want       string
	}{
		{"mp4a", 0, "AAC"},
		{"mp4a", 2, "AAC"},
		{"mp4a", 5, "HE-AAC"},
		{"mp4a", 29, "HE-AAC v2"},
		{"alac", 0, "Apple Lossless"},
		{"fLaC", 0, "FLAC"},
		{"ec-3", 0, "E-AC-3"},
		{"zzzz", 0, "zzzz"},
	}
	for _, tt := range tests {
		e := &SampleEntry{Format: tt.format, ObjectType: tt.objectType}
		if got := e.Codec(); got != tt.want {
			t.Errorf("Codec(%s, %d) = %q, want %q", tt.format, tt.objectType, got, tt.want)
		}
	}
}

// readESDSBox runs readESDS on a box built by esds or by hand.
func readESDSBox(b []byte) (*SampleEntry, error) {
	e := &SampleEntry{Format: "mp4a"}
	err := e.readESDS(container.Header{ID: "esds"}, binary.NewBytesCursor(b[8:], "esds"))
	return e, err
}

func TestReadESDS(t *testing.T) {
	tests := []struct {
		name        string
		box         []byte
		wantType    uint64
		wantBitrate uint32
	}{
		{"AAC-LC", esds(96000, []byte{0x12, 0x10}), 2, 96000},
		{"HE-AAC", esds(48000, []byte{0x2A, 0x10}), 5, 48000},
		{"escaped object type", esds(0, []byte{0xF9, 0x40, 0x00}), 42, 0},
		{
			// Four-byte descriptor lengths and an ES_Descriptor with
			// streamDependence and OCRstream set.
			"long form lengths",
			fullBox("esds", 0,
				[]byte{0x03, 0x80, 0x80, 0x80, 32, 0, 1, 0xA0, 0, 2, 0, 3},
				[]byte{0x04, 0x80, 0x80, 0x80, 20, 0x40, 0x15, 0, 0, 0},
				be32(256000), be32(192000),
				[]byte{0x05, 0x80, 0x80, 0x80, 2, 0x12, 0x10},
			),
			2, 192000,
		},
		{
			"no decoder specific info",
			fullBox("esds", 0,
				[]byte{0x03, 18, 0, 1, 0},
				[]byte{0x04, 13, 0x40, 0x15, 0, 0, 0},
				be32(0), be32(64000),
			),
			0, 64000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := readESDSBox(tt.box)
			if err != nil {
				t.Fatalf("readESDS: %v", err)
			}
			if e.ObjectType != tt.wantType || e.AvgBitrate != tt.wantBitrate {
				t.Errorf("object type %d bitrate %d, want %d and %d", e.ObjectType, e.AvgBitrate, tt.wantType, tt.wantBitrate)
			}
		})
	}
}

func TestReadESDSErrors(t *testing.T) {
	t.Run("wrong tag", func(t *testing.T) {
		if _, err := readESDSBox(fullBox("esds", 0, []byte{0x04, 0})); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("length past end", func(t *testing.T) {
		_, err := readESDSBox(fullBox("esds", 0, []byte{0x03, 40, 0, 1, 0}))
		var short *types.BufferTooShortError
		if !errors.As(err, &short) {
			t.Errorf("err = %v, want BufferTooShortError", err)
		}
	})
	t.Run("short decoder config", func(t *testing.T) {
		_, err := readESDSBox(fullBox("esds", 0, []byte{0x03, 7, 0, 1, 0, 0x04, 2, 0x40, 0x15}))
		var short *types.BufferTooShortError
		if !errors.As(err, &short) || short.Field != "DecoderConfigDescriptor" {
			t.Errorf("err = %v, want short DecoderConfigDescriptor", err)
		}
	})
}

func TestReadSampleDescriptionVersions(t *testing.T) {
	// QuickTime version 1 entries carry 16 extra bytes before the children.
	v1 := sampleEntry("mp4a", 2, 16, 22050, make([]byte, 16), esds(32000, []byte{0x13, 0x88}))
	v1[8+8+1] = 1 // version field

	data := slices.Concat(ftyp("M4A "), box("moov", mvhd(600, 600), track("soun", v1)))
	f := parse(t, data)
	m := f.Native_.(*Movie)
	if m.Audio == nil {
		t.Fatal("no sample entry")
	}
	if m.Audio.SampleRate != 22050 || m.Audio.AvgBitrate != 32000 || m.Audio.ObjectType != 2 {
		t.Errorf("entry = %+v", m.Audio)
	}
	if len(f.Warnings) != 0 {
		t.Errorf("warnings = %v", f.Warnings)
	}
}
