package mp4

import (
	"bytes"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/simonhull/audiotag/internal/registry"
	"github.com/simonhull/audiotag/internal/types"
)

// box builds a box; id is written byte for byte, so "\xa9nam" is ©nam.
func box(id string, payloads ...[]byte) []byte {
	body := bytes.Join(payloads, nil)
	out := be32(uint32(8 + len(body)))
	out = append(out, id...)
	return append(out, body...)
}

func fullBox(id string, version byte, payloads ...[]byte) []byte {
	return box(id, append([]byte{version, 0, 0, 0}, bytes.Join(payloads, nil)...))
}

func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func be16(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

func mvhd(timescale, duration uint32) []byte {
	return fullBox("mvhd", 0, make([]byte, 8), be32(timescale), be32(duration), make([]byte, 80))
}

func mvhd64(timescale uint32, duration uint64) []byte {
	return fullBox("mvhd", 1, make([]byte, 16), be32(timescale), be32(uint32(duration>>32)), be32(uint32(duration)), make([]byte, 80))
}

func hdlr(handler string) []byte {
	return fullBox("hdlr", 0, make([]byte, 4), []byte(handler), make([]byte, 12), []byte("handler\x00"))
}

// sampleEntry builds a version 0 audio sample entry.
func sampleEntry(format string, channels, sampleSize uint16, rate uint32, children ...[]byte) []byte {
	// reserved, data reference index, version, revision, vendor
	fixed := slices.Concat(make([]byte, 6), be16(1), make([]byte, 8))
	return box(format,
		fixed,
		be16(channels), be16(sampleSize),
		make([]byte, 4), // compression id, packet size
		be32(rate<<16),
		bytes.Join(children, nil),
	)
}

func stsd(entry []byte) []byte {
	return fullBox("stsd", 0, be32(1), entry)
}

// esds builds an elementary stream descriptor with the given average
// bitrate and AudioSpecificConfig.
func esds(avgBitrate uint32, asc []byte) []byte {
	dsi := append([]byte{0x05, byte(len(asc))}, asc...)
	dc := append([]byte{0x40, 0x15, 0, 0, 0}, be32(avgBitrate)...)
	dc = append(dc, be32(avgBitrate)...)
	dc = append(append([]byte{0x04, byte(len(dc) + len(dsi))}, dc...), dsi...)
	es := append([]byte{0x03, byte(3 + len(dc)), 0, 1, 0}, dc...)
	return fullBox("esds", 0, es)
}

func track(handler string, entry []byte) []byte {
	return box("trak", box("mdia", hdlr(handler), box("minf", box("stbl", stsd(entry)))))
}

func item(id string, typ uint32, value []byte) []byte {
	return box(id, box("data", be32(typ), make([]byte, 4), value))
}

func freeformItem(mean, name, value string) []byte {
	return box("----",
		fullBox("mean", 0, []byte(mean)),
		fullBox("name", 0, []byte(name)),
		box("data", be32(typeUTF8), make([]byte, 4), []byte(value)),
	)
}

func ilst(items ...[]byte) []byte {
	return box("udta", fullBox("meta", 0, hdlr("mdir"), box("ilst", items...)))
}

func ftyp(brand string) []byte {
	return box("ftyp", []byte(brand), be32(0), []byte("isomM4A "))
}

func parse(t *testing.T, data []byte) *types.File {
	t.Helper()
	f, err := (parser{}).Parse(bytes.NewReader(data), int64(len(data)), "test.m4a", zerolog.Nop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

func TestParse(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}
	data := slices.Concat(
		ftyp("M4A "),
		box("moov",
			mvhd(1000, 2500),
			track("vide", sampleEntry("avc1", 0, 0, 0)),
			track("soun", sampleEntry("mp4a", 2, 16, 44100, esds(128000, []byte{0x12, 0x10}))),
			ilst(
				item("\xa9nam", typeUTF8, []byte("Title")),
				item("\xa9ART", typeUTF16, []byte{0, 'B', 0, 'j', 0, 0xF6, 0, 'r', 0, 'k'}),
				item("trkn", typeImplicit, []byte{0, 0, 0, 3, 0, 12, 0, 0}),
				item("disk", typeImplicit, []byte{0, 0, 0, 1, 0, 0}),
				item("gnre", typeImplicit, []byte{0, 17}),
				item("tmpo", typeSigned, []byte{0, 120}),
				item("rtng", typeSigned, []byte{0xFF}),
				item("plID", typeUnsigned, []byte{0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}),
				item("covr", typeJPEG, jpeg),
				freeformItem("com.apple.iTunes", "MOOD", "calm\x00"),
			),
		),
		box("mdat", make([]byte, 100)),
	)

	f := parse(t, data)
	if f.Format != types.FormatM4A {
		t.Errorf("format = %v, want M4A", f.Format)
	}
	if len(f.Warnings) != 0 {
		t.Errorf("warnings = %v", f.Warnings)
	}

	want := map[string]string{
		"©nam":                       "Title",
		"©ART":                       "Björk",
		"trkn":                       "3/12",
		"disk":                       "1",
		"gnre":                       "17",
		"tmpo":                       "120",
		"rtng":                       "-1",
		"plID":                       "4294967295",
		"----:com.apple.iTunes:MOOD": "calm",
	}
	if f.Tags.Len() != len(want) {
		t.Errorf("tags = %q, want %d keys", f.Tags.Keys(), len(want))
	}
	for k, v := range want {
		if got := f.Tags.GetFirst(k); got != v {
			t.Errorf("tag %q = %q, want %q", k, got, v)
		}
	}

	m := f.Native_.(*Movie)
	if art := m.Artwork(); len(art) != 1 || !bytes.Equal(art[0].Data, jpeg) || art[0].MIME != "image/jpeg" {
		t.Errorf("artwork = %v", art)
	}

	wantAudio := types.AudioInfo{
		Codec:      "AAC",
		Container:  "MP4",
		Duration:   2500 * time.Millisecond,
		SampleRate: 44100,
		Channels:   2,
		Bitrate:    128000,
	}
	if f.Audio != wantAudio {
		t.Errorf("audio = %+v\nwant    %+v", f.Audio, wantAudio)
	}

	var ids []string
	for _, c := range f.Chunks {
		ids = append(ids, c.ID)
	}
	if want := []string{"ftyp", "moov", "mdat"}; !slices.Equal(ids, want) {
		t.Errorf("chunks = %q, want %q", ids, want)
	}
}

func TestParseAudiobook(t *testing.T) {
	data := slices.Concat(
		ftyp("M4B "),
		box("moov",
			mvhd64(44100, 3*44100),
			track("soun", sampleEntry("alac", 2, 24, 48000)),
		),
		box("mdat", make([]byte, 200)),
	)
	f := parse(t, data)
	if f.Format != types.FormatM4B {
		t.Errorf("format = %v, want M4B", f.Format)
	}
	want := types.AudioInfo{
		Codec:      "Apple Lossless",
		Container:  "MP4",
		Duration:   3 * time.Second,
		SampleRate: 48000,
		BitDepth:   24,
		Channels:   2,
		Bitrate:    int(float64(len(data)) * 8 / 3),
		Lossless:   true,
	}
	if f.Audio != want {
		t.Errorf("audio = %+v\nwant    %+v", f.Audio, want)
	}
	if f.Tags.Len() != 0 {
		t.Errorf("tags = %q, want none", f.Tags.Keys())
	}
}

func TestParseWarnings(t *testing.T) {
	data := slices.Concat(
		ftyp("M4A "),
		box("moov",
			mvhd(1000, 1000),
			ilst(
				item("trkn", typeImplicit, []byte{0, 0, 3}),
				item("\xa9alb", typeUTF8, []byte("Album")),
			),
		),
	)
	f := parse(t, data)
	if len(f.Warnings) != 1 || f.Warnings[0].Stage != "container" {
		t.Errorf("warnings = %v, want one container warning", f.Warnings)
	}
	if got := f.Tags.GetFirst("©alb"); got != "Album" {
		t.Errorf("album = %q", got)
	}
	if f.Tags.Has("trkn") {
		t.Error("broken trkn was kept")
	}
}

func TestParseErrors(t *testing.T) {
	t.Run("no moov", func(t *testing.T) {
		data := slices.Concat(ftyp("M4A "), box("mdat", make([]byte, 4)))
		_, err := (parser{}).Parse(bytes.NewReader(data), int64(len(data)), "x.m4a", zerolog.Nop())
		var missing *types.RequiredChunkMissingError
		if !errors.As(err, &missing) || missing.ID != "moov" {
			t.Errorf("err = %v, want missing moov", err)
		}
	})

	t.Run("box past end of file", func(t *testing.T) {
		data := slices.Concat(ftyp("M4A "), be32(1000), []byte("moov"), make([]byte, 10))
		_, err := (parser{}).Parse(bytes.NewReader(data), int64(len(data)), "x.m4a", zerolog.Nop())
		var size *types.InvalidChunkSizeError
		if !errors.As(err, &size) || size.ID != "moov" {
			t.Errorf("err = %v, want InvalidChunkSizeError for moov", err)
		}
	})

	t.Run("extended size", func(t *testing.T) {
		mdat := append(be32(1), "mdat"...)
		mdat = append(mdat, be32(0)...)
		mdat = append(mdat, be32(16+4)...)
		mdat = append(mdat, 1, 2, 3, 4)
		data := slices.Concat(ftyp("M4A "), box("moov", mvhd(1000, 1000)), mdat)
		f := parse(t, data)
		last := f.Chunks[len(f.Chunks)-1]
		if last.ID != "mdat" || last.Size != 4 {
			t.Errorf("mdat = %+v, want 4-byte payload", last)
		}
	})
}

func TestRegistered(t *testing.T) {
	for _, format := range []types.Format{types.FormatM4A, types.FormatM4B} {
		if registry.Get(format) == nil {
			t.Errorf("no parser registered for %v", format)
		}
	}
}
