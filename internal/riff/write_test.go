package riff

import (
	"bytes"
	"errors"
	"os"
	"slices"
	"testing"

	"github.com/simonhull/audiotag/internal/types"
)

func write(t *testing.T, f *types.File, original []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	if err := (writer{}).Write(&out, f, bytes.NewReader(original), int64(len(original))); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return out.Bytes()
}

func TestWriteFixture(t *testing.T) {
	original, err := os.ReadFile(writeFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	f := parse(t, original)
	f.Tags.Set("INAM", "Title")
	f.Tags.Set("IART", "Odd")
	f.Tags.Set("TIT2", "Through ID3")

	out := write(t, f, original)
	got := parse(t, out)

	if !got.Tags.Equal(&f.Tags) {
		t.Errorf("tags = %v, want %v", got.Tags.Keys(), f.Tags.Keys())
	}
	if got.Audio != f.Audio {
		t.Errorf("audio = %+v, want %+v", got.Audio, f.Audio)
	}
	if size := int(le32Value(out[4:8])); size != len(out)-8 {
		t.Errorf("RIFF length = %d, file has %d bytes after it", size, len(out)-8)
	}

	in, outWave := f.Native_.(*Wave), got.Native_.(*Wave)
	if !bytes.Equal(original[in.DataOffset:in.DataOffset+in.DataSize], out[outWave.DataOffset:outWave.DataOffset+outWave.DataSize]) {
		t.Error("sample data changed")
	}
	var ids []string
	for _, c := range got.Chunks {
		ids = append(ids, c.ID)
	}
	if want := []string{"fmt ", "data", "LIST", "id3 "}; !slices.Equal(ids, want) {
		t.Errorf("chunks = %q, want %q", ids, want)
	}
}

func TestWriteReplacesInfoInPlace(t *testing.T) {
	original := riffFile(
		chunk(t, "fmt ", fmtPayload(1, 1, 8000, 8)),
		infoList(t, chunk(t, "INAM", []byte("Old\x00")), chunk(t, "ICMT", []byte("drop\x00"))),
		chunk(t, "JUNK", []byte{1, 2, 3}),
		chunk(t, "data", make([]byte, 9)),
	)
	f := parse(t, original)
	f.Tags.Set("INAM", "New name")
	f.Tags.Delete("ICMT")

	out := write(t, f, original)
	want := riffFile(
		chunk(t, "fmt ", fmtPayload(1, 1, 8000, 8)),
		infoList(t, chunk(t, "INAM", []byte("New name\x00"))),
		chunk(t, "JUNK", []byte{1, 2, 3}),
		chunk(t, "data", make([]byte, 9)),
	)
	if !bytes.Equal(out, want) {
		t.Errorf("got % x\nwant % x", out, want)
	}
}

func TestWriteDropsEmptyInfo(t *testing.T) {
	original := riffFile(
		chunk(t, "fmt ", fmtPayload(1, 1, 8000, 8)),
		chunk(t, "data", make([]byte, 4)),
		infoList(t, chunk(t, "INAM", []byte("x\x00"))),
	)
	f := parse(t, original)
	f.Tags.Delete("INAM")

	out := write(t, f, original)
	want := riffFile(chunk(t, "fmt ", fmtPayload(1, 1, 8000, 8)), chunk(t, "data", make([]byte, 4)))
	if !bytes.Equal(out, want) {
		t.Errorf("got % x\nwant % x", out, want)
	}
}

func TestWriteRestoresFinalPad(t *testing.T) {
	full := riffFile(chunk(t, "fmt ", fmtPayload(1, 1, 8000, 8)), chunk(t, "data", make([]byte, 5)))
	original := bytes.Clone(full[:len(full)-1]) // no pad byte after the odd data chunk
	copy(original[4:], le32(len(original)-8))

	f := parse(t, original)
	if out := write(t, f, original); !bytes.Equal(out, full) {
		t.Errorf("got % x\nwant % x", out, full)
	}
}

func TestWriteKeepsTrailer(t *testing.T) {
	body := riffFile(chunk(t, "fmt ", fmtPayload(1, 1, 8000, 8)), chunk(t, "data", make([]byte, 4)))
	trailer := []byte("ID3\x04\x00\x00\x00\x00\x00\x00appended")
	original := slices.Concat(body, trailer)

	f := parse(t, original)
	if w := f.Native_.(*Wave); w.TrailerOffset != int64(len(body)) || w.TrailerSize != int64(len(trailer)) {
		t.Errorf("trailer = [%d, +%d), want [%d, +%d)", w.TrailerOffset, w.TrailerSize, len(body), len(trailer))
	}
	if out := write(t, f, original); !bytes.Equal(out, original) {
		t.Errorf("unchanged tags: got % x\nwant % x", out, original)
	}

	f.Tags.Set("INAM", "Name")
	out := write(t, f, original)
	if !bytes.HasSuffix(out, trailer) {
		t.Errorf("trailer lost: got % x", out)
	}
	if size := int(le32Value(out[4:8])); size != len(out)-len(trailer)-8 {
		t.Errorf("RIFF length = %d, want %d", size, len(out)-len(trailer)-8)
	}
	if got := parse(t, out); got.Tags.GetFirst("INAM") != "Name" {
		t.Errorf("INAM = %q", got.Tags.GetFirst("INAM"))
	}
}

func TestWriteErrors(t *testing.T) {
	original := riffFile(chunk(t, "fmt ", fmtPayload(1, 1, 8000, 8)), chunk(t, "data", make([]byte, 4)))

	f := parse(t, original)
	f.Tags.Set("TITLE", "vorbis key")
	var out bytes.Buffer
	err := (writer{}).Write(&out, f, bytes.NewReader(original), int64(len(original)))
	var uw *types.UnsupportedWriteError
	if !errors.As(err, &uw) {
		t.Errorf("err = %v, want UnsupportedWriteError", err)
	}

	f = &types.File{Format: types.FormatWAV}
	if err := (writer{}).Write(&out, f, bytes.NewReader(original), int64(len(original))); !errors.As(err, &uw) {
		t.Errorf("unparsed file: err = %v", err)
	}
}

func le32Value(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
