package id3

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/registry"
	"github.com/simonhull/audiotag/internal/types"
)

type parser struct{}

// Parse reads the ID3v2 tag at the start of the file, if any, then the
// first MPEG audio frame. A damaged tag is an error; missing audio frames
// are only a warning.
func (parser) Parse(r io.ReaderAt, size int64, path string, log zerolog.Logger) (*types.File, error) {
	sr := binary.NewSafeReader(r, size, path)
	file := &types.File{
		Path:   path,
		Format: types.FormatMP3,
		Size:   size,
		Audio:  types.AudioInfo{Container: "MPEG"},
	}

	c := binary.NewCursor(sr)
	audioStart := int64(0)
	if magic, err := c.Peek(3, "ID3 magic"); err == nil && string(magic) == "ID3" {
		tag, err := Read(c, log)
		if err != nil {
			return nil, err
		}
		file.Native_ = tag
		file.Tags = tag.Tags()
		file.Warnings = append(file.Warnings, tag.Warnings...)
		file.Chunks = tag.chunks()
		audioStart = tag.End
	}

	if err := readAudioInfo(sr, audioStart, file); err != nil {
		file.Warn("technical", audioStart, "MPEG audio: "+err.Error())
	}
	return file, nil
}

// chunks lists the frames for diagnostics, at file offsets.
func (t *Tag) chunks() []types.ChunkInfo {
	out := make([]types.ChunkInfo, 0, len(t.Frames))
	for _, f := range t.Frames {
		out = append(out, types.ChunkInfo{
			ID:      f.ID,
			Offset:  t.Offset + HeaderSize + f.Offset,
			Size:    int64(len(f.Raw)),
			Handled: f.Body != nil,
		})
	}
	return out
}

type writer struct{}

// Write emits a rebuilt tag followed by the original audio bytes.
func (writer) Write(w io.Writer, file *types.File, original io.ReaderAt, originalSize int64) error {
	var tag *Tag
	audioStart := int64(0)
	if t, ok := file.Native_.(*Tag); ok {
		tag = t.Clone()
		audioStart = t.End
	} else {
		tag, _ = NewTag(4)
	}

	if err := tag.Apply(file.Tags); err != nil {
		return err
	}
	b, err := tag.Encode(DefaultPadding)
	if err != nil {
		return err
	}

	sw := binary.NewSafeWriter(w)
	if err := sw.WriteBytes(b); err != nil {
		return err
	}
	return sw.Copy(original, audioStart, originalSize-audioStart)
}

func init() {
	registry.Register(types.FormatMP3, parser{})
	registry.RegisterWriter(types.FormatMP3, writer{})
}
