// Package mp4 reads metadata from MP4/M4A/M4B files.
//
// The box tree is walked with container.MP4. Handlers pick up the movie
// header (duration), the first audio sample description (codec, channels,
// sample rate), the iTunes ilst items (tags) and chapters, either from a
// QuickTime text track named by tref/chap or from a Nero chpl box.
package mp4

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/registry"
	"github.com/simonhull/audiotag/internal/types"
)

// Movie is what the parser gathered from the box tree.
type Movie struct {
	Brand string // ftyp major brand

	Timescale uint32
	Duration  uint64 // in Timescale units

	Audio    *SampleEntry
	Items    []Item
	Chapters []Chapter
	Tracks   []*Track

	Boxes []*container.Node

	// handler type of the track being walked ("soun", "vide", ...)
	handler string

	// mean/name of the freeform item being walked
	mean, name string
}

type parser struct{}

// Parse walks the box tree. A missing moov box is an error; problems in
// individual boxes become warnings.
func (parser) Parse(r io.ReaderAt, size int64, path string, log zerolog.Logger) (*types.File, error) {
	sr := binary.NewSafeReader(r, size, path)
	c := binary.NewCursor(sr)

	m := &Movie{}
	w := container.NewWalker(container.MP4)
	w.Logger = log
	w.Required = []string{"moov"}
	w.Handle("ftyp", m.readFileType)
	w.Handle("mvhd", m.readMovieHeader)
	w.Handle("hdlr", m.readHandler)
	w.Handle("stsd", func(h container.Header, c *binary.Cursor) error {
		return m.readSampleDescription(c, log)
	})
	w.Handle("mean", m.readMean)
	w.Handle("name", m.readName)
	w.Handle("data", m.readData)
	w.Handle("chpl", m.readChapterList)
	w.Handle("tkhd", m.readTrackHeader)
	w.Handle("mdhd", m.readMediaHeader)
	w.Handle("chap", m.readChapterReference)
	w.Handle("stts", m.readTimeToSample)
	w.Handle("stsz", m.readSampleSizes)
	w.Handle("stco", m.readChunkOffsets)
	w.Handle("co64", m.readChunkOffsets)

	nodes, err := w.Walk(c, 0, size)
	if err != nil {
		return nil, err
	}
	m.Boxes = nodes

	file := &types.File{
		Path:     path,
		Format:   m.format(),
		Size:     size,
		Audio:    types.AudioInfo{Container: "MP4"},
		Warnings: w.Warnings,
		Tags:     m.Tags(),
		Native_:  m,
	}
	for _, n := range nodes {
		file.Chunks = append(file.Chunks, types.ChunkInfo{ID: n.ID, Offset: n.Offset, Size: n.Payload, Handled: n.Handled})
	}
	chapters, warnings := m.textChapters(sr)
	file.Warnings = append(file.Warnings, warnings...)
	if len(chapters) > 0 {
		m.Chapters = chapters
	}
	m.fillAudio(&file.Audio, size)
	m.closeChapters(file.Audio.Duration)
	return file, nil
}

func (m *Movie) format() types.Format {
	if m.Brand == "M4B " {
		return types.FormatM4B
	}
	return types.FormatM4A
}

func (m *Movie) readFileType(h container.Header, c *binary.Cursor) error {
	brand, err := c.Read(4, "ftyp major brand")
	if err != nil {
		return err
	}
	m.Brand = string(brand)
	return nil
}

func init() {
	registry.Register(types.FormatM4A, parser{})
	registry.Register(types.FormatM4B, parser{})
}
