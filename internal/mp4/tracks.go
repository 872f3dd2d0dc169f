package mp4

import (
	"fmt"
	"time"

	"golang.org/x/text/encoding/unicode"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/field"
	"github.com/simonhull/audiotag/internal/types"
)

// maxTitleSample bounds the size of one chapter title sample.
const maxTitleSample = 10000

// Track is what the walker gathered from one trak box. Sample tables are
// only kept for tracks that are neither sound nor video, since those are
// the ones that can carry chapter titles.
type Track struct {
	ID        uint32
	Handler   string
	Timescale uint32

	// ChapterTracks lists the track IDs named by tref/chap.
	ChapterTracks []uint32

	timeToSample [][2]uint32 // sample count, sample delta
	sampleSize   uint32      // non-zero when every sample has this size
	sampleCount  uint32
	sampleSizes  []uint32
	chunkOffsets []uint64
}

// track returns the trak being walked. tkhd opens a new one.
func (m *Movie) track() *Track {
	if len(m.Tracks) == 0 {
		return nil
	}
	return m.Tracks[len(m.Tracks)-1]
}

// tableTrack is the current track if its sample tables are worth keeping.
func (m *Movie) tableTrack() *Track {
	t := m.track()
	if t == nil || t.Handler == "soun" || t.Handler == "vide" {
		return nil
	}
	return t
}

// readTrackHeader starts a track record. The track ID follows the
// creation and modification times, which are 64-bit in version 1.
func (m *Movie) readTrackHeader(h container.Header, c *binary.Cursor) error {
	m.Tracks = append(m.Tracks, &Track{})
	version, err := binary.ReadValue[uint8](c, "tkhd version")
	if err != nil {
		return err
	}
	skip := int64(3 + 8)
	if version == 1 {
		skip = 3 + 16
	}
	if err := c.Skip(skip); err != nil {
		return err
	}
	id, err := binary.ReadValue[uint32](c, "track ID")
	if err != nil {
		return err
	}
	m.track().ID = id
	return nil
}

func (m *Movie) readMediaHeader(h container.Header, c *binary.Cursor) error {
	t := m.track()
	if t == nil {
		return nil
	}
	version, err := binary.ReadValue[uint8](c, "mdhd version")
	if err != nil {
		return err
	}
	skip := int64(3 + 8)
	if version == 1 {
		skip = 3 + 16
	}
	if err := c.Skip(skip); err != nil {
		return err
	}
	t.Timescale, err = binary.ReadValue[uint32](c, "media timescale")
	return err
}

// readChapterReference decodes tref/chap, a list of track IDs.
func (m *Movie) readChapterReference(h container.Header, c *binary.Cursor) error {
	t := m.track()
	if t == nil || h.Parent != "tref" {
		return nil
	}
	for c.Remaining() >= 4 {
		id, err := binary.ReadValue[uint32](c, "chapter track ID")
		if err != nil {
			return err
		}
		t.ChapterTracks = append(t.ChapterTracks, id)
	}
	return nil
}

// readTable decodes the entry count at the cursor and then that many
// fixed-size records.
func readTable(c *binary.Cursor, name string, template ...field.Field) ([][]field.Field, error) {
	count, err := binary.ReadValue[uint32](c, name+" entry count")
	if err != nil {
		return nil, err
	}
	rest, err := c.Rest(name + " entries")
	if err != nil {
		return nil, err
	}
	width := int64(field.MinSizeOf(template))
	end := int(min(int64(count)*width, int64(len(rest))))
	table := field.NewRepeated(name, template...)
	if err := table.DecodeRange(rest, 0, end); err != nil {
		return nil, err
	}
	if table.Len() != int(count) {
		return nil, &types.TruncatedGroupError{Field: name, Instance: table.Len(), Offset: end, Remaining: len(rest) - end}
	}
	return table.Instances(), nil
}

func number(fs []field.Field, name string) uint64 {
	if n, ok := field.Find(fs, name).(*field.Number); ok {
		return n.Value()
	}
	return 0
}

// readTimeToSample decodes stts: version and flags, then (count, delta)
// records.
func (m *Movie) readTimeToSample(h container.Header, c *binary.Cursor) error {
	t := m.tableTrack()
	if t == nil {
		return nil
	}
	if err := c.Skip(4); err != nil {
		return err
	}
	rows, err := readTable(c, "TimeToSample", field.NewNumber("SampleCount", 4), field.NewNumber("SampleDelta", 4))
	if err != nil {
		return err
	}
	t.timeToSample = make([][2]uint32, 0, len(rows))
	for _, row := range rows {
		t.timeToSample = append(t.timeToSample, [2]uint32{
			uint32(number(row, "SampleCount")),
			uint32(number(row, "SampleDelta")),
		})
	}
	return nil
}

// readSampleSizes decodes stsz. A non-zero default size means the table
// is absent.
func (m *Movie) readSampleSizes(h container.Header, c *binary.Cursor) error {
	t := m.tableTrack()
	if t == nil {
		return nil
	}
	cr := binary.NewChainReader(c, binary.BigEndian)
	cr.Skip(4)
	t.sampleSize = binary.ReadChained[uint32](cr, "default sample size")
	if err := cr.Error(); err != nil {
		return err
	}
	if t.sampleSize != 0 {
		count, err := binary.ReadValue[uint32](c, "sample count")
		t.sampleCount = count
		return err
	}
	rows, err := readTable(c, "SampleSize", field.NewNumber("Size", 4))
	if err != nil {
		return err
	}
	t.sampleSizes = make([]uint32, 0, len(rows))
	for _, row := range rows {
		t.sampleSizes = append(t.sampleSizes, uint32(number(row, "Size")))
	}
	return nil
}

// readChunkOffsets decodes stco (32-bit) or co64 (64-bit) chunk offsets.
func (m *Movie) readChunkOffsets(h container.Header, c *binary.Cursor) error {
	t := m.tableTrack()
	if t == nil {
		return nil
	}
	if err := c.Skip(4); err != nil {
		return err
	}
	width := 4
	if h.ID == "co64" {
		width = 8
	}
	rows, err := readTable(c, "ChunkOffset", field.NewNumber("Offset", width))
	if err != nil {
		return err
	}
	t.chunkOffsets = make([]uint64, 0, len(rows))
	for _, row := range rows {
		t.chunkOffsets = append(t.chunkOffsets, number(row, "Offset"))
	}
	return nil
}

// trackByID returns the track with the given ID, or nil.
func (m *Movie) trackByID(id uint32) *Track {
	for _, t := range m.Tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// sampleStarts expands the time-to-sample table into the start time of
// the first n samples.
func (t *Track) sampleStarts(n int) []time.Duration {
	timescale := uint64(t.Timescale)
	if timescale == 0 {
		timescale = 1000
	}
	starts := make([]time.Duration, 0, n)
	var ticks uint64
	for _, e := range t.timeToSample {
		for range e[0] {
			if len(starts) == n {
				return starts
			}
			starts = append(starts, time.Duration(ticks/timescale)*time.Second+
				time.Duration(ticks%timescale*uint64(time.Second)/timescale))
			ticks += uint64(e[1])
		}
	}
	return starts
}

func (t *Track) sizeOf(i int) uint32 {
	if t.sampleSize != 0 {
		return t.sampleSize
	}
	return t.sampleSizes[i]
}

// textChapters resolves the first tref/chap reference to a text track and
// reads one title per sample. Each chunk is assumed to hold one sample,
// which is how chapter tracks are written in practice.
func (m *Movie) textChapters(sr *binary.SafeReader) ([]Chapter, []types.Warning) {
	var target *Track
	for _, t := range m.Tracks {
		if len(t.ChapterTracks) > 0 {
			target = m.trackByID(t.ChapterTracks[0])
			break
		}
	}
	if target == nil {
		return nil, nil
	}

	n := len(target.chunkOffsets)
	if target.sampleSize != 0 {
		n = min(n, int(target.sampleCount))
	} else {
		n = min(n, len(target.sampleSizes))
	}
	starts := target.sampleStarts(n)

	var (
		chapters []Chapter
		warnings []types.Warning
	)
	for i, start := range starts {
		off := int64(target.chunkOffsets[i])
		title, err := readTitleSample(sr, off, target.sizeOf(i))
		if err != nil {
			warnings = append(warnings, types.Warning{Stage: "metadata", Message: "chapter title: " + err.Error(), Offset: off})
			continue
		}
		chapters = append(chapters, Chapter{Index: len(chapters) + 1, Title: title, Start: start})
	}
	return chapters, warnings
}

// readTitleSample reads a text sample: a 16-bit length and UTF-8 text, or
// UTF-16 text when it starts with a byte order mark.
func readTitleSample(sr *binary.SafeReader, off int64, size uint32) (string, error) {
	if size < 2 || size > maxTitleSample {
		return "", &types.CorruptedFileError{
			Path:   sr.Path(),
			Reason: fmt.Sprintf("chapter title sample of %d bytes", size),
			Offset: off,
		}
	}
	c := binary.NewCursor(sr)
	v, err := c.View(off, int64(size))
	if err != nil {
		return "", err
	}
	n, err := binary.ReadValue[uint16](v, "title length")
	if err != nil {
		return "", err
	}
	b, err := v.Read(int(n), "title")
	if err != nil {
		return "", err
	}
	if len(b) >= 2 && (b[0] == 0xFE && b[1] == 0xFF || b[0] == 0xFF && b[1] == 0xFE) {
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().String(string(b))
	}
	return string(b), nil
}
