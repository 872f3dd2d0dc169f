package mp4

import (
	"bytes"
	"fmt"
	"time"

	"github.com/icza/bitio"
	"github.com/rs/zerolog"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/types"
)

// codecNames maps sample entry FourCCs to codec names.
var codecNames = map[string]string{
	"mp4a": "AAC",
	"mhm1": "xHE-AAC",
	"mhm2": "xHE-AAC v2",
	"ac-3": "AC-3",
	"ec-3": "E-AC-3",
	"ac-4": "AC-4",
	"alac": "Apple Lossless",
	"fLaC": "FLAC",
	"Opus": "Opus",
	".mp3": "MP3",
}

// aacProfiles maps MPEG-4 audio object types to profile names.
var aacProfiles = map[uint64]string{
	1:  "AAC Main",
	2:  "AAC-LC",
	3:  "AAC-SSR",
	4:  "AAC-LTP",
	5:  "HE-AAC",
	6:  "AAC Scalable",
	29: "HE-AAC v2",
	42: "xHE-AAC",
}

// SampleEntry is the first audio sample description.
type SampleEntry struct {
	Format     string // FourCC
	Channels   int
	SampleSize int
	SampleRate int

	// From the esds box, when present.
	ObjectType uint64
	AvgBitrate uint32
}

// Codec returns a readable codec name, with the AAC profile when it is
// not plain AAC-LC.
func (e *SampleEntry) Codec() string {
	if p, ok := aacProfiles[e.ObjectType]; ok && e.Format == "mp4a" && p != "AAC-LC" {
		return p
	}
	if name, ok := codecNames[e.Format]; ok {
		return name
	}
	return e.Format
}

// readMovieHeader reads timescale and duration; version 1 uses 64-bit
// times.
func (m *Movie) readMovieHeader(h container.Header, c *binary.Cursor) error {
	cr := binary.NewChainReader(c, binary.BigEndian)
	version := binary.ReadChained[uint8](cr, "mvhd version")
	cr.Skip(3)
	if version == 1 {
		cr.Skip(16)
		m.Timescale = binary.ReadChained[uint32](cr, "mvhd timescale")
		m.Duration = binary.ReadChained[uint64](cr, "mvhd duration")
	} else {
		cr.Skip(8)
		m.Timescale = binary.ReadChained[uint32](cr, "mvhd timescale")
		m.Duration = uint64(binary.ReadChained[uint32](cr, "mvhd duration"))
	}
	return cr.Error()
}

func (m *Movie) readHandler(h container.Header, c *binary.Cursor) error {
	if h.Parent != "mdia" {
		return nil
	}
	if err := c.Skip(8); err != nil {
		return err
	}
	b, err := c.Read(4, "handler type")
	if err != nil {
		return err
	}
	m.handler = string(b)
	if t := m.track(); t != nil {
		t.Handler = m.handler
	}
	return nil
}

// readSampleDescription decodes the first sample entry of the first sound
// track.
func (m *Movie) readSampleDescription(c *binary.Cursor, log zerolog.Logger) error {
	if m.Audio != nil || (m.handler != "" && m.handler != "soun") {
		return nil
	}
	cr := binary.NewChainReader(c, binary.BigEndian)
	cr.Skip(4)
	count := binary.ReadChained[uint32](cr, "stsd entry count")
	if err := cr.Error(); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	h, err := container.ReadHeader(c, container.MP4)
	if err != nil {
		return err
	}
	entry, err := c.View(h.PayloadOffset(), min(h.Payload, c.Limit()-h.PayloadOffset()))
	if err != nil {
		return err
	}

	// Audio sample entry: reserved(6), data reference index(2),
	// version(2), revision(2), vendor(4), channels(2), sample size(2),
	// compression id(2), packet size(2), sample rate(16.16).
	er := binary.NewChainReader(entry, binary.BigEndian)
	er.Skip(8)
	version := binary.ReadChained[uint16](er, "sample entry version")
	er.Skip(6)
	e := &SampleEntry{
		Format:     h.ID,
		Channels:   int(binary.ReadChained[uint16](er, "channels")),
		SampleSize: int(binary.ReadChained[uint16](er, "sample size")),
	}
	er.Skip(4)
	e.SampleRate = int(binary.ReadChained[uint32](er, "sample rate") >> 16)
	if err := er.Error(); err != nil {
		return err
	}
	m.Audio = e

	// QuickTime sound description versions 1 and 2 carry extra fields
	// before the child boxes.
	switch version {
	case 1:
		er.Skip(16)
	case 2:
		er.Skip(36)
	}
	if er.Error() != nil || entry.Remaining() < 8 {
		return nil
	}

	sub := container.NewWalker(container.MP4)
	sub.Logger = log
	sub.Handlers["esds"] = container.Handler{Fn: e.readESDS, Required: true}
	_, err = sub.Walk(entry, entry.Position(), entry.Limit())
	return err
}

// readESDS reads the elementary stream descriptor: ES_Descriptor (0x03)
// holding DecoderConfigDescriptor (0x04) holding the AudioSpecificConfig
// (0x05).
func (e *SampleEntry) readESDS(h container.Header, c *binary.Cursor) error {
	if err := c.Skip(4); err != nil {
		return err
	}
	b, err := c.Rest("esds")
	if err != nil {
		return err
	}
	d := bytes.NewReader(b)

	es, err := descriptor(d, 0x03)
	if err != nil {
		return err
	}
	if len(es) < 3 {
		return &types.BufferTooShortError{Field: "ES_Descriptor", Need: 3, Have: len(es)}
	}
	flags := es[2]
	skip := 3
	if flags&0x80 != 0 {
		skip += 2
	}
	if flags&0x40 != 0 && len(es) > skip {
		skip += 1 + int(es[skip])
	}
	if flags&0x20 != 0 {
		skip += 2
	}
	if skip > len(es) {
		return &types.BufferTooShortError{Field: "ES_Descriptor", Need: skip, Have: len(es)}
	}

	dc, err := descriptor(bytes.NewReader(es[skip:]), 0x04)
	if err != nil {
		return err
	}
	if len(dc) < 13 {
		return &types.BufferTooShortError{Field: "DecoderConfigDescriptor", Need: 13, Have: len(dc)}
	}
	e.AvgBitrate = uint32(binary.Uint(dc[9:13], binary.BigEndian))

	asc, err := descriptor(bytes.NewReader(dc[13:]), 0x05)
	if err != nil {
		return nil //nolint:nilerr // DecoderSpecificInfo is optional, profile stays unknown
	}
	r := bitio.NewReader(bytes.NewReader(asc))
	aot := r.TryReadBits(5)
	if aot == 31 {
		aot = 32 + r.TryReadBits(6)
	}
	if r.TryError != nil {
		return r.TryError
	}
	e.ObjectType = aot
	return nil
}

// descriptor reads one MPEG-4 descriptor and checks its tag. The length is
// stored in up to four bytes of 7 bits, high bit set on all but the last.
func descriptor(r *bytes.Reader, tag byte) ([]byte, error) {
	got, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if got != tag {
		return nil, fmt.Errorf("descriptor tag 0x%02x, want 0x%02x", got, tag)
	}
	n := 0
	for i := 0; i < 4; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		n = n<<7 | int(b&0x7F)
		if b&0x80 == 0 {
			break
		}
	}
	if n > r.Len() {
		return nil, &types.BufferTooShortError{Field: fmt.Sprintf("descriptor 0x%02x", tag), Need: n, Have: r.Len()}
	}
	out := make([]byte, n)
	_, err = r.Read(out)
	return out, err
}

// fillAudio sets the audio properties. Without an esds average bitrate the
// bitrate is estimated from the file size.
func (m *Movie) fillAudio(a *types.AudioInfo, size int64) {
	if m.Timescale > 0 {
		a.Duration = time.Duration(float64(m.Duration) / float64(m.Timescale) * float64(time.Second))
	}
	if m.Audio == nil {
		return
	}
	e := m.Audio
	a.Codec = e.Codec()
	a.Channels = e.Channels
	a.SampleRate = e.SampleRate
	a.Lossless = e.Format == "alac" || e.Format == "fLaC"
	if a.Lossless {
		a.BitDepth = e.SampleSize
	}
	switch {
	case e.AvgBitrate > 0:
		a.Bitrate = int(e.AvgBitrate)
	case a.Duration > 0:
		a.Bitrate = int(float64(size) * 8 / a.Duration.Seconds())
	}
}
