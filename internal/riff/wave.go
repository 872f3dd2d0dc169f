// Package riff reads and writes RIFF/WAVE files.
//
// The chunk list is walked with container.RIFF. "fmt " and "data" must be
// present; "fact", LIST/INFO and embedded ID3v2 chunks are optional and
// their failures are reported as warnings.
package riff

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/id3"
	"github.com/simonhull/audiotag/internal/registry"
	"github.com/simonhull/audiotag/internal/types"
)

// headerSize covers "RIFF", the file length and the "WAVE" form type.
const headerSize = 12

// WAVE format tags.
const (
	formatPCM        = 0x0001
	formatFloat      = 0x0003
	formatALaw       = 0x0006
	formatMuLaw      = 0x0007
	formatMP3        = 0x0055
	formatExtensible = 0xFFFE
)

var codecNames = map[uint16]string{
	formatPCM:   "PCM",
	formatFloat: "IEEE Float",
	formatALaw:  "A-law",
	formatMuLaw: "mu-law",
	formatMP3:   "MP3",
}

// Format is the decoded "fmt " chunk.
type Format struct {
	Tag           uint16 // sub-format for WAVE_FORMAT_EXTENSIBLE
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Wave is the parsed chunk structure of a WAVE file. Writers use it to
// copy untouched chunks through.
type Wave struct {
	Format Format

	DataOffset int64
	DataSize   int64

	// Samples is the per-channel sample count from a "fact" chunk.
	Samples    uint32
	HasSamples bool

	Info *Info
	ID3  *id3.Tag

	Chunks []*container.Node

	// Trailer is the range after the RIFF chunk, such as an ID3 tag some
	// taggers append to the file. It is copied through on write.
	TrailerOffset int64
	TrailerSize   int64
}

type parser struct{}

// Parse walks the chunks of a RIFF/WAVE file.
func (parser) Parse(r io.ReaderAt, size int64, path string, log zerolog.Logger) (*types.File, error) {
	sr := binary.NewSafeReader(r, size, path)
	c := binary.NewCursor(sr)

	cr := binary.NewChainReader(c, binary.LittleEndian)
	magic := cr.String(4, "RIFF magic")
	declared := binary.ReadChained[uint32](cr, "RIFF size")
	form := cr.String(4, "RIFF form type")
	if err := cr.Error(); err != nil {
		return nil, &types.CorruptHeaderError{Path: path, Layout: "RIFF", Need: headerSize, Have: size}
	}
	if magic != "RIFF" || form != "WAVE" {
		return nil, &types.UnsupportedFormatError{Path: path, Reason: "not a RIFF/WAVE file"}
	}

	file := &types.File{
		Path:   path,
		Format: types.FormatWAV,
		Size:   size,
		Audio:  types.AudioInfo{Container: "RIFF"},
	}

	// Streaming encoders leave the RIFF length at 0 or 0xFFFFFFFF; such files
	// are walked to the end of the byte source.
	end := 8 + int64(declared)
	if end > size || declared < 4 {
		file.Warn("container", 4, fmt.Sprintf("RIFF length %d does not match file size %d", declared, size))
		end = size
	}

	wave := &Wave{}
	w := container.NewWalker(container.RIFF)
	w.Logger = log
	w.Require("fmt ", wave.readFormat)
	w.Require("data", wave.readData)
	w.Handle("fact", wave.readFact)
	w.Handle("LIST", func(h container.Header, c *binary.Cursor) error {
		return wave.readList(h, c, log)
	})
	readID3 := func(h container.Header, c *binary.Cursor) error {
		return wave.readID3(c, log)
	}
	w.Handle("id3 ", readID3)
	w.Handle("ID3 ", readID3)

	nodes, err := w.Walk(c, headerSize, end)
	if err != nil {
		return nil, err
	}
	wave.Chunks = nodes
	if end < size {
		wave.TrailerOffset, wave.TrailerSize = end, size-end
		log.Debug().Int64("offset", end).Int64("size", wave.TrailerSize).Msg("bytes after RIFF chunk")
	}

	file.Warnings = append(file.Warnings, w.Warnings...)
	for _, n := range nodes {
		file.Chunks = append(file.Chunks, types.ChunkInfo{ID: n.ID, Offset: n.Offset, Size: n.Payload, Handled: n.Handled})
	}

	if wave.Info != nil {
		file.Tags = wave.Info.Tags()
	}
	if wave.ID3 != nil {
		file.Warnings = append(file.Warnings, wave.ID3.Warnings...)
		id3Tags := wave.ID3.Tags()
		for key, values := range id3Tags.All() {
			file.Tags.Set(key, values...)
		}
	}

	wave.fillAudio(&file.Audio)
	file.Native_ = wave
	return file, nil
}

func (wv *Wave) readFormat(h container.Header, c *binary.Cursor) error {
	cr := binary.NewChainReader(c, binary.LittleEndian)
	f := Format{
		Tag:           binary.ReadChained[uint16](cr, "format tag"),
		Channels:      binary.ReadChained[uint16](cr, "channels"),
		SampleRate:    binary.ReadChained[uint32](cr, "sample rate"),
		ByteRate:      binary.ReadChained[uint32](cr, "byte rate"),
		BlockAlign:    binary.ReadChained[uint16](cr, "block align"),
		BitsPerSample: binary.ReadChained[uint16](cr, "bits per sample"),
	}
	if err := cr.Error(); err != nil {
		return err
	}

	// WAVE_FORMAT_EXTENSIBLE: cbSize, valid bits, channel mask, then the
	// sub-format GUID whose first two bytes are the real format tag.
	if f.Tag == formatExtensible && c.Remaining() >= 24 {
		cr.Skip(8)
		f.Tag = binary.ReadChained[uint16](cr, "sub-format")
		if err := cr.Error(); err != nil {
			return err
		}
	}
	if f.Channels == 0 {
		return fmt.Errorf("fmt chunk declares zero channels")
	}

	wv.Format = f
	return c.SeekTo(c.Limit())
}

func (wv *Wave) readData(h container.Header, c *binary.Cursor) error {
	wv.DataOffset = h.PayloadOffset()
	wv.DataSize = h.Payload
	return c.SeekTo(c.Limit())
}

func (wv *Wave) readFact(h container.Header, c *binary.Cursor) error {
	n, err := binary.ReadValueLE[uint32](c, "fact sample count")
	if err != nil {
		return err
	}
	wv.Samples, wv.HasSamples = n, true
	return c.SeekTo(c.Limit())
}

// readList decodes LIST/INFO and skips other list types (adtl, ...).
func (wv *Wave) readList(h container.Header, c *binary.Cursor, log zerolog.Logger) error {
	listType, err := c.Read(4, "LIST type")
	if err != nil {
		return err
	}
	if string(listType) == "INFO" {
		info, err := ReadInfo(c, log)
		if err != nil {
			return err
		}
		info.Offset = h.Offset
		wv.Info = info
	}
	return c.SeekTo(c.Limit())
}

func (wv *Wave) readID3(c *binary.Cursor, log zerolog.Logger) error {
	tag, err := id3.Read(c, log)
	if err != nil {
		return err
	}
	wv.ID3 = tag
	return c.SeekTo(c.Limit())
}

// fillAudio derives the audio properties. The fact sample count is
// preferred for duration; otherwise the data length over the byte rate.
func (wv *Wave) fillAudio(a *types.AudioInfo) {
	f := wv.Format
	a.Codec = codecName(f.Tag)
	a.Channels = int(f.Channels)
	a.SampleRate = int(f.SampleRate)
	a.BitDepth = int(f.BitsPerSample)
	a.Bitrate = int(f.ByteRate) * 8
	a.Lossless = f.Tag == formatPCM || f.Tag == formatFloat

	switch {
	case wv.HasSamples && f.SampleRate > 0:
		a.Duration = time.Duration(wv.Samples) * time.Second / time.Duration(f.SampleRate)
	case f.ByteRate > 0:
		a.Duration = time.Duration(wv.DataSize) * time.Second / time.Duration(f.ByteRate)
	}
}

func codecName(tag uint16) string {
	if name, ok := codecNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", tag)
}

func init() {
	registry.Register(types.FormatWAV, parser{})
	registry.RegisterWriter(types.FormatWAV, writer{})
}
