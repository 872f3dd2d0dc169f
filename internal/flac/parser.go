// Package flac reads metadata from FLAC files.
//
// Metadata blocks follow the "fLaC" marker and are walked with
// container.FLACBlock up to the block carrying the last-block flag.
// STREAMINFO is required; every other block is optional and a block that
// fails to decode becomes a warning.
package flac

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/icza/bitio"
	"github.com/rs/zerolog"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/id3"
	"github.com/simonhull/audiotag/internal/registry"
	"github.com/simonhull/audiotag/internal/types"
	"github.com/simonhull/audiotag/internal/vorbis"
)

// Metadata block types, as rendered by container.FLACBlock.
const (
	blockStreamInfo    = "0"
	blockPadding       = "1"
	blockApplication   = "2"
	blockSeekTable     = "3"
	blockVorbisComment = "4"
	blockCueSheet      = "5"
	blockPicture       = "6"
	blockInvalid       = "127"
)

var blockNames = map[string]string{
	blockStreamInfo:    "STREAMINFO",
	blockPadding:       "PADDING",
	blockApplication:   "APPLICATION",
	blockSeekTable:     "SEEKTABLE",
	blockVorbisComment: "VORBIS_COMMENT",
	blockCueSheet:      "CUESHEET",
	blockPicture:       "PICTURE",
}

// BlockName returns the name of a metadata block type, or "" if unknown.
func BlockName(id string) string {
	return blockNames[id]
}

// streamInfoSize is the fixed STREAMINFO payload length.
const streamInfoSize = 34

// StreamInfo is the decoded STREAMINFO block.
type StreamInfo struct {
	MinBlockSize  uint16
	MaxBlockSize  uint16
	MinFrameSize  uint32
	MaxFrameSize  uint32
	SampleRate    uint32
	Channels      uint8
	BitsPerSample uint8
	TotalSamples  uint64 // per channel; 0 when unknown
	MD5           [16]byte
}

// Stream is everything read from the metadata blocks.
type Stream struct {
	Info         StreamInfo
	Comments     *vorbis.Comments
	Pictures     []Picture
	SeekPoints   []SeekPoint
	CueSheet     *CueSheet
	Applications []string

	// ID3 is a tag some taggers put before the "fLaC" marker.
	ID3 *id3.Tag

	// AudioOffset is where the first audio frame starts.
	AudioOffset int64

	Blocks []*container.Node
}

type parser struct{}

// Parse walks the metadata blocks of a FLAC file.
func (parser) Parse(r io.ReaderAt, size int64, path string, log zerolog.Logger) (*types.File, error) {
	sr := binary.NewSafeReader(r, size, path)
	c := binary.NewCursor(sr)

	file := &types.File{
		Path:   path,
		Format: types.FormatFLAC,
		Size:   size,
		Audio:  types.AudioInfo{Container: "FLAC", Codec: "FLAC", Lossless: true},
	}
	s := &Stream{}

	if magic, err := c.Peek(3, "ID3 magic"); err == nil && string(magic) == "ID3" {
		tag, err := id3.Read(c, log)
		if err != nil {
			return nil, fmt.Errorf("ID3v2 tag before fLaC marker: %w", err)
		}
		s.ID3 = tag
		file.Warn("container", 0, "ID3v2 tag before fLaC marker")
		file.Warnings = append(file.Warnings, tag.Warnings...)
		if err := c.SeekTo(tag.End); err != nil {
			return nil, err
		}
	}

	start := c.Position()
	marker, err := c.Read(4, "fLaC marker")
	if err != nil {
		return nil, &types.CorruptHeaderError{Path: path, Layout: "FLAC", Offset: start, Need: 4, Have: size - start}
	}
	if string(marker) != "fLaC" {
		return nil, &types.UnsupportedFormatError{Path: path, Reason: "missing fLaC marker"}
	}

	l := container.FLACBlock
	l.ValidID = func(id string) bool { return id != blockInvalid }

	w := container.NewWalker(l)
	w.Logger = log
	w.Stop = func(h container.Header) bool { return h.Raw[0]&0x80 != 0 }
	w.Require(blockStreamInfo, s.readStreamInfo)
	w.Handle(blockVorbisComment, s.readComments)
	w.Handle(blockPicture, s.readPicture)
	w.Handle(blockSeekTable, s.readSeekTable)
	w.Handle(blockCueSheet, s.readCueSheet)
	w.Handle(blockApplication, s.readApplication)

	nodes, err := w.Walk(c, start+4, size)
	if err != nil {
		return nil, err
	}
	if nodes[0].ID != blockStreamInfo {
		return nil, &types.CorruptedFileError{Path: path, Offset: nodes[0].Offset, Reason: "first metadata block is not STREAMINFO"}
	}
	s.Blocks = nodes
	s.AudioOffset = nodes[len(nodes)-1].End()

	file.Warnings = append(file.Warnings, w.Warnings...)
	for _, n := range nodes {
		file.Chunks = append(file.Chunks, types.ChunkInfo{ID: n.ID, Offset: n.Offset, Size: n.Payload, Handled: n.Handled})
	}

	if s.Comments != nil {
		file.Tags = s.Comments.Tags()
		for _, bad := range s.Comments.Invalid {
			file.Warn("metadata", 0, fmt.Sprintf("invalid Vorbis comment %q", bad))
		}
	}
	if s.ID3 != nil {
		// Vorbis comments win over the foreign tag.
		id3Tags := s.ID3.Tags()
		for key, values := range id3Tags.All() {
			if !file.Tags.Has(key) {
				file.Tags.Set(key, values...)
			}
		}
	}

	s.fillAudio(&file.Audio, size)
	file.Native_ = s
	return file, nil
}

// readStreamInfo decodes the bit-packed STREAMINFO block.
func (s *Stream) readStreamInfo(h container.Header, c *binary.Cursor) error {
	if h.Payload != streamInfoSize {
		return fmt.Errorf("STREAMINFO is %d bytes, want %d", h.Payload, streamInfoSize)
	}
	b, err := c.Read(streamInfoSize, "STREAMINFO")
	if err != nil {
		return err
	}

	r := bitio.NewReader(bytes.NewReader(b))
	si := StreamInfo{
		MinBlockSize:  uint16(r.TryReadBits(16)),
		MaxBlockSize:  uint16(r.TryReadBits(16)),
		MinFrameSize:  uint32(r.TryReadBits(24)),
		MaxFrameSize:  uint32(r.TryReadBits(24)),
		SampleRate:    uint32(r.TryReadBits(20)),
		Channels:      uint8(r.TryReadBits(3)) + 1,
		BitsPerSample: uint8(r.TryReadBits(5)) + 1,
		TotalSamples:  r.TryReadBits(36),
	}
	if r.TryError != nil {
		return r.TryError
	}
	copy(si.MD5[:], b[18:])

	if si.SampleRate == 0 {
		return fmt.Errorf("invalid sample rate 0")
	}
	s.Info = si
	return nil
}

func (s *Stream) readComments(h container.Header, c *binary.Cursor) error {
	vc, err := vorbis.Decode(c)
	if err != nil {
		return err
	}
	s.Comments = vc
	return nil
}

func (s *Stream) readApplication(h container.Header, c *binary.Cursor) error {
	id, err := c.Read(4, "application ID")
	if err != nil {
		return err
	}
	s.Applications = append(s.Applications, string(id))
	return c.SeekTo(c.Limit())
}

// fillAudio sets the audio properties from STREAMINFO. The bitrate is the
// average over the audio frames.
func (s *Stream) fillAudio(a *types.AudioInfo, size int64) {
	si := s.Info
	a.SampleRate = int(si.SampleRate)
	a.Channels = int(si.Channels)
	a.BitDepth = int(si.BitsPerSample)
	if si.TotalSamples == 0 {
		return
	}

	rate := uint64(si.SampleRate)
	a.Duration = time.Duration(si.TotalSamples/rate)*time.Second +
		time.Duration(si.TotalSamples%rate)*time.Second/time.Duration(rate)

	if audio := size - s.AudioOffset; audio > 0 {
		a.Bitrate = int(uint64(audio) * 8 * rate / si.TotalSamples)
	}
}

func init() {
	registry.Register(types.FormatFLAC, parser{})
}
