package flac

import (
	"fmt"
	"strings"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
)

// CueSheet is a decoded CUESHEET block.
type CueSheet struct {
	MediaCatalogNumber string
	LeadIn             uint64 // samples
	IsCD               bool
	Tracks             []CueTrack
}

// CueTrack is one track of a cue sheet. Number 170 (CD) or 255 is the
// lead-out.
type CueTrack struct {
	Offset      uint64 // samples from the start of the audio
	Number      uint8
	ISRC        string
	IsAudio     bool
	PreEmphasis bool
	Indices     []CueIndex
}

// CueIndex is an index point, relative to its track.
type CueIndex struct {
	Offset uint64
	Number uint8
}

// Catalog number 128, lead-in 8, flags 1, reserved 258, track count 1. A
// track is 36 bytes before its 12-byte index points.
const (
	cueSheetHeaderSize = 396
	cueTrackSize       = 36
)

func (s *Stream) readCueSheet(h container.Header, c *binary.Cursor) error {
	if h.Payload < cueSheetHeaderSize {
		return fmt.Errorf("CUESHEET is %d bytes, need at least %d", h.Payload, cueSheetHeaderSize)
	}

	cr := binary.NewChainReader(c, binary.BigEndian)
	cs := &CueSheet{
		MediaCatalogNumber: strings.TrimRight(cr.String(128, "media catalog number"), "\x00"),
		LeadIn:             binary.ReadChained[uint64](cr, "lead-in"),
	}
	cs.IsCD = binary.ReadChained[uint8](cr, "cuesheet flags")&0x80 != 0
	cr.Skip(258)
	count := binary.ReadChained[uint8](cr, "track count")
	if err := cr.Error(); err != nil {
		return err
	}
	if int64(count)*cueTrackSize > c.Remaining() {
		return fmt.Errorf("CUESHEET declares %d tracks in %d bytes", count, c.Remaining())
	}

	for i := range int(count) {
		t, err := readCueTrack(cr)
		if err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}
		cs.Tracks = append(cs.Tracks, t)
	}
	s.CueSheet = cs
	return nil
}

func readCueTrack(cr *binary.ChainReader) (CueTrack, error) {
	t := CueTrack{
		Offset: binary.ReadChained[uint64](cr, "track offset"),
		Number: binary.ReadChained[uint8](cr, "track number"),
		ISRC:   strings.TrimRight(cr.String(12, "ISRC"), "\x00"),
	}
	flags := binary.ReadChained[uint8](cr, "track flags")
	t.IsAudio = flags&0x80 == 0
	t.PreEmphasis = flags&0x40 != 0
	cr.Skip(13)
	n := binary.ReadChained[uint8](cr, "index count")
	for range int(n) {
		idx := CueIndex{
			Offset: binary.ReadChained[uint64](cr, "index offset"),
			Number: binary.ReadChained[uint8](cr, "index number"),
		}
		cr.Skip(3)
		if cr.Error() != nil {
			break
		}
		t.Indices = append(t.Indices, idx)
	}
	return t, cr.Error()
}
