package ogg

import (
	"fmt"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/vorbis"
)

// opusRate is the decoder output rate of every Opus stream; granule
// positions count samples at this rate.
const opusRate = 48000

// OpusHead is the Opus identification header.
type OpusHead struct {
	Version         uint8
	Channels        uint8
	PreSkip         uint16
	InputSampleRate uint32 // informational
	OutputGain      int16  // Q7.8 dB
	MappingFamily   uint8
}

// Gain returns the output gain in dB.
func (h *OpusHead) Gain() float64 {
	return float64(h.OutputGain) / 256
}

func readOpusHead(pkt []byte, path string) (*OpusHead, error) {
	c := binary.NewBytesCursor(pkt, path)
	cr := binary.NewChainReader(c, binary.LittleEndian)
	if magic := cr.String(8, "OpusHead magic"); magic != "OpusHead" {
		if err := cr.Error(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("invalid OpusHead magic %q", magic)
	}
	h := &OpusHead{
		Version:         binary.ReadChained[uint8](cr, "version"),
		Channels:        binary.ReadChained[uint8](cr, "channel count"),
		PreSkip:         binary.ReadChained[uint16](cr, "pre-skip"),
		InputSampleRate: binary.ReadChained[uint32](cr, "input sample rate"),
		OutputGain:      int16(binary.ReadChained[uint16](cr, "output gain")),
		MappingFamily:   binary.ReadChained[uint8](cr, "channel mapping family"),
	}
	if err := cr.Error(); err != nil {
		return nil, err
	}
	// Versions 1-15 share the major version 0 layout.
	if h.Version == 0 || h.Version > 15 {
		return nil, fmt.Errorf("unsupported Opus version %d", h.Version)
	}
	if h.Channels == 0 {
		return nil, fmt.Errorf("zero channels")
	}
	return h, nil
}

func readOpusTags(pkt []byte, path string) (*vorbis.Comments, error) {
	c := binary.NewBytesCursor(pkt, path)
	magic, err := c.Read(8, "OpusTags magic")
	if err != nil {
		return nil, err
	}
	if string(magic) != "OpusTags" {
		return nil, fmt.Errorf("invalid OpusTags magic %q", magic)
	}
	return vorbis.Decode(c)
}
