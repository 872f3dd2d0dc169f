package ogg

import (
	"fmt"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/vorbis"
)

// Vorbis header packet types.
const (
	packetIdentification = 1
	packetComment        = 3
	packetSetup          = 5
)

// identificationSize is the length of a Vorbis identification header.
const identificationSize = 30

// Identification is the Vorbis identification header.
type Identification struct {
	Version        uint32
	Channels       uint8
	SampleRate     uint32
	BitrateMaximum int32
	BitrateNominal int32
	BitrateMinimum int32
	BlockSize0     int // log2 of the short block size
	BlockSize1     int
}

// checkVorbisPacket verifies the packet type byte and "vorbis" pattern.
func checkVorbisPacket(c *binary.Cursor, typ byte, what string) error {
	b, err := c.Read(7, what)
	if err != nil {
		return err
	}
	if b[0] != typ || string(b[1:]) != "vorbis" {
		return fmt.Errorf("not a Vorbis %s (type %d, pattern %q)", what, b[0], b[1:])
	}
	return nil
}

// readIdentification decodes the fixed-offset identification header.
func readIdentification(pkt []byte, path string) (*Identification, error) {
	if len(pkt) < identificationSize {
		return nil, fmt.Errorf("identification header is %d bytes, want %d", len(pkt), identificationSize)
	}
	c := binary.NewBytesCursor(pkt, path)
	if err := checkVorbisPacket(c, packetIdentification, "identification header"); err != nil {
		return nil, err
	}

	cr := binary.NewChainReader(c, binary.LittleEndian)
	id := &Identification{
		Version:        binary.ReadChained[uint32](cr, "vorbis version"),
		Channels:       binary.ReadChained[uint8](cr, "audio channels"),
		SampleRate:     binary.ReadChained[uint32](cr, "sample rate"),
		BitrateMaximum: int32(binary.ReadChained[uint32](cr, "maximum bitrate")),
		BitrateNominal: int32(binary.ReadChained[uint32](cr, "nominal bitrate")),
		BitrateMinimum: int32(binary.ReadChained[uint32](cr, "minimum bitrate")),
	}
	sizes := binary.ReadChained[uint8](cr, "block sizes")
	framing := binary.ReadChained[uint8](cr, "framing flag")
	if err := cr.Error(); err != nil {
		return nil, err
	}
	id.BlockSize0 = int(sizes & 0x0F)
	id.BlockSize1 = int(sizes >> 4)

	switch {
	case id.Version != 0:
		return nil, fmt.Errorf("unsupported Vorbis version %d", id.Version)
	case id.Channels == 0:
		return nil, fmt.Errorf("zero audio channels")
	case id.SampleRate == 0:
		return nil, fmt.Errorf("zero sample rate")
	case framing&1 == 0:
		return nil, fmt.Errorf("identification header framing bit not set")
	}
	return id, nil
}

// readVorbisComments decodes the comment header: the packet pattern, a
// comment block and the framing bit.
func readVorbisComments(pkt []byte, path string) (*vorbis.Comments, error) {
	c := binary.NewBytesCursor(pkt, path)
	if err := checkVorbisPacket(c, packetComment, "comment header"); err != nil {
		return nil, err
	}
	vc, err := vorbis.Decode(c)
	if err != nil {
		return nil, err
	}
	framing, err := c.Read(1, "framing bit")
	if err != nil || framing[0]&1 == 0 {
		return nil, fmt.Errorf("comment header framing bit not set")
	}
	return vc, nil
}

// checkSetup validates the setup header pattern. The codebooks themselves
// are not needed for metadata.
func checkSetup(pkt []byte, path string) error {
	return checkVorbisPacket(binary.NewBytesCursor(pkt, path), packetSetup, "setup header")
}
