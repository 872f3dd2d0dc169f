package flac

import (
	"math"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/field"
	"github.com/simonhull/audiotag/internal/frame"
)

// Picture is a decoded PICTURE block.
type Picture struct {
	Type        uint32 // same numbering as ID3v2 APIC
	MIME        string
	Description string
	Width       uint32
	Height      uint32
	Depth       uint32 // bits per pixel
	Colors      uint32 // palette size for indexed images, else 0
	Data        []byte
}

// TypeName returns the picture type name, such as "Cover (front)".
func (p Picture) TypeName() string {
	return frame.PictureType(uint64(p.Type))
}

// DecodePicture decodes a PICTURE block payload. Ogg streams carry the same
// structure base64-encoded in METADATA_BLOCK_PICTURE comments.
func DecodePicture(c *binary.Cursor) (Picture, error) {
	cr := binary.NewChainReader(c, binary.BigEndian)
	p := Picture{Type: binary.ReadChained[uint32](cr, "picture type")}
	p.MIME = cr.String(int(binary.ReadChained[uint32](cr, "MIME type length")), "MIME type")
	p.Description = cr.String(int(binary.ReadChained[uint32](cr, "description length")), "description")
	p.Width = binary.ReadChained[uint32](cr, "width")
	p.Height = binary.ReadChained[uint32](cr, "height")
	p.Depth = binary.ReadChained[uint32](cr, "color depth")
	p.Colors = binary.ReadChained[uint32](cr, "indexed colors")
	p.Data = cr.Bytes(int(binary.ReadChained[uint32](cr, "picture data length")), "picture data")
	return p, cr.Error()
}

func (s *Stream) readPicture(h container.Header, c *binary.Cursor) error {
	p, err := DecodePicture(c)
	if err != nil {
		return err
	}
	s.Pictures = append(s.Pictures, p)
	return nil
}

// SeekPoint is one SEEKTABLE entry.
type SeekPoint struct {
	SampleNumber uint64
	Offset       uint64 // from the first frame header
	Samples      uint16
}

// Placeholder reports whether the point is an unused placeholder.
func (p SeekPoint) Placeholder() bool {
	return p.SampleNumber == math.MaxUint64
}

// readSeekTable decodes the 18-byte seek points filling the block.
func (s *Stream) readSeekTable(h container.Header, c *binary.Cursor) error {
	b, err := c.Rest("SEEKTABLE")
	if err != nil {
		return err
	}
	points := field.NewRepeated("SeekPoint",
		field.NewNumber("SampleNumber", 8),
		field.NewNumber("Offset", 8),
		field.NewNumber("Samples", 2),
	)
	if err := points.DecodeRange(b, 0, len(b)); err != nil {
		return err
	}
	for _, inst := range points.Instances() {
		s.SeekPoints = append(s.SeekPoints, SeekPoint{
			SampleNumber: inst[0].(*field.Number).Value(),
			Offset:       inst[1].(*field.Number).Value(),
			Samples:      uint16(inst[2].(*field.Number).Value()),
		})
	}
	return nil
}
