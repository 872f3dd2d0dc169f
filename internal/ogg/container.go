// Package ogg reads metadata from Ogg Vorbis and Ogg Opus files.
//
// Pages are read in order and their lacing values reassembled into
// packets. Only the first logical stream is decoded: its identification,
// comment and (for Vorbis) setup header packets. The duration comes from
// the granule position of the stream's last page.
package ogg

import (
	"bytes"
	"fmt"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/types"
)

// pageHeaderSize is the fixed part of a page header, before the segment
// table.
const pageHeaderSize = 27

// Page header flags.
const (
	flagContinued = 0x01
	flagFirst     = 0x02
)

// noGranule marks a page on which no packet ends.
const noGranule = ^uint64(0)

var capture = []byte("OggS")

// Page is one Ogg page.
type Page struct {
	Offset   int64
	Flags    byte
	Granule  uint64
	Serial   uint32
	Sequence uint32
	Segments []byte // lacing values
	Data     []byte
}

// Size returns the page length including its header.
func (p *Page) Size() int64 {
	return int64(pageHeaderSize + len(p.Segments) + len(p.Data))
}

// readPage reads the page at the cursor position and advances past it.
func readPage(c *binary.Cursor) (*Page, error) {
	p := &Page{Offset: c.Position()}
	cr := binary.NewChainReader(c, binary.LittleEndian)
	magic := cr.Bytes(4, "capture pattern")
	version := binary.ReadChained[uint8](cr, "stream structure version")
	p.Flags = binary.ReadChained[uint8](cr, "header type")
	p.Granule = binary.ReadChained[uint64](cr, "granule position")
	p.Serial = binary.ReadChained[uint32](cr, "serial number")
	p.Sequence = binary.ReadChained[uint32](cr, "page sequence number")
	cr.Skip(4) // CRC
	count := binary.ReadChained[uint8](cr, "segment count")
	if err := cr.Error(); err != nil {
		return nil, &types.CorruptHeaderError{
			Path: c.Path(), Layout: "Ogg", Offset: p.Offset,
			Need: pageHeaderSize, Have: c.Limit() - p.Offset,
		}
	}
	if !bytes.Equal(magic, capture) {
		return nil, &types.CorruptHeaderError{Path: c.Path(), Layout: "Ogg", Offset: p.Offset, Reason: "missing OggS capture pattern"}
	}
	if version != 0 {
		return nil, &types.CorruptHeaderError{Path: c.Path(), Layout: "Ogg", Offset: p.Offset, Reason: fmt.Sprintf("unsupported stream structure version %d", version)}
	}

	p.Segments = cr.Bytes(int(count), "segment table")
	n := 0
	for _, s := range p.Segments {
		n += int(s)
	}
	p.Data = cr.Bytes(n, "page data")
	if err := cr.Error(); err != nil {
		return nil, &types.InvalidChunkSizeError{
			Path:      c.Path(),
			ID:        "OggS",
			Reason:    "page runs past end of file",
			Offset:    p.Offset,
			Declared:  uint64(n),
			Available: c.Limit() - p.Offset,
		}
	}
	return p, nil
}

// packetReader reassembles the packets of one logical stream. Pages of
// other streams are skipped.
type packetReader struct {
	c       *binary.Cursor
	serial  uint32
	pages   []*Page
	pending []byte
	queue   [][]byte
}

func newPacketReader(c *binary.Cursor) *packetReader {
	return &packetReader{c: c}
}

// next returns the next complete packet.
func (pr *packetReader) next() ([]byte, error) {
	for len(pr.queue) == 0 {
		if pr.c.Remaining() == 0 {
			return nil, &types.CorruptedFileError{Path: pr.c.Path(), Offset: pr.c.Position(), Reason: "end of file inside header packets"}
		}
		p, err := readPage(pr.c)
		if err != nil {
			return nil, err
		}
		if len(pr.pages) == 0 {
			pr.serial = p.Serial
		} else if p.Serial != pr.serial {
			continue
		}
		if p.Flags&flagContinued == 0 && len(pr.pending) > 0 {
			return nil, &types.CorruptedFileError{Path: pr.c.Path(), Offset: p.Offset, Reason: "packet not continued on next page"}
		}
		pr.pages = append(pr.pages, p)

		off := 0
		for _, s := range p.Segments {
			pr.pending = append(pr.pending, p.Data[off:off+int(s)]...)
			off += int(s)
			if s < 255 {
				pr.queue = append(pr.queue, pr.pending)
				pr.pending = nil
			}
		}
	}
	pkt := pr.queue[0]
	pr.queue = pr.queue[1:]
	return pkt, nil
}

// lastGranule finds the granule position of the last page of the stream
// by scanning backwards from the end of the file, at most maxScan bytes.
// Pages of other streams and pages without a granule position are passed
// over.
func lastGranule(sr *binary.SafeReader, serial uint32) (uint64, bool) {
	const (
		window  = 64 << 10
		maxScan = 1 << 20
	)

	size := sr.Size()
	end := size
	for end > 0 && size-end < maxScan {
		start := max(end-window, 0)
		buf := make([]byte, end-start)
		if err := sr.ReadAt(buf, start, "trailing pages"); err != nil {
			return 0, false
		}
		for i := bytes.LastIndex(buf, capture); i >= 0; i = bytes.LastIndex(buf[:i], capture) {
			c := binary.NewCursor(sr)
			if c.SeekTo(start+int64(i)) != nil {
				continue
			}
			p, err := readPage(c)
			if err != nil || p.Serial != serial || p.Granule == noGranule {
				continue
			}
			return p.Granule, true
		}
		if start == 0 {
			break
		}
		// Overlap by a header so a capture pattern split by the window edge is
		// still found.
		end = start + pageHeaderSize
	}
	return 0, false
}
