package mp4

import (
	"time"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
)

// Chapter is one entry of a Nero chapter list (moov/udta/chpl).
type Chapter struct {
	Index int // 1-based
	Title string
	Start time.Duration
	End   time.Duration
}

// readChapterList decodes chpl: version and flags, 4 reserved bytes, an
// entry count, then per entry a start time in 100ns units and a
// length-prefixed UTF-8 title.
func (m *Movie) readChapterList(h container.Header, c *binary.Cursor) error {
	if h.Parent != "udta" {
		return nil
	}
	cr := binary.NewChainReader(c, binary.BigEndian)
	cr.Skip(8)
	count := binary.ReadChained[uint8](cr, "chapter count")
	if err := cr.Error(); err != nil {
		return err
	}

	chapters := make([]Chapter, 0, count)
	for i := range int(count) {
		start := binary.ReadChained[uint64](cr, "chapter start time")
		n := binary.ReadChained[uint8](cr, "chapter title length")
		title := cr.String(int(n), "chapter title")
		if err := cr.Error(); err != nil {
			return err
		}
		chapters = append(chapters, Chapter{
			Index: i + 1,
			Title: title,
			Start: time.Duration(start * 100),
		})
	}
	m.Chapters = chapters
	return nil
}

// closeChapters sets each chapter's end to the next chapter's start, and
// the last one's to the movie duration.
func (m *Movie) closeChapters(duration time.Duration) {
	for i := range m.Chapters {
		if i+1 < len(m.Chapters) {
			m.Chapters[i].End = m.Chapters[i+1].Start
		} else {
			m.Chapters[i].End = max(duration, m.Chapters[i].Start)
		}
	}
}
