package audiotag

import (
	"time"

	"github.com/simonhull/audiotag/internal/mp4"
)

// Chapter is a named section of an audiobook or long recording.
type Chapter struct {
	Index int // 1-based
	Title string
	Start time.Duration
	End   time.Duration
}

// Chapters returns the Nero chapter list (moov/udta/chpl) of an MP4 file.
// Other formats return nil.
func (f *File) Chapters() []Chapter {
	m, ok := f.Native_.(*mp4.Movie)
	if !ok {
		return nil
	}
	out := make([]Chapter, len(m.Chapters))
	for i, c := range m.Chapters {
		out[i] = Chapter(c)
	}
	return out
}
