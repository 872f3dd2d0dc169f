package audiotag

import (
	"github.com/simonhull/audiotag/internal/types"
)

// Tags maps format-native keys to their values, in file order. Keys are
// never translated between formats: a WAV title is "INAM", an MP3 title
// "TIT2", an MP4 title "©nam" and a FLAC or Ogg title "TITLE".
type Tags = types.Tags

// ChunkInfo describes one top-level chunk, box, metadata block or page.
type ChunkInfo = types.ChunkInfo
