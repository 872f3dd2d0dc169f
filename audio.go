package audiotag

import (
	"github.com/simonhull/audiotag/internal/types"
)

// AudioInfo holds the technical properties a container declares: codec,
// sample rate, channels, bit depth, bitrate and duration. Zero means the
// container did not say.
type AudioInfo = types.AudioInfo
