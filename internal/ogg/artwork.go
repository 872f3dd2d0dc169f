package ogg

import (
	"encoding/base64"
	"fmt"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/flac"
	"github.com/simonhull/audiotag/internal/types"
	"github.com/simonhull/audiotag/internal/vorbis"
)

// pictureKey is the comment holding a base64 FLAC PICTURE block.
const pictureKey = "METADATA_BLOCK_PICTURE"

// decodePictures decodes every METADATA_BLOCK_PICTURE comment. Values that
// do not decode are reported as warnings and left in the tags.
func decodePictures(vc *vorbis.Comments, path string) ([]flac.Picture, []types.Warning) {
	var (
		pics     []flac.Picture
		warnings []types.Warning
	)
	for i, e := range vc.Entries {
		if e.Key != pictureKey {
			continue
		}
		p, err := decodePicture(e.Value, path)
		if err != nil {
			warnings = append(warnings, types.Warning{
				Stage:   "metadata",
				Message: fmt.Sprintf("%s comment %d: %v", pictureKey, i, err),
			})
			continue
		}
		pics = append(pics, p)
	}
	return pics, warnings
}

func decodePicture(value, path string) (flac.Picture, error) {
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return flac.Picture{}, fmt.Errorf("invalid base64: %w", err)
	}
	return flac.DecodePicture(binary.NewBytesCursor(data, path))
}
