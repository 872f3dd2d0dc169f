package audiotag

import (
	"io"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/id3"
	"github.com/simonhull/audiotag/internal/types"
)

// Format identifies a container format.
type Format = types.Format

// Supported formats.
const (
	FormatUnknown = types.FormatUnknown
	FormatFLAC    = types.FormatFLAC
	FormatMP3     = types.FormatMP3
	FormatM4A     = types.FormatM4A
	FormatM4B     = types.FormatM4B
	FormatOgg     = types.FormatOgg
	FormatOpus    = types.FormatOpus
	FormatWAV     = types.FormatWAV
)

// DetectFormat identifies the container by its magic bytes. A file that
// starts with an ID3v2 tag is FLAC when "fLaC" follows the tag and MP3
// otherwise.
func DetectFormat(r io.ReaderAt, size int64, path string) (Format, error) { //nolint:gocyclo // One branch per magic pattern
	if size < 4 {
		return FormatUnknown, &UnsupportedFormatError{Path: path, Reason: "file too small"}
	}
	sr := binary.NewSafeReader(r, size, path)

	magic := make([]byte, 4)
	if err := sr.ReadAt(magic, 0, "file magic bytes"); err != nil {
		return FormatUnknown, &UnsupportedFormatError{Path: path, Reason: "failed to read file header"}
	}

	switch {
	case string(magic) == "fLaC":
		return FormatFLAC, nil
	case string(magic[:3]) == "ID3":
		if flacAfterID3(sr) {
			return FormatFLAC, nil
		}
		return FormatMP3, nil
	case magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return FormatMP3, nil
	case string(magic) == "OggS":
		return detectOgg(sr), nil
	case string(magic) == "RIFF":
		form := make([]byte, 4)
		if err := sr.ReadAt(form, 8, "RIFF form type"); err == nil && string(form) == "WAVE" {
			return FormatWAV, nil
		}
		return FormatUnknown, &UnsupportedFormatError{Path: path, Reason: "RIFF file is not WAVE"}
	}

	boxType := make([]byte, 4)
	if err := sr.ReadAt(boxType, 4, "ftyp box type"); err != nil || string(boxType) != "ftyp" {
		return FormatUnknown, &UnsupportedFormatError{Path: path, Reason: "unsupported file format"}
	}
	boxSize, err := binary.Read[uint32](sr, 0, "ftyp box size")
	if err != nil || boxSize < 16 {
		return FormatUnknown, &UnsupportedFormatError{Path: path, Reason: "ftyp box too small"}
	}
	brand := make([]byte, 4)
	if err := sr.ReadAt(brand, 8, "major brand"); err != nil {
		return FormatUnknown, &UnsupportedFormatError{Path: path, Reason: "failed to read major brand"}
	}
	if string(brand) == "M4B " {
		return FormatM4B, nil
	}
	return FormatM4A, nil
}

// flacAfterID3 reports whether a FLAC stream follows the ID3v2 tag at the
// start of the file.
func flacAfterID3(sr *binary.SafeReader) bool {
	h, err := id3.ReadHeader(binary.NewCursor(sr))
	if err != nil {
		return false
	}
	end := int64(id3.HeaderSize) + int64(h.Size)
	if h.Version == 4 && h.Flags&id3.FlagFooter != 0 {
		end += id3.HeaderSize
	}
	marker := make([]byte, 4)
	return sr.ReadAt(marker, end, "fLaC marker") == nil && string(marker) == "fLaC"
}

// detectOgg tells Opus from Vorbis by the first packet of the first page.
func detectOgg(sr *binary.SafeReader) Format {
	count := make([]byte, 1)
	if err := sr.ReadAt(count, 26, "segment count"); err != nil {
		return FormatOgg
	}
	head := make([]byte, 8)
	if err := sr.ReadAt(head, 27+int64(count[0]), "codec magic"); err == nil && string(head) == "OpusHead" {
		return FormatOpus
	}
	return FormatOgg
}
