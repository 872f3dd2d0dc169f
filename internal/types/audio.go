package types

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// AudioInfo represents technical audio properties.
//
// Values come from each format's audio-properties block (WAV "fmt ",
// MP4 "mvhd"/"stsd", FLAC STREAMINFO, Vorbis identification header, the
// first MPEG frame header). Zero means the container did not say.
type AudioInfo struct {
	Codec      string // "PCM", "AAC", "Vorbis", ...
	Container  string // "RIFF", "MP4", "Ogg", ...
	Duration   time.Duration
	SampleRate int
	BitDepth   int
	Channels   int
	Bitrate    int // bits per second
	Lossless   bool
	VBR        bool
}

// String returns a human-readable representation of the audio info.
// Example output: "FLAC 44.1kHz 16-bit stereo".
func (a AudioInfo) String() string {
	sampleRate := ""
	if a.SampleRate > 0 {
		sampleRate = fmt.Sprintf("%.1fkHz", float64(a.SampleRate)/1000)
	}

	bitDepth := ""
	if a.BitDepth > 0 {
		bitDepth = fmt.Sprintf("%d-bit", a.BitDepth)
	}

	channels := channelDescription(a.Channels)

	quality := ""
	if a.Lossless {
		quality = "lossless"
	} else if a.Bitrate > 0 {
		quality = fmt.Sprintf("%dkbps", a.Bitrate/1000)
		if a.VBR {
			quality += " VBR"
		}
	}

	parts := []string{a.Codec, sampleRate, bitDepth, channels, quality}

	return strings.Join(slices.DeleteFunc(parts, func(p string) bool { return p == "" }), " ")
}

// channelDescription returns a human-readable channel description.
func channelDescription(channels int) string {
	switch channels {
	case 0:
		return ""
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 4:
		return "quad"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}
