package id3

import (
	"errors"
	"time"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/types"
)

// syncWindow bounds the search for the first frame sync after the tag.
const syncWindow = 64 << 10

var errNoFrame = errors.New("no valid MPEG audio frame found")

// Layer III bitrates in kbps, indexed by the header's bitrate field.
var (
	bitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	bitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
)

// Sample rates in Hz by version field (0 = MPEG 2.5, 2 = MPEG 2, 3 = MPEG 1).
var sampleRates = map[uint32][3]int{
	0: {11025, 12000, 8000},
	2: {22050, 24000, 16000},
	3: {44100, 48000, 32000},
}

// frameHeader is a decoded 4-byte MPEG audio frame header.
type frameHeader struct {
	version    uint32
	bitrate    int // bits per second
	sampleRate int
	channels   int
}

func (h frameHeader) samplesPerFrame() int {
	if h.version == 3 {
		return 1152
	}
	return 576
}

// xingOffset is where a Xing/Info header sits relative to the frame start:
// after the 4-byte header and the side information.
func (h frameHeader) xingOffset() int {
	switch {
	case h.version == 3 && h.channels == 1:
		return 4 + 17
	case h.version == 3:
		return 4 + 32
	case h.channels == 1:
		return 4 + 9
	default:
		return 4 + 17
	}
}

// parseFrameHeader validates a Layer III frame header.
func parseFrameHeader(b []byte) (frameHeader, bool) {
	v := uint32(binary.Uint(b[:4], binary.BigEndian))
	if v&0xFFE00000 != 0xFFE00000 {
		return frameHeader{}, false
	}
	version := (v >> 19) & 0x3
	layer := (v >> 17) & 0x3
	rates, ok := sampleRates[version]
	if !ok || layer != 1 {
		return frameHeader{}, false
	}
	rateIdx := (v >> 10) & 0x3
	brIdx := (v >> 12) & 0xF
	if rateIdx == 3 || brIdx == 0 || brIdx == 15 {
		return frameHeader{}, false
	}

	h := frameHeader{version: version, sampleRate: rates[rateIdx], channels: 2}
	if version == 3 {
		h.bitrate = bitratesV1[brIdx] * 1000
	} else {
		h.bitrate = bitratesV2[brIdx] * 1000
	}
	if (v>>6)&0x3 == 3 {
		h.channels = 1
	}
	return h, true
}

// readAudioInfo finds the first frame at or after start and fills the
// audio properties. Duration comes from a Xing/Info or VBRI frame count
// when present, else from the bitrate and the audio byte length.
func readAudioInfo(sr *binary.SafeReader, start int64, file *types.File) error {
	n := min(sr.Size()-start, syncWindow)
	if n < 4 {
		return errNoFrame
	}
	buf := make([]byte, n)
	if err := sr.ReadAt(buf, start, "MPEG audio"); err != nil {
		return err
	}

	for i := 0; i+4 <= len(buf); i++ {
		h, ok := parseFrameHeader(buf[i:])
		if !ok {
			continue
		}
		file.Audio.Codec = "MP3"
		file.Audio.SampleRate = h.sampleRate
		file.Audio.Channels = h.channels
		file.Audio.Bitrate = h.bitrate

		frameStart := start + int64(i)
		if frames, ok := vbrFrameCount(sr, frameStart, h); ok {
			samples := int64(frames) * int64(h.samplesPerFrame())
			file.Audio.Duration = seconds(float64(samples) / float64(h.sampleRate))
			file.Audio.VBR = true
			return nil
		}
		audioBytes := sr.Size() - frameStart
		file.Audio.Duration = seconds(float64(audioBytes*8) / float64(h.bitrate))
		return nil
	}
	return errNoFrame
}

// vbrFrameCount reads the frame count from a Xing/Info or VBRI header.
func vbrFrameCount(sr *binary.SafeReader, frameStart int64, h frameHeader) (uint32, bool) {
	xing := make([]byte, 12)
	if err := sr.ReadAt(xing, frameStart+int64(h.xingOffset()), "Xing header"); err == nil {
		tag := string(xing[:4])
		flags := binary.Uint(xing[4:8], binary.BigEndian)
		if (tag == "Xing" || tag == "Info") && flags&0x1 != 0 {
			return uint32(binary.Uint(xing[8:12], binary.BigEndian)), true
		}
	}

	vbri := make([]byte, 18)
	if err := sr.ReadAt(vbri, frameStart+36, "VBRI header"); err == nil && string(vbri[:4]) == "VBRI" {
		return uint32(binary.Uint(vbri[14:18], binary.BigEndian)), true
	}
	return 0, false
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
