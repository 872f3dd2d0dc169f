package ogg

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/flac"
	"github.com/simonhull/audiotag/internal/registry"
	"github.com/simonhull/audiotag/internal/types"
	"github.com/simonhull/audiotag/internal/vorbis"
)

// Stream is the decoded header of the first logical stream.
type Stream struct {
	Codec  string // "Vorbis" or "Opus"
	Serial uint32

	Vorbis   *Identification // nil for Opus
	Opus     *OpusHead       // nil for Vorbis
	Comments *vorbis.Comments
	Pictures []flac.Picture // from METADATA_BLOCK_PICTURE comments

	// Granule is the last granule position; HasGranule is false when no
	// page with one was found near the end of the file.
	Granule    uint64
	HasGranule bool

	// HeaderPages are the pages holding the header packets; audio starts
	// after the last one.
	HeaderPages []*Page
	AudioOffset int64
}

type parser struct{}

// Parse reads the header packets of the first logical stream. A damaged
// identification or setup header is an error; a damaged comment header is
// a warning.
func (parser) Parse(r io.ReaderAt, size int64, path string, log zerolog.Logger) (*types.File, error) {
	sr := binary.NewSafeReader(r, size, path)
	c := binary.NewCursor(sr)

	if magic, err := c.Peek(4, "Ogg capture pattern"); err != nil || string(magic) != "OggS" {
		return nil, &types.UnsupportedFormatError{Path: path, Reason: "missing OggS capture pattern"}
	}

	file := &types.File{
		Path:  path,
		Size:  size,
		Audio: types.AudioInfo{Container: "Ogg", VBR: true},
	}
	s := &Stream{}
	pr := newPacketReader(c)

	first, err := pr.next()
	if err != nil {
		return nil, err
	}
	s.Serial = pr.serial
	if pr.pages[0].Flags&flagFirst == 0 {
		file.Warn("container", 0, "first page lacks the beginning-of-stream flag")
	}

	switch {
	case len(first) >= 8 && string(first[:8]) == "OpusHead":
		err = s.readOpus(pr, first, file)
	case len(first) >= 7 && first[0] == packetIdentification && string(first[1:7]) == "vorbis":
		err = s.readVorbis(pr, first, file)
	default:
		return nil, &types.UnsupportedFormatError{Path: path, Reason: "Ogg stream is neither Vorbis nor Opus"}
	}
	if err != nil {
		return nil, err
	}

	last := pr.pages[len(pr.pages)-1]
	s.HeaderPages = pr.pages
	s.AudioOffset = last.Offset + last.Size()
	for _, p := range pr.pages {
		file.Chunks = append(file.Chunks, types.ChunkInfo{ID: "OggS", Offset: p.Offset, Size: int64(len(p.Data)), Handled: true})
	}
	log.Debug().
		Str("codec", s.Codec).
		Uint32("serial", s.Serial).
		Int("header_pages", len(s.HeaderPages)).
		Msg("ogg headers")

	if s.Comments != nil {
		file.Tags = s.Comments.Tags()
		for _, bad := range s.Comments.Invalid {
			file.Warn("metadata", 0, fmt.Sprintf("invalid Vorbis comment %q", bad))
		}
		pics, warnings := decodePictures(s.Comments, path)
		s.Pictures = pics
		file.Warnings = append(file.Warnings, warnings...)
	}

	s.Granule, s.HasGranule = lastGranule(sr, s.Serial)
	if !s.HasGranule {
		file.Warn("technical", 0, "no granule position found, duration unknown")
	}
	s.fillAudio(&file.Audio, size)
	file.Native_ = s
	return file, nil
}

func (s *Stream) readVorbis(pr *packetReader, first []byte, file *types.File) error {
	s.Codec = "Vorbis"
	file.Format = types.FormatOgg

	id, err := readIdentification(first, file.Path)
	if err != nil {
		return &types.CorruptedFileError{Path: file.Path, Reason: err.Error()}
	}
	s.Vorbis = id

	pkt, err := pr.next()
	if err != nil {
		return err
	}
	if s.Comments, err = readVorbisComments(pkt, file.Path); err != nil {
		file.Warn("metadata", pr.pages[len(pr.pages)-1].Offset, "comment header: "+err.Error())
	}

	pkt, err = pr.next()
	if err != nil {
		return err
	}
	if err := checkSetup(pkt, file.Path); err != nil {
		return &types.CorruptedFileError{Path: file.Path, Offset: pr.pages[len(pr.pages)-1].Offset, Reason: err.Error()}
	}
	return nil
}

func (s *Stream) readOpus(pr *packetReader, first []byte, file *types.File) error {
	s.Codec = "Opus"
	file.Format = types.FormatOpus

	head, err := readOpusHead(first, file.Path)
	if err != nil {
		return &types.CorruptedFileError{Path: file.Path, Reason: err.Error()}
	}
	s.Opus = head

	pkt, err := pr.next()
	if err != nil {
		return err
	}
	if s.Comments, err = readOpusTags(pkt, file.Path); err != nil {
		file.Warn("metadata", pr.pages[len(pr.pages)-1].Offset, "OpusTags: "+err.Error())
	}
	return nil
}

// fillAudio sets the audio properties. Without a nominal bitrate the
// bitrate is the average over the audio pages.
func (s *Stream) fillAudio(a *types.AudioInfo, size int64) {
	a.Codec = s.Codec

	var rate, skip uint64
	if s.Vorbis != nil {
		rate = uint64(s.Vorbis.SampleRate)
		a.Channels = int(s.Vorbis.Channels)
		if s.Vorbis.BitrateNominal > 0 {
			a.Bitrate = int(s.Vorbis.BitrateNominal)
		}
	} else {
		rate = opusRate
		skip = uint64(s.Opus.PreSkip)
		a.Channels = int(s.Opus.Channels)
	}
	a.SampleRate = int(rate)

	if !s.HasGranule || s.Granule <= skip {
		return
	}
	samples := s.Granule - skip
	a.Duration = time.Duration(samples/rate)*time.Second +
		time.Duration(samples%rate)*time.Second/time.Duration(rate)

	if audio := size - s.AudioOffset; a.Bitrate == 0 && audio > 0 {
		a.Bitrate = int(uint64(audio) * 8 * rate / samples)
	}
}

func init() {
	registry.Register(types.FormatOgg, parser{})
	registry.Register(types.FormatOpus, parser{})
}
