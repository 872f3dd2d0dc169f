package riff

import (
	"fmt"
	"io"
	"math"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/id3"
	"github.com/simonhull/audiotag/internal/types"
)

type writer struct{}

// piece is one top-level chunk of the output: either bytes built in memory
// or a range copied from the original file.
type piece struct {
	data []byte

	offset, length int64
	pad            bool
}

func (p piece) size() int64 {
	if p.data != nil {
		return int64(len(p.data))
	}
	n := p.length
	if p.pad {
		n++
	}
	return n
}

// Write re-emits the chunk list with a corrected RIFF length. INFO keys
// of file.Tags are written to a rebuilt LIST/INFO chunk; any other key goes
// to an embedded ID3v2 chunk, created when the file has none. All other
// chunks, and any bytes after the RIFF chunk, are copied unchanged.
func (writer) Write(w io.Writer, file *types.File, original io.ReaderAt, originalSize int64) error {
	wave, ok := file.Native_.(*Wave)
	if !ok {
		return &types.UnsupportedWriteError{Format: types.FormatWAV, Reason: "file was not parsed as RIFF/WAVE"}
	}

	var infoTags, id3Tags types.Tags
	for key, values := range file.Tags.All() {
		if IsInfoKey(key) {
			infoTags.Set(key, values...)
		} else {
			id3Tags.Set(key, values...)
		}
	}

	info, err := EncodeInfo(infoTags)
	if err != nil {
		return err
	}
	tag, err := wave.encodeID3(id3Tags)
	if err != nil {
		return err
	}

	var pieces []piece
	for _, n := range wave.Chunks {
		switch {
		case wave.Info != nil && n.Offset == wave.Info.Offset:
			if info != nil {
				pieces = append(pieces, piece{data: info})
				info = nil
			}
		case wave.ID3 != nil && (n.ID == "id3 " || n.ID == "ID3 "):
			if tag != nil {
				pieces = append(pieces, piece{data: tag})
				tag = nil
			}
		default:
			pieces = append(pieces, piece{
				offset: n.Offset,
				length: int64(n.Len) + n.Payload,
				pad:    n.Payload%2 == 1,
			})
		}
	}
	if info != nil {
		pieces = append(pieces, piece{data: info})
	}
	if tag != nil {
		pieces = append(pieces, piece{data: tag})
	}

	total := int64(4)
	for _, p := range pieces {
		total += p.size()
	}
	if total > math.MaxUint32 {
		return &types.OutOfRangeValueError{Field: "RIFF", Reason: "file length", Value: uint64(total), Max: math.MaxUint32}
	}

	sw := binary.NewSafeWriter(w)
	if err := sw.WriteString("RIFF"); err != nil {
		return err
	}
	if err := binary.WriteLE(sw, uint32(total)); err != nil {
		return err
	}
	if err := sw.WriteString("WAVE"); err != nil {
		return err
	}
	for _, p := range pieces {
		if p.data != nil {
			if err := sw.WriteBytes(p.data); err != nil {
				return err
			}
			continue
		}
		if err := sw.Copy(original, p.offset, p.length); err != nil {
			return err
		}
		if p.pad {
			if err := sw.WriteBytes([]byte{0}); err != nil {
				return err
			}
		}
	}
	if wave.TrailerSize > 0 {
		return sw.Copy(original, wave.TrailerOffset, wave.TrailerSize)
	}
	return nil
}

// encodeID3 builds the "id3 " chunk for the non-INFO keys, or returns nil
// when there is neither an existing tag nor a key to store.
func (wv *Wave) encodeID3(tags types.Tags) ([]byte, error) {
	var tag *id3.Tag
	switch {
	case wv.ID3 != nil:
		tag = wv.ID3.Clone()
	case tags.Len() == 0:
		return nil, nil
	default:
		tag, _ = id3.NewTag(4)
	}

	if err := tag.Apply(tags); err != nil {
		return nil, fmt.Errorf("id3 chunk: %w", err)
	}
	b, err := tag.Encode(0)
	if err != nil {
		return nil, err
	}
	return container.EncodeChunk(container.RIFF, "id3 ", b)
}
