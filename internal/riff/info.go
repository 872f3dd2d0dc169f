package riff

import (
	"bytes"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/types"
)

// InfoEntry is one LIST/INFO sub-chunk.
type InfoEntry struct {
	ID    string
	Value string
}

// Info is a LIST chunk of form type INFO.
type Info struct {
	Entries []InfoEntry
	Offset  int64 // LIST header offset
}

// ReadInfo walks the sub-chunks following the "INFO" form type.
func ReadInfo(c *binary.Cursor, log zerolog.Logger) (*Info, error) {
	info := &Info{}
	w := container.NewWalker(container.RIFF)
	w.Logger = log
	w.Match = func(string) (container.Handler, bool) {
		return container.Handler{Fn: info.readEntry, Required: true}, true
	}
	if _, err := w.Walk(c, c.Position(), c.Limit()); err != nil {
		return nil, err
	}
	return info, nil
}

func (info *Info) readEntry(h container.Header, c *binary.Cursor) error {
	b, err := c.Rest("INFO " + h.ID)
	if err != nil {
		return err
	}
	info.Entries = append(info.Entries, InfoEntry{ID: h.ID, Value: decodeInfo(b)})
	return nil
}

// decodeInfo strips the terminator and pad bytes. Values that are not
// valid UTF-8 are taken as ISO-8859-1.
func decodeInfo(b []byte) string {
	b = bytes.TrimRight(b, "\x00")
	if utf8.Valid(b) {
		return string(b)
	}
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(s)
}

// Tags returns the entries keyed by sub-chunk ID.
func (info *Info) Tags() types.Tags {
	var tags types.Tags
	for _, e := range info.Entries {
		tags.Add(e.ID, e.Value)
	}
	return tags
}

// IsInfoKey reports whether key names a LIST/INFO sub-chunk: four
// characters, 'I' followed by upper-case letters or digits.
func IsInfoKey(key string) bool {
	if len(key) != 4 || key[0] != 'I' {
		return false
	}
	for i := 1; i < 4; i++ {
		c := key[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// EncodeInfo builds a complete LIST/INFO chunk from the INFO keys of tags,
// in tag order. Values are written as NUL-terminated UTF-8. It returns nil
// when tags hold no INFO keys.
func EncodeInfo(tags types.Tags) ([]byte, error) {
	payload := []byte("INFO")
	for key, values := range tags.All() {
		if !IsInfoKey(key) {
			continue
		}
		for _, v := range values {
			sub, err := container.EncodeChunk(container.RIFF, key, append([]byte(v), 0))
			if err != nil {
				return nil, err
			}
			payload = append(payload, sub...)
		}
	}
	if len(payload) == 4 {
		return nil, nil
	}
	return container.EncodeChunk(container.RIFF, "LIST", payload)
}
