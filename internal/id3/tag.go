// Package id3 reads and writes ID3v2.2, ID3v2.3 and ID3v2.4 tags.
//
// The tag header is parsed here; the frame list is walked with the
// version's container layout and every frame body is decoded through
// package frame. Frames that cannot be decoded (compressed, encrypted or
// malformed) keep their stored bytes so a rewrite copies them through.
package id3

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/field"
	"github.com/simonhull/audiotag/internal/frame"
	"github.com/simonhull/audiotag/internal/types"
)

// HeaderSize is the size of the tag header and of the optional footer.
const HeaderSize = 10

// Tag header flags.
const (
	FlagUnsynchronisation = 0x80
	FlagExtendedHeader    = 0x40 // compression in ID3v2.2
	FlagExperimental      = 0x20
	FlagFooter            = 0x10
)

// Frame header flags (second flag byte), by version.
const (
	v23Compression = 0x0080
	v23Encryption  = 0x0040
	v23Grouping    = 0x0020

	v24Grouping          = 0x0040
	v24Compression       = 0x0008
	v24Encryption        = 0x0004
	v24Unsynchronisation = 0x0002
	v24DataLength        = 0x0001
)

// Header is the 10-byte tag header.
type Header struct {
	Version  byte // major version: 2, 3 or 4
	Revision byte
	Flags    byte
	Size     uint32 // bytes after the header, excluding any footer
}

// Frame is one frame of a tag.
type Frame struct {
	ID     string
	Flags  uint16
	Offset int64 // header offset inside the tag data

	// Raw is the payload exactly as stored in the file.
	Raw []byte

	// Body is nil when the payload could not be decoded.
	Body *frame.Body
}

// Opaque reports whether the frame is written back from Raw.
func (f *Frame) Opaque() bool { return f.Body == nil }

// Tag is a parsed ID3v2 tag.
type Tag struct {
	Header
	Frames []*Frame

	// Offset is where the tag starts in its source; End is one past its
	// last byte, footer included.
	Offset int64
	End    int64

	Warnings []types.Warning
}

// Layout returns the frame header layout for a major version.
func Layout(version byte) (container.Layout, error) {
	switch version {
	case 2:
		return container.ID3v22Frame, nil
	case 3:
		return container.ID3v23Frame, nil
	case 4:
		return container.ID3v24Frame, nil
	default:
		return container.Layout{}, fmt.Errorf("unsupported ID3v2 version 2.%d", version)
	}
}

// ReadHeader parses a tag header at the cursor position.
func ReadHeader(c *binary.Cursor) (Header, error) {
	offset := c.Position()
	b, err := c.Read(HeaderSize, "ID3v2 header")
	if err != nil {
		return Header{}, &types.CorruptHeaderError{
			Path: c.Path(), Layout: "ID3v2", Offset: offset,
			Need: HeaderSize, Have: c.Remaining(),
		}
	}
	if string(b[:3]) != "ID3" {
		return Header{}, &types.UnsupportedFormatError{Path: c.Path(), Reason: "missing ID3 header"}
	}
	h := Header{Version: b[3], Revision: b[4], Flags: b[5]}
	if h.Version < 2 || h.Version > 4 {
		return Header{}, &types.UnsupportedFormatError{
			Path:   c.Path(),
			Reason: fmt.Sprintf("unsupported ID3v2 version: 2.%d", h.Version),
		}
	}
	if h.Size, err = binary.DecodeSynchsafe(b[6:10]); err != nil {
		return Header{}, &types.CorruptHeaderError{
			Path: c.Path(), Layout: "ID3v2", Offset: offset, Reason: "tag size: " + err.Error(),
		}
	}
	return h, nil
}

// Read parses a tag starting at the cursor position. The frame walk is
// confined to the size declared in the header.
func Read(c *binary.Cursor, log zerolog.Logger) (*Tag, error) {
	start := c.Position()
	h, err := ReadHeader(c)
	if err != nil {
		return nil, err
	}
	if h.Version == 2 && h.Flags&FlagExtendedHeader != 0 {
		return nil, &types.UnsupportedFormatError{Path: c.Path(), Reason: "compressed ID3v2.2 tag"}
	}

	data, err := c.Read(int(h.Size), "ID3v2 tag data")
	if err != nil {
		return nil, &types.InvalidChunkSizeError{
			Path:      c.Path(),
			ID:        "ID3",
			Reason:    "tag runs past end of file",
			Offset:    start,
			Declared:  uint64(h.Size),
			Available: c.Remaining(),
		}
	}
	end := c.Position()
	if h.Flags&FlagFooter != 0 && h.Version == 4 {
		if err := c.Skip(HeaderSize); err == nil {
			end += HeaderSize
		}
	}

	tag := &Tag{Header: h, Offset: start, End: end}

	// ID3v2.4 unsynchronises per frame; earlier versions the whole tag.
	if h.Flags&FlagUnsynchronisation != 0 && h.Version < 4 {
		data = resync(data)
	}

	first, err := tag.skipExtendedHeader(data, c.Path())
	if err != nil {
		return nil, err
	}

	if err := tag.readFrames(data, first, c.Path(), log); err != nil {
		return nil, err
	}
	return tag, nil
}

func (t *Tag) skipExtendedHeader(data []byte, path string) (int64, error) {
	if t.Version == 2 || t.Flags&FlagExtendedHeader == 0 {
		return 0, nil
	}
	if len(data) < 4 {
		return 0, &types.CorruptHeaderError{Path: path, Layout: "ID3v2 extended", Offset: HeaderSize, Need: 4, Have: int64(len(data))}
	}
	var skip int64
	if t.Version == 4 {
		n, err := binary.DecodeSynchsafe(data[:4])
		if err != nil {
			return 0, &types.CorruptHeaderError{Path: path, Layout: "ID3v2 extended", Offset: HeaderSize, Reason: err.Error()}
		}
		skip = int64(n)
	} else {
		skip = int64(binary.Uint(data[:4], binary.BigEndian)) + 4
	}
	if skip > int64(len(data)) {
		return 0, &types.InvalidChunkSizeError{
			Path: path, ID: "extended header", Offset: HeaderSize,
			Declared: uint64(skip), Available: int64(len(data)),
		}
	}
	return skip, nil
}

func (t *Tag) readFrames(data []byte, first int64, path string, log zerolog.Logger) error {
	layout, err := Layout(t.Version)
	if err != nil {
		return err
	}

	w := container.NewWalker(layout)
	w.Logger = log
	w.Match = func(string) (container.Handler, bool) {
		return container.Handler{Fn: t.readFrame}, true
	}

	c := binary.NewBytesCursor(data, path)
	if _, err := w.Walk(c, first, int64(len(data))); err != nil {
		return err
	}
	t.Warnings = append(t.Warnings, w.Warnings...)
	return nil
}

// readFrame records the frame before decoding it, so a frame whose body
// fails still round-trips from Raw.
func (t *Tag) readFrame(h container.Header, c *binary.Cursor) error {
	raw, err := c.Rest("frame " + h.ID)
	if err != nil {
		return err
	}
	f := &Frame{ID: h.ID, Offset: h.Offset, Raw: raw}
	if t.Version > 2 {
		f.Flags = uint16(h.Raw[8])<<8 | uint16(h.Raw[9])
	}
	t.Frames = append(t.Frames, f)

	payload, ok := t.payload(f)
	if !ok {
		return nil
	}
	body, err := frame.Decode(f.ID, payload)
	if err != nil {
		return err
	}
	f.Body = body
	return nil
}

// payload strips per-frame encodings. It reports false for compressed or
// encrypted frames, which stay opaque.
func (t *Tag) payload(f *Frame) ([]byte, bool) {
	p := f.Raw
	switch t.Version {
	case 3:
		if f.Flags&(v23Compression|v23Encryption) != 0 {
			return nil, false
		}
		if f.Flags&v23Grouping != 0 && len(p) > 0 {
			p = p[1:]
		}
	case 4:
		if f.Flags&(v24Compression|v24Encryption) != 0 {
			return nil, false
		}
		if f.Flags&v24Grouping != 0 && len(p) > 0 {
			p = p[1:]
		}
		if f.Flags&v24DataLength != 0 && len(p) >= 4 {
			p = p[4:]
		}
		if f.Flags&v24Unsynchronisation != 0 {
			p = resync(p)
		}
	}
	return p, true
}

// resync undoes unsynchronisation: every 0xFF 0x00 pair becomes 0xFF.
func resync(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte{0xFF, 0x00}, []byte{0xFF})
}

// Find returns the frames with the given ID.
func (t *Tag) Find(id string) []*Frame {
	var out []*Frame
	for _, f := range t.Frames {
		if f.ID == id {
			out = append(out, f)
		}
	}
	return out
}

// Tags returns the text-valued frames keyed by frame ID. User-defined
// text frames are keyed "TXXX:<description>", and comments with a
// description "COMM:<description>".
func (t *Tag) Tags() types.Tags {
	var tags types.Tags
	for _, f := range t.Frames {
		key, values, ok := entry(f)
		if !ok {
			continue
		}
		for _, v := range values {
			tags.Add(key, v)
		}
	}
	return tags
}

// entry maps a frame to its tag key and values. Binary frames have none.
func entry(f *Frame) (string, []string, bool) {
	if f.Body == nil || !f.Body.Known() {
		return "", nil, false
	}
	switch {
	case isUserText(f.ID):
		desc, ok := f.Body.Field("Description").(*field.TerminatedString)
		if !ok {
			return "", nil, false
		}
		return userTextKey(f.ID, desc.Value()), f.Body.Values(), true
	case isComment(f.ID):
		key := f.ID
		if desc, ok := f.Body.Field("Description").(*field.TerminatedString); ok && desc.Value() != "" {
			key = userTextKey(f.ID, desc.Value())
		}
		values := f.Body.Values()
		if len(values) == 0 {
			values = []string{""}
		}
		return key, values, true
	case isText(f.ID), isURL(f.ID):
		values := f.Body.Values()
		if len(values) == 0 {
			values = []string{""}
		}
		return f.ID, values, true
	}
	return "", nil, false
}

func isUserText(id string) bool { return id == "TXXX" || id == "TXX" }
func isComment(id string) bool  { return id == "COMM" || id == "COM" }

func isText(id string) bool {
	return strings.HasPrefix(id, "T") && !isUserText(id) && frame.HasTemplate(id)
}

func isURL(id string) bool {
	return strings.HasPrefix(id, "W") && id != "WXXX" && id != "WXX" && frame.HasTemplate(id)
}

func userTextKey(id, desc string) string {
	return id + ":" + desc
}

// Clone returns a deep copy.
func (t *Tag) Clone() *Tag {
	c := *t
	c.Frames = make([]*Frame, len(t.Frames))
	for i, f := range t.Frames {
		fc := *f
		fc.Raw = append([]byte(nil), f.Raw...)
		if f.Body != nil {
			fc.Body = f.Body.Clone()
		}
		c.Frames[i] = &fc
	}
	c.Warnings = append([]types.Warning(nil), t.Warnings...)
	return &c
}
