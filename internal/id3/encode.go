package id3

import (
	"fmt"
	"slices"
	"strings"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/field"
	"github.com/simonhull/audiotag/internal/frame"
	"github.com/simonhull/audiotag/internal/types"
)

// DefaultPadding is the padding written after the frames of a new tag.
const DefaultPadding = 1024

// formatFlags is the frame flag byte describing how Raw was stored
// (compression, encryption, grouping, unsynchronisation). It is cleared
// when a frame is rebuilt from its Body.
const formatFlags = 0x00FF

// NewTag returns an empty tag of the given major version.
func NewTag(version byte) (*Tag, error) {
	if _, err := Layout(version); err != nil {
		return nil, err
	}
	return &Tag{Header: Header{Version: version}}, nil
}

// SetBody replaces the frame body. The frame is re-encoded on write.
func (f *Frame) SetBody(b *frame.Body) {
	f.Body = b
	f.Raw = nil
	f.Flags &^= formatFlags
}

func (f *Frame) payload() ([]byte, error) {
	if f.Raw != nil {
		return f.Raw, nil
	}
	if f.Body == nil {
		return nil, fmt.Errorf("frame %s: no body", f.ID)
	}
	return f.Body.Encode()
}

// Encode serialises the tag with padding zero bytes after the frames.
// Unmodified frames are copied from Raw; the output is never
// unsynchronised and carries no extended header or footer.
func (t *Tag) Encode(padding int) ([]byte, error) {
	layout, err := Layout(t.Version)
	if err != nil {
		return nil, err
	}
	if padding < 0 {
		padding = 0
	}

	var frames []byte
	for _, f := range t.Frames {
		payload, err := f.payload()
		if err != nil {
			return nil, err
		}
		header, err := container.EncodeHeader(layout, f.ID, int64(len(payload)))
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", f.ID, err)
		}
		if t.Version > 2 {
			header[8], header[9] = byte(f.Flags>>8), byte(f.Flags)
		}
		frames = append(frames, header...)
		frames = append(frames, payload...)
	}

	size := len(frames) + padding
	if size > binary.MaxSynchsafe {
		return nil, &types.OutOfRangeValueError{Field: "ID3v2 tag", Reason: "size", Value: uint64(size), Max: binary.MaxSynchsafe}
	}
	sizeBytes, err := binary.EncodeSynchsafe(uint32(size), 4)
	if err != nil {
		return nil, err
	}

	flags := t.Flags &^ (FlagUnsynchronisation | FlagExtendedHeader | FlagFooter)
	out := make([]byte, 0, HeaderSize+size)
	out = append(out, 'I', 'D', '3', t.Version, t.Revision, flags)
	out = append(out, sizeBytes...)
	out = append(out, frames...)
	out = append(out, make([]byte, padding)...)
	return out, nil
}

// Delete removes every frame with id.
func (t *Tag) Delete(id string) {
	t.Frames = slices.DeleteFunc(t.Frames, func(f *Frame) bool { return f.ID == id })
}

// SetText replaces the frames with id by one text frame holding values.
func (t *Tag) SetText(id string, values ...string) error {
	body, err := frame.NewText(id, t.Version, values...)
	if err != nil {
		return err
	}
	t.replace(func(f *Frame) bool { return f.ID == id }, &Frame{ID: id, Body: body})
	return nil
}

// replace swaps the first frame matching with add (appending when none
// matches) and drops the other matches.
func (t *Tag) replace(match func(*Frame) bool, add ...*Frame) {
	at := slices.IndexFunc(t.Frames, match)
	t.Frames = slices.DeleteFunc(t.Frames, match)
	if at < 0 || at > len(t.Frames) {
		at = len(t.Frames)
	}
	t.Frames = slices.Insert(t.Frames, at, add...)
}

// Apply rewrites the tag so Tags() returns tags. Keys that map to no
// buildable frame for this version are rejected; binary frames (pictures,
// counters, private data) are kept.
func (t *Tag) Apply(tags types.Tags) error {
	current := t.Tags()

	for _, key := range current.Keys() {
		if !tags.Has(key) {
			t.Frames = slices.DeleteFunc(t.Frames, keyMatch(key))
		}
	}
	for key, values := range tags.All() {
		if current.Has(key) && slices.Equal(current.Get(key), values) {
			continue
		}
		frames, err := t.build(key, values)
		if err != nil {
			return err
		}
		t.replace(keyMatch(key), frames...)
	}
	return nil
}

func keyMatch(key string) func(*Frame) bool {
	return func(f *Frame) bool {
		k, _, ok := entry(f)
		return ok && k == key
	}
}

// build creates the frames representing key = values.
func (t *Tag) build(key string, values []string) ([]*Frame, error) {
	id, desc, described := cutDescription(key)
	if len(id) != idWidth(t.Version) {
		return nil, &types.UnsupportedWriteError{
			Format: types.FormatMP3,
			Reason: fmt.Sprintf("tag key %q is not an ID3v2.%d frame", key, t.Version),
		}
	}

	switch {
	case described && isUserText(id):
		body := frame.New(id)
		if err := setStrings(body, t.Version, "", map[string]string{"Description": desc}, values); err != nil {
			return nil, err
		}
		return []*Frame{{ID: id, Body: body}}, nil
	case isText(id):
		body, err := frame.NewText(id, t.Version, values...)
		if err != nil {
			return nil, err
		}
		return []*Frame{{ID: id, Body: body}}, nil
	case isURL(id), isComment(id):
		lang := t.language(key)
		frames := make([]*Frame, 0, len(values))
		for _, v := range values {
			body := frame.New(id)
			fixed := map[string]string{}
			if isComment(id) {
				fixed["Description"] = desc
			}
			if err := setStrings(body, t.Version, lang, fixed, []string{v}); err != nil {
				return nil, err
			}
			frames = append(frames, &Frame{ID: id, Body: body})
		}
		return frames, nil
	}
	return nil, &types.UnsupportedWriteError{
		Format: types.FormatMP3,
		Reason: fmt.Sprintf("frame %s cannot be built from text", id),
	}
}

// language returns the language of the first frame stored under key, or
// the neutral "XXX".
func (t *Tag) language(key string) string {
	match := keyMatch(key)
	for _, f := range t.Frames {
		if !match(f) {
			continue
		}
		if l, ok := f.Body.Field("Language").(*field.FixedString); ok && l.Value() != "" {
			return l.Value()
		}
	}
	return "XXX"
}

// setStrings fills the text members of a fresh body: named terminated
// strings from fixed, the main value from values, and lang.
func setStrings(b *frame.Body, version byte, lang string, fixed map[string]string, values []string) error {
	all := slices.Clone(values)
	for _, v := range fixed {
		all = append(all, v)
	}
	if err := b.SetEncoding(pickEncoding(b, version, all)); err != nil {
		return err
	}
	for _, f := range b.Fields() {
		var err error
		switch f := f.(type) {
		case *field.FixedString:
			err = f.SetValue(lang)
		case *field.TerminatedString:
			err = f.SetValue(fixed[f.Name()])
		case *field.Text:
			err = f.SetValues(values...)
		}
		if err != nil {
			return fmt.Errorf("frame %s: %w", b.ID(), err)
		}
	}
	return nil
}

func pickEncoding(b *frame.Body, version byte, values []string) field.Encoding {
	if _, ok := b.Field(frame.EncodingField).(*field.Number); !ok {
		return field.Latin1
	}
	for _, v := range values {
		if _, err := field.Latin1.Encode(v); err != nil {
			if version >= 4 {
				return field.UTF8
			}
			return field.UTF16
		}
	}
	return field.Latin1
}

// cutDescription splits "TXXX:desc" and "COMM:desc" keys.
func cutDescription(key string) (id, desc string, ok bool) {
	for _, id := range []string{"TXXX", "TXX", "COMM", "COM"} {
		if desc, ok := strings.CutPrefix(key, id+":"); ok {
			return id, desc, true
		}
	}
	return key, "", false
}

func idWidth(version byte) int {
	if version == 2 {
		return 3
	}
	return 4
}
