package mp4

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/types"
)

// Well-known data box types.
const (
	typeImplicit = 0
	typeUTF8     = 1
	typeUTF16    = 2
	typeJPEG     = 13
	typePNG      = 14
	typeSigned   = 21
	typeUnsigned = 22
	typeBMP      = 27
)

// freeform is the item ID of "----:<mean>:<name>" items.
const freeform = "----"

// Item is one value of an ilst item. Items with several data boxes yield
// one Item per box.
type Item struct {
	Key      string // item ID, or "----:<mean>:<name>"
	Type     uint32
	Data     []byte // value bytes after the type and locale
	Value    string // rendered text; empty for binary items
	Rendered bool
}

func (m *Movie) readMean(h container.Header, c *binary.Cursor) error {
	if h.Parent != freeform {
		return nil
	}
	s, err := readFullBoxString(c, "mean")
	m.mean = s
	return err
}

func (m *Movie) readName(h container.Header, c *binary.Cursor) error {
	if h.Parent != freeform {
		return nil
	}
	s, err := readFullBoxString(c, "name")
	m.name = s
	return err
}

// readFullBoxString skips version and flags and returns the rest.
func readFullBoxString(c *binary.Cursor, what string) (string, error) {
	if err := c.Skip(4); err != nil {
		return "", err
	}
	b, err := c.Rest(what)
	return string(b), err
}

// readData decodes a data box: 1-byte version, 3-byte type, 4-byte locale,
// then the value.
func (m *Movie) readData(h container.Header, c *binary.Cursor) error {
	cr := binary.NewChainReader(c, binary.BigEndian)
	typ := binary.ReadChained[uint32](cr, "data type") & 0x00FFFFFF
	cr.Skip(4)
	if err := cr.Error(); err != nil {
		return err
	}
	value, err := c.Rest("data value")
	if err != nil {
		return err
	}

	key := h.Parent
	if key == freeform {
		key = freeform + ":" + m.mean + ":" + m.name
	}
	item := Item{Key: key, Type: typ, Data: value}
	item.Value, item.Rendered, err = render(h.Parent, typ, value)
	if err != nil {
		return err
	}
	m.Items = append(m.Items, item)
	return nil
}

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// render turns a data value into text. Binary values (artwork) are not
// rendered.
func render(id string, typ uint32, b []byte) (string, bool, error) {
	switch typ {
	case typeUTF8:
		return string(b), true, nil
	case typeUTF16:
		s, err := utf16BE.NewDecoder().Bytes(b)
		if err != nil {
			return "", false, err
		}
		return string(s), true, nil
	case typeSigned:
		v, err := integer(b)
		if err != nil {
			return "", false, err
		}
		// Sign-extend from the stored width.
		shift := 64 - 8*uint(len(b))
		return strconv.FormatInt(int64(v<<shift)>>shift, 10), true, nil
	case typeUnsigned:
		v, err := integer(b)
		if err != nil {
			return "", false, err
		}
		return strconv.FormatUint(v, 10), true, nil
	case typeImplicit:
		switch id {
		case "trkn", "disk":
			return pair(id, b)
		case "gnre":
			v, err := integer(b)
			if err != nil {
				return "", false, err
			}
			return strconv.FormatUint(v, 10), true, nil
		}
	}
	return "", false, nil
}

func integer(b []byte) (uint64, error) {
	switch len(b) {
	case 1, 2, 3, 4, 8:
		return binary.Uint(b, binary.BigEndian), nil
	}
	return 0, fmt.Errorf("integer value of %d bytes", len(b))
}

// pair renders trkn/disk as "n/total", or "n" when the total is zero.
func pair(id string, b []byte) (string, bool, error) {
	if len(b) < 6 {
		return "", false, &types.BufferTooShortError{Field: id, Need: 6, Have: len(b)}
	}
	n := binary.Uint(b[2:4], binary.BigEndian)
	total := binary.Uint(b[4:6], binary.BigEndian)
	if total == 0 {
		return strconv.FormatUint(n, 10), true, nil
	}
	return fmt.Sprintf("%d/%d", n, total), true, nil
}

// Tags returns the rendered item values keyed by item ID.
func (m *Movie) Tags() types.Tags {
	var tags types.Tags
	for _, it := range m.Items {
		if it.Rendered {
			tags.Add(it.Key, strings.TrimRight(it.Value, "\x00"))
		}
	}
	return tags
}

// Cover is the image value of a "covr" item.
type Cover struct {
	MIME string
	Data []byte
}

var coverTypes = map[uint32]string{
	typeJPEG: "image/jpeg",
	typePNG:  "image/png",
	typeBMP:  "image/bmp",
}

// Artwork returns the image values of "covr" items.
func (m *Movie) Artwork() []Cover {
	var out []Cover
	for _, it := range m.Items {
		if mime, ok := coverTypes[it.Type]; ok && it.Key == "covr" {
			out = append(out, Cover{MIME: mime, Data: it.Data})
		}
	}
	return out
}
