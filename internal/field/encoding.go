package field

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding is the ID3v2 text encoding byte.
type Encoding byte

const (
	// Latin1 is ISO-8859-1, one byte per character.
	Latin1 Encoding = 0
	// UTF16 is UTF-16 with a byte order mark. Written little-endian.
	UTF16 Encoding = 1
	// UTF16BE is big-endian UTF-16 without a byte order mark (ID3v2.4).
	UTF16BE Encoding = 2
	// UTF8 is UTF-8 (ID3v2.4).
	UTF8 Encoding = 3
)

// MaxEncoding is the highest defined encoding byte.
const MaxEncoding = uint64(UTF8)

func (e Encoding) String() string {
	switch e {
	case Latin1:
		return "ISO-8859-1"
	case UTF16:
		return "UTF-16"
	case UTF16BE:
		return "UTF-16BE"
	case UTF8:
		return "UTF-8"
	default:
		return fmt.Sprintf("Encoding(%d)", byte(e))
	}
}

// TerminatorLen is 2 for the UTF-16 encodings and 1 otherwise.
func (e Encoding) TerminatorLen() int {
	if e == UTF16 || e == UTF16BE {
		return 2
	}
	return 1
}

func (e Encoding) codec() encoding.Encoding {
	switch e {
	case UTF16:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case UTF8:
		return unicode.UTF8
	default:
		return charmap.ISO8859_1
	}
}

// Encode converts s to bytes in e, without terminator.
func (e Encoding) Encode(s string) ([]byte, error) {
	if e == UTF8 {
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%v: invalid UTF-8 in %q", e, s)
		}
		return []byte(s), nil
	}
	b, err := e.codec().NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%v: cannot encode %q: %w", e, s, err)
	}
	return b, nil
}

// Decode converts b, which holds no terminator, to a string.
func (e Encoding) Decode(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	if e == UTF16 || e == UTF16BE {
		if len(b)%2 != 0 {
			return "", fmt.Errorf("%v: odd byte count %d", e, len(b))
		}
	}
	s, err := e.codec().NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%v: %w", e, err)
	}
	return string(s), nil
}

// terminatorIndex finds the terminator in b. For UTF-16 only code unit
// aligned positions count. It returns -1 when there is none.
func (e Encoding) terminatorIndex(b []byte) int {
	if e.TerminatorLen() == 1 {
		return bytes.IndexByte(b, 0)
	}
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return i
		}
	}
	return -1
}
