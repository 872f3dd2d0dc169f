package frame

import (
	"github.com/simonhull/audiotag/internal/field"
)

type template func() []field.Field

func textEncoding() *field.Number {
	return field.NewNumber(EncodingField, 1).WithRange(0, field.MaxEncoding)
}

func timeStampFormat() *field.Number {
	return field.NewNumber("TimeStampFormat", 1).WithRange(1, 2)
}

func pictureType() *field.Number {
	return field.NewNumber("PictureType", 1).WithRange(0, uint64(len(pictureTypes)-1))
}

func textFrame() []field.Field {
	return []field.Field{textEncoding(), field.NewText("Text")}
}

func urlFrame() []field.Field {
	return []field.Field{field.NewText("URL").Latin1()}
}

func userTextFrame() []field.Field {
	return []field.Field{
		textEncoding(),
		field.NewTerminatedString("Description"),
		field.NewText("Value"),
	}
}

func userURLFrame() []field.Field {
	return []field.Field{
		textEncoding(),
		field.NewTerminatedString("Description"),
		field.NewText("URL").Latin1(),
	}
}

func languageTextFrame() []field.Field {
	return []field.Field{
		textEncoding(),
		field.NewFixedString("Language", 3),
		field.NewTerminatedString("Description"),
		field.NewText("Text"),
	}
}

func attachedPicture() []field.Field {
	return []field.Field{
		textEncoding(),
		field.NewTerminatedString("MIMEType").Latin1(),
		pictureType(),
		field.NewTerminatedString("Description"),
		field.NewBinary("PictureData"),
	}
}

// ID3v2.2 PIC carries a 3-character image format instead of a MIME type.
func attachedPictureV22() []field.Field {
	return []field.Field{
		textEncoding(),
		field.NewFixedString("ImageFormat", 3),
		pictureType(),
		field.NewTerminatedString("Description"),
		field.NewBinary("PictureData"),
	}
}

func uniqueFileID() []field.Field {
	return []field.Field{
		field.NewTerminatedString("Owner").Latin1(),
		field.NewBinary("Identifier"),
	}
}

func playCounter() []field.Field {
	return []field.Field{field.NewNumber("Counter", 4)}
}

func popularimeter() []field.Field {
	return []field.Field{
		field.NewTerminatedString("Email").Latin1(),
		field.NewNumber("Rating", 1),
		field.NewBinary("Counter"),
	}
}

func ownership() []field.Field {
	return []field.Field{
		textEncoding(),
		field.NewTerminatedString("PricePaid").Latin1(),
		field.NewDate("PurchaseDate"),
		field.NewText("Seller"),
	}
}

func syncedTempo() []field.Field {
	return []field.Field{
		timeStampFormat(),
		field.NewRepeated("TempoEvents", field.NewTempoEvent()...),
	}
}

func eventTiming() []field.Field {
	return []field.Field{
		timeStampFormat(),
		field.NewRepeated("Events", field.NewTimingEvent()...),
	}
}

func private() []field.Field {
	return []field.Field{
		field.NewTerminatedString("Owner").Latin1(),
		field.NewBinary("Data"),
	}
}

// templates maps frame IDs of every version to their body layout. It is
// never modified after package initialization.
var templates = map[string]template{
	"TXXX": userTextFrame,
	"TXX":  userTextFrame,
	"WXXX": userURLFrame,
	"WXX":  userURLFrame,
	"COMM": languageTextFrame,
	"COM":  languageTextFrame,
	"USLT": languageTextFrame,
	"ULT":  languageTextFrame,
	"APIC": attachedPicture,
	"PIC":  attachedPictureV22,
	"UFID": uniqueFileID,
	"UFI":  uniqueFileID,
	"PCNT": playCounter,
	"CNT":  playCounter,
	"POPM": popularimeter,
	"POP":  popularimeter,
	"OWNE": ownership,
	"SYTC": syncedTempo,
	"STC":  syncedTempo,
	"ETCO": eventTiming,
	"ETC":  eventTiming,
	"PRIV": private,
}

func lookup(id string) (template, bool) {
	if t, ok := templates[id]; ok {
		return t, true
	}
	if len(id) < 3 {
		return nil, false
	}
	switch id[0] {
	case 'T':
		return textFrame, true
	case 'W':
		return urlFrame, true
	}
	return nil, false
}

// HasTemplate reports whether bodies of id decode into typed members.
func HasTemplate(id string) bool {
	_, ok := lookup(id)
	return ok
}
