package audiotag

import (
	"github.com/simonhull/audiotag/internal/field"
	"github.com/simonhull/audiotag/internal/flac"
	"github.com/simonhull/audiotag/internal/frame"
	"github.com/simonhull/audiotag/internal/id3"
	"github.com/simonhull/audiotag/internal/mp4"
	"github.com/simonhull/audiotag/internal/ogg"
	"github.com/simonhull/audiotag/internal/riff"
)

// Picture is an embedded image.
type Picture struct {
	// Type is the ID3 picture type name, such as "Cover (front)". MP4
	// cover art has no picture type and reports "Cover (front)".
	Type        string
	MIME        string
	Description string
	Data        []byte
}

// Pictures returns the images embedded in the file, in file order: FLAC
// PICTURE blocks, METADATA_BLOCK_PICTURE comments, MP4 "covr" items and
// ID3 APIC/PIC frames (including an ID3 tag inside a WAV or before a FLAC
// stream).
func (f *File) Pictures() []Picture {
	switch n := f.Native_.(type) {
	case *flac.Stream:
		return append(flacPictures(n.Pictures), id3Pictures(n.ID3)...)
	case *ogg.Stream:
		return flacPictures(n.Pictures)
	case *mp4.Movie:
		var out []Picture
		for _, c := range n.Artwork() {
			out = append(out, Picture{Type: frame.PictureType(3), MIME: c.MIME, Data: c.Data})
		}
		return out
	case *id3.Tag:
		return id3Pictures(n)
	case *riff.Wave:
		return id3Pictures(n.ID3)
	}
	return nil
}

func flacPictures(pics []flac.Picture) []Picture {
	out := make([]Picture, 0, len(pics))
	for _, p := range pics {
		out = append(out, Picture{Type: p.TypeName(), MIME: p.MIME, Description: p.Description, Data: p.Data})
	}
	return out
}

func id3Pictures(t *id3.Tag) []Picture {
	if t == nil {
		return nil
	}
	var out []Picture
	for _, fr := range t.Frames {
		if fr.Body == nil || (fr.ID != "APIC" && fr.ID != "PIC") {
			continue
		}
		p := Picture{
			Type:        frame.PictureType(fr.Body.Field("PictureType").(*field.Number).Value()),
			Description: fr.Body.Field("Description").(*field.TerminatedString).Value(),
			Data:        fr.Body.Field("PictureData").(*field.Binary).Value(),
		}
		if fr.ID == "APIC" {
			p.MIME = fr.Body.Field("MIMEType").(*field.TerminatedString).Value()
		} else {
			p.MIME = imageFormatMIME(fr.Body.Field("ImageFormat").(*field.FixedString).Value())
		}
		out = append(out, p)
	}
	return out
}

// imageFormatMIME maps an ID3v2.2 PIC image format to a MIME type.
func imageFormatMIME(format string) string {
	switch format {
	case "JPG":
		return "image/jpeg"
	case "PNG":
		return "image/png"
	default:
		return "image/" + format
	}
}
