package container

import "github.com/simonhull/audiotag/internal/binary"

// RIFF is the RIFF/WAVE chunk layout: 4-byte identifier, 4-byte
// little-endian payload length, payloads padded to even length.
var RIFF = Layout{
	Name:         "RIFF",
	Order:        binary.LittleEndian,
	HeaderSize:   8,
	IDWidth:      4,
	LengthOffset: 4,
	LengthWidth:  4,
	Align:        AlignEven,
	Parents:      map[string]int{"LIST": 4},
	Strict:       true,
}

// MP4 is the ISO base media box layout: 4-byte big-endian size counting the
// header, then the 4-byte type.
var MP4 = Layout{
	Name:                 "MP4",
	Order:                binary.BigEndian,
	HeaderSize:           8,
	IDOffset:             4,
	IDWidth:              4,
	LengthWidth:          4,
	LengthIncludesHeader: true,
	ExtendedSize:         true,
	Parents: map[string]int{
		"moov": 0,
		"trak": 0,
		"mdia": 0,
		"minf": 0,
		"stbl": 0,
		"udta": 0,
		"edts": 0,
		"dinf": 0,
		"tref": 0,
		"ilst": 0,
		"meta": 4, // version + flags
	},
	Children: func(h Header) (int, bool) {
		// Every ilst item box (©nam, trkn, ----, ...) holds data/mean/name boxes.
		return 0, h.Parent == "ilst"
	},
}

// ID3v22Frame is the ID3v2.2 frame header: 3-byte identifier, 3-byte size.
var ID3v22Frame = Layout{
	Name:          "ID3v2.2 frame",
	Order:         binary.BigEndian,
	HeaderSize:    6,
	IDWidth:       3,
	LengthOffset:  3,
	LengthWidth:   3,
	StopOnPadding: true,
	ValidID:       validFrameID,
}

// ID3v23Frame is the ID3v2.3 frame header: 4-byte identifier, 4-byte size,
// 2 flag bytes.
var ID3v23Frame = Layout{
	Name:          "ID3v2.3 frame",
	Order:         binary.BigEndian,
	HeaderSize:    10,
	IDWidth:       4,
	LengthOffset:  4,
	LengthWidth:   4,
	StopOnPadding: true,
	ValidID:       validFrameID,
}

// ID3v24Frame is ID3v23Frame with a synchsafe size.
var ID3v24Frame = Layout{
	Name:          "ID3v2.4 frame",
	Order:         binary.BigEndian,
	HeaderSize:    10,
	IDWidth:       4,
	LengthOffset:  4,
	LengthWidth:   4,
	Synchsafe:     true,
	StopOnPadding: true,
	ValidID:       validFrameID,
}

// FLACBlock is the FLAC metadata block header: last-block flag and 7-bit
// block type in one byte, then a 3-byte big-endian length.
var FLACBlock = Layout{
	Name:         "FLAC",
	Order:        binary.BigEndian,
	HeaderSize:   4,
	IDWidth:      1,
	IDMask:       0x7F,
	NumericID:    true,
	LengthOffset: 1,
	LengthWidth:  3,
}

// validFrameID accepts identifiers made of A-Z and 0-9.
func validFrameID(id string) bool {
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return id != ""
}
