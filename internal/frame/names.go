package frame

var v22Names = map[string]string{
	"BUF": "Recommended buffer size",
	"CNT": "Play counter",
	"COM": "Comments",
	"CRA": "Audio encryption",
	"CRM": "Encrypted meta frame",
	"EQU": "Equalization",
	"ETC": "Event timing codes",
	"GEO": "General encapsulated object",
	"IPL": "Involved people list",
	"LNK": "Linked information",
	"MCI": "Music CD identifier",
	"MLL": "MPEG location lookup table",
	"PIC": "Attached picture",
	"POP": "Popularimeter",
	"REV": "Reverb",
	"RVA": "Relative volume adjustment",
	"SLT": "Synchronized lyric/text",
	"STC": "Synced tempo codes",
	"TAL": "Album/Movie/Show title",
	"TBP": "BPM (beats per minute)",
	"TCM": "Composer",
	"TCO": "Content type",
	"TCP": "Is compilation",
	"TCR": "Copyright message",
	"TDA": "Date",
	"TDY": "Playlist delay",
	"TEN": "Encoded by",
	"TFT": "File type",
	"TIM": "Time",
	"TKE": "Initial key",
	"TLA": "Language(s)",
	"TLE": "Length",
	"TMT": "Media type",
	"TOA": "Original artist(s)/performer(s)",
	"TOF": "Original filename",
	"TOL": "Original lyricist(s)/text writer(s)",
	"TOR": "Original release year",
	"TOT": "Original album/Movie/Show title",
	"TP1": "Lead artist(s)/Lead performer(s)/Soloist(s)/Performing group",
	"TP2": "Band/Orchestra/Accompaniment",
	"TP3": "Conductor/Performer refinement",
	"TP4": "Interpreted, remixed, or otherwise modified by",
	"TPA": "Part of a set",
	"TPB": "Publisher",
	"TRC": "ISRC (international standard recording code)",
	"TRD": "Recording dates",
	"TRK": "Track number/Position in set",
	"TSA": "Album sort order",
	"TSI": "Size",
	"TSP": "Artist sort order",
	"TSS": "Software/hardware and settings used for encoding",
	"TST": "Title sort order",
	"TT1": "Content group description",
	"TT2": "Title/Songname/Content description",
	"TT3": "Subtitle/Description refinement",
	"TXT": "Lyricist/text writer",
	"TXX": "User defined text information frame",
	"TYE": "Year",
	"UFI": "Unique file identifier",
	"ULT": "Unsynchronized lyric/text transcription",
	"WAF": "Official audio file webpage",
	"WAR": "Official artist/performer webpage",
	"WAS": "Official audio source webpage",
	"WCM": "Commercial information",
	"WCP": "Copyright/Legal information",
	"WPB": "Publishers official webpage",
	"WXX": "User defined URL link frame",
}

var v23Names = map[string]string{
	"AENC": "Audio encryption",
	"APIC": "Attached picture",
	"ASPI": "Audio seek point index",
	"COMM": "Comments",
	"COMR": "Commercial frame",
	"ENCR": "Encryption method registration",
	"EQU2": "Equalisation (2)",
	"EQUA": "Equalisation",
	"ETCO": "Event timing codes",
	"GEOB": "General encapsulated object",
	"GRID": "Group identification registration",
	"IPLS": "Involved people list",
	"LINK": "Linked information",
	"MCDI": "Music CD identifier",
	"MLLT": "MPEG location lookup table",
	"OWNE": "Ownership frame",
	"PCNT": "Play counter",
	"POPM": "Popularimeter",
	"POSS": "Position synchronisation frame",
	"PRIV": "Private frame",
	"RBUF": "Recommended buffer size",
	"RVA2": "Relative volume adjustment (2)",
	"RVAD": "Relative volume adjustment",
	"RVRB": "Reverb",
	"SEEK": "Seek frame",
	"SIGN": "Signature frame",
	"SYLT": "Synchronised lyric/text",
	"SYTC": "Synchronised tempo codes",
	"TALB": "Album/Movie/Show title",
	"TBPM": "BPM (beats per minute)",
	"TCMP": "Is compilation",
	"TCOM": "Composer",
	"TCON": "Content type",
	"TCOP": "Copyright message",
	"TDAT": "Date",
	"TDEN": "Encoding time",
	"TDLY": "Playlist delay",
	"TDOR": "Original release time",
	"TDRC": "Recording time",
	"TDRL": "Release time",
	"TDTG": "Tagging time",
	"TENC": "Encoded by",
	"TEXT": "Lyricist/Text writer",
	"TFLT": "File type",
	"TIME": "Time",
	"TIPL": "Involved people list",
	"TIT1": "Content group description",
	"TIT2": "Title/songname/content description",
	"TIT3": "Subtitle/Description refinement",
	"TKEY": "Initial key",
	"TLAN": "Language(s)",
	"TLEN": "Length",
	"TMCL": "Musician credits list",
	"TMED": "Media type",
	"TMOO": "Mood",
	"TOAL": "Original album/movie/show title",
	"TOFN": "Original filename",
	"TOLY": "Original lyricist(s)/text writer(s)",
	"TOPE": "Original artist(s)/performer(s)",
	"TORY": "Original release year",
	"TOWN": "File owner/licensee",
	"TPE1": "Lead performer(s)/Soloist(s)",
	"TPE2": "Band/orchestra/accompaniment",
	"TPE3": "Conductor/performer refinement",
	"TPE4": "Interpreted, remixed, or otherwise modified by",
	"TPOS": "Part of a set",
	"TPRO": "Produced notice",
	"TPUB": "Publisher",
	"TRCK": "Track number/Position in set",
	"TRDA": "Recording dates",
	"TRSN": "Internet radio station name",
	"TRSO": "Internet radio station owner",
	"TSIZ": "Size",
	"TSO2": "Album artist sort order",
	"TSOA": "Album sort order",
	"TSOC": "Composer sort order",
	"TSOP": "Performer sort order",
	"TSOT": "Title sort order",
	"TSRC": "ISRC (international standard recording code)",
	"TSSE": "Software/Hardware and settings used for encoding",
	"TSST": "Set subtitle",
	"TXXX": "User defined text information frame",
	"TYER": "Year",
	"UFID": "Unique file identifier",
	"USER": "Terms of use",
	"USLT": "Unsynchronised lyric/text transcription",
	"WCOM": "Commercial information",
	"WCOP": "Copyright/Legal information",
	"WOAF": "Official audio file webpage",
	"WOAR": "Official artist/performer webpage",
	"WOAS": "Official audio source webpage",
	"WORS": "Official Internet radio station homepage",
	"WPAY": "Payment",
	"WPUB": "Publishers official webpage",
	"WXXX": "User defined URL link frame",
}

// v22Upgrade maps ID3v2.2 frame IDs to their ID3v2.3 equivalents.
var v22Upgrade = map[string]string{
	"BUF": "RBUF",
	"CNT": "PCNT",
	"COM": "COMM",
	"CRA": "AENC",
	"ETC": "ETCO",
	"EQU": "EQUA",
	"GEO": "GEOB",
	"IPL": "IPLS",
	"LNK": "LINK",
	"MCI": "MCDI",
	"MLL": "MLLT",
	"PIC": "APIC",
	"POP": "POPM",
	"REV": "RVRB",
	"RVA": "RVAD",
	"SLT": "SYLT",
	"STC": "SYTC",
	"TAL": "TALB",
	"TBP": "TBPM",
	"TCM": "TCOM",
	"TCO": "TCON",
	"TCP": "TCMP",
	"TCR": "TCOP",
	"TDA": "TDAT",
	"TDY": "TDLY",
	"TEN": "TENC",
	"TFT": "TFLT",
	"TIM": "TIME",
	"TKE": "TKEY",
	"TLA": "TLAN",
	"TLE": "TLEN",
	"TMT": "TMED",
	"TOA": "TOPE",
	"TOF": "TOFN",
	"TOL": "TOLY",
	"TOR": "TORY",
	"TOT": "TOAL",
	"TP1": "TPE1",
	"TP2": "TPE2",
	"TP3": "TPE3",
	"TP4": "TPE4",
	"TPA": "TPOS",
	"TPB": "TPUB",
	"TRC": "TSRC",
	"TRD": "TRDA",
	"TRK": "TRCK",
	"TSA": "TSOA",
	"TSI": "TSIZ",
	"TSP": "TSOP",
	"TSS": "TSSE",
	"TST": "TSOT",
	"TT1": "TIT1",
	"TT2": "TIT2",
	"TT3": "TIT3",
	"TXT": "TEXT",
	"TXX": "TXXX",
	"TYE": "TYER",
	"UFI": "UFID",
	"ULT": "USLT",
	"WAF": "WOAF",
	"WAR": "WOAR",
	"WAS": "WOAS",
	"WCM": "WCOM",
	"WCP": "WCOP",
	"WPB": "WPUB",
	"WXX": "WXXX",
}

var pictureTypes = []string{
	"Other",
	"32x32 pixels 'file icon' (PNG only)",
	"Other file icon",
	"Cover (front)",
	"Cover (back)",
	"Leaflet page",
	"Media (e.g. label side of CD)",
	"Lead artist/lead performer/soloist",
	"Artist/performer",
	"Conductor",
	"Band/Orchestra",
	"Composer",
	"Lyricist/text writer",
	"Recording Location",
	"During recording",
	"During performance",
	"Movie/video screen capture",
	"A bright coloured fish",
	"Illustration",
	"Band/artist logotype",
	"Publisher/Studio logotype",
}

// Describe returns the human-readable name of a frame ID for the given
// major version (2, 3 or 4).
func Describe(version byte, id string) (string, bool) {
	if version == 2 {
		s, ok := v22Names[id]
		return s, ok
	}
	s, ok := v23Names[id]
	return s, ok
}

// Upgrade converts an ID3v2.2 frame ID to ID3v2.3. IDs already four
// characters long are returned unchanged.
func Upgrade(id string) (string, bool) {
	if len(id) == 4 {
		return id, true
	}
	s, ok := v22Upgrade[id]
	return s, ok
}

// PictureType names an APIC/PIC picture type.
func PictureType(n uint64) string {
	if n < uint64(len(pictureTypes)) {
		return pictureTypes[n]
	}
	return "Unknown"
}
