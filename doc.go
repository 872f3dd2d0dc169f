// Package audiotag reads and writes the tags embedded in audio containers.
//
// The containers have little in common. WAV and FLAC are flat lists of
// length-prefixed chunks, MP4 is a tree of nested boxes, ID3v2 is a block
// of typed frames, and Ogg Vorbis carries fixed-layout header packets.
// audiotag walks each with one bounds-checked engine and surfaces the tags
// exactly as the container stores them.
//
// # Quick Start
//
//	file, err := audiotag.Open("song.wav")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer file.Close()
//
//	fmt.Println(file.Tags.GetFirst("INAM"), file.Audio.Duration)
//
// # Supported Formats
//
//   - WAV: LIST/INFO sub-chunks and embedded "id3 " chunks (read and write)
//   - MP3: ID3v2.2, v2.3 and v2.4 tags, MPEG audio properties (read and write)
//   - M4A/M4B: iTunes "ilst" items, cover art, Nero chapters, "stsd" sample entry
//   - FLAC: STREAMINFO, Vorbis comments, pictures, seek table, cue sheet
//   - Ogg Vorbis and Opus: identification and comment headers
//
// # Tags
//
// Keys are format-native and never mapped to a shared vocabulary:
//
//	for key, values := range file.Tags.All() {
//		fmt.Printf("%s: %v\n", key, values)
//	}
//
// Changing Tags and calling Save rewrites the tag block. Everything the
// library does not understand (unknown chunks, binary frames, audio data)
// is copied through unchanged:
//
//	file.Tags.Set("INAM", "New Title")
//	if err := file.Save(audiotag.WithBackup(".bak")); err != nil {
//		log.Fatal(err)
//	}
//
// # Errors and Warnings
//
// Damage confined to an optional chunk whose declared length is sound is
// skipped and recorded in File.Warnings. Structural damage (an unreadable
// header, a length running past its container, a missing mandatory chunk)
// fails Open with one of the typed errors of this package, each carrying
// the offset and identifier at fault:
//
//	var sizeErr *audiotag.InvalidChunkSizeError
//	if errors.As(err, &sizeErr) {
//		log.Printf("chunk %q at %d declares %d bytes", sizeErr.ID, sizeErr.Offset, sizeErr.Declared)
//	}
//
// # Logging
//
// Parsing logs through zerolog. Pass a logger with WithLogger to see each
// chunk visited:
//
//	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
//	file, err := audiotag.Open("song.m4a", audiotag.WithLogger(logger))
package audiotag
