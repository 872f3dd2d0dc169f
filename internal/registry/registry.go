// Package registry maps container formats to their parsers and writers.
package registry

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/simonhull/audiotag/internal/types"
)

// FormatParser is the interface all format parsers implement.
type FormatParser interface {
	// Parse walks the container and returns its tags and audio info.
	// Problems inside optional chunks are recorded as File.Warnings;
	// structural corruption is returned as a typed error.
	Parse(r io.ReaderAt, size int64, path string, log zerolog.Logger) (*types.File, error)
}

// FormatWriter is the interface format writers implement.
type FormatWriter interface {
	// Write writes file with its current Tags to w.
	// original provides read access to the source file for copying audio data.
	Write(w io.Writer, file *types.File, original io.ReaderAt, originalSize int64) error
}

// ParserFunc adapts a function to FormatParser.
type ParserFunc func(r io.ReaderAt, size int64, path string, log zerolog.Logger) (*types.File, error)

// Parse calls f.
func (f ParserFunc) Parse(r io.ReaderAt, size int64, path string, log zerolog.Logger) (*types.File, error) {
	return f(r, size, path, log)
}

var parsers = make(map[types.Format]FormatParser)

var writers = make(map[types.Format]FormatWriter)

// Register registers a parser for a format.
// This is called by format packages during initialization (init functions).
func Register(format types.Format, parser FormatParser) {
	parsers[format] = parser
}

// Get returns the parser for a given format, or nil.
func Get(format types.Format) FormatParser {
	return parsers[format]
}

// RegisterWriter registers a writer for a format.
// This is called by format packages during initialization (init functions).
func RegisterWriter(format types.Format, writer FormatWriter) {
	writers[format] = writer
}

// GetWriter returns the writer for a given format, or nil.
func GetWriter(format types.Format) FormatWriter {
	return writers[format]
}
