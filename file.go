package audiotag

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/simonhull/audiotag/internal/registry"
	"github.com/simonhull/audiotag/internal/types"

	// Format packages register their parsers and writers in init.
	_ "github.com/simonhull/audiotag/internal/flac"
	_ "github.com/simonhull/audiotag/internal/id3"
	_ "github.com/simonhull/audiotag/internal/mp4"
	_ "github.com/simonhull/audiotag/internal/ogg"
	_ "github.com/simonhull/audiotag/internal/riff"
)

// File is an opened audio file with its parsed tags.
//
// Tags holds the container's own keys ("TIT2", "INAM", "©nam", "TITLE"),
// unmapped. Chunks lists the top-level chunks, boxes, blocks or pages
// visited while parsing.
//
// Always call Close when done:
//
//	file, err := audiotag.Open("song.wav")
//	if err != nil {
//		return err
//	}
//	defer file.Close()
type File struct {
	types.File

	log zerolog.Logger
}

// Open opens an audio file and reads its tags and audio properties.
//
// Problems inside optional chunks are collected in File.Warnings; structural
// damage is returned as one of the typed errors in this package.
//
//	file, err := audiotag.Open("song.flac",
//	    audiotag.WithStrictParsing(),
//	    audiotag.WithLogger(logger),
//	)
func Open(path string, opts ...Option) (*File, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck,gosec // Already returning the stat error
		return nil, fmt.Errorf("stat file: %w", err)
	}

	file, err := openReader(f, stat.Size(), path, options)
	if err != nil {
		f.Close() //nolint:errcheck,gosec // Already returning the parse error
		return nil, err
	}
	// The handle stays open for Save, which copies audio data from it.
	file.Reader_ = f
	return file, nil
}

// openReader parses from an io.ReaderAt.
func openReader(r io.ReaderAt, size int64, path string, options *openOptions) (*File, error) {
	log := options.logger.With().Str("path", path).Logger()

	format, err := DetectFormat(r, size, path)
	if err != nil {
		return nil, err
	}
	parser := registry.Get(format)
	if parser == nil {
		return nil, &UnsupportedFormatError{
			Path:   path,
			Reason: fmt.Sprintf("no parser available for format %s", format),
		}
	}

	parsed, err := parser.Parse(r, size, path, log)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}
	parsed.Path = path
	parsed.Size = size
	if parsed.Format == FormatUnknown {
		parsed.Format = format
	}

	for _, w := range parsed.Warnings {
		log.Warn().Str("stage", w.Stage).Int64("offset", w.Offset).Msg(w.Message)
	}
	if options.strictParsing && len(parsed.Warnings) > 0 {
		return nil, fmt.Errorf("strict parsing failed: %s", parsed.Warnings[0])
	}
	if options.ignoreWarnings {
		parsed.Warnings = nil
	}

	log.Debug().
		Stringer("format", parsed.Format).
		Int("chunks", len(parsed.Chunks)).
		Int("tags", parsed.Tags.Len()).
		Msg("parsed")
	return &File{File: *parsed, log: log}, nil
}

// Close releases the file handle.
//
// After Close is called, the File should not be used.
func (f *File) Close() error {
	if closer, ok := f.Reader_.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// OpenContext is Open with a context checked before the file is read.
func OpenContext(ctx context.Context, path string, opts ...Option) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Open(path, opts...)
}

// OpenMany opens files concurrently, up to runtime.NumCPU() at a time.
// Results are in the order of paths.
//
// If any file fails to open, every file already opened is closed and the
// first error is returned.
//
//	files, err := audiotag.OpenMany(ctx, paths...)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer func() {
//		for _, f := range files {
//			f.Close()
//		}
//	}()
func OpenMany(ctx context.Context, paths ...string) ([]*File, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]*File, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			file, err := OpenContext(ctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = file
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, file := range results {
			if file != nil {
				file.Close() //nolint:errcheck,gosec // Best effort cleanup
			}
		}
		return nil, err
	}
	return results, nil
}
