package audiotag

import "github.com/rs/zerolog"

// Option configures behavior when opening audio files.
//
//	file, err := audiotag.Open("song.flac",
//	    audiotag.WithStrictParsing(),
//	    audiotag.WithLogger(logger),
//	)
type Option func(*openOptions)

// openOptions holds configuration for opening files.
type openOptions struct {
	strictParsing  bool // Fail on any warning
	ignoreWarnings bool // Drop warnings from the result
	logger         zerolog.Logger
}

func defaultOptions() *openOptions {
	return &openOptions{logger: zerolog.Nop()}
}

// WithStrictParsing treats any warning as a fatal error.
//
// By default a damaged optional chunk (an undecodable ID3 frame, a
// malformed INFO entry, a truncated comment block) is skipped and reported
// in File.Warnings. With strict parsing Open fails instead.
func WithStrictParsing() Option {
	return func(o *openOptions) {
		o.strictParsing = true
	}
}

// WithIgnoreWarnings discards warnings; File.Warnings is always empty.
// Warnings are still logged.
func WithIgnoreWarnings() Option {
	return func(o *openOptions) {
		o.ignoreWarnings = true
	}
}

// WithLogger sets the logger for parsing. Chunk visits and skips are logged
// at debug level and warnings at warn level, each with the file path.
// The default discards everything.
//
//	logger := zerolog.New(os.Stderr).Level(zerolog.DebugLevel)
//	file, err := audiotag.Open("song.m4a", audiotag.WithLogger(logger))
func WithLogger(l zerolog.Logger) Option {
	return func(o *openOptions) {
		o.logger = l
	}
}
