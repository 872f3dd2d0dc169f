package audiotag

import (
	"github.com/simonhull/audiotag/internal/types"
)

// Errors returned by Open and Save. Match them with errors.As; every type
// carries the path and, where it applies, the offset and chunk identifier
// at fault.
type (
	// OutOfBoundsError reports a read past the end of the file or of the
	// enclosing chunk.
	OutOfBoundsError = types.OutOfBoundsError

	// UnsupportedFormatError reports an unrecognized container, or a
	// recognized one using a feature that cannot be parsed.
	UnsupportedFormatError = types.UnsupportedFormatError

	// CorruptedFileError reports structural damage outside any single chunk.
	CorruptedFileError = types.CorruptedFileError

	// CorruptHeaderError reports a chunk header that could not be read.
	CorruptHeaderError = types.CorruptHeaderError

	// InvalidChunkSizeError reports a declared length that does not fit the
	// enclosing container.
	InvalidChunkSizeError = types.InvalidChunkSizeError

	// RequiredChunkMissingError reports a mandatory chunk that never
	// appeared, such as "fmt " in WAV or "moov" in MP4.
	RequiredChunkMissingError = types.RequiredChunkMissingError

	// ChunkError wraps the failure of a mandatory chunk's handler.
	ChunkError = types.ChunkError

	BufferTooShortError   = types.BufferTooShortError
	TruncatedGroupError   = types.TruncatedGroupError
	UnsetFieldValueError  = types.UnsetFieldValueError
	OutOfRangeValueError  = types.OutOfRangeValueError
	SizeMismatchError     = types.SizeMismatchError
	UnsupportedWriteError = types.UnsupportedWriteError
)

// Warning is a non-fatal problem found while parsing.
type Warning = types.Warning
