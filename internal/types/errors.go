package types

import "fmt"

// OutOfBoundsError is returned when attempting to read beyond file bounds.
type OutOfBoundsError struct {
	Path   string
	What   string
	Offset int64
	Length int
	Size   int64
}

func (e *OutOfBoundsError) Error() string {
	if e.Offset >= e.Size || e.Offset < 0 {
		return fmt.Sprintf("%s: offset %d out of bounds (limit: %d) while reading %s",
			e.Path, e.Offset, e.Size, e.What)
	}
	return fmt.Sprintf("%s: read of %d bytes at offset %d would exceed limit %d while reading %s",
		e.Path, e.Length, e.Offset, e.Size, e.What)
}

// UnsupportedFormatError is returned when the file format is not recognized
// or a recognized container uses a feature this library cannot parse.
type UnsupportedFormatError struct {
	Path   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported format: %s", e.Path, e.Reason)
}

// CorruptedFileError is returned when file structure is invalid in a way
// none of the more specific errors below describe.
type CorruptedFileError struct {
	Path   string
	Reason string
	Offset int64
}

func (e *CorruptedFileError) Error() string {
	return fmt.Sprintf("%s: corrupted file at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// CorruptHeaderError is returned when a chunk, box or frame header cannot be
// read: fewer bytes remain than the header needs, or a header field is
// malformed.
type CorruptHeaderError struct {
	Path   string
	Layout string // container layout name (RIFF, MP4, ID3v2.3 frame, ...)
	Reason string
	Offset int64
	Need   int
	Have   int64
}

func (e *CorruptHeaderError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: corrupt %s header at offset %d: %s", e.Path, e.Layout, e.Offset, e.Reason)
	}
	return fmt.Sprintf("%s: corrupt %s header at offset %d: need %d bytes, %d available",
		e.Path, e.Layout, e.Offset, e.Need, e.Have)
}

// InvalidChunkSizeError is returned when a declared chunk length is smaller
// than its own header or runs past the end of its container.
type InvalidChunkSizeError struct {
	Path      string
	ID        string
	Reason    string
	Offset    int64
	Declared  uint64
	Available int64
}

func (e *InvalidChunkSizeError) Error() string {
	msg := fmt.Sprintf("%s: invalid size for chunk %q at offset %d: declared %d, available %d",
		e.Path, e.ID, e.Offset, e.Declared, e.Available)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// RequiredChunkMissingError is returned when a container walk reaches the end
// of its container without visiting a mandatory chunk.
type RequiredChunkMissingError struct {
	Path   string
	Layout string
	ID     string
}

func (e *RequiredChunkMissingError) Error() string {
	return fmt.Sprintf("%s: required %s chunk %q not found", e.Path, e.Layout, e.ID)
}

// ChunkError wraps a failure raised while handling a required chunk.
type ChunkError struct {
	Err    error
	Path   string
	ID     string
	Offset int64
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("%s: chunk %q at offset %d: %v", e.Path, e.ID, e.Offset, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// BufferTooShortError is returned when decoding a field would read past the
// end of its buffer.
type BufferTooShortError struct {
	Field  string
	Offset int
	Need   int
	Have   int
}

func (e *BufferTooShortError) Error() string {
	return fmt.Sprintf("field %s: buffer too short at offset %d: need %d bytes, %d available",
		e.Field, e.Offset, e.Need, e.Have)
}

// TruncatedGroupError is returned when a repeated group ends partway through
// an instance.
type TruncatedGroupError struct {
	Field     string
	Instance  int
	Offset    int
	Remaining int
}

func (e *TruncatedGroupError) Error() string {
	return fmt.Sprintf("group %s: instance %d truncated at offset %d with %d bytes remaining",
		e.Field, e.Instance, e.Offset, e.Remaining)
}

// UnsetFieldValueError is returned when encoding a field that was never
// given a value.
type UnsetFieldValueError struct {
	Field string
}

func (e *UnsetFieldValueError) Error() string {
	return fmt.Sprintf("field %s: value not set", e.Field)
}

// OutOfRangeValueError is returned when a value violates a field's declared
// domain.
type OutOfRangeValueError struct {
	Field  string
	Reason string
	Value  uint64
	Min    uint64
	Max    uint64
}

func (e *OutOfRangeValueError) Error() string {
	what := "value"
	if e.Reason != "" {
		what = e.Reason
	}
	return fmt.Sprintf("field %s: %s %d outside [%d, %d]", e.Field, what, e.Value, e.Min, e.Max)
}

// SizeMismatchError reports an encoder producing a different number of bytes
// than its computed size.
type SizeMismatchError struct {
	What string
	Want int
	Got  int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: encoded %d bytes, size reports %d", e.What, e.Got, e.Want)
}

// Warning represents a non-fatal issue encountered during parsing.
//
// Warnings are raised for problems inside optional chunks whose declared
// length let the parser continue past them, for example an undecodable
// ID3 frame or a malformed INFO entry.
type Warning struct {
	// Stage where the warning occurred
	Stage string // "metadata", "technical", "container"

	// Warning message
	Message string

	// File offset where the issue occurred (0 if not applicable)
	Offset int64
}

// String returns a human-readable warning message.
func (w Warning) String() string {
	if w.Offset > 0 {
		return fmt.Sprintf("%s (at offset %d): %s", w.Stage, w.Offset, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Stage, w.Message)
}

// UnsupportedWriteError indicates write is not supported for this format.
type UnsupportedWriteError struct {
	Reason string
	Format Format
}

func (e *UnsupportedWriteError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("write not supported for %s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("write not supported for %s", e.Format)
}
