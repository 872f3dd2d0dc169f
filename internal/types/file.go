// Package types provides the data structures shared by every container
// parser: the parsed File, its AudioInfo and raw Tags, the Format
// enumeration and the typed error taxonomy.
package types

import (
	"io"
)

// ChunkInfo summarizes one top-level chunk, box or block visited while
// walking a container.
type ChunkInfo struct {
	ID      string
	Offset  int64
	Size    int64 // payload bytes
	Handled bool  // a handler decoded it; false means it was skipped
}

// File represents an opened audio file with parsed metadata.
//
// Always call Close() on the public wrapper when done to release file
// resources.
type File struct {
	Reader_  io.ReaderAt //nolint:revive // Underscore indicates internal/unexported semantics
	Native_  any         //nolint:revive // Format-native decoded tag structure, consumed by writers
	Path     string
	Chunks   []ChunkInfo
	Warnings []Warning
	Tags     Tags
	Audio    AudioInfo
	Format   Format
	Size     int64
}

// Warn records a non-fatal issue.
func (f *File) Warn(stage string, offset int64, msg string) {
	f.Warnings = append(f.Warnings, Warning{Stage: stage, Message: msg, Offset: offset})
}
