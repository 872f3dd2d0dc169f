package audiotag

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/simonhull/audiotag/internal/registry"
	"github.com/simonhull/audiotag/internal/types"
)

// Save writes the current Tags back to the original file.
//
// The file is written to a temporary file in the same directory and renamed
// over the original, so a failed save leaves the original unchanged.
//
//	file.Tags.Set("INAM", "New Title")
//	err := file.Save(
//	    audiotag.WithBackup(".bak"),
//	    audiotag.WithValidation(),
//	)
//
// Only WAV and MP3 have writers; other formats return UnsupportedWriteError.
func (f *File) Save(opts ...SaveOption) error {
	return f.SaveAs(f.Path, opts...)
}

// SaveAs writes the file with its current Tags to outputPath, atomically.
func (f *File) SaveAs(outputPath string, opts ...SaveOption) error { //nolint:gocyclo // Atomic file operations require sequential steps
	options := defaultSaveOptions()
	for _, opt := range opts {
		opt(options)
	}

	writer := registry.GetWriter(f.Format)
	if writer == nil {
		return &types.UnsupportedWriteError{
			Format: f.Format,
			Reason: "no writer registered",
		}
	}
	if f.Reader_ == nil {
		return fmt.Errorf("file not open: reader is nil")
	}

	var modTime time.Time
	if options.preserveModTime {
		if info, err := os.Stat(f.Path); err == nil {
			modTime = info.ModTime()
		}
	}

	// Same directory as the output so the rename cannot cross devices.
	tempFile, err := os.CreateTemp(filepath.Dir(outputPath), ".audiotag-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			_ = tempFile.Close()    //nolint:errcheck // Best effort cleanup
			_ = os.Remove(tempPath) //nolint:errcheck // Best effort cleanup
		}
	}()

	if err := writer.Write(tempFile, &f.File, f.Reader_, f.Size); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if options.backupSuffix != "" {
		if _, err := os.Stat(outputPath); err == nil {
			if err := os.Rename(outputPath, outputPath+options.backupSuffix); err != nil {
				return fmt.Errorf("create backup: %w", err)
			}
		}
	}

	if err := os.Rename(tempPath, outputPath); err != nil {
		return fmt.Errorf("rename temp to output: %w", err)
	}
	success = true
	f.log.Debug().Str("output", outputPath).Msg("saved")

	if !modTime.IsZero() {
		_ = os.Chtimes(outputPath, modTime, modTime) //nolint:errcheck // Non-fatal: file was written successfully
	}

	if options.validate {
		if err := f.validateWrittenFile(outputPath); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// validateWrittenFile re-opens the written file and compares its tags.
func (f *File) validateWrittenFile(path string) error {
	written, err := Open(path, WithLogger(f.log))
	if err != nil {
		return fmt.Errorf("re-open: %w", err)
	}
	defer written.Close() //nolint:errcheck // Best effort close

	if !written.Tags.Equal(&f.Tags) {
		return fmt.Errorf("tags mismatch: wrote %v, read back %v", f.Tags.Keys(), written.Tags.Keys())
	}
	return nil
}
