package audiotag

// SaveOption configures Save and SaveAs.
type SaveOption func(*saveOptions)

type saveOptions struct {
	backupSuffix    string // Original renamed to path+suffix before replacement
	validate        bool   // Re-open after writing and compare tags
	preserveModTime bool
}

func defaultSaveOptions() *saveOptions {
	return &saveOptions{}
}

// WithBackup keeps the file being replaced as path+suffix, so
// WithBackup(".bak") leaves "song.wav.bak" next to the new "song.wav".
// An existing backup is overwritten.
func WithBackup(suffix string) SaveOption {
	return func(o *saveOptions) {
		o.backupSuffix = suffix
	}
}

// WithValidation re-opens the written file and fails the save when its
// tags differ from the ones written. The new file stays in place either
// way.
func WithValidation() SaveOption {
	return func(o *saveOptions) {
		o.validate = true
	}
}

// WithPreserveModTime gives the written file the modification time the
// original had.
func WithPreserveModTime() SaveOption {
	return func(o *saveOptions) {
		o.preserveModTime = true
	}
}
