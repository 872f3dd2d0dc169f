package types

import (
	"slices"
	"testing"
)

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatUnknown, "Unknown"},
		{FormatWAV, "WAV"},
		{FormatOgg, "Ogg Vorbis"},
		{Format(99), "Format(99)"},
	}
	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", int(tt.format), got, tt.want)
		}
	}
}

func TestFormat_Extensions(t *testing.T) {
	tests := []struct {
		format Format
		want   []string
	}{
		{FormatFLAC, []string{".flac"}},
		{FormatMP3, []string{".mp3"}},
		{FormatM4A, []string{".m4a", ".mp4", ".m4p"}},
		{FormatWAV, []string{".wav"}},
		{FormatUnknown, nil},
	}
	for _, tt := range tests {
		if got := tt.format.Extensions(); !slices.Equal(got, tt.want) {
			t.Errorf("%v.Extensions() = %v, want %v", tt.format, got, tt.want)
		}
	}
}
