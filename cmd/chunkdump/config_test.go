package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunkdump.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    config
		wantErr bool
	}{
		{
			name: "empty keeps defaults",
			body: "",
			want: defaultConfig(),
		},
		{
			name: "all keys",
			body: `
log_level = " DEBUG "
max_depth = 3
hide_skipped = true
extract_id3 = true
force = true
`,
			want: config{
				LogLevel:    zerolog.DebugLevel,
				MaxDepth:    3,
				HideSkipped: true,
				ExtractID3:  true,
				Force:       true,
			},
		},
		{
			name: "partial",
			body: `max_depth = 2`,
			want: config{LogLevel: zerolog.WarnLevel, MaxDepth: 2},
		},
		{name: "bad level", body: `log_level = "loud"`, wantErr: true},
		{name: "bad depth", body: `max_depth = 0`, wantErr: true},
		{name: "unknown key", body: `colour = "blue"`, wantErr: true},
		{name: "not toml", body: `max_depth = [`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadConfig(writeConfig(t, tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := pretty.Compare(tt.want, got); diff != "" {
				t.Errorf("loadConfig() diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("loadConfig() on a missing file should fail")
	}
}
