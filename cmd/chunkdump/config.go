package main

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// config controls what chunkdump prints. Command line flags override
// values read from the config file.
type config struct {
	LogLevel    zerolog.Level
	MaxDepth    int
	HideSkipped bool
	ExtractID3  bool
	Force       bool
}

type fileConfig struct {
	LogLevel    string `toml:"log_level"`
	MaxDepth    int    `toml:"max_depth"`
	HideSkipped bool   `toml:"hide_skipped"`
	ExtractID3  bool   `toml:"extract_id3"`
	Force       bool   `toml:"force"`
}

func defaultConfig() config {
	return config{
		LogLevel: zerolog.WarnLevel,
		MaxDepth: 8,
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, errors.Wrap(err, "load chunkdump config")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, errors.Errorf("unknown config key %q", undecoded[0].String())
	}

	if meta.IsDefined("log_level") {
		lvl, err := parseLevel(raw.LogLevel)
		if err != nil {
			return config{}, err
		}
		cfg.LogLevel = lvl
	}
	if meta.IsDefined("max_depth") {
		if raw.MaxDepth < 1 {
			return config{}, errors.Errorf("max_depth must be at least 1, got %d", raw.MaxDepth)
		}
		cfg.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("hide_skipped") {
		cfg.HideSkipped = raw.HideSkipped
	}
	if meta.IsDefined("extract_id3") {
		cfg.ExtractID3 = raw.ExtractID3
	}
	if meta.IsDefined("force") {
		cfg.Force = raw.Force
	}
	return cfg, nil
}

func parseLevel(s string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "parse log level %q", s)
	}
	return lvl, nil
}
