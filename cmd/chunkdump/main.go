// chunkdump prints the chunk, box, block or frame tree of audio files along
// with the tags and audio properties read from them.
//
//	chunkdump [-config chunkdump.toml] [-depth N] [-hide-skipped] [-extract] [-f] FILE...
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/simonhull/audiotag"
	"github.com/simonhull/audiotag/internal/container"
	"github.com/simonhull/audiotag/internal/flac"
	"github.com/simonhull/audiotag/internal/id3"
	"github.com/simonhull/audiotag/internal/mp4"
	"github.com/simonhull/audiotag/internal/ogg"
	"github.com/simonhull/audiotag/internal/riff"
)

func main() {
	var (
		configPath  string
		logLevel    string
		depth       int
		hideSkipped bool
		extract     bool
		force       bool
	)
	flag.StringVar(&configPath, "config", "", "TOML config file")
	flag.StringVar(&logLevel, "log", "", "log level (debug, info, warn, error)")
	flag.IntVar(&depth, "depth", 0, "maximum tree depth to print")
	flag.BoolVar(&hideSkipped, "hide-skipped", false, "omit chunks no handler decoded")
	flag.BoolVar(&extract, "extract", false, "write the raw ID3v2 tag next to the input as .id3")
	flag.BoolVar(&force, "f", false, "force overwrite of extracted tags")
	flag.Parse()

	cfg := defaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = loadConfig(configPath); err != nil {
			log.Fatalf("%+v", err)
		}
	}
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log":
			cfg.LogLevel, flagErr = parseLevel(logLevel)
		case "depth":
			cfg.MaxDepth = depth
		case "hide-skipped":
			cfg.HideSkipped = hideSkipped
		case "extract":
			cfg.ExtractID3 = extract
		case "f":
			cfg.Force = force
		}
	})
	if flagErr != nil {
		log.Fatalf("%+v", flagErr)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(cfg.LogLevel).
		With().Timestamp().Str("app", "chunkdump").Logger()

	for _, path := range flag.Args() {
		if err := dump(os.Stdout, path, cfg, logger); err != nil {
			log.Fatalf("%+v", err)
		}
	}
}

// dump prints one file.
func dump(w io.Writer, path string, cfg config, logger zerolog.Logger) error {
	file, err := audiotag.Open(path, audiotag.WithLogger(logger))
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	fmt.Fprintf(w, "%s: %s, %s\n", path, file.Format, file.Audio)

	switch n := file.Native_.(type) {
	case *riff.Wave:
		printNodes(w, n.Chunks, 1, cfg)
		printFrames(w, n.ID3, 1)
	case *mp4.Movie:
		printNodes(w, n.Boxes, 1, cfg)
	case *flac.Stream:
		printFrames(w, n.ID3, 1)
		printNodes(w, n.Blocks, 1, cfg)
	case *id3.Tag:
		printFrames(w, n, 1)
	case *ogg.Stream:
		for _, p := range n.HeaderPages {
			fmt.Fprintf(w, "  OggS serial=%d seq=%d size=%d offset=%d\n", p.Serial, p.Sequence, p.Size(), p.Offset)
		}
	default:
		for _, c := range file.Chunks {
			fmt.Fprintf(w, "  %s size=%d offset=%d\n", c.ID, c.Size, c.Offset)
		}
	}

	keys := file.Tags.Keys()
	slices.Sort(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "  %s = %s\n", key, strings.Join(file.Tags.Get(key), "; "))
	}
	for _, warn := range file.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}

	if cfg.ExtractID3 {
		return extractID3(file, cfg.Force, logger)
	}
	return nil
}

func printNodes(w io.Writer, nodes []*container.Node, depth int, cfg config) {
	if depth > cfg.MaxDepth {
		return
	}
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		if cfg.HideSkipped && !n.Handled && len(n.Children) == 0 {
			continue
		}
		mark := ""
		if !n.Handled && len(n.Children) == 0 {
			mark = " (skipped)"
		}
		fmt.Fprintf(w, "%s%s size=%d offset=%d%s\n", indent, n.ID, n.Payload, n.Offset, mark)
		printNodes(w, n.Children, depth+1, cfg)
	}
}

func printFrames(w io.Writer, tag *id3.Tag, depth int) {
	if tag == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%sID3v2.%d size=%d offset=%d\n", indent, tag.Version, tag.End-tag.Offset, tag.Offset)
	for _, f := range tag.Frames {
		mark := ""
		if f.Opaque() {
			mark = " (opaque)"
		}
		fmt.Fprintf(w, "%s  %s size=%d%s\n", indent, f.ID, len(f.Raw), mark)
	}
}

// extractID3 writes the raw bytes of the file's ID3v2 tag to a sibling
// file with the ".id3" extension.
func extractID3(file *audiotag.File, force bool, logger zerolog.Logger) error {
	var tag *id3.Tag
	switch n := file.Native_.(type) {
	case *id3.Tag:
		tag = n
	case *riff.Wave:
		tag = n.ID3
	case *flac.Stream:
		tag = n.ID3
	}
	if tag == nil {
		logger.Info().Str("path", file.Path).Msg("no ID3v2 tag to extract")
		return nil
	}

	outPath := pathutil.TrimExt(file.Path) + ".id3"
	if !force && osutil.Exists(outPath) {
		return errors.Errorf("ID3 file %q already present; use -f flag to force overwrite", outPath)
	}
	raw := make([]byte, tag.End-tag.Offset)
	if _, err := file.Reader_.ReadAt(raw, tag.Offset); err != nil {
		return errors.WithStack(err)
	}
	if err := os.WriteFile(outPath, raw, 0o644); err != nil { //nolint:gosec // Extracted tags are not secret
		return errors.WithStack(err)
	}
	logger.Info().Str("path", outPath).Int("bytes", len(raw)).Msg("extracted ID3v2 tag")
	return nil
}
