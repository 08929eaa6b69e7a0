package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/openfroyo/themecfg/pkg/config"
)

// configCandidates are the file names looked up when --config is not given.
var configCandidates = []string{
	"themecfg.cue",
	"themecfg.json",
	"themecfg.yaml",
	"themecfg.yml",
}

// findConfig returns the configuration path to load: --config when set,
// otherwise the first candidate present in dir. An empty result means the
// built-in configuration applies.
func findConfig(dir string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	for _, name := range configCandidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return "", nil
}

// projectRoot returns root, or the directory of the configuration file when
// root is empty.
func projectRoot(root, path string) string {
	if root != "" {
		return root
	}
	if path == "" {
		return "."
	}
	return filepath.Dir(path)
}

// loadDocument finds and loads the configuration. When scan is set, content
// globs are evaluated against root.
func loadDocument(ctx context.Context, root string, scan bool) (*config.Document, error) {
	path, err := findConfig(".")
	if err != nil {
		return nil, err
	}

	loader := config.NewLoader(log.Logger, nil)
	if scan {
		loader.WithRoot(projectRoot(root, path))
	}

	if path == "" {
		log.Debug().Msg("No configuration file found, using built-in configuration")
		return loader.LoadDefault(ctx)
	}
	return loader.LoadFile(ctx, path)
}

// sourcePath maps a document source to a file path, empty for the built-in
// configuration.
func sourcePath(source string) string {
	if source == config.BuiltinSource {
		return ""
	}
	return source
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printIssues lists the issues of a classified error.
func printIssues(w io.Writer, err error) {
	var ce *config.ConfigError
	if !errors.As(err, &ce) {
		return
	}
	for _, issue := range ce.Issues {
		fmt.Fprintf(w, "  ✗ %s\n", issue)
	}
}

// emitConfig writes cfg to path in format, replacing the file atomically.
func emitConfig(path string, format config.Format, cfg *config.BuildConfiguration) error {
	data, err := config.Marshal(cfg, format)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
