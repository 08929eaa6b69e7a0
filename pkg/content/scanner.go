package content

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
)

// DefaultSkipDirs are directory names never descended into.
var DefaultSkipDirs = []string{".git", "node_modules"}

// Result is the outcome of scanning a tree.
type Result struct {
	// Root is the scanned directory.
	Root string `json:"root"`

	// Files lists every selected file (slash-separated, relative to Root), sorted.
	Files []string `json:"files"`

	// PerPattern lists the files matched by each positive pattern.
	PerPattern map[string][]string `json:"per_pattern"`
}

// Unmatched returns the positive patterns that matched no file, in
// declaration order.
func (r *Result) Unmatched(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		if len(p) > 0 && p[0] == '!' {
			continue
		}
		if len(r.PerPattern[p]) == 0 {
			out = append(out, p)
		}
	}
	return out
}

// Scanner walks a directory tree and evaluates content globs against it.
type Scanner struct {
	logger   zerolog.Logger
	skipDirs []string
}

// NewScanner creates a new scanner.
func NewScanner(logger zerolog.Logger) *Scanner {
	return &Scanner{
		logger:   logger.With().Str("component", "content-scanner").Logger(),
		skipDirs: DefaultSkipDirs,
	}
}

// WithSkipDirs replaces the directory names that are not descended into.
func (s *Scanner) WithSkipDirs(names ...string) *Scanner {
	s.skipDirs = names
	return s
}

// Scan walks root and returns the files selected by patterns.
func (s *Scanner) Scan(ctx context.Context, root string, patterns []string) (*Result, error) {
	matcher, err := Compile(patterns)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Root:       root,
		PerPattern: make(map[string][]string, len(patterns)),
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && slices.Contains(s.skipDirs, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		for _, p := range matcher.Patterns() {
			if !p.Negated && p.Match(rel) {
				result.PerPattern[p.Source] = append(result.PerPattern[p.Source], rel)
			}
		}
		if matcher.Match(rel) {
			result.Files = append(result.Files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	slices.Sort(result.Files)

	s.logger.Debug().
		Str("root", root).
		Int("patterns", len(patterns)).
		Int("files", len(result.Files)).
		Msg("Content scan complete")

	return result, nil
}
