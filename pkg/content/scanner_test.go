package content

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rs/zerolog"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("<div class=\"text-primary\"></div>"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"src/App.svelte",
		"src/index.ts",
		"src/main.js",
		"README.md",
		"node_modules/pkg/src/index.ts",
	)

	patterns := []string{"./src/**/*.{html,js,svelte,ts}", "./docs/**/*.md"}
	result, err := NewScanner(zerolog.Nop()).Scan(context.Background(), root, patterns)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	want := []string{"src/App.svelte", "src/index.ts", "src/main.js"}
	if !slices.Equal(result.Files, want) {
		t.Errorf("expected files %v, got %v", want, result.Files)
	}

	if got := len(result.PerPattern[patterns[0]]); got != 3 {
		t.Errorf("expected 3 matches for %s, got %d", patterns[0], got)
	}

	unmatched := result.Unmatched(patterns)
	if !slices.Equal(unmatched, []string{"./docs/**/*.md"}) {
		t.Errorf("expected docs glob to be unmatched, got %v", unmatched)
	}
}

func TestScanner_SkipDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "node_modules/pkg/index.js", "vendor/lib.js")

	patterns := []string{"**/*.js"}

	result, err := NewScanner(zerolog.Nop()).Scan(context.Background(), root, patterns)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !slices.Equal(result.Files, []string{"vendor/lib.js"}) {
		t.Errorf("expected node_modules to be skipped, got %v", result.Files)
	}

	result, err = NewScanner(zerolog.Nop()).WithSkipDirs().Scan(context.Background(), root, patterns)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(result.Files) != 2 {
		t.Errorf("expected both files without skip dirs, got %v", result.Files)
	}
}

func TestScanner_InvalidPattern(t *testing.T) {
	_, err := NewScanner(zerolog.Nop()).Scan(context.Background(), t.TempDir(), []string{"./src/{a,b"})
	if err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestScanner_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "src/a.ts")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewScanner(zerolog.Nop()).Scan(ctx, root, []string{"src/*.ts"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
