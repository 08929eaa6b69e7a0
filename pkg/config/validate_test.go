package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openfroyo/themecfg/pkg/plugins"
)

// stubResolver resolves only the names it was given.
type stubResolver map[string]bool

func (s stubResolver) Resolve(_ context.Context, _, ref string) (*plugins.Plugin, error) {
	if s[ref] {
		return &plugins.Plugin{Ref: ref, Kind: plugins.KindBuiltin}, nil
	}
	return nil, fmt.Errorf("%w: %q", plugins.ErrUnresolvable, ref)
}

func newTestValidator() *Validator {
	return NewValidator(zerolog.Nop(), stubResolver{"@tailwindcss/forms": true})
}

func TestValidator_Default(t *testing.T) {
	report, err := newTestValidator().Validate(context.Background(), Default(), ValidateOptions{})
	if err != nil {
		t.Fatalf("built-in configuration must validate: %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("unexpected issues: %v", report.Issues)
	}
}

func TestValidator_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*BuildConfiguration)
		wantPath string
	}{
		{
			name: "scaled token without DEFAULT",
			mutate: func(c *BuildConfiguration) {
				c.Theme.Extend[CategoryColors]["primary"] = scaledFrom(map[string]string{"light": "#fff"})
			},
			wantPath: "theme.extend.colors.primary",
		},
		{
			name:     "missing content",
			mutate:   func(c *BuildConfiguration) { c.Content = nil },
			wantPath: "content",
		},
		{
			name:     "empty content pattern",
			mutate:   func(c *BuildConfiguration) { c.Content = []string{""} },
			wantPath: "content[0]",
		},
		{
			name: "duplicate content pattern",
			mutate: func(c *BuildConfiguration) {
				c.Content = []string{"./src/**/*.ts", "./src/**/*.ts"}
			},
			wantPath: "content",
		},
		{
			name:     "unbalanced alternation",
			mutate:   func(c *BuildConfiguration) { c.Content = []string{"./src/**/*.{html,js"} },
			wantPath: "content[0]",
		},
		{
			name: "invalid color value",
			mutate: func(c *BuildConfiguration) {
				c.Theme.Extend[CategoryColors]["accent"] = Solid("#40")
			},
			wantPath: "theme.extend.colors.accent",
		},
		{
			name: "invalid variant color",
			mutate: func(c *BuildConfiguration) {
				c.Theme.Extend[CategoryColors]["primary"] = Scaled("#821528", map[string]string{"light": "not-a-color"})
			},
			wantPath: "theme.extend.colors.primary.light",
		},
		{
			name: "empty non-color value",
			mutate: func(c *BuildConfiguration) {
				c.Theme.Extend["spacing"] = TokenSet{"128": Solid("")}
			},
			wantPath: "theme.extend.spacing.128",
		},
		{
			name: "empty plugin reference",
			mutate: func(c *BuildConfiguration) {
				c.Plugins = []string{""}
			},
			wantPath: "plugins[0]",
		},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			_, err := v.Validate(context.Background(), cfg, ValidateOptions{})
			if !IsMalformedSchema(err) {
				t.Fatalf("expected malformed schema error, got %v", err)
			}

			var found bool
			for _, issue := range err.(*ConfigError).Issues {
				if issue.Path == tt.wantPath {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an issue at %s, got %v", tt.wantPath, err)
			}
		})
	}
}

func TestValidator_AcceptsTokenShapes(t *testing.T) {
	tests := []struct {
		name     string
		category string
		token    Token
	}{
		{"solid hex without DEFAULT", CategoryColors, Solid("#687998")},
		{"short hex", CategoryColors, Solid("#fff")},
		{"rgb", CategoryColors, Solid("rgb(255, 0, 0)")},
		{"hsl", CategoryColors, Solid("hsl(120, 100%, 50%)")},
		{"named color", CategoryColors, Solid("tomato")},
		{"keyword", CategoryColors, Solid("currentColor")},
		{"scaled", CategoryColors, Scaled("#821528", map[string]string{"light": "#a13346", "dark": "rgba(0, 0, 0, 0.5)"})},
		{"space syntax", CategoryColors, Solid("rgb(130 21 40)")},
		{"oklch", CategoryColors, Solid("oklch(0.5 0.1 20)")},
		{"css variable with alpha placeholder", CategoryColors, Solid("rgb(var(--c) / <alpha-value>)")},
		{"non-color category", "spacing", Solid("72rem")},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if cfg.Theme.Extend[tt.category] == nil {
				cfg.Theme.Extend[tt.category] = TokenSet{}
			}
			cfg.Theme.Extend[tt.category]["candidate"] = tt.token

			if _, err := v.Validate(context.Background(), cfg, ValidateOptions{}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidator_Plugins(t *testing.T) {
	v := newTestValidator()
	ctx := context.Background()

	ok := Default().WithPlugin("@tailwindcss/forms")
	if _, err := v.Validate(ctx, ok, ValidateOptions{}); err != nil {
		t.Errorf("resolvable plugin rejected: %v", err)
	}

	bad := ok.WithPlugin("left-pad")
	_, err := v.Validate(ctx, bad, ValidateOptions{})
	if !IsUnresolvablePlugin(err) {
		t.Fatalf("expected unresolvable plugin error, got %v", err)
	}
	issues := err.(*ConfigError).Issues
	if len(issues) != 1 || issues[0].Path != "plugins[1]" {
		t.Errorf("expected one issue at plugins[1], got %v", issues)
	}
}

func TestValidator_MalformedBeatsPlugin(t *testing.T) {
	cfg := Default().WithPlugin("left-pad")
	cfg.Content = nil

	_, err := newTestValidator().Validate(context.Background(), cfg, ValidateOptions{})
	if !IsMalformedSchema(err) {
		t.Errorf("expected malformed schema error first, got %v", err)
	}
}

func TestValidator_UnresolvableGlobWarns(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"src/App.svelte", "src/lib/util.ts", "README.md"} {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := Default()
	cfg.Content = append(cfg.Content, "./docs/**/*.md")

	report, err := newTestValidator().Validate(context.Background(), cfg, ValidateOptions{Root: root})
	if err != nil {
		t.Fatalf("zero-match globs must not fail validation: %v", err)
	}

	if got := report.Matches["./src/**/*.{html,js,svelte,ts}"]; got != 2 {
		t.Errorf("expected 2 matches for src glob, got %d", got)
	}
	if got := report.Matches["./docs/**/*.md"]; got != 0 {
		t.Errorf("expected 0 matches for docs glob, got %d", got)
	}

	warnings := report.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if warnings[0].Class != ClassUnresolvableGlob || warnings[0].Path != "content[1]" {
		t.Errorf("unexpected warning %+v", warnings[0])
	}
}

func TestIsColor(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"#821528", true},
		{"#A13346", true},
		{"transparent", true},
		{"inherit", true},
		{"rebeccapurple", true},
		{"rebeccablue", false},
		{"#12345", false},
		{"821528", false},
		{"", false},
		{"rgb(130, 21, 40)", true},
		{"rgba(130, 21, 40, 0.5)", true},
		{"rgb(130 21 40)", true},
		{"rgb(130 21 40 / 50%)", true},
		{"hsl(350deg 72% 30% / 0.8)", true},
		{"hwb(0 0% 0%)", true},
		{"lab(29.2345% 39.3825 20.0664)", true},
		{"lch(52.2% 72.2 50)", true},
		{"oklab(0.5 -0.1 0.1)", true},
		{"oklch(0.5 0.1 20)", true},
		{"oklch(none 0.1 20)", true},
		{"color(display-p3 1 0.5 0)", true},
		{"color(srgb 1 0 0 / 0.5)", true},
		{"hsl(var(--primary))", true},
		{"rgb(var(--c) / <alpha-value>)", true},
		{"rgb(var(--r, 0) var(--g) calc(10 + 20))", true},
		{"RGB(1 2 3)", true},
		{"rgb(1 2)", false},
		{"rgb(1, 2 3)", false},
		{"rgb(1, 2, 3 / 0.5)", false},
		{"rgb(1 2 3 / 0.5 0.6)", false},
		{"lab(1, 2, 3)", false},
		{"color(foo 1 2 3)", false},
		{"rgb(url(x) 1 2)", false},
		{"rgb(1 2 3", false},
		{"tint(1 2 3)", false},
	}

	for _, tt := range tests {
		if got := IsColor(tt.in); got != tt.want {
			t.Errorf("IsColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
