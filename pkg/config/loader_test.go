package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
)

const literalCUE = `
content: ["./src/**/*.{html,js,svelte,ts}"]
theme: extend: colors: {
	primary: {
		DEFAULT: "#821528"
		light:   "#a13346"
	}
	secondary: "#687998"
	accent:    "#404dbf"
	neutral:   "#8fbc94"
}
plugins: []
`

const literalJSON = `{
  "content": ["./src/**/*.{html,js,svelte,ts}"],
  "theme": {
    "extend": {
      "colors": {
        "primary": {"DEFAULT": "#821528", "light": "#a13346"},
        "secondary": "#687998",
        "accent": "#404dbf",
        "neutral": "#8fbc94"
      }
    }
  },
  "plugins": []
}`

const literalYAML = `
content:
  - "./src/**/*.{html,js,svelte,ts}"
theme:
  extend:
    colors:
      primary:
        DEFAULT: "#821528"
        light: "#a13346"
      secondary: "#687998"
      accent: "#404dbf"
      neutral: "#8fbc94"
plugins: []
`

func newTestLoader() *Loader {
	return NewLoader(zerolog.Nop(), NewValidator(zerolog.Nop(), stubResolver{"@tailwindcss/forms": true}))
}

func TestLoader_LoadBytes_Literal(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{"cue", FormatCUE, literalCUE},
		{"json", FormatJSON, literalJSON},
		{"yaml", FormatYAML, literalYAML},
	}

	loader := newTestLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := loader.LoadBytes(context.Background(), "themecfg."+tt.name, []byte(tt.input), tt.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(Default(), doc.Config, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("loaded configuration mismatch (-want +got):\n%s", diff)
			}
			if doc.Format != tt.format {
				t.Errorf("expected format %s, got %s", tt.format, doc.Format)
			}
		})
	}
}

func TestLoader_LoadBytes_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		input   string
		wantMsg string
	}{
		{
			name:   "scaled token without DEFAULT",
			format: FormatCUE,
			input: `
content: ["./src/**/*.ts"]
theme: extend: colors: primary: {light: "#fff"}
`,
		},
		{
			name:   "missing content",
			format: FormatJSON,
			input:  `{"theme": {"extend": {"colors": {"accent": "#404dbf"}}}, "plugins": []}`,
		},
		{
			name:   "empty content list",
			format: FormatYAML,
			input:  "content: []\n",
		},
		{
			name:   "unknown top-level field",
			format: FormatCUE,
			input: `
content: ["./src/**/*.ts"]
purge: true
`,
		},
		{
			name:   "token of wrong type",
			format: FormatJSON,
			input:  `{"content": ["./src/**/*.ts"], "theme": {"extend": {"colors": {"accent": 42}}}}`,
		},
		{
			name:   "CUE syntax error",
			format: FormatCUE,
			input:  `content: [`,
		},
		{
			name:    "duplicate globs pass the schema but fail validation",
			format:  FormatJSON,
			input:   `{"content": ["./src/**/*.ts", "./src/**/*.ts"]}`,
			wantMsg: "duplicate",
		},
		{
			name:    "invalid color passes the schema but fails validation",
			format:  FormatYAML,
			input:   "content: [\"./src/**/*.ts\"]\ntheme:\n  extend:\n    colors:\n      accent: \"blurple\"\n",
			wantMsg: "not a valid color",
		},
	}

	loader := newTestLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := loader.LoadBytes(context.Background(), "test."+string(tt.format), []byte(tt.input), tt.format)
			if err == nil {
				t.Fatalf("expected error, got document %+v", doc.Config)
			}
			if !IsMalformedSchema(err) {
				t.Fatalf("expected malformed schema error, got %v", err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestLoader_LoadBytes_ReportsLocation(t *testing.T) {
	input := `content: ["./src/**/*.ts"]
theme: :
`
	_, err := newTestLoader().LoadBytes(context.Background(), "theme.cue", []byte(input), FormatCUE)
	if !IsMalformedSchema(err) {
		t.Fatalf("expected malformed schema error, got %v", err)
	}

	ce := err.(*ConfigError)
	if ce.Source != "theme.cue" {
		t.Errorf("expected source theme.cue, got %q", ce.Source)
	}
	if len(ce.Issues) == 0 {
		t.Fatal("expected at least one issue")
	}
	if ce.Issues[0].File != "theme.cue" || ce.Issues[0].Line != 2 {
		t.Errorf("expected issue at theme.cue line 2, got %+v", ce.Issues[0])
	}
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	loader := newTestLoader()
	ctx := context.Background()

	path := filepath.Join(dir, "themecfg.cue")
	if err := os.WriteFile(path, []byte(literalCUE), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := loader.LoadFile(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Source != path {
		t.Errorf("expected source %s, got %s", path, doc.Source)
	}
	if tok, ok := doc.Config.Color("primary"); !ok || tok.Value() != "#821528" {
		t.Errorf("unexpected primary color %v", tok)
	}

	unsupported := filepath.Join(dir, "themecfg.toml")
	if err := os.WriteFile(unsupported, []byte("content = []"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loader.LoadFile(ctx, unsupported); !IsMalformedSchema(err) {
		t.Errorf("expected malformed schema error for .toml, got %v", err)
	}

	if _, err := loader.LoadFile(ctx, filepath.Join(dir, "missing.cue")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoader_UnresolvablePlugin(t *testing.T) {
	input := `{"content": ["./src/**/*.ts"], "plugins": ["@tailwindcss/forms", "daisyui"]}`

	_, err := newTestLoader().LoadBytes(context.Background(), "themecfg.json", []byte(input), FormatJSON)
	if !IsUnresolvablePlugin(err) {
		t.Fatalf("expected unresolvable plugin error, got %v", err)
	}
}

func TestLoader_LoadDefault(t *testing.T) {
	doc, err := newTestLoader().LoadDefault(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Source != BuiltinSource {
		t.Errorf("expected builtin source, got %s", doc.Source)
	}
}

func TestLoader_LoadBytes_NumericShadeKeys(t *testing.T) {
	yamlDoc := `
content: ["./src/**/*.ts"]
theme:
  extend:
    colors:
      primary:
        DEFAULT: "#821528"
        50: "#fff1f2"
        900: "#4c0519"
    spacing:
      72: "18rem"
`
	jsonDoc := `{
  "content": ["./src/**/*.ts"],
  "theme": {"extend": {
    "colors": {"primary": {"DEFAULT": "#821528", "50": "#fff1f2", "900": "#4c0519"}},
    "spacing": {"72": "18rem"}
  }}
}`

	loader := newTestLoader()
	ctx := context.Background()

	fromYAML, err := loader.LoadBytes(ctx, "shades.yaml", []byte(yamlDoc), FormatYAML)
	if err != nil {
		t.Fatalf("YAML with numeric keys rejected: %v", err)
	}
	fromJSON, err := loader.LoadBytes(ctx, "shades.json", []byte(jsonDoc), FormatJSON)
	if err != nil {
		t.Fatalf("JSON rejected: %v", err)
	}

	if diff := cmp.Diff(fromJSON.Config, fromYAML.Config, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("YAML and JSON forms differ (-json +yaml):\n%s", diff)
	}
	if v, ok := fromYAML.Config.Theme.Extend[CategoryColors]["primary"].Variant("50"); !ok || v != "#fff1f2" {
		t.Errorf("expected shade 50 = #fff1f2, got %q (present=%v)", v, ok)
	}
}

func TestLoader_LoadBytes_YAMLFailuresAreClassified(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"scalar document", "42\n"},
		{"list document", "- ./src/**/*.ts\n"},
		{"numeric key without DEFAULT", "content: [\"./src/**/*.ts\"]\ntheme:\n  extend:\n    colors:\n      primary:\n        50: \"#fff\"\n"},
		{"boolean key at top level", "content: [\"./src/**/*.ts\"]\ntrue: 1\n"},
	}

	loader := newTestLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.LoadBytes(context.Background(), "x.yaml", []byte(tt.input), FormatYAML)
			if !errors.Is(err, ErrMalformedSchema) {
				t.Errorf("expected malformed schema error, got %v", err)
			}
		})
	}
}

func TestStringKeys(t *testing.T) {
	in := map[string]interface{}{
		"theme": map[interface{}]interface{}{
			50:  "#fff",
			"a": []interface{}{map[interface{}]interface{}{true: "x"}},
			1.5: "y",
		},
	}
	want := map[string]interface{}{
		"theme": map[string]interface{}{
			"50":  "#fff",
			"a":   []interface{}{map[string]interface{}{"true": "x"}},
			"1.5": "y",
		},
	}
	if diff := cmp.Diff(want, stringKeys(in)); diff != "" {
		t.Errorf("stringKeys mismatch (-want +got):\n%s", diff)
	}
}
