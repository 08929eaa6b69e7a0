package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openfroyo/themecfg/pkg/config"
	"github.com/openfroyo/themecfg/pkg/policy"
)

// run executes the root command in dir and returns stdout and stderr.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(dir)
	log.Logger = zerolog.Nop()

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand("test", "none", "today")
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInitThenValidate(t *testing.T) {
	for _, format := range []string{"cue", "json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "src", "App.svelte"), "<main></main>")

			out, _, err := run(t, dir, "init", "--format", format)
			if err != nil {
				t.Fatalf("init failed: %v", err)
			}
			if !strings.Contains(out, "themecfg."+format) {
				t.Errorf("unexpected init output: %s", out)
			}

			out, _, err = run(t, dir, "validate")
			if err != nil {
				t.Fatalf("validate failed: %v", err)
			}
			if !strings.Contains(out, "is valid") || strings.Contains(out, "!") {
				t.Errorf("expected a clean validation, got: %s", out)
			}

			if _, _, err := run(t, dir, "init", "--format", format); err == nil {
				t.Error("init must not overwrite an existing file")
			}
			if _, _, err := run(t, dir, "init", "--format", format, "--force"); err != nil {
				t.Errorf("init --force failed: %v", err)
			}
		})
	}
}

func TestInit_RejectsJS(t *testing.T) {
	if _, _, err := run(t, t.TempDir(), "init", "--format", "js"); err == nil {
		t.Error("expected init to reject the js format")
	}
}

func TestValidate_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "themecfg.json"),
		`{"content": ["./src/**/*.ts"], "theme": {"extend": {"colors": {"primary": {"light": "#fff"}}}}}`)

	_, stderr, err := run(t, dir, "validate")
	if !config.IsMalformedSchema(err) {
		t.Fatalf("expected malformed schema error, got %v", err)
	}
	if !strings.Contains(stderr, "theme.extend.colors.primary") {
		t.Errorf("expected the offending path in stderr, got: %s", stderr)
	}
}

func TestValidate_WarningsAndStrict(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "themecfg.yaml"), "content:\n  - \"./src/**/*.ts\"\n  - \"./docs/**/*.md\"\n")
	writeFile(t, filepath.Join(dir, "src", "index.ts"), "export {}")

	out, _, err := run(t, dir, "validate")
	if err != nil {
		t.Fatalf("warnings must not fail validation: %v", err)
	}
	if !strings.Contains(out, "./docs/**/*.md") {
		t.Errorf("expected a warning for the docs glob, got: %s", out)
	}

	if _, _, err := run(t, dir, "validate", "--strict"); err == nil {
		t.Error("expected --strict to fail on warnings")
	}
	if _, _, err := run(t, dir, "validate", "--strict", "--no-scan"); err != nil {
		t.Errorf("--no-scan must skip glob warnings: %v", err)
	}
}

func TestValidate_Policies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "themecfg.json"), `{"content": ["!./dist/**"]}`)

	out, _, err := run(t, dir, "validate", "--no-scan")
	var verr *policy.ViolationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected policy violation error, got %v", err)
	}
	if !strings.Contains(out, "exclusion-only-content") {
		t.Errorf("expected the violated policy in output, got: %s", out)
	}
	if _, _, err := run(t, dir, "validate", "--no-scan", "--no-policy"); err != nil {
		t.Errorf("--no-policy must skip policy checks: %v", err)
	}

	writeFile(t, filepath.Join(dir, "themecfg.json"), `{"content": ["./src/**/*.ts"], "plugins": ["@tailwindcss/forms"]}`)
	writeFile(t, filepath.Join(dir, "policies", "no-forms.rego"), `# Forms styling comes from the design system.
# severity: error
package noforms

deny contains "the forms plugin is not allowed" if {
	"@tailwindcss/forms" in input.config.plugins
}
`)
	if _, _, err := run(t, dir, "validate", "--no-scan"); err != nil {
		t.Fatalf("built-in policies must pass: %v", err)
	}
	out, _, err = run(t, dir, "validate", "--no-scan", "--policy", "policies")
	if !errors.As(err, &verr) {
		t.Fatalf("expected custom policy to fail, got %v", err)
	}
	if !strings.Contains(out, "the forms plugin is not allowed") {
		t.Errorf("expected custom violation in output, got: %s", out)
	}
}

func TestValidate_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "main.js"), "")

	out, _, err := run(t, dir, "validate", "--json")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	var res validateResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if !res.Valid || res.Source != config.BuiltinSource {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Matches["./src/**/*.{html,js,svelte,ts}"] != 1 {
		t.Errorf("expected one match, got %v", res.Matches)
	}
}

func TestShow(t *testing.T) {
	dir := t.TempDir()

	out, _, err := run(t, dir, "show", "--format", "js")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.HasPrefix(out, "/** @type {import('tailwindcss').Config} */") {
		t.Errorf("unexpected js output: %s", out)
	}

	writeFile(t, filepath.Join(dir, "custom.json"), `{"content": ["./lib/**/*.js"], "plugins": ["@tailwindcss/forms"]}`)
	out, _, err = run(t, dir, "print", "--config", "custom.json", "--json")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	var cfg config.BuildConfiguration
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(cfg.Content) != 1 || cfg.Content[0] != "./lib/**/*.js" || len(cfg.Plugins) != 1 {
		t.Errorf("unexpected configuration %+v", cfg)
	}

	if _, _, err := run(t, dir, "show", "--format", "toml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestMatch(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"src/App.svelte", "src/index.ts", "src/main.js", "README.md", "node_modules/x/index.js"} {
		writeFile(t, filepath.Join(dir, filepath.FromSlash(f)), "")
	}

	out, _, err := run(t, dir, "match")
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	want := "src/App.svelte\nsrc/index.ts\nsrc/main.js\n"
	if out != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, out)
	}

	out, _, err = run(t, dir, "match", "--pattern", "**/*.md")
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if out != "README.md\n" {
		t.Errorf("unexpected output for explicit pattern: %q", out)
	}
}

func TestPlugins(t *testing.T) {
	dir := t.TempDir()

	out, _, err := run(t, dir, "plugins", "--builtins")
	if err != nil {
		t.Fatalf("plugins failed: %v", err)
	}
	if !strings.Contains(out, "@tailwindcss/forms") {
		t.Errorf("expected builtin list, got: %s", out)
	}

	writeFile(t, filepath.Join(dir, "plugins", "brand.star"), "def plugin(api):\n    pass\n")
	writeFile(t, filepath.Join(dir, "themecfg.json"),
		`{"content": ["./src/**/*.ts"], "plugins": ["@tailwindcss/forms", "./plugins/brand.star"]}`)

	out, _, err = run(t, dir, "plugins")
	if err != nil {
		t.Fatalf("plugins failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "./plugins/brand.star (starlark") {
		t.Errorf("expected starlark plugin to resolve, got: %s", out)
	}

	writeFile(t, filepath.Join(dir, "themecfg.json"),
		`{"content": ["./src/**/*.ts"], "plugins": ["daisyui"]}`)
	out, _, err = run(t, dir, "plugins")
	if !config.IsUnresolvablePlugin(err) {
		t.Fatalf("expected unresolvable plugin error, got %v", err)
	}
	if !strings.Contains(out, "✗ daisyui") {
		t.Errorf("expected failure line, got: %s", out)
	}
}

func TestFindConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	configPath = ""

	path, err := findConfig(".")
	if err != nil || path != "" {
		t.Errorf("expected no config, got %q (%v)", path, err)
	}

	writeFile(t, filepath.Join(dir, "themecfg.yaml"), "content: [\"a\"]\n")
	writeFile(t, filepath.Join(dir, "themecfg.json"), `{"content": ["a"]}`)

	path, err = findConfig(".")
	if err != nil || path != "themecfg.json" {
		t.Errorf("expected themecfg.json to win over yaml, got %q (%v)", path, err)
	}
}
