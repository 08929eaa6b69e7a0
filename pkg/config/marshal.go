package config

import (
	"bytes"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Marshal serializes cfg. JSON, YAML and CUE output loads back into a
// structurally equal configuration; JS output is the style tool's own
// module form.
func Marshal(cfg *BuildConfiguration, f Format) ([]byte, error) {
	cfg = cfg.Clone()

	switch f {
	case FormatJSON:
		return json.MarshalIndent(cfg, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatCUE:
		data, err := json.Marshal(cfg)
		if err != nil {
			return nil, err
		}
		val := cuecontext.New().CompileBytes(data)
		if err := val.Err(); err != nil {
			return nil, fmt.Errorf("failed to compile document: %w", err)
		}
		return formatCUEValue(val)
	case FormatJS:
		return marshalJS(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

// formatCUEValue renders a struct value as top-level CUE declarations.
func formatCUEValue(v cue.Value) ([]byte, error) {
	node := v.Syntax(cue.Final(), cue.Concrete(true))
	if s, ok := node.(*ast.StructLit); ok {
		node = &ast.File{Decls: s.Elts}
	}
	out, err := format.Node(node)
	if err != nil {
		return nil, fmt.Errorf("failed to format CUE: %w", err)
	}
	return out, nil
}

var jsIdentifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// marshalJS renders the configuration as an ES module default export.
// Plugins are imported at the top and referenced by binding.
func marshalJS(cfg *BuildConfiguration) []byte {
	var b strings.Builder

	bindings := pluginBindings(cfg.Plugins)
	seen := make(map[string]bool, len(cfg.Plugins))
	for _, ref := range cfg.Plugins {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		fmt.Fprintf(&b, "import %s from %s;\n", bindings[ref], jsString(ref))
	}
	if len(seen) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("/** @type {import('tailwindcss').Config} */\n")
	b.WriteString("export default {\n")

	b.WriteString("\tcontent: [")
	for i, p := range cfg.Content {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(jsString(p))
	}
	b.WriteString("],\n")

	b.WriteString("\ttheme: {\n\t\textend: {")
	categories := cfg.Categories()
	for i, category := range categories {
		if i == 0 {
			b.WriteString("\n")
		}
		set := cfg.Theme.Extend[category]
		fmt.Fprintf(&b, "\t\t\t%s: {\n", jsKey(category))

		names := slices.Sorted(maps.Keys(set))
		for j, name := range names {
			tok := set[name]
			if tok.IsScaled() {
				fmt.Fprintf(&b, "\t\t\t\t%s: {\n", jsKey(name))
				entries := tok.Entries()
				for k, e := range entries {
					fmt.Fprintf(&b, "\t\t\t\t\t%s: %s%s\n", jsKey(e[0]), jsString(e[1]), comma(k, len(entries)))
				}
				fmt.Fprintf(&b, "\t\t\t\t}%s\n", comma(j, len(names)))
			} else {
				fmt.Fprintf(&b, "\t\t\t\t%s: %s%s\n", jsKey(name), jsString(tok.Value()), comma(j, len(names)))
			}
		}
		fmt.Fprintf(&b, "\t\t\t}%s\n", comma(i, len(categories)))
	}
	if len(categories) > 0 {
		b.WriteString("\t\t")
	}
	b.WriteString("}\n\t},\n")

	b.WriteString("\tplugins: [")
	for i, ref := range cfg.Plugins {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(bindings[ref])
	}
	b.WriteString("]\n};\n")

	return []byte(b.String())
}

// pluginBindings names an import binding for every distinct reference,
// e.g. "@tailwindcss/container-queries" becomes containerQueries.
func pluginBindings(refs []string) map[string]string {
	out := make(map[string]string, len(refs))
	used := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if _, ok := out[ref]; ok {
			continue
		}

		base := ref
		if i := strings.LastIndex(base, "/"); i >= 0 {
			base = base[i+1:]
		}
		if i := strings.Index(base, "."); i > 0 {
			base = base[:i]
		}

		var name strings.Builder
		upper := false
		for _, r := range base {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
				if upper && name.Len() > 0 {
					r = unicode.ToUpper(r)
				}
				name.WriteRune(r)
				upper = false
			case r >= '0' && r <= '9':
				if name.Len() == 0 {
					name.WriteString("plugin")
				}
				name.WriteRune(r)
				upper = false
			default:
				upper = true
			}
		}

		binding := name.String()
		switch {
		case binding == "":
			binding = "plugin"
		case jsReserved[binding]:
			binding += "Plugin"
		}
		candidate := binding
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s%d", binding, n)
		}
		used[candidate] = true
		out[ref] = candidate
	}
	return out
}

// jsReserved lists words that cannot be import bindings.
var jsReserved = map[string]bool{
	"default": true, "import": true, "export": true, "function": true,
	"class": true, "new": true, "delete": true, "typeof": true, "void": true,
	"var": true, "let": true, "const": true, "return": true, "this": true,
	"package": true, "in": true, "if": true, "for": true, "switch": true,
}

func comma(i, n int) string {
	if i < n-1 {
		return ","
	}
	return ""
}

func jsKey(k string) string {
	if jsIdentifier.MatchString(k) {
		return k
	}
	return jsString(k)
}

func jsString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
	return "'" + r.Replace(s) + "'"
}
