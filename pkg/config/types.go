package config

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// CategoryColors is the theme category holding color tokens.
const CategoryColors = "colors"

// BuildConfiguration is the declarative input to the style generation tool:
// where to look for class-name usage and which design tokens to add to its
// default token set.
type BuildConfiguration struct {
	// Content lists the globs identifying source files to scan (e.g., "./src/**/*.{html,js}").
	Content []string `json:"content" yaml:"content" validate:"required,min=1,unique,dive,required,contentglob"`

	// Theme holds the design token overrides.
	Theme Theme `json:"theme" yaml:"theme"`

	// Plugins lists plugin references in load order.
	Plugins []string `json:"plugins" yaml:"plugins" validate:"dive,required"`
}

// Theme describes design token changes relative to the tool's defaults.
type Theme struct {
	// Extend is merged into the default token set instead of replacing it.
	Extend Extensions `json:"extend,omitempty" yaml:"extend,omitempty"`
}

// Extensions maps a token category (e.g., "colors") to its tokens.
type Extensions map[string]TokenSet

// TokenSet maps a token name to its value.
type TokenSet map[string]Token

// Token returns the token in a category. Unknown categories or names report
// false; there is no fallback value.
func (c *BuildConfiguration) Token(category, name string) (Token, bool) {
	set, ok := c.Theme.Extend[category]
	if !ok {
		return Token{}, false
	}
	t, ok := set[name]
	return t, ok
}

// Color returns a color token by name.
func (c *BuildConfiguration) Color(name string) (Token, bool) {
	return c.Token(CategoryColors, name)
}

// Categories returns the extended categories in sorted order.
func (c *BuildConfiguration) Categories() []string {
	return slices.Sorted(maps.Keys(c.Theme.Extend))
}

// WithPlugin returns a copy of the configuration with ref appended to the
// plugin list. The receiver is not modified.
func (c *BuildConfiguration) WithPlugin(ref string) *BuildConfiguration {
	out := c.Clone()
	out.Plugins = append(out.Plugins, ref)
	return out
}

// Clone returns a deep copy.
func (c *BuildConfiguration) Clone() *BuildConfiguration {
	out := &BuildConfiguration{
		Content: slices.Clone(c.Content),
		Plugins: slices.Clone(c.Plugins),
	}
	if out.Content == nil {
		out.Content = []string{}
	}
	if out.Plugins == nil {
		out.Plugins = []string{}
	}
	if c.Theme.Extend != nil {
		out.Theme.Extend = make(Extensions, len(c.Theme.Extend))
		for category, set := range c.Theme.Extend {
			copied := make(TokenSet, len(set))
			for name, t := range set {
				if t.IsScaled() {
					t = scaledFrom(t.scale)
				}
				copied[name] = t
			}
			out.Theme.Extend[category] = copied
		}
	}
	return out
}

// Format identifies a document encoding.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatJS   Format = "js"
)

// ParseFormat converts a name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "cue", ".cue":
		return FormatCUE, nil
	case "json", ".json":
		return FormatJSON, nil
	case "yaml", "yml", ".yaml", ".yml":
		return FormatYAML, nil
	case "js", ".js", "mjs", ".mjs":
		return FormatJS, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// Document is a loaded and validated configuration together with where it
// came from.
type Document struct {
	// Config is the validated configuration.
	Config *BuildConfiguration `json:"config"`

	// Source is the file the configuration was read from, or "builtin".
	Source string `json:"source"`

	// Format is the encoding of the source.
	Format Format `json:"format"`

	// LoadedAt is when the document was loaded.
	LoadedAt time.Time `json:"loaded_at"`

	// Report holds non-fatal findings from validation.
	Report *Report `json:"report,omitempty"`
}

// Severity is the weight of a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationError represents a validation finding with location information.
type ValidationError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the document path to the error (e.g., "theme.extend.colors.primary").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is the error severity.
	Severity Severity `json:"severity"`
}

// String formats the finding as "file:line:col: path: message".
func (v ValidationError) String() string {
	var loc string
	switch {
	case v.File != "" && v.Line > 0:
		loc = fmt.Sprintf("%s:%d:%d: ", v.File, v.Line, v.Column)
	case v.File != "":
		loc = v.File + ": "
	}
	if v.Path != "" {
		return fmt.Sprintf("%s%s: %s", loc, v.Path, v.Message)
	}
	return loc + v.Message
}

// Report collects validation findings and glob match counts.
type Report struct {
	// Issues lists every finding, fatal or not.
	Issues []ValidationError `json:"issues,omitempty"`

	// Matches counts files matched per content glob. Nil when no root was scanned.
	Matches map[string]int `json:"matches,omitempty"`
}

// Warnings returns the non-error findings.
func (r *Report) Warnings() []ValidationError {
	if r == nil {
		return nil
	}
	var out []ValidationError
	for _, issue := range r.Issues {
		if issue.Severity != SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// byClass returns the error-severity findings of a class.
func (r *Report) byClass(class ErrorClass) []ValidationError {
	var out []ValidationError
	for _, issue := range r.Issues {
		if issue.Class == class && issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}
