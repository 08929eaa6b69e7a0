package content

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Pattern is a compiled content glob.
type Pattern struct {
	// Source is the pattern as written in the configuration.
	Source string

	// Negated is true for exclusion patterns ("!./src/legacy/**").
	Negated bool

	globs []glob.Glob
}

// CompilePattern compiles a single content glob.
//
// Supported syntax: "*" (within one path segment), "?", "**" (any number of
// segments, including none when followed by "/"), "{a,b}" alternation,
// "[abc]" / "[!abc]" classes and "\" escapes. A leading "./" is ignored and
// a leading "!" marks an exclusion.
func CompilePattern(source string) (*Pattern, error) {
	p := &Pattern{Source: source}

	expr := source
	if strings.HasPrefix(expr, "!") {
		p.Negated = true
		expr = expr[1:]
	}
	expr = normalize(expr)

	if expr == "" {
		return nil, fmt.Errorf("pattern %q is empty", source)
	}
	if err := checkSyntax(expr); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", source, err)
	}

	for _, variant := range expandGlobstar(expr) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", source, err)
		}
		p.globs = append(p.globs, g)
	}

	return p, nil
}

// Validate reports whether source is a well-formed content glob.
func Validate(source string) error {
	_, err := CompilePattern(source)
	return err
}

// Match reports whether path matches the pattern, ignoring negation.
func (p *Pattern) Match(path string) bool {
	path = normalize(filepath.ToSlash(path))
	for _, g := range p.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Matcher evaluates a set of content globs. A path is selected when it matches
// any positive pattern and no negated one.
type Matcher struct {
	patterns []*Pattern
}

// Compile compiles every pattern in order.
func Compile(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: make([]*Pattern, 0, len(patterns))}
	for _, source := range patterns {
		p, err := CompilePattern(source)
		if err != nil {
			return nil, err
		}
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// Patterns returns the compiled patterns in declaration order.
func (m *Matcher) Patterns() []*Pattern {
	return m.patterns
}

// Match reports whether path is selected by the matcher.
func (m *Matcher) Match(path string) bool {
	matched := false
	for _, p := range m.patterns {
		if !p.Match(path) {
			continue
		}
		if p.Negated {
			return false
		}
		matched = true
	}
	return matched
}

// normalize strips leading "./" segments.
func normalize(path string) string {
	for strings.HasPrefix(path, "./") {
		path = strings.TrimLeft(path[2:], "/")
	}
	return path
}

// expandGlobstar returns every variant of pattern with each "**/" either kept
// or removed, so "src/**/*.ts" also matches "src/index.ts".
func expandGlobstar(pattern string) []string {
	i := strings.Index(pattern, "**/")
	if i < 0 {
		return []string{pattern}
	}

	head := pattern[:i]
	var out []string
	for _, rest := range expandGlobstar(pattern[i+3:]) {
		out = append(out, head+rest, head+"**/"+rest)
	}
	return out
}

// checkSyntax rejects unbalanced braces and brackets, nested classes and
// dangling escapes.
func checkSyntax(expr string) error {
	braces := 0
	inClass := false

	for i := 0; i < len(expr); i++ {
		switch c := expr[i]; c {
		case '\\':
			if i == len(expr)-1 {
				return fmt.Errorf("dangling escape at end of pattern")
			}
			i++
		case '[':
			if inClass {
				return fmt.Errorf("nested '[' at offset %d", i)
			}
			inClass = true
		case ']':
			if !inClass {
				return fmt.Errorf("unexpected ']' at offset %d", i)
			}
			inClass = false
		case '{':
			if !inClass {
				braces++
			}
		case '}':
			if inClass {
				continue
			}
			if braces == 0 {
				return fmt.Errorf("unexpected '}' at offset %d", i)
			}
			braces--
		}
	}

	if inClass {
		return fmt.Errorf("unterminated '['")
	}
	if braces > 0 {
		return fmt.Errorf("unterminated '{'")
	}
	return nil
}
