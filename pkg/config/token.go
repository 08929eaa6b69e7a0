package config

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// DefaultKey is the variant name holding a scaled token's base value.
const DefaultKey = "DEFAULT"

// TokenKind distinguishes the two shapes a design token can take.
type TokenKind int

const (
	// TokenSolid is a single string value, e.g. "#687998".
	TokenSolid TokenKind = iota

	// TokenScaled is a mapping with a DEFAULT entry plus named variants.
	TokenScaled
)

// String returns the kind name.
func (k TokenKind) String() string {
	switch k {
	case TokenSolid:
		return "solid"
	case TokenScaled:
		return "scaled"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is a design token value: either Solid(value) or
// Scaled{DEFAULT, variants...}.
//
// A scaled token decoded from a document without a DEFAULT entry is still
// representable so that validation can reject it.
type Token struct {
	kind  TokenKind
	value string
	scale map[string]string
}

// Solid returns a single-value token.
func Solid(value string) Token {
	return Token{kind: TokenSolid, value: value}
}

// Scaled returns a token with a DEFAULT value and optional named variants.
// A DEFAULT entry in variants is overridden by def.
func Scaled(def string, variants map[string]string) Token {
	scale := make(map[string]string, len(variants)+1)
	maps.Copy(scale, variants)
	scale[DefaultKey] = def
	return Token{kind: TokenScaled, scale: scale}
}

// scaledFrom builds a scaled token from raw entries without requiring DEFAULT.
func scaledFrom(entries map[string]string) Token {
	scale := make(map[string]string, len(entries))
	maps.Copy(scale, entries)
	return Token{kind: TokenScaled, scale: scale}
}

// Kind returns the token shape.
func (t Token) Kind() TokenKind {
	return t.kind
}

// IsScaled reports whether the token is a DEFAULT+variants mapping.
func (t Token) IsScaled() bool {
	return t.kind == TokenScaled
}

// Value returns the solid value, or the DEFAULT entry of a scaled token.
func (t Token) Value() string {
	if t.kind == TokenScaled {
		return t.scale[DefaultKey]
	}
	return t.value
}

// Default returns the DEFAULT entry and whether it is present.
// Solid tokens always report their value.
func (t Token) Default() (string, bool) {
	if t.kind == TokenSolid {
		return t.value, true
	}
	v, ok := t.scale[DefaultKey]
	return v, ok
}

// Variant returns a named variant of a scaled token.
func (t Token) Variant(name string) (string, bool) {
	if t.kind != TokenScaled {
		return "", false
	}
	v, ok := t.scale[name]
	return v, ok
}

// Variants returns a copy of the named variants, excluding DEFAULT.
func (t Token) Variants() map[string]string {
	out := make(map[string]string)
	for k, v := range t.scale {
		if k != DefaultKey {
			out[k] = v
		}
	}
	return out
}

// Entries returns every (name, value) pair in serialization order:
// DEFAULT first, then variants sorted by name.
func (t Token) Entries() [][2]string {
	if t.kind == TokenSolid {
		return [][2]string{{DefaultKey, t.value}}
	}

	keys := slices.Sorted(maps.Keys(t.scale))
	out := make([][2]string, 0, len(keys))
	if v, ok := t.scale[DefaultKey]; ok {
		out = append(out, [2]string{DefaultKey, v})
	}
	for _, k := range keys {
		if k != DefaultKey {
			out = append(out, [2]string{k, t.scale[k]})
		}
	}
	return out
}

// Equal reports structural equality.
func (t Token) Equal(o Token) bool {
	if t.kind != o.kind {
		return false
	}
	if t.kind == TokenSolid {
		return t.value == o.value
	}
	return maps.Equal(t.scale, o.scale)
}

// String returns a compact human-readable form.
func (t Token) String() string {
	if t.kind == TokenSolid {
		return t.value
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range t.Entries() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", e[0], e[1])
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes solid tokens as strings and scaled tokens as objects
// with DEFAULT first.
func (t Token) MarshalJSON() ([]byte, error) {
	if t.kind == TokenSolid {
		return json.Marshal(t.value)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e[0])
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e[1])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts either a string or an object of strings.
func (t *Token) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty token")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to decode token string: %w", err)
		}
		*t = Solid(s)
		return nil
	case '{':
		var entries map[string]string
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("failed to decode token mapping: %w", err)
		}
		*t = scaledFrom(entries)
		return nil
	default:
		return fmt.Errorf("token must be a string or a mapping, got %s", string(data))
	}
}

// MarshalYAML encodes the token as a scalar or an ordered mapping node.
func (t Token) MarshalYAML() (interface{}, error) {
	if t.kind == TokenSolid {
		return t.value, nil
	}

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range t.Entries() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e[0]},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e[1], Style: yaml.DoubleQuotedStyle},
		)
	}
	return node, nil
}

// UnmarshalYAML accepts either a scalar or a mapping of scalars.
func (t *Token) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*t = Solid(node.Value)
		return nil
	case yaml.MappingNode:
		var entries map[string]string
		if err := node.Decode(&entries); err != nil {
			return fmt.Errorf("line %d: failed to decode token mapping: %w", node.Line, err)
		}
		*t = scaledFrom(entries)
		return nil
	default:
		return fmt.Errorf("line %d: token must be a string or a mapping", node.Line)
	}
}
