// Package config models the build configuration consumed by the style
// generation tool: content globs, theme token extensions and plugins.
//
// # Overview
//
// A BuildConfiguration is an immutable record read once per build. It answers
// two questions for the external tool: which files to scan for utility-class
// usage, and which design tokens to add to its default token set.
//
//	cfg := config.Default()
//	primary, _ := cfg.Color("primary")
//	primary.Value()               // "#821528"
//	primary.Variant("light")      // "#a13346", true
//	_, ok := cfg.Color("missing") // ok == false, no fallback
//
// # Tokens
//
// A Token is either Solid(value) or Scaled{DEFAULT, variants...}. Documents
// write solid tokens as plain strings and scaled tokens as mappings:
//
//	theme: extend: colors: {
//	    primary: {DEFAULT: "#821528", light: "#a13346"}
//	    secondary: "#687998"
//	}
//
// # Loading
//
// Loader reads CUE, JSON and YAML documents. Every document is first unified
// with the embedded CUE schema (schema/config.cue), which is closed: unknown
// fields, a missing content list or a scaled token without DEFAULT are
// reported with file, line and column. The decoded record is then validated
// by Validator.
//
// # Validation
//
// Validation fails fast with a *ConfigError:
//
//   - malformed_schema: empty or duplicate globs, unknown wildcard syntax,
//     invalid color values, scaled tokens without DEFAULT
//   - unresolvable_plugin: a plugin reference the resolver cannot load
//
// Globs that match no files under an optional root are reported as
// unresolvable_glob warnings and never fail the load.
//
// # Serialization
//
// Marshal writes JSON, YAML, CUE or the tool's JavaScript module form. JSON,
// YAML and CUE output loads back into a structurally equal configuration.
package config
