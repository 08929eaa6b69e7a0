package policy

import (
	"github.com/openfroyo/themecfg/pkg/config"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		duplicatePluginsPolicy(),
		exclusionOnlyContentPolicy(),
		tokenNamingPolicy(),
	}
}

// duplicatePluginsPolicy flags a plugin listed more than once; the style
// generator would register it twice.
func duplicatePluginsPolicy() Policy {
	return Policy{
		Name:        "duplicate-plugins",
		Description: "Each plugin reference appears at most once",
		Severity:    config.SeverityWarning,
		Enabled:     true,
		Tags:        []string{"plugins"},
		Rego: `package themecfg.policies.plugins

deny contains violation if {
	some i, j
	input.config.plugins[i] == input.config.plugins[j]
	i < j
	violation := {
		"message": sprintf("plugin %q is already listed at plugins[%d]", [input.config.plugins[j], i]),
		"path": sprintf("plugins[%d]", [j]),
	}
}
`,
	}
}

// exclusionOnlyContentPolicy rejects content lists that can never select a
// file.
func exclusionOnlyContentPolicy() Policy {
	return Policy{
		Name:        "exclusion-only-content",
		Description: "Content lists at least one pattern that selects files",
		Severity:    config.SeverityError,
		Enabled:     true,
		Tags:        []string{"content"},
		Rego: `package themecfg.policies.content

deny contains violation if {
	count(input.config.content) > 0
	every pattern in input.config.content {
		startswith(pattern, "!")
	}
	violation := {
		"message": "content lists only exclusion patterns, so no file is scanned",
		"path": "content",
	}
}
`,
	}
}

// tokenNamingPolicy keeps token names usable in class names without escaping.
func tokenNamingPolicy() Policy {
	return Policy{
		Name:        "token-naming",
		Description: "Token names are lowercase, using '-', '.' or '/' as separators",
		Severity:    config.SeverityInfo,
		Enabled:     true,
		Tags:        []string{"naming", "theme"},
		Rego: `package themecfg.policies.naming

deny contains violation if {
	some category, tokens in input.config.theme.extend
	some name, _ in tokens
	not regex.match("^[a-z0-9]+([-./][a-z0-9]+)*$", name)
	violation := {
		"message": sprintf("token name %q should be lowercase with '-', '.' or '/' separators", [name]),
		"path": sprintf("theme.extend.%s.%s", [category, name]),
	}
}
`,
	}
}
