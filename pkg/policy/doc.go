// Package policy lints build configurations with Open Policy Agent (OPA)
// Rego policies.
//
// A policy is a Rego module whose `deny` set lists violations. Each entry is
// either a message string or an object:
//
//	{"message": "...", "path": "plugins[2]", "severity": "error"}
//
// The policy input is the configuration in its JSON form plus its source:
//
//	{"config": {"content": [...], "theme": {"extend": {...}}, "plugins": [...]}, "source": "themecfg.cue"}
//
// # Built-in Policies
//
//   - duplicate-plugins (warning): a plugin reference listed twice
//   - exclusion-only-content (error): content holds only '!' patterns
//   - token-naming (info): token names that need escaping in class names
//
// # Custom Policies
//
// Policy files are loaded from .rego files or JSON definitions. A .rego
// file is named after its base name; its leading comment block becomes the
// description and may set the severity:
//
//	# Brand colors come from the palette service.
//	# severity: error
//	package brand
//
//	deny contains msg if {
//		some name, _ in input.config.theme.extend.colors
//		not startswith(name, "brand-")
//		msg := sprintf("color %q is not a brand color", [name])
//	}
//
// Usage:
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	if err := eng.LoadPolicies(ctx, policy.NewLoader(logger), []string{"./policies"}); err != nil {
//	    return err
//	}
//	result, err := eng.Evaluate(ctx, doc.Config, doc.Source)
package policy
