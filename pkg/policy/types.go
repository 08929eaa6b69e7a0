package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/openfroyo/themecfg/pkg/config"
)

// Policy represents a lint rule over a build configuration, written in Rego.
// The module's deny set holds the violations.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity config.Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Source is the file the policy was loaded from, empty for built-ins.
	Source string `json:"source,omitempty"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Path is the document path the violation refers to (e.g., "plugins[2]").
	Path string `json:"path,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity config.Severity `json:"severity"`
}

// String formats the violation as "path: message (policy)".
func (v Violation) String() string {
	if v.Path == "" {
		return fmt.Sprintf("%s (%s)", v.Message, v.Policy)
	}
	return fmt.Sprintf("%s: %s (%s)", v.Path, v.Message, v.Policy)
}

// Result represents the result of policy evaluation.
type Result struct {
	// Allowed is false when any violation has error severity.
	Allowed bool `json:"allowed"`

	// Violations lists every violation, in policy name order.
	Violations []Violation `json:"violations,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Errors returns the error-severity violations.
func (r *Result) Errors() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == config.SeverityError {
			out = append(out, v)
		}
	}
	return out
}

// Err returns a *ViolationError when the result is not allowed.
func (r *Result) Err() error {
	if r.Allowed {
		return nil
	}
	return &ViolationError{Violations: r.Errors()}
}

// ViolationError reports the error-severity violations that rejected a
// configuration.
type ViolationError struct {
	Violations []Violation
}

func (e *ViolationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("policy check failed: %s", strings.Join(parts, "; "))
}

// Input is the document presented to Rego as `input`.
type Input struct {
	// Config is the configuration in its JSON form.
	Config interface{} `json:"config"`

	// Source is where the configuration was loaded from.
	Source string `json:"source"`
}
