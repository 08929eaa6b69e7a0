package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass classifies a configuration failure.
type ErrorClass string

const (
	// ClassMalformedSchema indicates the document does not match the expected shape.
	// Examples: missing content list, a scaled color token without DEFAULT.
	ClassMalformedSchema ErrorClass = "malformed_schema"

	// ClassUnresolvableGlob indicates a content pattern matched zero files.
	// Reported as a warning; zero matches may be legitimate in partial builds.
	ClassUnresolvableGlob ErrorClass = "unresolvable_glob"

	// ClassUnresolvablePlugin indicates a plugin reference could not be loaded.
	ClassUnresolvablePlugin ErrorClass = "unresolvable_plugin"
)

// Sentinels for errors.Is. Only the class is compared.
var (
	ErrMalformedSchema    = &ConfigError{Class: ClassMalformedSchema}
	ErrUnresolvableGlob   = &ConfigError{Class: ClassUnresolvableGlob}
	ErrUnresolvablePlugin = &ConfigError{Class: ClassUnresolvablePlugin}
)

// ConfigError represents a classified configuration failure with every issue
// that contributed to it.
type ConfigError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Source is the document the error refers to, if known.
	Source string `json:"source,omitempty"`

	// Issues lists the individual problems found.
	Issues []ValidationError `json:"issues,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Class, e.Message)
	if e.Source != "" {
		fmt.Fprintf(&b, " (source=%s)", e.Source)
	}

	details := make([]string, 0, len(e.Issues)+1)
	for _, issue := range e.Issues {
		details = append(details, issue.String())
	}
	if e.Err != nil {
		details = append(details, e.Err.Error())
	}
	if len(details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(details, "; "))
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// WithSource records the document the error refers to.
func (e *ConfigError) WithSource(source string) *ConfigError {
	e.Source = source
	return e
}

// NewMalformedSchemaError creates a new malformed schema error.
func NewMalformedSchemaError(message string, issues []ValidationError, err error) *ConfigError {
	return &ConfigError{
		Class:   ClassMalformedSchema,
		Message: message,
		Issues:  issues,
		Err:     err,
	}
}

// NewUnresolvablePluginError creates a new unresolvable plugin error.
func NewUnresolvablePluginError(message string, issues []ValidationError, err error) *ConfigError {
	return &ConfigError{
		Class:   ClassUnresolvablePlugin,
		Message: message,
		Issues:  issues,
		Err:     err,
	}
}

// IsMalformedSchema returns true if the error is classified as a malformed schema.
func IsMalformedSchema(err error) bool {
	return errors.Is(err, ErrMalformedSchema)
}

// IsUnresolvablePlugin returns true if the error is classified as an unresolvable plugin.
func IsUnresolvablePlugin(err error) bool {
	return errors.Is(err, ErrUnresolvablePlugin)
}

// IsFatal reports whether the class aborts the build.
func (c ErrorClass) IsFatal() bool {
	return c == ClassMalformedSchema || c == ClassUnresolvablePlugin
}
