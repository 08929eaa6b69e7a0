package history

import (
	"time"
)

// Result is the outcome of a load.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Entry records one configuration load.
type Entry struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Format string `json:"format,omitempty"`
	Result Result `json:"result"`

	// ErrorClass is the classification of a failed load, if known.
	ErrorClass string `json:"error_class,omitempty"`
	Error      string `json:"error,omitempty"`

	// Issues counts error-severity findings; Warnings the rest.
	Issues   int `json:"issues"`
	Warnings int `json:"warnings"`

	// Digest identifies the loaded configuration (sha256 of its JSON form).
	// Empty for failed loads.
	Digest string `json:"digest,omitempty"`

	Duration time.Duration `json:"duration"`
	LoadedAt time.Time     `json:"loaded_at"`
}

// ListOptions filters List.
type ListOptions struct {
	// Source restricts entries to one configuration file.
	Source string

	// Result restricts entries to one outcome.
	Result Result

	// Limit caps the number of entries, newest first. Zero means 50.
	Limit int
}
