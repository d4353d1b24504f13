// internal/config/error.go
package config

import (
	"fmt"
	"strings"
)

// ConfigError collects everything wrong with a config file so a bad file
// reports all its problems in a single load attempt.
type ConfigError struct {
	Path    string   // file the errors came from
	Missing []string // environment variables with no value and no default
	Errors  []string // messages from Validate
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing environment variables: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Errors) > 0 {
		parts = append(parts, "validation failed:")
		for _, msg := range e.Errors {
			parts = append(parts, fmt.Sprintf("  - %s", msg))
		}
	}
	return strings.Join(parts, "\n")
}

// HasErrors reports whether anything was actually collected.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
