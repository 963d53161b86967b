package connector

import "fmt"

// ConfigError reports a malformed connection string or invalid configuration.
// It is returned before any network attempt is made.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "connector: invalid configuration: " + e.Reason
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}
