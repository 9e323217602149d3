package limit

import (
	"errors"
	"fmt"
)

// Limit kinds reported by ConfigError.
const (
	KindDeterministic = "deterministic"
	KindStatistical   = "statistical"
)

// ConfigError reports a limit configuration that cannot be classified
// against. It is a configuration problem, distinct from a computation
// failure.
type ConfigError struct {
	// Limit is KindDeterministic or KindStatistical.
	Limit string

	// LimitID is the id of the offending limit, when known.
	LimitID int64

	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.LimitID != 0 {
		return fmt.Sprintf("%s limit %d: %s", e.Limit, e.LimitID, e.Message)
	}
	return fmt.Sprintf("%s limit: %s", e.Limit, e.Message)
}

// IsConfigError returns true if err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func configErrorf(kind string, id int64, format string, args ...any) *ConfigError {
	return &ConfigError{Limit: kind, LimitID: id, Message: fmt.Sprintf(format, args...)}
}
