package cluster

import (
	"errors"
	"fmt"
)

// ConfigError reports a structurally invalid algorithm configuration.
// It is always raised before any clustering work starts.
type ConfigError struct {
	Algorithm Algorithm
	Param     string
	Value     interface{}
	Reason    string
}

func (e *ConfigError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: %s", e.Algorithm, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s=%v: %s", e.Algorithm, e.Param, e.Value, e.Reason)
}

// IsConfigError reports whether err is a ConfigError
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

func configErr(algo Algorithm, param string, value interface{}, reason string) *ConfigError {
	return &ConfigError{Algorithm: algo, Param: param, Value: value, Reason: reason}
}
