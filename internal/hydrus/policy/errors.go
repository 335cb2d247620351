package policy

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOption = errors.New("policy: unknown option")
	ErrInvalidOption = errors.New("policy: invalid option value")
	ErrLoadFailed    = errors.New("policy: unable to load options file")
)

// ConfigError wraps configuration failures with stable sentinels for
// errors.Is, while preserving the offending option name and value.
type ConfigError struct {
	Err    error
	Option string
	Value  any
	Cause  error
}

func (e *ConfigError) Error() string {
	if e.Option == "" {
		return e.Err.Error()
	}
	if e.Value != nil {
		return fmt.Sprintf("%s: %q (value %v)", e.Err.Error(), e.Option, e.Value)
	}
	return fmt.Sprintf("%s: %q", e.Err.Error(), e.Option)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) CauseErr() error { return e.Cause }

func wrapConfigErr(sentinel error, option string, value any, cause error) error {
	return &ConfigError{
		Err:    sentinel,
		Option: option,
		Value:  value,
		Cause:  cause,
	}
}
