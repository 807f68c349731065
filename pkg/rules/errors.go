package rules

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every ConfigError.
var ErrConfiguration = errors.New("configuration error")

// ConfigError describes malformed rule data. It is fatal for the artifact it
// was raised for.
type ConfigError struct {
	Feature string
	Symbol  string
	Msg     string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Symbol != "" {
		msg = fmt.Sprintf("%s (Symbol: %s)", msg, e.Symbol)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConfiguration) match any ConfigError.
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// Configf returns a ConfigError with a formatted message.
func Configf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}
