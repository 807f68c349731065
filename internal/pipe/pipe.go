// Package pipe holds the skip signals shared by rewrite pipeline jobs.
package pipe

import (
	"errors"
	"fmt"
	"strings"
)

// IsSkip returns true if the error is an ErrSkip.
func IsSkip(err error) bool {
	return errors.As(err, &ErrSkip{})
}

// ErrSkip ends an artifact's pipeline early without failing it.
type ErrSkip struct {
	reason string
}

// Error returns the reason the artifact was skipped.
func (e ErrSkip) Error() string {
	return e.reason
}

// Skip skips the rest of the pipeline with the given reason.
func Skip(reason string) ErrSkip {
	return ErrSkip{reason: reason}
}

// Skipf is Skip with a formatted reason.
func Skipf(format string, args ...any) ErrSkip {
	return ErrSkip{reason: fmt.Sprintf(format, args...)}
}

// SkipMemento remembers symbols and instructions passed over during a run so
// they can be reported once at the end.
type SkipMemento struct {
	skips []string
}

// Remember a skip. Repeated reasons are kept once.
func (e *SkipMemento) Remember(err error) {
	for _, skip := range e.skips {
		if skip == err.Error() {
			return
		}
	}
	e.skips = append(e.skips, err.Error())
}

// Reasons returns every remembered reason in order.
func (e *SkipMemento) Reasons() []string {
	return append([]string(nil), e.skips...)
}

// Evaluate returns a skip error with all previous skips, or nil if none happened.
func (e *SkipMemento) Evaluate() error {
	if len(e.skips) == 0 {
		return nil
	}
	return Skip(strings.Join(e.skips, ", "))
}
