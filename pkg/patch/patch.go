// Package patch performs integrity-checked, idempotent byte substitution.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrLengthMismatch is returned when original and replacement differ in length.
var ErrLengthMismatch = errors.New("original and replacement machine code differ in length")

// Target is a random-access byte store such as an *os.File or afero.File.
type Target interface {
	io.ReaderAt
	io.WriterAt
}

// IntegrityMismatchError reports bytes on disk that differ from the expected
// original code: the rule no longer matches this binary.
type IntegrityMismatchError struct {
	Offset   int64
	Index    int
	Expected []byte
	Actual   []byte
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("machine code isn't matched at %#x (expected: %X, actual: %X, first difference at byte %d)",
		e.Offset, e.Expected, e.Actual, e.Index)
}

// Result describes what Apply did.
type Result struct {
	Offset int64
	// Written is false when the replacement was already in place.
	Written bool
}

// Apply replaces original with replacement at off in t.
//
// If the bytes at off already equal replacement nothing is written. Otherwise
// every byte must equal original, or an *IntegrityMismatchError is returned
// and nothing is written.
func Apply(t Target, off int64, original, replacement []byte) (Result, error) {
	res := Result{Offset: off}
	if len(original) != len(replacement) {
		return res, ErrLengthMismatch
	}
	if len(original) == 0 {
		return res, nil
	}

	cur := make([]byte, len(original))
	n, err := t.ReadAt(cur, off)
	if n < len(cur) {
		if err == nil || errors.Is(err, io.EOF) {
			return res, &IntegrityMismatchError{Offset: off, Index: n, Expected: original, Actual: cur[:n]}
		}
		return res, fmt.Errorf("failed to read machine code at %#x: %w", off, err)
	}

	if bytes.Equal(cur, replacement) {
		return res, nil
	}

	for i := range original {
		if cur[i] != original[i] {
			return res, &IntegrityMismatchError{Offset: off, Index: i, Expected: original, Actual: cur}
		}
	}

	if _, err := t.WriteAt(replacement, off); err != nil {
		return res, fmt.Errorf("failed to write machine code at %#x: %w", off, err)
	}
	res.Written = true
	return res, nil
}
