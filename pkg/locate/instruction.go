package locate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/modx/enginerw/pkg/rules"
)

// PatternBuilder renders machine code as a disassembly line pattern whose
// first group captures the hex address.
type PatternBuilder interface {
	InstructionPattern(code []byte) string
}

// Match is a disassembly line holding an instruction.
type Match struct {
	Line    string
	Address uint64
}

// InstructionNotFoundError is returned when a symbol's disassembly holds no
// line with the instruction's machine code.
type InstructionNotFoundError struct {
	Code string
}

func (e *InstructionNotFoundError) Error() string {
	return fmt.Sprintf("failed to find the instruction %s", strings.ToUpper(e.Code))
}

// FindInstruction finds code in the disassembly text of one symbol. With
// several matching lines index selects one; a negative or out of range index
// is a configuration error.
func FindInstruction(text string, code []byte, index int, b PatternBuilder) (Match, error) {
	re, err := regexp.Compile(b.InstructionPattern(code))
	if err != nil {
		return Match{}, fmt.Errorf("failed to compile instruction pattern: %w", err)
	}

	matches := re.FindAllStringSubmatch(text, -1)
	var m []string
	switch {
	case len(matches) == 0:
		return Match{}, &InstructionNotFoundError{Code: fmt.Sprintf("%x", code)}
	case len(matches) == 1:
		m = matches[0]
	default:
		if index < 0 || index >= len(matches) {
			return Match{}, rules.Configf("More than one instruction found, but index is invalid: instructions=%d, index=%d",
				len(matches), index)
		}
		m = matches[index]
	}

	if len(m) != 2 {
		return Match{}, fmt.Errorf("instruction pattern must have exactly one group: %s", re)
	}
	addr, err := strconv.ParseUint(m[1], 16, 64)
	if err != nil {
		return Match{}, fmt.Errorf("failed to parse instruction address %q: %w", m[1], err)
	}
	return Match{Line: strings.TrimRight(m[0], "\r"), Address: addr}, nil
}
