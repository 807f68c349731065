package toolchain

import (
	"fmt"
	"regexp"
	"strings"
)

// Layout is how a disassembler prints the machine code column.
type Layout int

const (
	// LayoutBytes prints each byte in file order separated by spaces.
	LayoutBytes Layout = iota
	// LayoutWords prints each 4 byte little-endian word as one hex number.
	LayoutWords
	// LayoutHalfwords prints each 2 byte little-endian halfword as one hex number.
	LayoutHalfwords
)

func (l Layout) String() string {
	switch l {
	case LayoutBytes:
		return "bytes"
	case LayoutWords:
		return "words"
	case LayoutHalfwords:
		return "halfwords"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// Format renders code the way a disassembler with this layout prints it.
func (l Layout) Format(code []byte) string {
	var unit int
	switch l {
	case LayoutWords:
		unit = 4
	case LayoutHalfwords:
		unit = 2
	default:
		parts := make([]string, len(code))
		for i, b := range code {
			parts[i] = fmt.Sprintf("%02x", b)
		}
		return strings.Join(parts, " ")
	}

	var parts []string
	for i := 0; i < len(code); i += unit {
		end := i + unit
		if end > len(code) {
			end = len(code)
		}
		var sb strings.Builder
		for j := end - 1; j >= i; j-- {
			fmt.Fprintf(&sb, "%02x", code[j])
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, " ")
}

// InstructionPattern returns a multi-line regular expression matching a disassembly line
// whose machine code column is exactly code. Group 1 captures the address.
//
// The code must be followed by a tab or a run of spaces so it never matches
// the prefix of a longer instruction.
func (l Layout) InstructionPattern(code []byte) string {
	return `(?m)^[ \t]*([0-9a-fA-F]+):[ \t]+` + regexp.QuoteMeta(l.Format(code)) + `[ ]?(?:\t| {2,}).*$`
}
