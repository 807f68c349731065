// Package colors provides the CLI's color palette with TTY-aware defaults.
//
// Colors are automatically disabled when stdout is not a terminal. Use Init()
// to override based on CLI flags.
package colors

import (
	"github.com/fatih/color"
	"github.com/modx/enginerw/internal/pipeline/context"
)

// Init allows overriding the auto-detected color setting.
//   - forceColor == nil: keep auto-detected value
//   - forceColor == true: force colors on (--color)
//   - forceColor == false: force colors off (--no-color)
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Enabled returns true if colors are currently enabled.
func Enabled() bool {
	return !color.NoColor
}

var (
	// Feature renders feature names.
	Feature = color.New(color.Bold, color.FgHiMagenta).SprintFunc()
	// Active marks the enabled feature.
	Active = color.New(color.Bold, color.FgHiGreen).SprintFunc()
	// Target renders rule triples such as Android+ARM64+Release.
	Target = color.New(color.Bold, color.FgHiBlue).SprintFunc()
	// Symbol renders demangled symbol names.
	Symbol = color.New(color.FgHiMagenta).SprintFunc()
	// Faint renders secondary detail: patterns, descriptions, paths.
	Faint = color.New(color.Faint).SprintFunc()
	// OK marks success.
	OK = color.New(color.Bold, color.FgHiGreen).SprintFunc()
	// Error marks failures.
	Error = color.New(color.FgHiRed).SprintFunc()
	// Warn marks things that need attention but did not fail.
	Warn = color.New(color.Bold, color.FgHiYellow).SprintFunc()
)

// State renders an artifact state: COMPLETE green, SKIPPED yellow, ABORTED
// red and anything in between faint.
func State(s context.State) string {
	switch s {
	case context.Complete:
		return OK(s.String())
	case context.Skipped:
		return Warn(s.String())
	case context.Aborted:
		return color.New(color.Bold, color.FgHiRed).Sprint(s.String())
	}
	return Faint(s.String())
}
