// Package context carries the state of one artifact through the rewrite
// pipeline.
package context

import (
	stdctx "context"
	"fmt"

	"github.com/apex/log"
	"github.com/modx/enginerw/internal/pipe"
	"github.com/modx/enginerw/pkg/locate"
	"github.com/modx/enginerw/pkg/rules"
	"github.com/modx/enginerw/pkg/toolchain"
	"github.com/spf13/afero"
)

// State is a step of the per-artifact rewrite state machine.
type State int

const (
	Discover State = iota
	SelectRules
	LocateSymbol
	BoundDisassembly
	LocateInstruction
	ApplyPatch
	Finalize
	Complete
	Aborted
	Skipped
)

var stateNames = [...]string{
	Discover:          "DISCOVER",
	SelectRules:       "SELECT_RULES",
	LocateSymbol:      "LOCATE_SYMBOL",
	BoundDisassembly:  "BOUND_DISASSEMBLY",
	LocateInstruction: "LOCATE_INSTRUCTION",
	ApplyPatch:        "APPLY_PATCH",
	Finalize:          "FINALIZE",
	Complete:          "COMPLETE",
	Aborted:           "ABORTED",
	Skipped:           "SKIPPED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == Complete || s == Aborted || s == Skipped
}

// Artifact is a platform native library produced by a build.
type Artifact struct {
	Platform     rules.Platform
	Architecture rules.Architecture
	// ABI is the platform's directory name for Architecture.
	ABI string
	// Path is the library in the build output.
	Path string
	// SymbolPath is the unstripped library the symbol table is read from.
	SymbolPath string
	// Archive is set for static archives.
	Archive bool
}

// Context is the run state of one artifact.
type Context struct {
	stdctx.Context

	Fs            afero.Fs
	Settings      *rules.Settings
	EngineVersion string
	Variant       rules.Variant

	Artifact   Artifact
	Selections []rules.Selection
	Toolchain  toolchain.Toolchain
	Demangler  locate.Demangler

	// WorkPath is the temporary copy patches are written to.
	WorkPath string
	// BackupPath is set once the original has been moved aside.
	BackupPath string

	State          State
	Rewritten      int
	AlreadyPatched int
	Dirty          bool
	SkipReason     string
	Skips          pipe.SkipMemento
}

// New returns a context for artifact.
func New(parent stdctx.Context, a Artifact) *Context {
	return &Context{
		Context:  parent,
		Fs:       afero.NewOsFs(),
		Artifact: a,
		State:    Discover,
	}
}

// Enter moves the state machine to s.
func (c *Context) Enter(s State) {
	if c.State == s {
		return
	}
	log.WithFields(log.Fields{
		"artifact": c.Artifact.Path,
		"from":     c.State,
		"to":       s,
	}).Debug("State")
	c.State = s
}

// Target names the artifact's platform and architecture.
func (c *Context) Target() string {
	return fmt.Sprintf("%s+%s", c.Artifact.Platform, c.Artifact.Architecture)
}
