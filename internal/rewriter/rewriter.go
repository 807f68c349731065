// Package rewriter drives each native library of a build through symbol
// lookup, instruction matching, patching and replacement.
package rewriter

import (
	stdctx "context"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/hashicorp/go-multierror"
	"github.com/modx/enginerw/internal/pipeline"
	"github.com/modx/enginerw/internal/pipeline/context"
	"github.com/modx/enginerw/internal/utils"
	"github.com/modx/enginerw/pkg/locate"
	"github.com/modx/enginerw/pkg/rules"
	"github.com/modx/enginerw/pkg/toolchain"
	"github.com/spf13/afero"
)

// State is a step of the per-artifact state machine.
type State = context.State

// Outcome is the result of rewriting one artifact.
type Outcome struct {
	Platform     rules.Platform
	Architecture rules.Architecture
	Path         string
	State        State
	// Rewritten counts instructions whose bytes were changed.
	Rewritten int
	// AlreadyPatched counts instructions that already held the replacement.
	AlreadyPatched int
	BackupPath     string
	// Reason is why the artifact was skipped.
	Reason string
	// Skipped lists symbols and instructions that were not found.
	Skipped []string
	Err     error
}

func (o *Outcome) String() string {
	switch o.State {
	case context.Skipped:
		return fmt.Sprintf("%s+%s %s: %s", o.Platform, o.Architecture, o.State, o.Reason)
	case context.Aborted:
		return fmt.Sprintf("%s+%s %s: %v", o.Platform, o.Architecture, o.State, o.Err)
	}
	return fmt.Sprintf("%s+%s %s: %d rewritten, %d already patched", o.Platform, o.Architecture, o.State, o.Rewritten, o.AlreadyPatched)
}

// Rewriter applies the enabled feature's rules to build artifacts.
type Rewriter struct {
	Settings      *rules.Settings
	EngineVersion string
	Toolchain     toolchain.Options
	// Demangler replaces the toolchain's c++filt when set.
	Demangler locate.Demangler
	Fs        afero.Fs
	// NewToolchain builds the tools for an artifact, toolchain.New by default.
	NewToolchain func(rules.Platform, rules.Architecture, toolchain.Options) (toolchain.Toolchain, error)
}

// New returns a Rewriter working on the OS filesystem.
func New(settings *rules.Settings, engineVersion string, opts toolchain.Options) *Rewriter {
	if opts.EngineVersion == "" {
		opts.EngineVersion = engineVersion
	}
	return &Rewriter{
		Settings:      settings,
		EngineVersion: engineVersion,
		Toolchain:     opts,
		Fs:            afero.NewOsFs(),
		NewToolchain:  toolchain.New,
	}
}

func (r *Rewriter) jobs() []pipeline.Job {
	return []pipeline.Job{
		discoverJob{},
		selectJob{r},
		elfJob{},
		archiveJob{},
		finalizeJob{},
	}
}

// Rewrite processes every artifact of the build one after another. Each
// artifact fails on its own; the returned error joins every aborted one.
func (r *Rewriter) Rewrite(ctx stdctx.Context, report BuildReport) ([]*Outcome, error) {
	artifacts, err := r.artifacts(report)
	if err != nil {
		return nil, err
	}

	var verr error
	if vr := rules.Validate(r.Settings); !vr.OK() {
		log.Error("Invalid engine binary rewriter settings")
		for _, line := range strings.Split(strings.TrimSpace(vr.String()), "\n") {
			utils.Indent(log.Error, 2)(line)
		}
		verr = vr.ErrorOrNil()
	}

	var result *multierror.Error
	outcomes := make([]*Outcome, 0, len(artifacts))
	for _, a := range artifacts {
		var o *Outcome
		if verr != nil {
			o = &Outcome{Platform: a.Platform, Architecture: a.Architecture, Path: a.Path, State: context.Aborted, Err: verr}
		} else {
			o = r.rewriteArtifact(ctx, report, a)
		}
		if o.Err != nil {
			result = multierror.Append(result, fmt.Errorf("%s+%s: %w", o.Platform, o.Architecture, o.Err))
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, result.ErrorOrNil()
}

func (r *Rewriter) rewriteArtifact(parent stdctx.Context, report BuildReport, a context.Artifact) *Outcome {
	ctx := context.New(parent, a)
	ctx.Fs = r.Fs
	ctx.Settings = r.Settings
	ctx.EngineVersion = r.EngineVersion
	ctx.Variant = report.Variant()
	if report.Simulator && a.Platform == rules.IOS {
		ctx.SkipReason = "simulator SDK builds are not rewritten"
		ctx.Enter(context.Skipped)
	}

	var err error
	if !ctx.State.Terminal() {
		err = pipeline.Run(ctx, r.jobs()...)
	}
	if err != nil {
		abort(ctx, err)
	}

	return &Outcome{
		Platform:       a.Platform,
		Architecture:   a.Architecture,
		Path:           a.Path,
		State:          ctx.State,
		Rewritten:      ctx.Rewritten,
		AlreadyPatched: ctx.AlreadyPatched,
		BackupPath:     ctx.BackupPath,
		Reason:         ctx.SkipReason,
		Skipped:        ctx.Skips.Reasons(),
		Err:            err,
	}
}

// abort drops the working copy; the original artifact is never touched
// before FINALIZE.
func abort(ctx *context.Context, err error) {
	log.WithError(err).WithFields(log.Fields{
		"target": ctx.Target(),
		"state":  ctx.State,
	}).Error("Failed to rewrite")
	if ctx.WorkPath != "" {
		if rerr := ctx.Fs.Remove(ctx.WorkPath); rerr != nil {
			log.WithError(rerr).Warnf("failed to remove %s", ctx.WorkPath)
		}
	}
	ctx.Enter(context.Aborted)
}
