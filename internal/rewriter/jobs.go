package rewriter

import (
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/modx/enginerw/internal/magic"
	"github.com/modx/enginerw/internal/pipe"
	"github.com/modx/enginerw/internal/pipeline/context"
	"github.com/spf13/afero"
)

// discoverJob checks that the build produced the artifact.
type discoverJob struct{}

func (discoverJob) String() string { return "discover" }

func (discoverJob) Run(ctx *context.Context) error {
	ctx.Enter(context.Discover)
	a := &ctx.Artifact

	exists, err := afero.Exists(ctx.Fs, a.Path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", a.Path, err)
	}
	if !exists {
		return pipe.Skipf("no artifact at %s", a.Path)
	}

	kind, err := magic.DetectFile(ctx.Fs, a.Path)
	if err != nil {
		return err
	}
	want := magic.ELF
	if a.Archive {
		want = magic.Archive
	}
	if kind != want {
		return fmt.Errorf("%s is a %s file, expected %s", a.Path, kind, want)
	}

	if !a.Archive {
		if a.SymbolPath == "" {
			a.SymbolPath = a.Path
		} else if ok, _ := afero.Exists(ctx.Fs, a.SymbolPath); !ok {
			log.WithField("symbols", a.SymbolPath).Warn("Symbol file not found, reading symbols from the artifact")
			a.SymbolPath = a.Path
		}
	}
	return nil
}

// selectJob picks the rules for the artifact and its toolchain.
type selectJob struct {
	r *Rewriter
}

func (selectJob) String() string { return "select rules" }

func (j selectJob) Run(ctx *context.Context) error {
	ctx.Enter(context.SelectRules)
	a := ctx.Artifact

	sels, err := ctx.Settings.Select(ctx.EngineVersion, a.Platform, a.Architecture, ctx.Variant)
	if err != nil {
		return err
	}
	if len(sels) == 0 {
		return pipe.Skipf("no rules selected for %s+%s+%s", a.Platform, a.Architecture, ctx.Variant)
	}
	ctx.Selections = sels

	newToolchain := j.r.NewToolchain
	if newToolchain == nil {
		return errors.New("no toolchain factory configured")
	}
	tc, err := newToolchain(a.Platform, a.Architecture, j.r.Toolchain)
	if err != nil {
		return err
	}
	ctx.Toolchain = tc
	ctx.Demangler = tc
	if j.r.Demangler != nil {
		ctx.Demangler = j.r.Demangler
	}

	log.WithFields(log.Fields{
		"target":    ctx.Target(),
		"toolchain": tc.Family(),
		"revision":  tc.Revision(),
		"rules":     len(sels),
	}).Debug("Selected rules")
	return nil
}

// finalizeJob swaps the patched copy in, keeping one backup.
type finalizeJob struct{}

func (finalizeJob) String() string { return "finalize" }

func (finalizeJob) Run(ctx *context.Context) error {
	ctx.Enter(context.Finalize)
	a := ctx.Artifact

	if !ctx.Dirty {
		if ctx.WorkPath != "" {
			if err := ctx.Fs.Remove(ctx.WorkPath); err != nil {
				return fmt.Errorf("failed to remove %s: %w", ctx.WorkPath, err)
			}
		}
		log.WithFields(log.Fields{
			"target":          ctx.Target(),
			"already_patched": ctx.AlreadyPatched,
		}).Info("No bytes changed")
		warnSkips(ctx)
		ctx.Enter(context.Complete)
		return nil
	}

	backup, err := swap(ctx.Fs, a.Path, ctx.WorkPath)
	if err != nil {
		return err
	}
	ctx.BackupPath = backup
	ctx.WorkPath = ""
	log.WithFields(log.Fields{
		"backup":    backup,
		"rewritten": ctx.Rewritten,
	}).Infof("Rewrote %s", a.Path)
	warnSkips(ctx)
	ctx.Enter(context.Complete)
	return nil
}

// warnSkips reports every symbol and instruction that was passed over.
func warnSkips(ctx *context.Context) {
	if err := ctx.Skips.Evaluate(); err != nil {
		log.WithField("target", ctx.Target()).WithError(err).Warn("Some rules were not applied")
	}
}
