package rewriter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/modx/enginerw/internal/pipeline/context"
	"github.com/modx/enginerw/internal/utils"
	"github.com/modx/enginerw/pkg/ar"
	"github.com/modx/enginerw/pkg/locate"
	"github.com/modx/enginerw/pkg/rules"
	"github.com/modx/enginerw/pkg/toolchain"
	"github.com/spf13/afero"
)

// archiveJob patches object files inside a static archive. Patched members
// are written back over their own bytes so every other member and the
// archive's timestamps stay as they were.
type archiveJob struct{}

func (archiveJob) String() string { return "rewrite static archive" }

// Skip skips shared libraries.
func (archiveJob) Skip(ctx *context.Context) bool { return !ctx.Artifact.Archive }

func (archiveJob) Run(ctx *context.Context) error {
	a := ctx.Artifact

	log.WithFields(log.Fields{
		"target": ctx.Target(),
		"size":   utils.FileSize(ctx.Fs, a.Path),
	}).Infof("Start to process: %s", a.Path)

	ctx.WorkPath = filepath.Join(filepath.Dir(a.Path), strings.TrimSuffix(filepath.Base(a.Path), ".a")+".tmp.a")
	if _, err := utils.CopyFile(ctx.Fs, a.Path, ctx.WorkPath); err != nil {
		return err
	}

	f, err := ctx.Fs.OpenFile(ctx.WorkPath, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	idx, err := ar.Parse(f, info.Size())
	if err != nil {
		return err
	}

	symbols, err := ctx.Toolchain.SymbolTable(ctx, ctx.WorkPath)
	if err != nil {
		return err
	}

	scratch, err := afero.TempDir(ctx.Fs, "", "enginerw")
	if err != nil {
		return err
	}
	defer ctx.Fs.RemoveAll(scratch)

	for _, sel := range ctx.Selections {
		log.WithField("feature", sel.Feature).Info("Start to apply rule")
		for _, sym := range sel.Rule.Symbols {
			ctx.Enter(context.LocateSymbol)
			cands, err := locate.FindSymbols(ctx, symbols, sym, ctx.Demangler, true)
			if err != nil {
				var nf *locate.SymbolNotFoundError
				if errors.As(err, &nf) {
					log.WithFields(log.Fields{"feature": sel.Feature, "symbol": sym.DemangledName}).Warn("Failed to find the symbol")
					ctx.Skips.Remember(err)
					continue
				}
				return withRule(err, sel.Feature, sym)
			}

			objects, byObject := locate.GroupByObject(cands)
			for _, obj := range objects {
				if _, err := idx.Lookup(obj); err != nil {
					if errors.Is(err, ar.ErrNotImplemented) {
						return &rules.ConfigError{Feature: sel.Feature, Symbol: sym.Pattern, Msg: "Symbol is in a duplicated object file", Err: err}
					}
					return err
				}
				if err := patchMember(ctx, idx, f, scratch, obj, byObject[obj], sel.Feature, sym); err != nil {
					return err
				}
			}
		}
	}
	return f.Close()
}

// patchMember extracts obj, patches its candidates and splices it back.
func patchMember(ctx *context.Context, idx *ar.Index, archive afero.File, scratch, obj string, cands []locate.Candidate, feature string, sym rules.Symbol) error {
	tc := ctx.Toolchain
	log.WithFields(log.Fields{"feature": feature, "object": obj}).Info("Start to rewrite object file")

	path, err := tc.ExtractMember(ctx, ctx.WorkPath, obj, scratch)
	if err != nil {
		return err
	}
	defer ctx.Fs.Remove(path)

	sec, err := tc.TextSection(ctx, path)
	if err != nil {
		return err
	}

	of, err := ctx.Fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer of.Close()

	before := ctx.Rewritten
	for _, c := range cands {
		ctx.Enter(context.BoundDisassembly)
		log.WithFields(log.Fields{"feature": feature, "symbol": c.Mangled}).Info("Start to rewrite symbol")
		disasm, err := tc.Disassemble(ctx, path, toolchain.SymbolRef{Name: c.Mangled})
		if err != nil {
			return err
		}
		if err := patchSymbol(ctx, of, sec, disasm, feature, sym, c.Mangled); err != nil {
			return err
		}
	}
	if ctx.Rewritten == before {
		return nil
	}

	if err := of.Close(); err != nil {
		return err
	}
	data, err := afero.ReadFile(ctx.Fs, path)
	if err != nil {
		return err
	}
	return idx.Splice(archive, obj, data)
}
