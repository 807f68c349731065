package rewriter

import (
	"errors"
	"os"

	"github.com/apex/log"
	"github.com/modx/enginerw/internal/pipeline/context"
	"github.com/modx/enginerw/internal/utils"
	"github.com/modx/enginerw/pkg/locate"
)

// elfJob patches a shared library through a .tmp copy next to it.
type elfJob struct{}

func (elfJob) String() string { return "rewrite shared library" }

// Skip skips static archives.
func (elfJob) Skip(ctx *context.Context) bool { return ctx.Artifact.Archive }

func (elfJob) Run(ctx *context.Context) error {
	a := ctx.Artifact
	tc := ctx.Toolchain

	log.WithFields(log.Fields{
		"target": ctx.Target(),
		"size":   utils.FileSize(ctx.Fs, a.Path),
	}).Infof("Start to process: %s", a.Path)

	ctx.WorkPath = a.Path + ".tmp"
	if _, err := utils.CopyFile(ctx.Fs, a.Path, ctx.WorkPath); err != nil {
		return err
	}

	sec, err := tc.TextSection(ctx, a.Path)
	if err != nil {
		return err
	}
	symbols, err := tc.SymbolTable(ctx, a.SymbolPath)
	if err != nil {
		return err
	}

	f, err := ctx.Fs.OpenFile(ctx.WorkPath, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, sel := range ctx.Selections {
		log.WithField("feature", sel.Feature).Info("Start to apply rule")
		for _, sym := range sel.Rule.Symbols {
			ctx.Enter(context.LocateSymbol)
			cands, err := locate.FindSymbols(ctx, symbols, sym, ctx.Demangler, false)
			if err != nil {
				var nf *locate.SymbolNotFoundError
				if errors.As(err, &nf) {
					log.WithFields(log.Fields{"feature": sel.Feature, "symbol": sym.DemangledName}).Warn("Failed to find the symbol")
					ctx.Skips.Remember(err)
					continue
				}
				return withRule(err, sel.Feature, sym)
			}

			for _, c := range cands {
				ctx.Enter(context.BoundDisassembly)
				ref, err := tc.ParseSymbolLine(c.Line)
				if err != nil {
					return withRule(err, sel.Feature, sym)
				}
				log.WithFields(log.Fields{
					"feature": sel.Feature,
					"symbol":  ref.Name,
					"address": ref.Address,
					"size":    ref.Size,
				}).Info("Start to rewrite symbol")

				disasm, err := tc.Disassemble(ctx, ctx.WorkPath, ref)
				if err != nil {
					return err
				}
				if err := patchSymbol(ctx, f, sec, disasm, sel.Feature, sym, ref.Name); err != nil {
					return err
				}
			}
		}
	}
	return f.Close()
}
