package rewriter

import (
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/modx/enginerw/internal/pipeline/context"
	"github.com/modx/enginerw/pkg/locate"
	"github.com/modx/enginerw/pkg/patch"
	"github.com/modx/enginerw/pkg/rules"
	"github.com/modx/enginerw/pkg/toolchain"
)

// patchSymbol applies sym's instructions, in order, to the copy of one
// symbol whose disassembly is disasm. Instructions that are not found are
// passed over; any other failure stops the symbol. A symbol is patched fully
// or not at all, and fresh writes never mix with already patched instructions.
func patchSymbol(ctx *context.Context, target patch.Target, sec toolchain.Section, disasm string, feature string, sym rules.Symbol, mangled string) error {
	var written, already int
	for i, inst := range sym.Instructions {
		ctx.Enter(context.LocateInstruction)
		ilog := log.WithFields(log.Fields{
			"feature":     feature,
			"symbol":      mangled,
			"instruction": fmt.Sprintf("#%d %s %s", i, inst.OriginalMachineCode, inst.OriginalDescription),
		})

		original, err := inst.OriginalMachineCode.Bytes()
		if err != nil {
			return &rules.ConfigError{Feature: feature, Symbol: sym.Pattern, Msg: "Instruction's OriginalMachineCode is invalid", Err: err}
		}
		replacement, err := inst.NewMachineCode.Bytes()
		if err != nil {
			return &rules.ConfigError{Feature: feature, Symbol: sym.Pattern, Msg: "Instruction's NewMachineCode is invalid", Err: err}
		}

		m, err := findInstruction(disasm, original, replacement, inst.IndexOr(-1), ctx.Toolchain)
		if err != nil {
			var nf *locate.InstructionNotFoundError
			if errors.As(err, &nf) {
				ilog.Warn("Failed to find the instruction")
				ctx.Skips.Remember(fmt.Errorf("%s: %v", mangled, err))
				continue
			}
			return withRule(err, feature, sym)
		}

		ctx.Enter(context.ApplyPatch)
		off := sec.FileOffset(m.Address)
		res, err := patch.Apply(target, off, original, replacement)
		if err != nil {
			ilog.WithError(err).Error("Integrity check failed")
			return err
		}
		if res.Written {
			written++
			ctx.Rewritten++
			ctx.Dirty = true
			ilog.WithField("offset", fmt.Sprintf("%#x", off)).Infof("Rewrote instruction: %s", m.Line)
		} else {
			already++
			ctx.AlreadyPatched++
			ilog.WithField("offset", fmt.Sprintf("%#x", off)).Info("Instruction is already patched")
		}
	}

	n := len(sym.Instructions)
	switch {
	case written == n, already == n, written == 0 && already == 0:
		return nil
	}
	return &PartialApplicationError{
		Feature:        feature,
		Symbol:         mangled,
		Rewritten:      written,
		AlreadyPatched: already,
		Expected:       n,
	}
}

// findInstruction looks for the original code and, failing that, for an
// unambiguous replacement left by an earlier run.
func findInstruction(disasm string, original, replacement []byte, index int, b locate.PatternBuilder) (locate.Match, error) {
	m, err := locate.FindInstruction(disasm, original, index, b)
	var nf *locate.InstructionNotFoundError
	if !errors.As(err, &nf) {
		return m, err
	}
	if pm, perr := locate.FindInstruction(disasm, replacement, index, b); perr == nil {
		return pm, nil
	}
	return m, err
}
