package toolchain

import (
	"context"
	"fmt"
	"regexp"

	"github.com/modx/enginerw/pkg/rules"
	"github.com/pkg/errors"
)

var (
	// [Nr] Name Type Address Off Size ...
	textSectionRE = regexp.MustCompile(`(?m)^\s*\[\s*\d+\]\s+\.text\s+\S+\s+([0-9a-fA-F]+)\s+([0-9a-fA-F]+)`)
	// address flags section size name
	symLineRE = regexp.MustCompile(`^\s*([0-9a-fA-F]+)\s.*?\s(\.\S+|\*\w+\*)\s+([0-9a-fA-F]+)\s+(?:\S+\s+)?(\S+)\s*$`)
)

// elfTools is the ELF tool set shared by Android and OpenHarmony.
type elfTools struct {
	family   Family
	arch     rules.Architecture
	revision Revision
	layout   Layout
	// thumb forces Thumb decoding of ARMv7 code.
	thumb bool

	objdump string
	readelf string
	cxxfilt string
}

func (t *elfTools) Family() Family                   { return t.family }
func (t *elfTools) Revision() Revision               { return t.revision }
func (t *elfTools) Architecture() rules.Architecture { return t.arch }

func (t *elfTools) SymbolTable(ctx context.Context, path string) (string, error) {
	return Run(ctx, "", t.objdump, "--syms", path)
}

func (t *elfTools) ParseSymbolLine(line string) (SymbolRef, error) {
	return parseSymLine(line, t.arch)
}

func (t *elfTools) TextSection(ctx context.Context, path string) (Section, error) {
	out, err := Run(ctx, "", t.readelf, "-S", "-W", path)
	if err != nil {
		return Section{}, err
	}
	return parseTextSection(out)
}

func (t *elfTools) Disassemble(ctx context.Context, path string, sym SymbolRef) (string, error) {
	args := []string{
		fmt.Sprintf("--start-address=%#x", sym.Address),
		fmt.Sprintf("--stop-address=%#x", sym.Address+sym.Size),
	}
	if t.thumb && t.arch == rules.ARMv7 {
		if t.revision == RevisionGNU {
			args = append(args, "-Mforce-thumb")
		} else {
			args = append(args, "--triple=thumb")
		}
	}
	args = append(args, "-d", path)
	return Run(ctx, "", t.objdump, args...)
}

func (t *elfTools) Demangle(ctx context.Context, mangled string) (string, error) {
	return demangle(ctx, t.cxxfilt, mangled)
}

func (t *elfTools) InstructionPattern(code []byte) string {
	return t.layout.InstructionPattern(code)
}

func (t *elfTools) ExtractMember(context.Context, string, string, string) (string, error) {
	return "", errors.Errorf("%s toolchain does not read archives", t.family)
}

func parseTextSection(out string) (Section, error) {
	m := textSectionRE.FindStringSubmatch(out)
	if m == nil {
		return Section{}, errors.New("failed to find .text section")
	}
	addr, err := parseHex(m[1])
	if err != nil {
		return Section{}, errors.Wrap(err, "failed to parse .text address")
	}
	off, err := parseHex(m[2])
	if err != nil {
		return Section{}, errors.Wrap(err, "failed to parse .text offset")
	}
	return Section{Address: addr, Offset: off}, nil
}

// parseSymLine reads an objdump --syms line. ARMv7 Thumb function addresses
// have their low bit set, which is cleared.
func parseSymLine(line string, arch rules.Architecture) (SymbolRef, error) {
	m := symLineRE.FindStringSubmatch(line)
	if m == nil {
		return SymbolRef{}, errors.Errorf("failed to parse symbol line: %q", line)
	}
	addr, err := parseHex(m[1])
	if err != nil {
		return SymbolRef{}, errors.Wrapf(err, "failed to parse symbol address %q", m[1])
	}
	size, err := parseHex(m[3])
	if err != nil {
		return SymbolRef{}, errors.Wrapf(err, "failed to parse symbol size %q", m[3])
	}
	if arch == rules.ARMv7 {
		addr &^= 1
	}
	return SymbolRef{Name: m[4], Address: addr, Size: size}, nil
}
