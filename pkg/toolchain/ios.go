package toolchain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/blacktop/go-macho"
	"github.com/modx/enginerw/pkg/rules"
	"github.com/pkg/errors"
)

// machoTools reads iOS static archives with the bundled LLVM tools.
type machoTools struct {
	nm      string
	ar      string
	objdump string
	cxxfilt string
}

// NewIOS returns the iOS toolchain. Only ARM64 device builds are supported.
func NewIOS(arch rules.Architecture, opts Options) (Toolchain, error) {
	if arch != rules.ARM64 {
		return nil, rules.Configf("Invalid architecture for %s: %s", rules.IOS, arch)
	}
	dir := opts.ToolDir
	if dir == "" {
		return nil, &ToolNotFoundError{Tool: "llvm-nm", Searched: []string{"toolchain.ios_tools (not configured)"}}
	}
	host, err := opts.hostDir()
	if err != nil {
		return nil, err
	}

	t := &machoTools{}
	for _, tool := range []struct {
		name string
		dst  *string
	}{
		{"llvm-nm", &t.nm},
		{"llvm-ar", &t.ar},
		{"llvm-objdump", &t.objdump},
		{"llvm-cxxfilt", &t.cxxfilt},
	} {
		path, err := findTool(tool.name,
			opts.exe(filepath.Join(dir, host, tool.name)),
			opts.exe(filepath.Join(dir, tool.name)))
		if err != nil {
			return nil, err
		}
		*tool.dst = path
	}
	return t, nil
}

func (t *machoTools) Family() Family                   { return MachO }
func (t *machoTools) Revision() Revision               { return RevisionLLVM }
func (t *machoTools) Architecture() rules.Architecture { return rules.ARM64 }

// SymbolTable runs nm -o in the archive's directory so every line starts
// with "<archive base name>:<member>:".
func (t *machoTools) SymbolTable(ctx context.Context, path string) (string, error) {
	return Run(ctx, filepath.Dir(path), t.nm, "-o", filepath.Base(path))
}

func (t *machoTools) ParseSymbolLine(line string) (SymbolRef, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return SymbolRef{}, errors.Errorf("failed to parse symbol line: %q", line)
	}
	return SymbolRef{Name: fields[len(fields)-1]}, nil
}

// TextSection reads the __TEXT,__text section header of an object file.
func (t *machoTools) TextSection(_ context.Context, path string) (Section, error) {
	m, err := macho.Open(path)
	if err != nil {
		return Section{}, errors.Wrapf(err, "failed to open MachO %s", path)
	}
	defer m.Close()

	text := m.Section("__TEXT", "__text")
	if text == nil {
		return Section{}, errors.Errorf("failed to find __TEXT.__text section in %s", path)
	}
	return Section{Address: text.Addr, Offset: uint64(text.Offset)}, nil
}

func (t *machoTools) Disassemble(ctx context.Context, path string, sym SymbolRef) (string, error) {
	return Run(ctx, "", t.objdump, fmt.Sprintf("--disassemble-symbols=%s", sym.Name), path)
}

func (t *machoTools) Demangle(ctx context.Context, mangled string) (string, error) {
	return demangle(ctx, t.cxxfilt, mangled)
}

func (t *machoTools) InstructionPattern(code []byte) string {
	return LayoutBytes.InstructionPattern(code)
}

// ExtractMember runs ar xo in dir, keeping the member's recorded timestamp.
func (t *machoTools) ExtractMember(ctx context.Context, archive, member, dir string) (string, error) {
	abs, err := filepath.Abs(archive)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve archive path")
	}
	if _, err := Run(ctx, dir, t.ar, "xo", abs, member); err != nil {
		return "", err
	}
	return filepath.Join(dir, member), nil
}
