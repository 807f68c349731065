// Package toolchain wraps the external disassembly, symbol, demangling and
// archive tools of each platform family behind one interface.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/hashicorp/go-version"
	"github.com/modx/enginerw/pkg/rules"
)

// Family groups platforms that share a binary format and tool set.
type Family int

const (
	// ELFNDK is the Android NDK toolchain.
	ELFNDK Family = iota
	// ELFOHOS is the OpenHarmony SDK toolchain.
	ELFOHOS
	// MachO is the toolchain for iOS static archives.
	MachO
)

func (f Family) String() string {
	switch f {
	case ELFNDK:
		return "elf-ndk"
	case ELFOHOS:
		return "elf-ohos"
	case MachO:
		return "macho"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Revision selects the disassembly line layout of a tool generation.
type Revision int

const (
	// RevisionDefault lets the toolchain pick from the engine version.
	RevisionDefault Revision = iota
	// RevisionGNU is binutils objdump: hex words, Thumb as halfwords.
	RevisionGNU
	// RevisionLLVM is llvm-objdump: space separated bytes in file order.
	RevisionLLVM
)

func (r Revision) String() string {
	switch r {
	case RevisionGNU:
		return "gnu"
	case RevisionLLVM:
		return "llvm"
	}
	return "default"
}

// ParseRevision parses a revision name as used in configuration.
func ParseRevision(s string) (Revision, error) {
	switch strings.ToLower(s) {
	case "", "default", "auto":
		return RevisionDefault, nil
	case "gnu", "binutils":
		return RevisionGNU, nil
	case "llvm":
		return RevisionLLVM, nil
	}
	return RevisionDefault, fmt.Errorf("unknown toolchain revision %q", s)
}

// llvmSince is the first engine version whose Android NDK ships only LLVM tools.
var llvmSince = version.Must(version.NewVersion("2022.1"))

// RevisionFor returns the tool revision bundled with engineVersion.
func RevisionFor(engineVersion string) Revision {
	v, err := version.NewVersion(engineVersion)
	if err != nil {
		log.WithError(err).Warnf("failed to parse engine version %q, assuming llvm tools", engineVersion)
		return RevisionLLVM
	}
	if v.Core().LessThan(llvmSince) {
		return RevisionGNU
	}
	return RevisionLLVM
}

// Section locates a code section in a file.
type Section struct {
	Address uint64
	Offset  uint64
}

// FileOffset converts a virtual address inside the section to a file offset.
func (s Section) FileOffset(addr uint64) int64 {
	return int64(addr) - int64(s.Address) + int64(s.Offset)
}

// SymbolRef is a symbol found in a symbol table dump.
type SymbolRef struct {
	Name    string
	Address uint64
	Size    uint64
}

// Toolchain is the set of external tools for one platform and architecture.
type Toolchain interface {
	Family() Family
	Revision() Revision
	Architecture() rules.Architecture
	// SymbolTable dumps the symbol table of path.
	SymbolTable(ctx context.Context, path string) (string, error)
	// ParseSymbolLine reads a symbol out of a line of SymbolTable output.
	ParseSymbolLine(line string) (SymbolRef, error)
	// TextSection locates the executable code section of path.
	TextSection(ctx context.Context, path string) (Section, error)
	// Disassemble returns the disassembly of exactly one symbol.
	Disassemble(ctx context.Context, path string, sym SymbolRef) (string, error)
	// Demangle returns the demangled form of a symbol name.
	Demangle(ctx context.Context, mangled string) (string, error)
	// InstructionPattern returns a regular expression matching a disassembly
	// line holding code. Group 1 captures the hex address.
	InstructionPattern(code []byte) string
	// ExtractMember copies an archive member into dir and returns its path.
	ExtractMember(ctx context.Context, archive, member, dir string) (string, error)
}

// Options configures tool discovery.
type Options struct {
	// EngineContents is the engine editor's contents directory.
	EngineContents string
	// EngineVersion picks the default Revision.
	EngineVersion string
	// Revision overrides the engine version based choice.
	Revision Revision
	// ToolDir overrides the directory holding the tools.
	ToolDir string
	// GOOS is the host OS, runtime.GOOS when empty.
	GOOS string
}

func (o Options) goos() string {
	if o.GOOS != "" {
		return o.GOOS
	}
	return runtime.GOOS
}

// EngineRoot returns the directory PlaybackEngines lives in.
func (o Options) EngineRoot() string {
	if o.goos() == "darwin" {
		return filepath.Join(o.EngineContents, "..", "..")
	}
	return o.EngineContents
}

// hostDir names the prebuilt directory for the host.
func (o Options) hostDir() (string, error) {
	switch o.goos() {
	case "windows":
		return "windows-x86_64", nil
	case "darwin":
		return "darwin-x86_64", nil
	case "linux":
		return "linux-x86_64", nil
	}
	return "", fmt.Errorf("unsupported host OS %s", o.goos())
}

func (o Options) exe(path string) string {
	if o.goos() == "windows" {
		return path + ".exe"
	}
	return path
}

// New returns the toolchain for platform and arch.
func New(p rules.Platform, arch rules.Architecture, opts Options) (Toolchain, error) {
	switch p {
	case rules.Android:
		return NewAndroid(arch, opts)
	case rules.OpenHarmony:
		return NewOpenHarmony(arch, opts)
	case rules.IOS:
		return NewIOS(arch, opts)
	}
	return nil, rules.Configf("Invalid build target: %s", p)
}

// ToolNotFoundError is returned when a required tool is missing.
type ToolNotFoundError struct {
	Tool     string
	Searched []string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("failed to find '%s' (searched: %s)", e.Tool, strings.Join(e.Searched, ", "))
}

// findTool returns the first candidate that exists.
func findTool(tool string, candidates ...string) (string, error) {
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", &ToolNotFoundError{Tool: tool, Searched: candidates}
}

func parseHex(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
}

// demangle runs a c++filt compatible tool on a single name.
func demangle(ctx context.Context, cxxfilt, mangled string) (string, error) {
	out, err := Run(ctx, "", cxxfilt, mangled)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
