package toolchain

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/modx/enginerw/pkg/rules"
	"github.com/pkg/errors"
)

var ohosArchs = map[rules.Architecture]bool{
	rules.ARMv7:  true,
	rules.ARM64:  true,
	rules.X86_64: true,
}

// OpenHarmonyToolDir returns the LLVM bin directory of the lowest numbered
// SDK bundled with the engine.
func OpenHarmonyToolDir(opts Options) (string, error) {
	if opts.ToolDir != "" {
		return opts.ToolDir, nil
	}
	sdk := filepath.Join(opts.EngineRoot(), "PlaybackEngines", "OpenHarmonyPlayer", "SDK")
	entries, err := os.ReadDir(sdk)
	if err != nil {
		return "", errors.Wrap(err, "failed to find valid sdk directory")
	}
	var levels []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n, err := strconv.Atoi(e.Name()); err == nil {
			levels = append(levels, n)
		}
	}
	if len(levels) == 0 {
		return "", errors.Errorf("failed to find valid sdk directory in %s", sdk)
	}
	sort.Ints(levels)
	return filepath.Join(sdk, strconv.Itoa(levels[0]), "native", "llvm", "bin"), nil
}

// NewOpenHarmony returns the OpenHarmony SDK toolchain for arch.
func NewOpenHarmony(arch rules.Architecture, opts Options) (Toolchain, error) {
	if !ohosArchs[arch] {
		return nil, rules.Configf("Invalid architecture for %s: %s", rules.OpenHarmony, arch)
	}
	dir, err := OpenHarmonyToolDir(opts)
	if err != nil {
		return nil, err
	}

	t := &elfTools{family: ELFOHOS, arch: arch, revision: RevisionLLVM}
	for _, tool := range []struct {
		name string
		dst  *string
	}{
		{"llvm-objdump", &t.objdump},
		{"llvm-readelf", &t.readelf},
		{"llvm-cxxfilt", &t.cxxfilt},
	} {
		path, err := findTool(tool.name, opts.exe(filepath.Join(dir, tool.name)))
		if err != nil {
			return nil, err
		}
		*tool.dst = path
	}

	// ARM code is never forced to Thumb here, so llvm-objdump prints each
	// A32 or A64 instruction as one little-endian word.
	switch arch {
	case rules.ARMv7, rules.ARM64:
		t.layout = LayoutWords
	default:
		t.layout = LayoutBytes
	}
	return t, nil
}
