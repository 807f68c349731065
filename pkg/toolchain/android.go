package toolchain

import (
	"path/filepath"

	"github.com/modx/enginerw/pkg/rules"
)

// ndkPrefix is the target triple prefix of the per-architecture NDK tools.
var ndkPrefix = map[rules.Architecture]string{
	rules.ARMv7:  "arm-linux-androideabi-",
	rules.ARM64:  "aarch64-linux-android-",
	rules.X86:    "i686-linux-android-",
	rules.X86_64: "x86_64-linux-android-",
}

// AndroidToolDir returns the NDK bin directory bundled with the engine.
func AndroidToolDir(opts Options) (string, error) {
	if opts.ToolDir != "" {
		return opts.ToolDir, nil
	}
	host, err := opts.hostDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(opts.EngineRoot(), "PlaybackEngines", "AndroidPlayer", "NDK",
		"toolchains", "llvm", "prebuilt", host, "bin"), nil
}

// NewAndroid returns the NDK toolchain for arch.
func NewAndroid(arch rules.Architecture, opts Options) (Toolchain, error) {
	prefix, ok := ndkPrefix[arch]
	if !ok {
		return nil, rules.Configf("Invalid architecture for %s: %s", rules.Android, arch)
	}
	dir, err := AndroidToolDir(opts)
	if err != nil {
		return nil, err
	}

	rev := opts.Revision
	if rev == RevisionDefault {
		rev = RevisionFor(opts.EngineVersion)
	}

	t := &elfTools{family: ELFNDK, arch: arch, revision: rev, thumb: true}
	for _, tool := range []struct {
		name string
		llvm string
		dst  *string
	}{
		{"objdump", "llvm-objdump", &t.objdump},
		{"readelf", "llvm-readelf", &t.readelf},
		{"c++filt", "llvm-cxxfilt", &t.cxxfilt},
	} {
		path, err := findTool(tool.name,
			opts.exe(filepath.Join(dir, prefix+tool.name)),
			opts.exe(filepath.Join(dir, tool.llvm)))
		if err != nil {
			return nil, err
		}
		*tool.dst = path
	}

	t.layout = elfLayout(arch, rev)
	return t, nil
}

// elfLayout returns how objdump prints the machine code of arch.
func elfLayout(arch rules.Architecture, rev Revision) Layout {
	switch arch {
	case rules.X86, rules.X86_64:
		return LayoutBytes
	}
	if rev != RevisionGNU {
		return LayoutBytes
	}
	if arch == rules.ARMv7 {
		return LayoutHalfwords
	}
	return LayoutWords
}
