package rewriter

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-version"
	"github.com/modx/enginerw/internal/pipeline/context"
	"github.com/modx/enginerw/pkg/rules"
)

// BuildReport describes a finished player build.
type BuildReport struct {
	Platform rules.Platform
	// Architectures limits the artifacts considered; empty means all.
	Architectures []rules.Architecture
	Development   bool
	// StripEngineCode is set when the build's symbols come from the project
	// build cache instead of the engine install.
	StripEngineCode bool
	// Simulator is set for iOS simulator SDK builds.
	Simulator bool
	// OutputPath is the generated platform project.
	OutputPath string
	// ProjectPath is the engine project the build was made from.
	ProjectPath string
}

// Variant returns the build variant of the report.
func (b BuildReport) Variant() rules.Variant { return rules.VariantOf(b.Development) }

type abi struct {
	arch rules.Architecture
	name string
}

var (
	androidABIs = []abi{
		{rules.ARMv7, "armeabi-v7a"},
		{rules.ARM64, "arm64-v8a"},
		{rules.X86, "x86"},
		{rules.X86_64, "x86_64"},
	}
	openHarmonyABIs = []abi{
		{rules.ARMv7, "armeabi-v7a"},
		{rules.ARM64, "arm64-v8a"},
		{rules.X86_64, "x86_64"},
	}
	beeSince = version.Must(version.NewVersion("2021.1"))
)

func (b BuildReport) wants(a rules.Architecture) bool {
	if len(b.Architectures) == 0 {
		return true
	}
	for _, x := range b.Architectures {
		if x == a {
			return true
		}
	}
	return false
}

// artifacts lists the libraries a build may have produced, in processing order.
func (r *Rewriter) artifacts(b BuildReport) ([]context.Artifact, error) {
	var out []context.Artifact
	switch b.Platform {
	case rules.Android:
		for _, x := range androidABIs {
			if !b.wants(x.arch) {
				continue
			}
			out = append(out, context.Artifact{
				Platform:     rules.Android,
				Architecture: x.arch,
				ABI:          x.name,
				Path:         filepath.Join(b.OutputPath, "src", "main", "jniLibs", x.name, "libunity.so"),
				SymbolPath:   r.androidSymbols(b, x.name),
			})
		}
	case rules.OpenHarmony:
		for _, x := range openHarmonyABIs {
			if !b.wants(x.arch) {
				continue
			}
			out = append(out, context.Artifact{
				Platform:     rules.OpenHarmony,
				Architecture: x.arch,
				ABI:          x.name,
				Path:         filepath.Join(b.OutputPath, "libs", x.name, "libtuanjie.so"),
				SymbolPath: filepath.Join(r.Toolchain.EngineRoot(), "PlaybackEngines", "OpenHarmonyPlayer",
					"Variations", "il2cpp", b.Variant().String(), "Symbols", x.name, "libtuanjie.sym.so"),
			})
		}
	case rules.IOS:
		if b.wants(rules.ARM64) {
			out = append(out, context.Artifact{
				Platform:     rules.IOS,
				Architecture: rules.ARM64,
				ABI:          "arm64",
				Path:         filepath.Join(b.OutputPath, "Libraries", "libiPhone-lib.a"),
				Archive:      true,
			})
		}
	default:
		return nil, rules.Configf("Invalid build target: %s", b.Platform)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no %s architecture matches %v", b.Platform, b.Architectures)
	}
	return out, nil
}

// androidSymbols returns where the unstripped libunity of abi lives.
func (r *Rewriter) androidSymbols(b BuildReport, abi string) string {
	if b.StripEngineCode {
		if r.engineAtLeast(beeSince) {
			return filepath.Join(b.ProjectPath, "Library", "Bee", "artifacts", "Android", "libunity", abi, "libunity.sym.so")
		}
		return filepath.Join(b.ProjectPath, "Temp", "StagingArea", "symbols", abi, "libunity.sym.so")
	}
	return filepath.Join(r.Toolchain.EngineRoot(), "PlaybackEngines", "AndroidPlayer",
		"Variations", "il2cpp", b.Variant().String(), "Symbols", abi, "libunity.sym.so")
}

func (r *Rewriter) engineAtLeast(min *version.Version) bool {
	v, err := version.NewVersion(r.EngineVersion)
	if err != nil {
		return true
	}
	return v.Core().GreaterThanOrEqual(min)
}
