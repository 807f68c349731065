// Package rules holds the declarative patch configuration: features, the
// engine-version rule sets they carry and the per-target symbol patches.
package rules

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	yaml "gopkg.in/yaml.v3"
)

// DefaultPath is where the settings file lives relative to the project root.
const DefaultPath = "ProjectSettings/EngineBinaryRewriterSettings.yaml"

// Platform is a player build target.
type Platform string

const (
	Android     Platform = "Android"
	IOS         Platform = "iOS"
	OpenHarmony Platform = "OpenHarmony"
)

// Platforms lists every build target a rule may name.
var Platforms = []Platform{Android, IOS, OpenHarmony}

// Architecture is a CPU architecture of a native engine library.
type Architecture string

const (
	ARMv7  Architecture = "ARMv7"
	ARM64  Architecture = "ARM64"
	X86    Architecture = "X86"
	X86_64 Architecture = "X86_64"
)

// Architectures lists every architecture a rule may name.
var Architectures = []Architecture{ARMv7, ARM64, X86, X86_64}

// Variant is the build variant of the player.
type Variant int

const (
	Release Variant = iota
	Development
)

func (v Variant) String() string {
	if v == Development {
		return "Development"
	}
	return "Release"
}

// VariantOf maps a development build flag to its Variant.
func VariantOf(development bool) Variant {
	if development {
		return Development
	}
	return Release
}

// Settings is the persisted patch configuration.
//
// At most one feature is enabled at a time: ActiveFeature names it, and an
// empty ActiveFeature means every feature is disabled.
type Settings struct {
	ActiveFeature string    `yaml:"active_feature,omitempty" json:"active_feature,omitempty" jsonschema:"description=name of the single enabled feature"`
	Features      []Feature `yaml:"features,omitempty" json:"features,omitempty"`
}

// Feature is a named group of rule sets that fixes one engine defect.
type Feature struct {
	Name     string    `yaml:"name" json:"name"`
	RuleSets []RuleSet `yaml:"rule_sets,omitempty" json:"rule_sets,omitempty"`
}

// RuleSet binds rules to the engine versions matched by EngineVersion.
type RuleSet struct {
	EngineVersion string `yaml:"engine_version" json:"engine_version" jsonschema:"description=regular expression matched against the engine version"`
	Rules         []Rule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Rule binds a (platform, architecture, variant) triple to symbol patches.
type Rule struct {
	Platform     Platform     `yaml:"platform" json:"platform" jsonschema:"enum=Android,enum=iOS,enum=OpenHarmony"`
	Architecture Architecture `yaml:"architecture" json:"architecture" jsonschema:"enum=ARMv7,enum=ARM64,enum=X86,enum=X86_64"`
	Development  bool         `yaml:"development,omitempty" json:"development,omitempty"`
	Symbols      []Symbol     `yaml:"symbols,omitempty" json:"symbols,omitempty"`
}

// Variant returns the build variant the rule targets.
func (r Rule) Variant() Variant { return VariantOf(r.Development) }

// Target renders the rule triple, e.g. "Android+ARM64+Release".
func (r Rule) Target() string {
	return fmt.Sprintf("%s+%s+%s", r.Platform, r.Architecture, r.Variant())
}

// Symbol names a function to patch.
//
// Pattern locates candidate lines in the symbol table dump and may over-match;
// DemangledName is compared against each candidate's demangled name and is
// the only authority on which symbols get patched.
type Symbol struct {
	DemangledName string        `yaml:"demangled_name" json:"demangled_name"`
	Pattern       string        `yaml:"pattern" json:"pattern"`
	Instructions  []Instruction `yaml:"instructions,omitempty" json:"instructions,omitempty"`
}

// Instruction is a single machine code substitution.
type Instruction struct {
	OriginalDescription string      `yaml:"original_description,omitempty" json:"original_description,omitempty"`
	OriginalMachineCode MachineCode `yaml:"original_machine_code" json:"original_machine_code"`
	// Index picks one occurrence when the original code appears more than
	// once in the symbol. Nil means unset.
	Index          *int        `yaml:"index,omitempty" json:"index,omitempty"`
	NewDescription string      `yaml:"new_description,omitempty" json:"new_description,omitempty"`
	NewMachineCode MachineCode `yaml:"new_machine_code" json:"new_machine_code"`
}

// IndexOr returns the disambiguation index or def when it is unset.
func (i Instruction) IndexOr(def int) int {
	if i.Index == nil {
		return def
	}
	return *i.Index
}

// MachineCode is a hex encoded byte string in file order.
type MachineCode string

// Bytes decodes the machine code.
func (m MachineCode) Bytes() ([]byte, error) {
	return hex.DecodeString(string(m))
}

// Len returns the number of bytes the code spans.
func (m MachineCode) Len() int { return len(m) / 2 }

// Feature returns the feature with the given name.
func (s *Settings) Feature(name string) (*Feature, bool) {
	for i := range s.Features {
		if s.Features[i].Name == name {
			return &s.Features[i], true
		}
	}
	return nil, false
}

// IsEnabled reports whether f is the active feature.
func (s *Settings) IsEnabled(f *Feature) bool {
	return f != nil && s.ActiveFeature != "" && s.ActiveFeature == f.Name
}

// Enable makes name the single active feature.
func (s *Settings) Enable(name string) error {
	if _, ok := s.Feature(name); !ok {
		return fmt.Errorf("feature %q not found", name)
	}
	s.ActiveFeature = name
	return nil
}

// Disable turns every feature off.
func (s *Settings) Disable() {
	s.ActiveFeature = ""
}

// Load reads the settings file at path. A missing file is recreated with
// empty settings.
func Load(path string) (*Settings, error) {
	f, err := os.Open(path) // #nosec
	if err != nil {
		if os.IsNotExist(err) {
			s := &Settings{}
			if err := Save(path, s); err != nil {
				log.WithError(err).WithField("file", path).Warn("failed to recreate settings file")
			} else {
				log.WithField("file", path).Debug("settings file not found, recreated with defaults")
			}
			return s, nil
		}
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	defer f.Close()
	log.WithField("file", path).Debug("loading settings file")
	return LoadReader(f)
}

// LoadReader reads settings from r.
func LoadReader(r io.Reader) (*Settings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return &s, nil
}

// Save writes the settings to path, replacing any previous file.
func Save(path string, s *Settings) error {
	if s == nil {
		return fmt.Errorf("cannot save settings: no instance")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
