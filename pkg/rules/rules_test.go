package rules

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settingsYAML = `active_feature: Fix Freezing in AsyncResourceUploadBlocking
features:
  - name: Fix Freezing in AsyncResourceUploadBlocking
    rule_sets:
      - engine_version: ^2021\.3\.
        rules:
          - platform: Android
            architecture: ARM64
            symbols:
              - demangled_name: AsyncUploadManager::AsyncResourceUploadBlocking(ThreadedStreamBuffer&)
                pattern: ^.*_ZN18AsyncUploadManager27AsyncResourceUploadBlocking.*$
                instructions:
                  - original_description: b.ne
                    original_machine_code: "41000054"
                    new_description: nop
                    new_machine_code: "1f2003d5"
          - platform: iOS
            architecture: ARM64
            development: true
            symbols:
              - demangled_name: AsyncUploadManager::AsyncResourceUploadBlocking(ThreadedStreamBuffer&)
                pattern: ^libiPhone-lib\.tmp\.a:(\w+\.o):.*_ZN18AsyncUploadManager.*$
                instructions:
                  - original_machine_code: "41000054"
                    index: 1
                    new_machine_code: "1f2003d5"
      - engine_version: ^2022\.
        rules:
          - platform: Android
            architecture: ARMv7
            symbols:
              - demangled_name: Foo::bar()
                pattern: ^.*_ZN3Foo3barEv$
                instructions:
                  - original_machine_code: "01d1"
                    new_machine_code: "00bf"
  - name: Disable Asset Bundle Compatibility Checks
    rule_sets:
      - engine_version: .*
        rules:
          - platform: Android
            architecture: ARM64
            symbols:
              - demangled_name: Foo::bar()
                pattern: _ZN3Foo3barEv
                instructions:
                  - original_machine_code: "20008052"
                    new_machine_code: "00008052"
`

func loadTestSettings(t *testing.T) *Settings {
	t.Helper()
	s, err := LoadReader(strings.NewReader(settingsYAML))
	require.NoError(t, err)
	return s
}

func TestLoadReader(t *testing.T) {
	s := loadTestSettings(t)

	require.Len(t, s.Features, 2)
	f := s.Features[0]
	require.Len(t, f.RuleSets, 2)
	rule := f.RuleSets[0].Rules[1]
	assert.Equal(t, IOS, rule.Platform)
	assert.Equal(t, Development, rule.Variant())
	assert.Equal(t, "iOS+ARM64+Development", rule.Target())

	inst := rule.Symbols[0].Instructions[0]
	assert.Equal(t, 1, inst.IndexOr(-1))
	assert.Equal(t, -1, f.RuleSets[0].Rules[0].Symbols[0].Instructions[0].IndexOr(-1))

	code, err := inst.NewMachineCode.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x20, 0x03, 0xd5}, code)
}

func TestLoadMissingFileRecreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	s, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, s.Features)
	assert.Empty(t, s.ActiveFeature)
	assert.FileExists(t, path)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, again.Features)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	s := loadTestSettings(t)

	require.NoError(t, Save(path, s))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestEnableIsExclusive(t *testing.T) {
	s := loadTestSettings(t)

	require.NoError(t, s.Enable("Disable Asset Bundle Compatibility Checks"))
	assert.False(t, s.IsEnabled(&s.Features[0]))
	assert.True(t, s.IsEnabled(&s.Features[1]))

	assert.Error(t, s.Enable("does not exist"))
	assert.True(t, s.IsEnabled(&s.Features[1]))

	s.Disable()
	for i := range s.Features {
		assert.False(t, s.IsEnabled(&s.Features[i]))
	}
}

func TestSelect(t *testing.T) {
	s := loadTestSettings(t)

	tests := []struct {
		name    string
		version string
		arch    Architecture
		variant Variant
		want    int
	}{
		{"match", "2021.3.5f1", ARM64, Release, 1},
		{"variant mismatch", "2021.3.5f1", ARM64, Development, 0},
		{"arch mismatch", "2021.3.5f1", X86, Release, 0},
		{"second rule set", "2022.3.1f1", ARMv7, Release, 1},
		{"first rule set wins", "2021.3.5f1", ARMv7, Release, 0},
		{"no version", "2020.1.0f1", ARM64, Release, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Select(tt.version, Android, tt.arch, tt.variant)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			for _, sel := range got {
				assert.Equal(t, s.ActiveFeature, sel.Feature)
			}
		})
	}
}

func TestSelectDisabled(t *testing.T) {
	s := loadTestSettings(t)
	s.Disable()
	got, err := s.Select("2021.3.5f1", Android, ARM64, Release)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummary(t *testing.T) {
	s := loadTestSettings(t)
	got := s.Summary("2021.3.5f1")
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Android+ARM64+Release", "iOS+ARM64+Development"}, got[0].Targets)
}

func TestValidate(t *testing.T) {
	s := loadTestSettings(t)
	r := Validate(s)
	assert.True(t, r.OK(), r.String())
	assert.Empty(t, r.String())
	assert.NoError(t, r.ErrorOrNil())
}

func TestValidateCollectsErrors(t *testing.T) {
	s := &Settings{
		ActiveFeature: "ghost",
		Features: []Feature{
			{
				Name: "",
				RuleSets: []RuleSet{{
					EngineVersion: "(",
					Rules: []Rule{
						{Platform: "Switch", Architecture: ARM64},
						{Platform: IOS, Architecture: ARMv7},
						{
							Platform:     IOS,
							Architecture: ARM64,
							Symbols: []Symbol{
								{Pattern: "no group", DemangledName: "f()", Instructions: []Instruction{{OriginalMachineCode: "zz000000", NewMachineCode: "1f2003d5"}}},
								{Pattern: "(x)", DemangledName: ""},
							},
						},
						{Platform: IOS, Architecture: ARM64},
					},
				}},
			},
		},
	}

	r := Validate(s)
	require.False(t, r.OK())

	report := r.String()
	for _, want := range []string{
		"Errors in the feature ()",
		"Feature's Name is empty",
		"RuleSet's EngineVersion is not a valid regular expression",
		"Invalid build target: Switch",
		"Invalid architecture for iOS: ARMv7",
		"Rule is duplicated: iOS+ARM64+Release",
		"Symbol's Pattern should have one group capturing the object file",
		"Instruction's OriginalMachineCode is invalid (Symbol: no group)",
		"Symbol's DemangledName is empty (Symbol: (x))",
		"Symbol's Instructions is empty (Symbol: (x))",
		"Errors in the feature (ghost)",
	} {
		assert.Contains(t, report, want)
	}

	err := r.ErrorOrNil()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	var cerr *ConfigError
	assert.True(t, errors.As(err, &cerr))
}

func TestValidateMachineCode(t *testing.T) {
	tests := []struct {
		code MachineCode
		arch Architecture
		want bool
	}{
		{"00bf", ARMv7, true},
		{"e320f000", ARMv7, true},
		{"e320f0", ARMv7, false},
		{"1f2003d5", ARM64, true},
		{"1f20", ARM64, false},
		{"1f2003dx", ARM64, false},
		{"90", X86, true},
		{"0f1f440000", X86_64, true},
		{"0f1f44000", X86_64, false},
		{MachineCode(strings.Repeat("90", 15)), X86_64, true},
		{MachineCode(strings.Repeat("90", 16)), X86_64, false},
		{"90", "MIPS", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateMachineCode(tt.code, tt.arch), "%s/%s", tt.code, tt.arch)
	}
}
