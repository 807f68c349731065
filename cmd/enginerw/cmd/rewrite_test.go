package cmd

import (
	"errors"
	"testing"

	"github.com/modx/enginerw/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		in   string
		want rules.Platform
	}{
		{"Android", rules.Android},
		{"ios", rules.IOS},
		{"OPENHARMONY", rules.OpenHarmony},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePlatform(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parsePlatform("WebGL")
	assert.True(t, errors.Is(err, rules.ErrConfiguration))
}

func TestParseArchitecture(t *testing.T) {
	got, err := parseArchitecture("arm64")
	require.NoError(t, err)
	assert.Equal(t, rules.ARM64, got)

	got, err = parseArchitecture("x86_64")
	require.NoError(t, err)
	assert.Equal(t, rules.X86_64, got)

	_, err = parseArchitecture("mips")
	assert.Error(t, err)
}

func TestSummaryLines(t *testing.T) {
	s := &rules.Settings{
		ActiveFeature: "Fix",
		Features: []rules.Feature{{
			Name: "Fix",
			RuleSets: []rules.RuleSet{{
				EngineVersion: `^2022\.`,
				Rules: []rules.Rule{
					{Platform: rules.Android, Architecture: rules.ARM64, Symbols: []rules.Symbol{{Pattern: "x"}}},
					{Platform: rules.IOS, Architecture: rules.ARM64, Development: true, Symbols: []rules.Symbol{{Pattern: "y"}}},
				},
			}},
		}},
	}

	lines := summaryLines(s, "2022.3.1f1")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Fix")
	assert.Contains(t, lines[0], string(rules.Android))
	assert.Contains(t, lines[0], string(rules.IOS))

	lines = summaryLines(s, "2021.3.5f1")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "No rule set")
}
