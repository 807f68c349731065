package rules

import (
	"fmt"
	"regexp"
)

// Selection is a rule picked for the current build, with the feature it came from.
type Selection struct {
	Feature string
	Rule    *Rule
}

// Select returns the rules of enabled features that apply to the given
// engine version and build target. Within a feature the first rule set whose
// pattern matches engineVersion wins, and within it the first rule whose
// triple matches.
func (s *Settings) Select(engineVersion string, p Platform, a Architecture, v Variant) ([]Selection, error) {
	var out []Selection
	for i := range s.Features {
		f := &s.Features[i]
		if !s.IsEnabled(f) {
			continue
		}
		rs, err := f.RuleSet(engineVersion)
		if err != nil {
			return nil, err
		}
		if rs == nil {
			continue
		}
		for j := range rs.Rules {
			r := &rs.Rules[j]
			if r.Platform != p || r.Architecture != a || r.Variant() != v {
				continue
			}
			if len(r.Symbols) > 0 {
				out = append(out, Selection{Feature: f.Name, Rule: r})
			}
			break
		}
	}
	return out, nil
}

// RuleSet returns the first rule set whose engine version pattern matches
// engineVersion, or nil.
func (f *Feature) RuleSet(engineVersion string) (*RuleSet, error) {
	for i := range f.RuleSets {
		re, err := regexp.Compile(f.RuleSets[i].EngineVersion)
		if err != nil {
			return nil, &ConfigError{
				Feature: f.Name,
				Msg:     fmt.Sprintf("invalid engine version pattern %q", f.RuleSets[i].EngineVersion),
				Err:     err,
			}
		}
		if re.MatchString(engineVersion) {
			return &f.RuleSets[i], nil
		}
	}
	return nil, nil
}

// EnabledTargets describes what an enabled feature will patch.
type EnabledTargets struct {
	Feature string
	Targets []string
}

// Summary lists the enabled features that have a rule set for engineVersion,
// along with the targets their rules cover.
func (s *Settings) Summary(engineVersion string) []EnabledTargets {
	var out []EnabledTargets
	for i := range s.Features {
		f := &s.Features[i]
		if !s.IsEnabled(f) {
			continue
		}
		rs, err := f.RuleSet(engineVersion)
		if err != nil || rs == nil {
			continue
		}
		var targets []string
		for _, r := range rs.Rules {
			targets = append(targets, r.Target())
		}
		if len(targets) > 0 {
			out = append(out, EnabledTargets{Feature: f.Name, Targets: targets})
		}
	}
	return out
}
