package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// supported lists the architectures each build target ships.
var supported = map[Platform][]Architecture{
	Android:     {ARMv7, ARM64, X86, X86_64},
	IOS:         {ARM64},
	OpenHarmony: {ARMv7, ARM64, X86_64},
}

// Report is the outcome of Validate.
type Report struct {
	// Features maps a feature name to its errors, in settings order.
	Features []FeatureErrors
}

// FeatureErrors collects the errors found in one feature.
type FeatureErrors struct {
	Feature string
	Errors  *multierror.Error
}

// OK reports whether no error was found.
func (r *Report) OK() bool { return r.ErrorOrNil() == nil }

// ErrorOrNil flattens the report into a single error.
func (r *Report) ErrorOrNil() error {
	var merr *multierror.Error
	for _, fe := range r.Features {
		if fe.Errors == nil {
			continue
		}
		merr = multierror.Append(merr, fe.Errors.Errors...)
	}
	if merr == nil {
		return nil
	}
	merr.ErrorFormat = func([]error) string { return r.String() }
	return merr.ErrorOrNil()
}

// String renders the multi-line report, empty when there is nothing to say.
func (r *Report) String() string {
	var sb strings.Builder
	for _, fe := range r.Features {
		if fe.Errors == nil || len(fe.Errors.Errors) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "Errors in the feature (%s)\n", fe.Feature)
		for _, err := range fe.Errors.Errors {
			fmt.Fprintf(&sb, "  %s\n", err)
		}
	}
	return sb.String()
}

// Validate walks the whole settings tree and collects every error. It never
// stops at the first problem; the caller decides what to do with the report.
func Validate(s *Settings) *Report {
	r := &Report{}
	if s == nil {
		return r
	}

	seen := make(map[string]bool)
	for _, f := range s.Features {
		var merr *multierror.Error
		add := func(symbol, format string, args ...any) {
			merr = multierror.Append(merr, &ConfigError{
				Feature: f.Name,
				Symbol:  symbol,
				Msg:     fmt.Sprintf(format, args...),
			})
		}

		if f.Name == "" {
			add("", "Feature's Name is empty")
		} else if seen[f.Name] {
			add("", "Feature's Name is duplicated")
		}
		seen[f.Name] = true

		if len(f.RuleSets) == 0 {
			add("", "Feature's RuleSets is empty")
		}
		for _, rs := range f.RuleSets {
			validateRuleSet(rs, add)
		}
		r.Features = append(r.Features, FeatureErrors{Feature: f.Name, Errors: merr})
	}

	if s.ActiveFeature != "" && !seen[s.ActiveFeature] {
		r.Features = append(r.Features, FeatureErrors{
			Feature: s.ActiveFeature,
			Errors: multierror.Append(nil, &ConfigError{
				Feature: s.ActiveFeature,
				Msg:     "Active feature does not exist",
			}),
		})
	}

	return r
}

func validateRuleSet(rs RuleSet, add func(symbol, format string, args ...any)) {
	if rs.EngineVersion == "" {
		add("", "RuleSet's EngineVersion is empty")
	} else if _, err := regexp.Compile(rs.EngineVersion); err != nil {
		add("", "RuleSet's EngineVersion is not a valid regular expression: %v", err)
	}

	triples := make(map[string]bool)
	for _, rule := range rs.Rules {
		if !IsValidBuildTarget(rule.Platform) {
			add("", "Invalid build target: %s", rule.Platform)
		} else if !IsSupportedArchitecture(rule.Platform, rule.Architecture) {
			add("", "Invalid architecture for %s: %s", rule.Platform, rule.Architecture)
		}
		if triples[rule.Target()] {
			add("", "Rule is duplicated: %s", rule.Target())
		}
		triples[rule.Target()] = true

		for _, sym := range rule.Symbols {
			validateSymbol(rule, sym, add)
		}
	}
}

func validateSymbol(rule Rule, sym Symbol, add func(symbol, format string, args ...any)) {
	if sym.Pattern == "" {
		add("", "Symbol's Pattern is empty")
	} else if re, err := regexp.Compile(sym.Pattern); err != nil {
		add(sym.Pattern, "Symbol's Pattern is not a valid regular expression: %v", err)
	} else if rule.Platform == IOS && re.NumSubexp() != 1 {
		add(sym.Pattern, "Symbol's Pattern should have one group capturing the object file")
	}
	if sym.DemangledName == "" {
		add(sym.Pattern, "Symbol's DemangledName is empty")
	}

	if len(sym.Instructions) == 0 {
		add(sym.Pattern, "Symbol's Instructions is empty")
		return
	}

	for _, inst := range sym.Instructions {
		if inst.OriginalMachineCode == "" {
			add(sym.Pattern, "Instruction's OriginalMachineCode is empty")
		} else if !ValidateMachineCode(inst.OriginalMachineCode, rule.Architecture) {
			add(sym.Pattern, "Instruction's OriginalMachineCode is invalid")
		}
		if inst.NewMachineCode == "" {
			add(sym.Pattern, "Instruction's NewMachineCode is empty")
		} else if !ValidateMachineCode(inst.NewMachineCode, rule.Architecture) {
			add(sym.Pattern, "Instruction's NewMachineCode is invalid")
		}
		if len(inst.OriginalMachineCode) != len(inst.NewMachineCode) {
			add(sym.Pattern, "Instruction's OriginalMachineCode and NewMachineCode differ in length")
		}
		if inst.Index != nil && *inst.Index < 0 {
			add(sym.Pattern, "Instruction's Index is negative")
		}
	}
}

// IsValidBuildTarget reports whether p is a platform rules can target.
func IsValidBuildTarget(p Platform) bool {
	_, ok := supported[p]
	return ok
}

// IsSupportedArchitecture reports whether p ships libraries for a.
func IsSupportedArchitecture(p Platform, a Architecture) bool {
	for _, arch := range supported[p] {
		if arch == a {
			return true
		}
	}
	return false
}

// ValidateMachineCode checks the length and hex format of code for arch.
func ValidateMachineCode(code MachineCode, arch Architecture) bool {
	n := len(code)
	switch arch {
	case ARMv7:
		if n != 4 && n != 8 {
			return false
		}
	case ARM64:
		if n != 8 {
			return false
		}
	case X86, X86_64:
		if n < 2 || n > 30 || n%2 != 0 {
			return false
		}
	default:
		return false
	}
	_, err := code.Bytes()
	return err == nil
}
