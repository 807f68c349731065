/*
Copyright © 2023-2024 modx

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package feature

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/modx/enginerw/internal/colors"
	"github.com/modx/enginerw/pkg/decode"
	"github.com/modx/enginerw/pkg/rules"
	"github.com/spf13/cobra"
)

func init() {
	FeatureCmd.AddCommand(featureShowCmd)
	featureShowCmd.Flags().StringP("engine-version", "e", "", "Only show the rule set selected for this engine version")
}

// featureShowCmd represents the feature show command
var featureShowCmd = &cobra.Command{
	Use:   "show <FEATURE>",
	Short: "Print a feature's rules with the machine code decoded",
	Example: heredoc.Doc(`
		# Show every rule set of a feature
		❯ enginerw feature show FixThreadedStreamBuffer

		# Show the rule set a 2022.3 engine would use
		❯ enginerw feature show FixThreadedStreamBuffer -e 2022.3.1f1`),
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeFeatures,
	SilenceUsage:      true,
	SilenceErrors:     true,
	RunE: func(cmd *cobra.Command, args []string) error {

		_, settings, err := loadSettings()
		if err != nil {
			return err
		}
		f, ok := settings.Feature(args[0])
		if !ok {
			return fmt.Errorf("feature %q not found", args[0])
		}

		sets := f.RuleSets
		if ev, _ := cmd.Flags().GetString("engine-version"); ev != "" {
			rs, err := f.RuleSet(ev)
			if err != nil {
				return err
			}
			if rs == nil {
				return fmt.Errorf("feature %q has no rule set for engine %s", f.Name, ev)
			}
			sets = []rules.RuleSet{*rs}
		}

		state := "disabled"
		if settings.IsEnabled(f) {
			state = "enabled"
		}
		fmt.Printf("%s (%s)\n", colors.Feature(f.Name), state)
		for _, rs := range sets {
			fmt.Printf("\nengine %s\n", rs.EngineVersion)
			for _, r := range rs.Rules {
				fmt.Printf("  %s\n", colors.Target(r.Target()))
				for _, sym := range r.Symbols {
					fmt.Printf("    %s %s\n", colors.Symbol(sym.DemangledName), colors.Faint(sym.Pattern))
					for i, inst := range sym.Instructions {
						fmt.Printf("      #%d %s\n", i, describe(r.Architecture, inst))
					}
				}
			}
		}
		return nil
	},
}

func describe(arch rules.Architecture, inst rules.Instruction) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s -> %s %s",
		inst.OriginalMachineCode, decoded(arch, inst.OriginalMachineCode, inst.OriginalDescription),
		inst.NewMachineCode, decoded(arch, inst.NewMachineCode, inst.NewDescription))
	if inst.Index != nil {
		fmt.Fprintf(&sb, " (index %d)", *inst.Index)
	}
	return sb.String()
}

// decoded prefers the disassembled form and falls back to the rule's own description.
func decoded(arch rules.Architecture, code rules.MachineCode, desc string) string {
	b, err := code.Bytes()
	if err == nil {
		if s, err := decode.Describe(arch, b); err == nil {
			return colors.Faint("(" + s + ")")
		}
	}
	if desc != "" {
		return colors.Faint("(" + desc + ")")
	}
	return ""
}
