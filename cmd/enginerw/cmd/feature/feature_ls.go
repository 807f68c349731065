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
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/modx/enginerw/internal/colors"
	"github.com/modx/enginerw/pkg/table"
	"github.com/spf13/cobra"
)

func init() {
	FeatureCmd.AddCommand(featureLsCmd)
}

// featureLsCmd represents the feature ls command
var featureLsCmd = &cobra.Command{
	Use:           "ls",
	Aliases:       []string{"list"},
	Short:         "List the features in the settings",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		conf, settings, err := loadSettings()
		if err != nil {
			return err
		}
		if len(settings.Features) == 0 {
			fmt.Printf("No features in %s\n", conf.Settings)
			return nil
		}

		tb := table.NewTable()
		tb.SetHeaders("", "FEATURE", "RULE SETS", "RULES")
		tb.SetColumnAlignment(2, lipgloss.Right)
		tb.SetColumnAlignment(3, lipgloss.Right)
		for i := range settings.Features {
			f := &settings.Features[i]
			mark := " "
			name := f.Name
			if settings.IsEnabled(f) {
				mark = colors.Active("*")
				name = colors.Active(f.Name)
			}
			nrules := 0
			for _, rs := range f.RuleSets {
				nrules += len(rs.Rules)
			}
			tb.AppendRow(mark, name, strconv.Itoa(len(f.RuleSets)), strconv.Itoa(nrules))
		}
		return tb.Print(os.Stdout)
	},
}
