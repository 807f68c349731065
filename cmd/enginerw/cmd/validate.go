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
package cmd

import (
	"fmt"

	"github.com/apex/log"
	"github.com/modx/enginerw/internal/colors"
	"github.com/modx/enginerw/internal/config"
	"github.com/modx/enginerw/pkg/rules"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:           "validate",
	Short:         "Check the rewriter settings for errors",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		if Verbose {
			log.SetLevel(log.DebugLevel)
		}

		conf, settings, err := config.LoadSettings()
		if err != nil {
			return err
		}

		report := rules.Validate(settings)
		if report.OK() {
			fmt.Printf("%s %s (%d features)\n", colors.OK("OK"), conf.Settings, len(settings.Features))
			return nil
		}

		for _, fe := range report.Features {
			if fe.Errors == nil || len(fe.Errors.Errors) == 0 {
				continue
			}
			fmt.Printf("Errors in the feature (%s)\n", colors.Feature(fe.Feature))
			for _, err := range fe.Errors.Errors {
				fmt.Printf("  %s %s\n", colors.Error("✗"), err)
			}
		}
		return fmt.Errorf("%s is invalid", conf.Settings)
	},
}
