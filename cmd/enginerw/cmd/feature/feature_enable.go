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
	"github.com/apex/log"
	"github.com/modx/enginerw/pkg/rules"
	"github.com/spf13/cobra"
)

func init() {
	FeatureCmd.AddCommand(featureEnableCmd)
	FeatureCmd.AddCommand(featureDisableCmd)
}

// featureEnableCmd represents the feature enable command
var featureEnableCmd = &cobra.Command{
	Use:               "enable <FEATURE>",
	Short:             "Enable a feature, disabling any other",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeFeatures,
	SilenceUsage:      true,
	SilenceErrors:     true,
	RunE: func(cmd *cobra.Command, args []string) error {

		conf, settings, err := loadSettings()
		if err != nil {
			return err
		}
		prev := settings.ActiveFeature
		if err := settings.Enable(args[0]); err != nil {
			return err
		}
		if err := rules.Save(conf.Settings, settings); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"feature":  args[0],
			"previous": prev,
		}).Info("Enabled feature")
		return nil
	},
}

// featureDisableCmd represents the feature disable command
var featureDisableCmd = &cobra.Command{
	Use:           "disable",
	Short:         "Disable every feature",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		conf, settings, err := loadSettings()
		if err != nil {
			return err
		}
		if settings.ActiveFeature == "" {
			log.Info("No feature is enabled")
			return nil
		}
		prev := settings.ActiveFeature
		settings.Disable()
		if err := rules.Save(conf.Settings, settings); err != nil {
			return err
		}
		log.WithField("feature", prev).Info("Disabled feature")
		return nil
	},
}
