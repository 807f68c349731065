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
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/modx/enginerw/internal/colors"
	"github.com/modx/enginerw/internal/config"
	pctx "github.com/modx/enginerw/internal/pipeline/context"
	"github.com/modx/enginerw/internal/rewriter"
	"github.com/modx/enginerw/internal/utils"
	"github.com/modx/enginerw/pkg/rules"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(rewriteCmd)
	rewriteCmd.Flags().StringP("platform", "p", "", "Build target: Android, iOS or OpenHarmony")
	rewriteCmd.Flags().StringSliceP("arch", "a", nil, "Only rewrite these architectures (default is every one the build produced)")
	rewriteCmd.Flags().BoolP("development", "d", false, "Build is a development build")
	rewriteCmd.Flags().Bool("strip-engine-code", false, "Build stripped engine code (symbols come from the project build cache)")
	rewriteCmd.Flags().Bool("simulator", false, "Build targets the iOS simulator SDK")
	rewriteCmd.Flags().StringP("output", "o", "", "Generated platform project the build wrote")
	rewriteCmd.Flags().String("project", ".", "Project the build was made from")
	rewriteCmd.Flags().String("revision", "", "Force the Android disassembly revision (gnu or llvm)")
	rewriteCmd.Flags().String("demangler", "", "Demangler to use (toolchain or native)")
	rewriteCmd.MarkFlagRequired("platform")
	rewriteCmd.MarkFlagRequired("output")
	rewriteCmd.MarkFlagDirname("output")
	rewriteCmd.MarkFlagDirname("project")
	rewriteCmd.RegisterFlagCompletionFunc("platform", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, p := range rules.Platforms {
			out = append(out, string(p))
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
	rewriteCmd.RegisterFlagCompletionFunc("arch", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, a := range rules.Architectures {
			out = append(out, string(a))
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
	viper.BindPFlag("rewrite.platform", rewriteCmd.Flags().Lookup("platform"))
	viper.BindPFlag("rewrite.arch", rewriteCmd.Flags().Lookup("arch"))
	viper.BindPFlag("rewrite.development", rewriteCmd.Flags().Lookup("development"))
	viper.BindPFlag("rewrite.strip-engine-code", rewriteCmd.Flags().Lookup("strip-engine-code"))
	viper.BindPFlag("rewrite.simulator", rewriteCmd.Flags().Lookup("simulator"))
	viper.BindPFlag("rewrite.output", rewriteCmd.Flags().Lookup("output"))
	viper.BindPFlag("rewrite.project", rewriteCmd.Flags().Lookup("project"))
	viper.BindPFlag("toolchain.revision", rewriteCmd.Flags().Lookup("revision"))
	viper.BindPFlag("toolchain.demangler", rewriteCmd.Flags().Lookup("demangler"))
}

// rewriteCmd represents the rewrite command
var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Apply the enabled feature to the libraries of a finished build",
	Example: heredoc.Doc(`
		# Rewrite every ABI of an Android release build
		❯ enginerw rewrite --engine-version 2022.3.1f1 --engine-contents /opt/Editor/Data \
			--platform Android --output Build/launcher/unityLibrary

		# Only arm64, with symbols from a stripped build
		❯ enginerw rewrite -p Android -a ARM64 --strip-engine-code -o Build/unityLibrary --project .

		# iOS static library with the in-process demangler
		❯ enginerw rewrite -p iOS -o Build/Xcode --demangler native`),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		if Verbose {
			log.SetLevel(log.DebugLevel)
		}

		conf, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if conf.Engine.Version == "" {
			return fmt.Errorf("engine version is not set (use --engine-version or engine.version in the config)")
		}

		platform, err := parsePlatform(viper.GetString("rewrite.platform"))
		if err != nil {
			return err
		}
		var archs []rules.Architecture
		for _, a := range viper.GetStringSlice("rewrite.arch") {
			arch, err := parseArchitecture(a)
			if err != nil {
				return err
			}
			archs = append(archs, arch)
		}

		settings, err := rules.Load(conf.Settings)
		if err != nil {
			return err
		}
		if settings.ActiveFeature == "" {
			log.WithField("settings", conf.Settings).Warn("No feature is enabled")
			return nil
		}

		report := rewriter.BuildReport{
			Platform:        platform,
			Architectures:   archs,
			Development:     viper.GetBool("rewrite.development"),
			StripEngineCode: viper.GetBool("rewrite.strip-engine-code"),
			Simulator:       viper.GetBool("rewrite.simulator"),
			OutputPath:      filepath.Clean(viper.GetString("rewrite.output")),
			ProjectPath:     filepath.Clean(viper.GetString("rewrite.project")),
		}

		rw := rewriter.New(settings, conf.Engine.Version, conf.ToolchainOptions(platform))
		rw.Demangler = conf.Demangler()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		log.WithFields(log.Fields{
			"feature":  settings.ActiveFeature,
			"engine":   conf.Engine.Version,
			"platform": platform,
			"variant":  report.Variant(),
		}).Info("Rewriting build")
		for _, line := range summaryLines(settings, conf.Engine.Version) {
			utils.Indent(log.Info, 2)(line)
		}

		outcomes, err := rw.Rewrite(ctx, report)
		for _, o := range outcomes {
			fields := log.Fields{"path": o.Path}
			switch o.State {
			case pctx.Complete:
				fields["rewritten"] = o.Rewritten
				fields["already_patched"] = o.AlreadyPatched
				if o.BackupPath != "" {
					fields["backup"] = o.BackupPath
				}
				log.WithFields(fields).Infof("%s+%s %s", o.Platform, o.Architecture, colors.State(o.State))
			case pctx.Skipped:
				log.WithFields(fields).Warnf("%s+%s %s: %s", o.Platform, o.Architecture, colors.State(o.State), o.Reason)
			default:
				log.WithFields(fields).Errorf("%s+%s %s", o.Platform, o.Architecture, colors.State(o.State))
			}
			for _, s := range o.Skipped {
				utils.Indent(log.Warn, 2)(s)
			}
		}
		return err
	},
}

// summaryLines describes the targets each enabled feature covers for engineVersion.
func summaryLines(s *rules.Settings, engineVersion string) []string {
	summary := s.Summary(engineVersion)
	if len(summary) == 0 {
		return []string{fmt.Sprintf("No rule set of %s matches engine %s", colors.Feature(s.ActiveFeature), engineVersion)}
	}
	var lines []string
	for _, e := range summary {
		lines = append(lines, fmt.Sprintf("%s: %s", colors.Feature(e.Feature), colors.Target(strings.Join(e.Targets, ", "))))
	}
	return lines
}

func parsePlatform(s string) (rules.Platform, error) {
	for _, p := range rules.Platforms {
		if strings.EqualFold(string(p), s) {
			return p, nil
		}
	}
	return "", rules.Configf("Invalid build target: %s", s)
}

func parseArchitecture(s string) (rules.Architecture, error) {
	for _, a := range rules.Architectures {
		if strings.EqualFold(string(a), s) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown architecture %q", s)
}
