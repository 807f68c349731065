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
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/modx/enginerw/cmd/enginerw/cmd/archive"
	"github.com/modx/enginerw/cmd/enginerw/cmd/feature"
	"github.com/modx/enginerw/internal/colors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// Verbose boolean flag for verbose logging
	Verbose bool
	// Color boolean flag for colorized output
	Color bool
	// NoColor boolean flag to disable colorized output
	NoColor bool
	// AppVersion stores the plugin's version
	AppVersion string
	// AppBuildTime stores the plugin's build time
	AppBuildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "enginerw",
	Short: "Rewrite machine code in engine player libraries after a build",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	log.SetHandler(clihander.Default)

	cobra.OnInitialize(initConfig)

	// Flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/enginerw/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&Color, "color", false, "force colorized output")
	rootCmd.PersistentFlags().BoolVar(&NoColor, "no-color", false, "disable colorized output")
	rootCmd.MarkFlagsMutuallyExclusive("color", "no-color")
	rootCmd.PersistentFlags().StringP("settings", "s", "", "rewriter settings file (default is ProjectSettings/EngineBinaryRewriterSettings.yaml)")
	rootCmd.PersistentFlags().String("engine-version", "", "engine version the build was made with")
	rootCmd.PersistentFlags().String("engine-contents", "", "engine data directory (Editor/Data or the app bundle's Contents)")
	rootCmd.MarkPersistentFlagFilename("settings", "yaml", "yml")
	rootCmd.MarkPersistentFlagDirname("engine-contents")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("settings", rootCmd.PersistentFlags().Lookup("settings"))
	viper.BindPFlag("engine.version", rootCmd.PersistentFlags().Lookup("engine-version"))
	viper.BindPFlag("engine.contents", rootCmd.PersistentFlags().Lookup("engine-contents"))
	// Add subcommand groups
	rootCmd.AddCommand(archive.ArchiveCmd)
	rootCmd.AddCommand(feature.FeatureCmd)
	// Settings
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "enginerw"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	switch {
	case Color:
		colors.Init(&Color)
	case NoColor:
		off := false
		colors.Init(&off)
	}

	viper.SetEnvPrefix("enginerw")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{
		"toolchain.revision",
		"toolchain.demangler",
		"toolchain.android_bin",
		"toolchain.openharmony_sdk",
		"toolchain.ios_tools",
	} {
		viper.BindEnv(key)
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
