// Package config is used to load the configuration file
package config

import (
	"fmt"
	"strings"

	"github.com/modx/enginerw/pkg/demangle"
	"github.com/modx/enginerw/pkg/locate"
	"github.com/modx/enginerw/pkg/rules"
	"github.com/modx/enginerw/pkg/toolchain"
	"github.com/spf13/viper"
)

const (
	// DemanglerToolchain runs the platform's c++filt.
	DemanglerToolchain = "toolchain"
	// DemanglerNative demangles in process.
	DemanglerNative = "native"
)

type engine struct {
	// Version is the engine version rules are selected for, e.g. 2022.3.1f1.
	Version string `json:"version" mapstructure:"version"`
	// Contents is the engine's data directory (Editor/Data, or the app bundle's Contents).
	Contents string `json:"contents" mapstructure:"contents"`
}

type tools struct {
	// Revision forces the Android disassembly revision: gnu or llvm.
	Revision       string `json:"revision,omitempty" mapstructure:"revision" jsonschema:"enum=default,enum=gnu,enum=llvm"`
	Demangler      string `json:"demangler,omitempty" mapstructure:"demangler" jsonschema:"enum=toolchain,enum=native"`
	AndroidBin     string `json:"android_bin,omitempty" mapstructure:"android_bin"`
	OpenHarmonySDK string `json:"openharmony_sdk,omitempty" mapstructure:"openharmony_sdk"`
	IOSTools       string `json:"ios_tools,omitempty" mapstructure:"ios_tools"`

	revision toolchain.Revision
}

// Config is the configuration struct
type Config struct {
	// Settings is the rule settings file.
	Settings  string `json:"settings" mapstructure:"settings"`
	Engine    engine `json:"engine" mapstructure:"engine"`
	Toolchain tools  `json:"toolchain" mapstructure:"toolchain"`
}

func (c *Config) verify() error {
	if c.Settings == "" {
		c.Settings = rules.DefaultPath
	}

	rev, err := toolchain.ParseRevision(c.Toolchain.Revision)
	if err != nil {
		return err
	}
	c.Toolchain.revision = rev

	switch strings.ToLower(c.Toolchain.Demangler) {
	case "":
		c.Toolchain.Demangler = DemanglerToolchain
	case DemanglerToolchain, DemanglerNative:
		c.Toolchain.Demangler = strings.ToLower(c.Toolchain.Demangler)
	default:
		return fmt.Errorf("unknown demangler %q (expected %s or %s)", c.Toolchain.Demangler, DemanglerToolchain, DemanglerNative)
	}

	return nil
}

// ToolchainOptions returns the tool discovery options for building p.
func (c *Config) ToolchainOptions(p rules.Platform) toolchain.Options {
	opts := toolchain.Options{
		EngineContents: c.Engine.Contents,
		EngineVersion:  c.Engine.Version,
		Revision:       c.Toolchain.revision,
	}
	switch p {
	case rules.Android:
		opts.ToolDir = c.Toolchain.AndroidBin
	case rules.OpenHarmony:
		opts.ToolDir = c.Toolchain.OpenHarmonySDK
	case rules.IOS:
		opts.ToolDir = c.Toolchain.IOSTools
	}
	return opts
}

// Demangler returns the in-process demangler when configured, nil otherwise.
func (c *Config) Demangler() locate.Demangler {
	if c.Toolchain.Demangler == DemanglerNative {
		return demangle.Native{}
	}
	return nil
}

// LoadConfig loads the configuration file
func LoadConfig() (*Config, error) {
	var c *Config

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}
	if c == nil {
		c = &Config{}
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %v", err)
	}

	return c, nil
}

// LoadSettings loads the configuration and the rule settings file it names.
func LoadSettings() (*Config, *rules.Settings, error) {
	c, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	s, err := rules.Load(c.Settings)
	if err != nil {
		return nil, nil, err
	}
	return c, s, nil
}
