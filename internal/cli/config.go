package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/zhouruiyy/framework-auto-builder/pkg/pipeline"
	"github.com/zhouruiyy/framework-auto-builder/pkg/symbols"
)

// ConfigFileName is looked up in the source tree root (and the working
// directory) unless --config points elsewhere.
const ConfigFileName = "framebuild.toml"

// Config mirrors the framebuild.toml layout. All fields are optional;
// flags override anything set here.
//
//	module = "MyKit"
//	min_os_version = "13.0"
//
//	[build]
//	platforms = ["ios-device", "ios-simulator"]
//	duplicate_symbol_policy = "auto-exclude"
//	allow_partial_platforms = false
//	output = "build"
//	workers = 4
type Config struct {
	Module       string      `toml:"module"`
	MinOSVersion string      `toml:"min_os_version"`
	Build        BuildConfig `toml:"build"`
}

// BuildConfig is the [build] table.
type BuildConfig struct {
	Platforms     []string `toml:"platforms"`
	Policy        string   `toml:"duplicate_symbol_policy"`
	AllowPartial  bool     `toml:"allow_partial_platforms"`
	StopOnFailure bool     `toml:"stop_on_failure"`
	Output        string   `toml:"output"`
	Workers       int      `toml:"workers"`
}

// loadConfig reads the config file at path. A missing file is not an
// error; it yields the zero config.
func loadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// findConfig resolves the config path: an explicit --config wins, then
// <sourceRoot>/framebuild.toml, then ./framebuild.toml.
func findConfig(explicit, sourceRoot string) string {
	if explicit != "" {
		return explicit
	}
	if sourceRoot != "" {
		if candidate := filepath.Join(sourceRoot, ConfigFileName); exists(candidate) {
			return candidate
		}
	}
	return ConfigFileName
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// apply fills unset pipeline options from the config file. Booleans
// cannot signal "unset" through their zero value; applyBoolFlags merges
// them using flag change tracking instead.
func (c *Config) apply(opts *pipeline.Options) {
	if opts.ModuleName == "" {
		opts.ModuleName = c.Module
	}
	if opts.MinOSVersion == "" {
		opts.MinOSVersion = c.MinOSVersion
	}
	if len(opts.Platforms) == 0 {
		opts.Platforms = c.Build.Platforms
	}
	if opts.Policy == "" && c.Build.Policy != "" {
		opts.Policy = symbols.Policy(c.Build.Policy)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = c.Build.Output
	}
	if opts.Workers == 0 {
		opts.Workers = c.Build.Workers
	}
}

// applyBoolFlags merges the boolean build options: a flag given on the
// command line wins even when it resets a value the config file enables.
func (c *Config) applyBoolFlags(flags *pflag.FlagSet, opts *pipeline.Options) {
	if !flags.Changed("allow-partial") {
		opts.AllowPartial = c.Build.AllowPartial
	}
	if !flags.Changed("stop-on-failure") {
		opts.StopOnFailure = c.Build.StopOnFailure
	}
}
