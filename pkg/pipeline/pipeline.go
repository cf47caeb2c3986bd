// Package pipeline runs the complete framework assembly:
// analyze → graph → symbols → synthesize → build → merge.
//
// Each stage consumes the previous stage's output read-only. Analysis
// failures are per-file and recoverable; a dependency cycle or a
// fail-fast collision aborts the run before any build is attempted. The
// per-platform build stage is the only parallel unit of work.
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    ModuleName: "MyKit",
//	    Platforms:  []string{"ios-device", "ios-simulator"},
//	    OutputDir:  "build",
//	}
//	result, err := runner.Execute(ctx, tree, opts)
//
// The run always persists a build summary under OutputDir, even when it
// fails before producing a bundle.
package pipeline

import (
	"io"
	"regexp"

	"github.com/charmbracelet/log"

	"github.com/zhouruiyy/framework-auto-builder/pkg/errors"
	"github.com/zhouruiyy/framework-auto-builder/pkg/symbols"
	"github.com/zhouruiyy/framework-auto-builder/pkg/toolchain"
)

// Default values shared by CLI and library callers.
const (
	// DefaultOutputDir is where the bundle and summary land when the
	// caller does not choose a location.
	DefaultOutputDir = "build"

	// DefaultWorkers bounds concurrent platform builds.
	DefaultWorkers = 4
)

// SummaryFileName is the build summary written into the output directory.
const SummaryFileName = "xcframework_build_summary.json"

var reModuleName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for config files.
type Options struct {
	// ModuleName names the framework; it must be a valid C identifier
	// since it becomes the umbrella header's module prefix.
	ModuleName string `json:"module_name"`

	// Platforms are build target identifiers (see toolchain.TargetIDs).
	// Empty selects every default target.
	Platforms []string `json:"platforms,omitempty"`

	// Policy decides what happens when a symbol is declared by more
	// than one file. Defaults to auto-exclude.
	Policy symbols.Policy `json:"duplicate_symbol_policy,omitempty"`

	// AllowPartial emits a bundle from the successful slices when some
	// platforms fail. Off by default: any failed platform fails the run
	// and no bundle is produced.
	AllowPartial bool `json:"allow_partial_platforms,omitempty"`

	// StopOnFailure cancels remaining platform builds after the first
	// failure.
	StopOnFailure bool `json:"stop_on_failure,omitempty"`

	// OutputDir receives the bundle and the build summary.
	OutputDir string `json:"output_path,omitempty"`

	// Workers bounds concurrent platform builds.
	Workers int `json:"workers,omitempty"`

	// Refresh bypasses the analysis cache for reads.
	Refresh bool `json:"refresh,omitempty"`

	// KeepWork leaves the scratch directory (generated project,
	// per-target build output) behind for inspection.
	KeepWork bool `json:"keep_work,omitempty"`

	// MinOSVersion overrides the per-target deployment minimum in the
	// generated project. Empty keeps the target table's values.
	MinOSVersion string `json:"min_os_version,omitempty"`

	// Runtime options (not serialized).
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`

	targets []toolchain.Target
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// Idempotent: calling it twice has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.ModuleName == "" {
		return errors.New(errors.CodeInvalidConfig, errors.StageAnalyze, "module name is required")
	}
	if !reModuleName.MatchString(o.ModuleName) {
		return errors.New(errors.CodeInvalidConfig, errors.StageAnalyze,
			"module name %q is not a valid identifier", o.ModuleName)
	}

	if o.Policy == "" {
		o.Policy = symbols.DefaultPolicy
	}
	if !symbols.ValidPolicy(o.Policy) {
		return errors.New(errors.CodeInvalidConfig, errors.StageSymbols,
			"unknown duplicate symbol policy %q", o.Policy)
	}

	if len(o.Platforms) == 0 {
		o.Platforms = toolchain.TargetIDs()
	}
	for _, id := range o.Platforms {
		target, ok := toolchain.Lookup(id)
		if !ok {
			return errors.New(errors.CodeInvalidConfig, errors.StageBuild,
				"unknown platform %q (valid: %v)", id, toolchain.TargetIDs())
		}
		if o.MinOSVersion != "" {
			target.MinOSVersion = o.MinOSVersion
		}
		o.targets = append(o.targets, target)
	}

	if o.OutputDir == "" {
		o.OutputDir = DefaultOutputDir
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Targets returns the resolved build targets. Only valid after
// ValidateAndSetDefaults.
func (o *Options) Targets() []toolchain.Target {
	return o.targets
}
