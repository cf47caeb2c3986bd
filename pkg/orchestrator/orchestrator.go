// Package orchestrator fans platform builds out across a bounded worker
// pool and collects one slice result per target.
package orchestrator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/zhouruiyy/framework-auto-builder/pkg/errors"
	"github.com/zhouruiyy/framework-auto-builder/pkg/toolchain"
)

const defaultWorkers = 4

// Status classifies the outcome of a single platform build.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Slice is the outcome of building one target.
type Slice struct {
	Target       toolchain.Target
	Status       Status
	ArtifactPath string
	Log          string
	Err          error
}

// Options configures an orchestrated build run.
type Options struct {
	// Workers bounds concurrent toolchain invocations. Defaults to 4.
	Workers int

	// StopOnFailure cancels in-flight builds once any target fails.
	// Targets that never started are reported as skipped.
	StopOnFailure bool

	Logger *log.Logger
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Orchestrator runs one toolchain build per target in parallel.
type Orchestrator struct {
	tc   toolchain.Toolchain
	opts Options
}

// New creates an Orchestrator backed by tc.
func New(tc toolchain.Toolchain, opts Options) *Orchestrator {
	return &Orchestrator{tc: tc, opts: opts.WithDefaults()}
}

// Plan names the shared inputs of a build run. Every target builds the
// same project and scheme; only the SDK, destination, and work directory
// differ per slice.
type Plan struct {
	ModuleName  string
	ProjectPath string
	Scheme      string

	// WorkRoot holds one subdirectory per target so concurrent builds
	// never share intermediate output.
	WorkRoot string

	Targets []toolchain.Target
}

// BuildAll builds every target in the plan and returns one slice per
// target, in the plan's target order regardless of completion order.
func (o *Orchestrator) BuildAll(ctx context.Context, plan Plan) ([]Slice, error) {
	if len(plan.Targets) == 0 {
		return nil, errors.New(errors.CodeInvalidConfig, errors.StageBuild, "no build targets selected")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slices := make([]Slice, len(plan.Targets))
	jobs := make(chan int, len(plan.Targets))

	var wg sync.WaitGroup
	for range o.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				slices[i] = o.buildOne(ctx, plan, plan.Targets[i])
				if slices[i].Status == StatusFailed && o.opts.StopOnFailure {
					cancel()
				}
			}
		}()
	}

	for i := range plan.Targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return slices, nil
}

func (o *Orchestrator) buildOne(ctx context.Context, plan Plan, target toolchain.Target) Slice {
	slice := Slice{Target: target}
	if ctx.Err() != nil {
		slice.Status = StatusSkipped
		return slice
	}

	o.opts.Logger.Info("building platform slice", "target", target.ID, "sdk", target.SDK)

	req := toolchain.Request{
		ModuleName:  plan.ModuleName,
		ProjectPath: plan.ProjectPath,
		Scheme:      plan.Scheme,
		Target:      target,
		WorkDir:     filepath.Join(plan.WorkRoot, target.ID),
	}
	res, err := o.tc.Build(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			slice.Status = StatusSkipped
			return slice
		}
		slice.Status = StatusFailed
		slice.Err = errors.Wrap(errors.CodePlatformBuildFailure, errors.StageBuild, err,
			"build %s", target.ID)
		return slice
	}

	slice.Log = res.Log
	if !res.Success {
		slice.Status = StatusFailed
		slice.Err = errors.New(errors.CodePlatformBuildFailure, errors.StageBuild,
			"toolchain reported failure for %s", target.ID)
		o.opts.Logger.Error("platform build failed", "target", target.ID)
		return slice
	}

	if err := validateArtifact(res.ArtifactPath); err != nil {
		slice.Status = StatusFailed
		slice.Err = err
		o.opts.Logger.Error("artifact missing after successful build", "target", target.ID)
		return slice
	}

	slice.Status = StatusSucceeded
	slice.ArtifactPath = res.ArtifactPath
	o.opts.Logger.Info("platform slice ready", "target", target.ID, "artifact", res.ArtifactPath)
	return slice
}

// validateArtifact checks the reported artifact exists and is non-empty.
// A build that exits zero without producing output is still a failure.
func validateArtifact(path string) error {
	if path == "" {
		return errors.New(errors.CodeMissingArtifact, errors.StageBuild,
			"toolchain produced no artifact path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(errors.CodeMissingArtifact, errors.StageBuild, err,
			"artifact not found at %s", path)
	}
	if info.IsDir() {
		empty, err := dirEmpty(path)
		if err != nil {
			return errors.Wrap(errors.CodeMissingArtifact, errors.StageBuild, err,
				"artifact unreadable at %s", path)
		}
		if empty {
			return errors.New(errors.CodeMissingArtifact, errors.StageBuild,
				"artifact directory is empty at %s", path)
		}
		return nil
	}
	if info.Size() == 0 {
		return errors.New(errors.CodeMissingArtifact, errors.StageBuild,
			"artifact is empty at %s", path)
	}
	return nil
}

func dirEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

// Succeeded filters the slices that completed with a usable artifact.
func Succeeded(slices []Slice) []Slice {
	var ok []Slice
	for _, s := range slices {
		if s.Status == StatusSucceeded {
			ok = append(ok, s)
		}
	}
	return ok
}

// Failed filters the slices whose builds failed outright.
func Failed(slices []Slice) []Slice {
	var bad []Slice
	for _, s := range slices {
		if s.Status == StatusFailed {
			bad = append(bad, s)
		}
	}
	return bad
}
