package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/zhouruiyy/framework-auto-builder/pkg/bundle"
	"github.com/zhouruiyy/framework-auto-builder/pkg/cache"
	"github.com/zhouruiyy/framework-auto-builder/pkg/depgraph"
	"github.com/zhouruiyy/framework-auto-builder/pkg/errors"
	"github.com/zhouruiyy/framework-auto-builder/pkg/header"
	"github.com/zhouruiyy/framework-auto-builder/pkg/orchestrator"
	"github.com/zhouruiyy/framework-auto-builder/pkg/symbols"
	"github.com/zhouruiyy/framework-auto-builder/pkg/toolchain"
	"github.com/zhouruiyy/framework-auto-builder/pkg/umbrella"
	"github.com/zhouruiyy/framework-auto-builder/pkg/xcodeproj"
)

// workDirName is the scratch directory inside the output directory that
// holds the generated project and per-target build output. It is cleared
// at the start of every run and removed at the end unless KeepWork is set.
const workDirName = ".work"

// Runner executes the pipeline. It is stateless apart from the cache,
// toolchain, and logger; one Runner can serve many runs.
type Runner struct {
	Cache     cache.Cache
	Toolchain toolchain.Toolchain
	Logger    *log.Logger
}

// NewRunner creates a runner. A nil cache disables analysis caching, a
// nil toolchain selects xcodebuild, a nil logger selects the default.
func NewRunner(c cache.Cache, tc toolchain.Toolchain, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	if tc == nil {
		tc = toolchain.NewXcodebuild(logger)
	}
	return &Runner{Cache: c, Toolchain: tc, Logger: logger}
}

// Result carries every stage's output for callers that want more than
// the report.
type Result struct {
	Report     *Report
	Analysis   *header.Result
	Graph      *depgraph.Graph
	Resolution *symbols.Resolution
	Umbrella   []byte
	Slices     []orchestrator.Slice
	Bundle     *bundle.Bundle
}

// Execute runs the full pipeline over the source tree. The build summary
// is written under OutputDir in every case, including fatal errors; the
// returned Result always carries the report.
func (r *Runner) Execute(ctx context.Context, tree header.SourceTree, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = r.Logger
	}

	report := newReport(opts.ModuleName, opts.Platforms)
	result := &Result{Report: report}

	if err := r.clearOutput(opts); err != nil {
		return nil, err
	}

	fail := func(err error) (*Result, error) {
		report.AddDiagnostic(err)
		report.finish(StatusFailed)
		if werr := report.Write(opts.OutputDir); werr != nil {
			logger.Error("cannot persist build summary", "err", werr)
		}
		r.cleanupWork(opts)
		return result, err
	}

	// Stage 1: analyze. Per-file failures are diagnostics, not fatal.
	analyzer := header.NewAnalyzer(header.Options{Cache: r.Cache, Refresh: opts.Refresh, Logger: logger})
	analysis := analyzer.AnalyzeTree(ctx, tree)
	result.Analysis = analysis
	report.HeadersCount = len(analysis.Headers())
	report.SourcesCount = len(analysis.Sources())
	for _, f := range analysis.Failures {
		report.AddDiagnostic(f)
	}
	logger.Info("analyzed sources",
		"headers", report.HeadersCount,
		"sources", report.SourcesCount,
		"failures", len(analysis.Failures))
	if len(analysis.Units) == 0 {
		return fail(errors.New(errors.CodeInvalidConfig, errors.StageAnalyze, "no analyzable source files"))
	}

	// Stage 2: graph. A cycle aborts before any umbrella or build output.
	g := depgraph.Build(analysis.Units)
	result.Graph = g
	ordered, err := g.TopoOrder()
	if err != nil {
		return fail(err)
	}
	logger.Info("dependency graph ready",
		"units", g.UnitCount(),
		"edges", g.EdgeCount(),
		"external", len(g.External()))

	// Stage 3: symbols.
	resolution, err := symbols.Resolve(analysis.Units, opts.Policy)
	if err != nil {
		return fail(err)
	}
	result.Resolution = resolution
	report.SymbolsCount = len(resolution.Records)
	report.addCollisions(resolution)
	for _, c := range resolution.Collisions {
		logger.Warn("duplicate symbol", "name", c.Name, "units", c.Units(), "policy", resolution.Policy)
	}

	// Stage 4: synthesize.
	result.Umbrella = umbrella.Synthesize(ordered, umbrella.Options{
		ModuleName: opts.ModuleName,
		Exclude:    resolution.Excluded,
	})
	logger.Info("umbrella header synthesized", "bytes", len(result.Umbrella))

	// Stage 5: build.
	workRoot := filepath.Join(opts.OutputDir, workDirName)
	projectPath, err := r.stageProject(filepath.Join(workRoot, "project"), tree, result.Umbrella, opts)
	if err != nil {
		return fail(err)
	}

	orch := orchestrator.New(r.Toolchain, orchestrator.Options{
		Workers:       opts.Workers,
		StopOnFailure: opts.StopOnFailure,
		Logger:        logger,
	})
	slices, err := orch.BuildAll(ctx, orchestrator.Plan{
		ModuleName:  opts.ModuleName,
		ProjectPath: projectPath,
		Scheme:      opts.ModuleName,
		WorkRoot:    filepath.Join(workRoot, "targets"),
		Targets:     opts.Targets(),
	})
	if err != nil {
		return fail(err)
	}
	result.Slices = slices
	for _, s := range slices {
		if s.Err != nil {
			report.AddDiagnostic(s.Err)
		}
	}
	succeeded := orchestrator.Succeeded(slices)
	for _, s := range succeeded {
		report.PlatformsSucceeded = append(report.PlatformsSucceeded, s.Target.ID)
	}

	if len(succeeded) == 0 {
		return fail(errors.New(errors.CodePlatformBuildFailure, errors.StageBuild,
			"all platform builds failed"))
	}
	if len(succeeded) < len(opts.Targets()) && !opts.AllowPartial {
		// Successful slices stay in the scratch directory and are
		// discarded with it, never merged.
		return fail(errors.New(errors.CodePlatformBuildFailure, errors.StageBuild,
			"%d of %d platforms failed and partial output is not allowed",
			len(opts.Targets())-len(succeeded), len(opts.Targets())))
	}

	// Stage 6: merge.
	exportHash := cache.Hash(result.Umbrella)
	inputs := make([]bundle.SliceInput, 0, len(succeeded))
	for _, s := range succeeded {
		inputs = append(inputs, bundle.SliceInput{
			Target:       s.Target,
			ArtifactPath: s.ArtifactPath,
			ExportHash:   exportHash,
		})
	}
	b, err := bundle.Merge(inputs, bundle.Options{
		ModuleName: opts.ModuleName,
		OutputDir:  opts.OutputDir,
		Umbrella:   result.Umbrella,
		Headers:    publicHeaderFiles(tree),
		Logger:     logger,
	})
	if err != nil {
		return fail(err)
	}
	result.Bundle = b
	report.BundlePath = b.Path
	for _, f := range b.Failures {
		report.AddDiagnostic(f.Err)
	}

	status := StatusSucceeded
	if len(succeeded) < len(opts.Targets()) || len(b.Failures) > 0 {
		status = StatusPartial
	}
	report.finish(status)
	if err := report.Write(opts.OutputDir); err != nil {
		return result, err
	}
	r.cleanupWork(opts)

	logger.Info("bundle assembled",
		"path", b.Path,
		"groupings", len(b.Manifest.Groupings),
		"status", status)
	return result, nil
}

// GenerateProject runs the analysis stages and stages a buildable Xcode
// project into dir, without invoking the toolchain. It returns the path
// to the generated .xcodeproj.
func (r *Runner) GenerateProject(ctx context.Context, tree header.SourceTree, dir string, opts Options) (string, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return "", err
	}
	logger := opts.Logger
	if logger == nil {
		logger = r.Logger
	}

	analyzer := header.NewAnalyzer(header.Options{Cache: r.Cache, Refresh: opts.Refresh, Logger: logger})
	analysis := analyzer.AnalyzeTree(ctx, tree)
	for _, f := range analysis.Failures {
		logger.Warn("parse failure", "err", f)
	}
	if len(analysis.Units) == 0 {
		return "", errors.New(errors.CodeInvalidConfig, errors.StageAnalyze, "no analyzable source files")
	}

	g := depgraph.Build(analysis.Units)
	ordered, err := g.TopoOrder()
	if err != nil {
		return "", err
	}
	resolution, err := symbols.Resolve(analysis.Units, opts.Policy)
	if err != nil {
		return "", err
	}
	content := umbrella.Synthesize(ordered, umbrella.Options{
		ModuleName: opts.ModuleName,
		Exclude:    resolution.Excluded,
	})
	return r.stageProject(dir, tree, content, opts)
}

// stageProject lays out the module sources for the toolchain and
// generates the Xcode project: workRoot/project/<Module>/ gets a flat
// copy of every source file plus the umbrella header, and the project
// file references them by base name.
func (r *Runner) stageProject(projectRoot string, tree header.SourceTree, umbrellaContent []byte, opts Options) (string, error) {
	moduleDir := filepath.Join(projectRoot, opts.ModuleName)
	if err := os.MkdirAll(moduleDir, 0755); err != nil {
		return "", errors.Wrap(errors.CodeInternal, errors.StageBuild, err, "create project source dir")
	}

	spec := xcodeproj.Spec{
		ModuleName:   opts.ModuleName,
		MinOSVersion: opts.MinOSVersion,
	}
	// The staged layout is flat, so base names must be unique across the
	// whole tree; a clash would silently drop one file's content.
	staged := make(map[string]string)
	stage := func(paths []string, headers bool) error {
		for _, path := range paths {
			name := filepath.Base(path)
			if prev, ok := staged[name]; ok {
				return errors.New(errors.CodeInvalidConfig, errors.StageBuild,
					"duplicate file name %q: %s and %s", name, prev, path)
			}
			staged[name] = path
			if err := copyFile(path, filepath.Join(moduleDir, name)); err != nil {
				return errors.Wrap(errors.CodeInternal, errors.StageBuild, err, "stage %s", name)
			}
			if headers {
				spec.Headers = append(spec.Headers, name)
			} else {
				spec.Sources = append(spec.Sources, name)
			}
		}
		return nil
	}
	if err := stage(tree.PublicHeaders, true); err != nil {
		return "", err
	}
	if err := stage(tree.PrivateHeaders, true); err != nil {
		return "", err
	}
	if err := stage(tree.Sources, false); err != nil {
		return "", err
	}

	umbrellaName := opts.ModuleName + ".h"
	if prev, ok := staged[umbrellaName]; ok {
		return "", errors.New(errors.CodeInvalidConfig, errors.StageBuild,
			"header %s collides with the generated umbrella header %s", prev, umbrellaName)
	}
	if err := os.WriteFile(filepath.Join(moduleDir, umbrellaName), umbrellaContent, 0644); err != nil {
		return "", errors.Wrap(errors.CodeInternal, errors.StageBuild, err, "stage umbrella header")
	}
	spec.Headers = append(spec.Headers, umbrellaName)

	return xcodeproj.NewGenerator().Generate(projectRoot, spec)
}

// clearOutput removes the previous run's bundle, summary, and scratch
// directory so stale slices can never leak into a new bundle.
func (r *Runner) clearOutput(opts Options) error {
	for _, path := range []string{
		filepath.Join(opts.OutputDir, opts.ModuleName+".xcframework"),
		filepath.Join(opts.OutputDir, SummaryFileName),
		filepath.Join(opts.OutputDir, workDirName),
	} {
		if err := os.RemoveAll(path); err != nil {
			return errors.Wrap(errors.CodeInternal, errors.StageAnalyze, err, "clear previous output at %s", path)
		}
	}
	return nil
}

func (r *Runner) cleanupWork(opts Options) {
	if opts.KeepWork {
		return
	}
	if err := os.RemoveAll(filepath.Join(opts.OutputDir, workDirName)); err != nil {
		r.Logger.Warn("cannot remove scratch directory", "err", err)
	}
}

func publicHeaderFiles(tree header.SourceTree) []bundle.HeaderFile {
	files := make([]bundle.HeaderFile, 0, len(tree.PublicHeaders))
	for _, path := range tree.PublicHeaders {
		files = append(files, bundle.HeaderFile{Name: filepath.Base(path), Path: path})
	}
	return files
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0644)
}
