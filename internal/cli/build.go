package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zhouruiyy/framework-auto-builder/pkg/cache"
	"github.com/zhouruiyy/framework-auto-builder/pkg/header"
	"github.com/zhouruiyy/framework-auto-builder/pkg/pipeline"
	"github.com/zhouruiyy/framework-auto-builder/pkg/symbols"
)

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	config        string
	module        string
	platforms     []string
	policy        string
	allowPartial  bool
	stopOnFailure bool
	output        string
	workers       int
	refresh       bool
	noCache       bool
	keepWork      bool
	minOS         string
}

// newBuildCmd creates the build command: the full analyze → build →
// merge pipeline over a conventional source tree.
func newBuildCmd() *cobra.Command {
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   "build [source-dir]",
		Short: "Assemble the framework bundle from a source tree",
		Long: `Build runs the full pipeline over a source tree laid out as:

  <source-dir>/Headers/         public headers
  <source-dir>/PrivateHeaders/  private headers (optional)
  <source-dir>/Sources/         implementation files

The bundle and a machine-readable build summary are written to the
output directory. Defaults are read from framebuild.toml when present.

Examples:
  framebuild build ./MyKit
  framebuild build ./MyKit --platforms ios-device,ios-simulator
  framebuild build ./MyKit --policy fail-fast --output dist`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.config, "config", "", "config file (default: <source-dir>/framebuild.toml)")
	cmd.Flags().StringVarP(&opts.module, "module", "m", "", "module name (default: source directory name)")
	cmd.Flags().StringSliceVarP(&opts.platforms, "platforms", "p", nil, "platform targets to build")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "duplicate symbol policy: report-only, auto-exclude, fail-fast")
	cmd.Flags().BoolVar(&opts.allowPartial, "allow-partial", false, "emit a bundle even when some platforms fail")
	cmd.Flags().BoolVar(&opts.stopOnFailure, "stop-on-failure", false, "cancel remaining builds after the first failure")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent platform builds")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the analysis cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the analysis cache entirely")
	cmd.Flags().BoolVar(&opts.keepWork, "keep-work", false, "keep the scratch directory for inspection")
	cmd.Flags().StringVar(&opts.minOS, "min-os", "", "minimum OS version override")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string, opts buildOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	sourceRoot := sourceArg(args)

	pipeOpts := pipeline.Options{
		ModuleName:    opts.module,
		Platforms:     opts.platforms,
		Policy:        symbols.Policy(opts.policy),
		AllowPartial:  opts.allowPartial,
		StopOnFailure: opts.stopOnFailure,
		OutputDir:     opts.output,
		Workers:       opts.workers,
		Refresh:       opts.refresh,
		KeepWork:      opts.keepWork,
		MinOSVersion:  opts.minOS,
		Logger:        logger,
	}

	cfg, err := loadConfig(findConfig(opts.config, sourceRoot))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.apply(&pipeOpts)
	cfg.applyBoolFlags(cmd.Flags(), &pipeOpts)
	if pipeOpts.ModuleName == "" {
		pipeOpts.ModuleName = defaultModuleName(sourceRoot)
	}

	tree, err := header.DiscoverTree(sourceRoot)
	if err != nil {
		return err
	}
	logger.Debug("discovered source tree",
		"public", len(tree.PublicHeaders),
		"private", len(tree.PrivateHeaders),
		"sources", len(tree.Sources))

	var c cache.Cache
	if !opts.noCache {
		c = openCache(logger)
	}
	runner := pipeline.NewRunner(c, nil, logger)

	p := newProgress(logger)
	result, err := runner.Execute(ctx, tree, pipeOpts)
	if result != nil && result.Report != nil {
		printSummary(os.Stdout, result.Report)
	}
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Assembled %s", result.Bundle.Path))
	return nil
}

func sourceArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// defaultModuleName derives the module name from the source directory.
func defaultModuleName(sourceRoot string) string {
	abs, err := filepath.Abs(sourceRoot)
	if err != nil {
		return filepath.Base(sourceRoot)
	}
	return filepath.Base(abs)
}
