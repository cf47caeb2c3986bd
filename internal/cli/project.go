package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhouruiyy/framework-auto-builder/pkg/cache"
	"github.com/zhouruiyy/framework-auto-builder/pkg/header"
	"github.com/zhouruiyy/framework-auto-builder/pkg/pipeline"
	"github.com/zhouruiyy/framework-auto-builder/pkg/symbols"
)

type projectOpts struct {
	config  string
	module  string
	output  string
	policy  string
	minOS   string
	refresh bool
	noCache bool
}

// newProjectCmd creates the project command: stage the sources and
// generate the Xcode project without building it.
func newProjectCmd() *cobra.Command {
	var opts projectOpts

	cmd := &cobra.Command{
		Use:   "project [source-dir]",
		Short: "Generate the Xcode project without building",
		Long: `Project runs analysis and umbrella synthesis, then writes the staged
sources and a buildable .xcodeproj to the output directory. Useful for
inspecting exactly what the build stage would compile.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProject(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.config, "config", "", "config file (default: <source-dir>/framebuild.toml)")
	cmd.Flags().StringVarP(&opts.module, "module", "m", "", "module name (default: source directory name)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "project", "directory for the staged project")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "duplicate symbol policy: report-only, auto-exclude, fail-fast")
	cmd.Flags().StringVar(&opts.minOS, "min-os", "", "minimum OS version override")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the analysis cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the analysis cache entirely")

	return cmd
}

func runProject(cmd *cobra.Command, args []string, opts projectOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	sourceRoot := sourceArg(args)

	pipeOpts := pipeline.Options{
		ModuleName:   opts.module,
		Policy:       symbols.Policy(opts.policy),
		Refresh:      opts.refresh,
		MinOSVersion: opts.minOS,
		Logger:       logger,
	}
	cfg, err := loadConfig(findConfig(opts.config, sourceRoot))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.apply(&pipeOpts)
	if pipeOpts.ModuleName == "" {
		pipeOpts.ModuleName = defaultModuleName(sourceRoot)
	}

	tree, err := header.DiscoverTree(sourceRoot)
	if err != nil {
		return err
	}

	var c cache.Cache
	if !opts.noCache {
		c = openCache(logger)
	}
	runner := pipeline.NewRunner(c, nil, logger)
	projectPath, err := runner.GenerateProject(ctx, tree, opts.output, pipeOpts)
	if err != nil {
		return err
	}
	logger.Info("project generated", "path", projectPath)
	return nil
}
