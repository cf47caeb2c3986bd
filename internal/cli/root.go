package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zhouruiyy/framework-auto-builder/pkg/buildinfo"
)

// Execute runs the framebuild CLI and returns an error if any command
// fails. The logger is attached to the context and accessible to all
// commands via loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "framebuild",
		Short:        "framebuild assembles cross-platform framework bundles",
		Long: `framebuild analyzes an Objective-C source tree, resolves its header
dependency graph, synthesizes an umbrella header, builds the framework
for each requested platform, and merges the slices into a single
versioned bundle with a machine-readable manifest.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newBuildCmd())
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newProjectCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newCacheCmd())

	return root.ExecuteContext(ctx)
}
