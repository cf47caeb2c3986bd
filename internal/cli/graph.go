package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhouruiyy/framework-auto-builder/pkg/cache"
	"github.com/zhouruiyy/framework-auto-builder/pkg/depgraph"
	"github.com/zhouruiyy/framework-auto-builder/pkg/header"
)

type graphOpts struct {
	output  string
	format  string
	refresh bool
	noCache bool
}

// validGraphFormats is the set of supported output formats.
var validGraphFormats = map[string]bool{"dot": true, "svg": true, "png": true}

// newGraphCmd creates the graph command: emit the header dependency graph.
func newGraphCmd() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph [source-dir]",
		Short: "Emit the header dependency graph",
		Long: `Graph parses the source tree and writes its import graph. DOT text
goes to stdout by default; svg and png require --output.

Examples:
  framebuild graph ./MyKit
  framebuild graph ./MyKit --format svg --output deps.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validGraphFormats[opts.format] {
				return fmt.Errorf("invalid format: %s (must be 'dot', 'svg', or 'png')", opts.format)
			}
			if opts.format != "dot" && opts.output == "" {
				return fmt.Errorf("--format %s requires --output", opts.format)
			}
			return runGraph(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout for dot)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "dot", "output format: dot, svg, png")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the analysis cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the analysis cache entirely")

	return cmd
}

func runGraph(cmd *cobra.Command, args []string, opts graphOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	tree, err := header.DiscoverTree(sourceArg(args))
	if err != nil {
		return err
	}

	var c cache.Cache
	if !opts.noCache {
		c = openCache(logger)
	}
	analyzer := header.NewAnalyzer(header.Options{
		Cache:   c,
		Refresh: opts.refresh,
		Logger:  logger,
	})
	result := analyzer.AnalyzeTree(ctx, tree)
	for _, f := range result.Failures {
		logger.Warn("parse failure", "err", f)
	}

	g := depgraph.Build(result.Units)
	if cycle := g.FindCycle(); cycle != nil {
		logger.Warn("import cycle detected", "cycle", cycle)
	}
	dot := depgraph.ToDOT(g)

	var data []byte
	switch opts.format {
	case "dot":
		data = []byte(dot)
	case "svg":
		data, err = depgraph.RenderSVG(dot)
	case "png":
		data, err = depgraph.RenderPNG(dot)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", opts.format, err)
	}

	if opts.output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	logger.Info("graph written", "path", opts.output, "units", g.UnitCount(), "edges", g.EdgeCount())
	return nil
}
