package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhouruiyy/framework-auto-builder/pkg/cache"
	"github.com/zhouruiyy/framework-auto-builder/pkg/header"
	"github.com/zhouruiyy/framework-auto-builder/pkg/symbols"
)

type analyzeOpts struct {
	policy  string
	refresh bool
	noCache bool
	jsonOut bool
}

// analyzeOutput is the machine-readable shape emitted with --json.
type analyzeOutput struct {
	Headers    int              `json:"headers"`
	Sources    int              `json:"sources"`
	Symbols    []symbols.Record `json:"symbols"`
	Collisions []symbols.Record `json:"collisions"`
	Excluded   []string         `json:"excluded,omitempty"`
}

// newAnalyzeCmd creates the analyze command: the parse and symbol stages
// only, with no toolchain involvement.
func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOpts

	cmd := &cobra.Command{
		Use:   "analyze [source-dir]",
		Short: "Parse headers and report the symbol surface",
		Long: `Analyze parses the source tree, extracts declared and defined
symbols, and reports duplicates under the selected policy. No build is
performed, so it works on any machine regardless of toolchain.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.policy, "policy", "", "duplicate symbol policy: report-only, auto-exclude, fail-fast")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the analysis cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the analysis cache entirely")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit machine-readable JSON")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts analyzeOpts) error {
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

	resolution, err := symbols.Resolve(result.Units, symbols.Policy(opts.policy))
	if err != nil {
		return err
	}

	if opts.jsonOut {
		out := analyzeOutput{
			Headers:    len(result.Headers()),
			Sources:    len(result.Sources()),
			Symbols:    resolution.Records,
			Collisions: resolution.Collisions,
			Excluded:   resolution.ExcludedUnits(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printAnalysis(os.Stdout, result, resolution)
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d file(s) failed to parse", len(result.Failures))
	}
	return nil
}
