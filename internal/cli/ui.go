package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	fberrors "github.com/zhouruiyy/framework-auto-builder/pkg/errors"
	"github.com/zhouruiyy/framework-auto-builder/pkg/header"
	"github.com/zhouruiyy/framework-auto-builder/pkg/pipeline"
	"github.com/zhouruiyy/framework-auto-builder/pkg/symbols"
)

var (
	colorCyan   = lipgloss.Color("36")  // primary actions
	colorGreen  = lipgloss.Color("35")  // success
	colorYellow = lipgloss.Color("220") // warnings
	colorRed    = lipgloss.Color("167") // errors
	colorWhite  = lipgloss.Color("255") // values
	colorDim    = lipgloss.Color("240") // muted text
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
)

func statusStyle(s pipeline.Status) lipgloss.Style {
	switch s {
	case pipeline.StatusSucceeded:
		return styleSuccess
	case pipeline.StatusPartial:
		return styleWarning
	default:
		return styleError
	}
}

func statusIcon(s pipeline.Status) string {
	switch s {
	case pipeline.StatusSucceeded:
		return iconSuccess
	case pipeline.StatusPartial:
		return iconWarning
	default:
		return iconError
	}
}

// printSummary renders the build report as a short human-readable block.
func printSummary(w io.Writer, report *pipeline.Report) {
	st := statusStyle(report.OverallStatus)
	fmt.Fprintf(w, "\n%s %s\n",
		st.Render(statusIcon(report.OverallStatus)),
		styleTitle.Render(fmt.Sprintf("%s build %s", report.ModuleName, report.OverallStatus)))

	row := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", styleDim.Render(label+":"), styleValue.Render(value))
	}
	row("headers", fmt.Sprintf("%d", report.HeadersCount))
	row("sources", fmt.Sprintf("%d", report.SourcesCount))
	row("symbols", fmt.Sprintf("%d", report.SymbolsCount))
	row("platforms", fmt.Sprintf("%d/%d succeeded",
		len(report.PlatformsSucceeded), len(report.PlatformsAttempted)))
	if report.BundlePath != "" {
		row("bundle", report.BundlePath)
	}
	row("elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String())

	if len(report.Collisions) > 0 {
		fmt.Fprintf(w, "  %s %s\n",
			styleWarning.Render(iconWarning),
			styleValue.Render(fmt.Sprintf("%d duplicate symbol group(s)", len(report.Collisions))))
		for _, c := range report.Collisions {
			fmt.Fprintf(w, "    %s %s\n",
				styleDim.Render(iconInfo),
				fmt.Sprintf("%s (%s): %s", c.Name, c.Kind, strings.Join(c.Units, ", ")))
		}
	}
	printDiagnostics(w, report.Diagnostics)
}

// printAnalysis renders the symbol surface of an analyzed tree.
func printAnalysis(w io.Writer, result *header.Result, resolution *symbols.Resolution) {
	fmt.Fprintf(w, "\n%s\n", styleTitle.Render("analysis"))

	row := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", styleDim.Render(label+":"), styleValue.Render(value))
	}
	row("headers", fmt.Sprintf("%d", len(result.Headers())))
	row("sources", fmt.Sprintf("%d", len(result.Sources())))
	row("symbols", fmt.Sprintf("%d", len(resolution.Records)))
	row("policy", string(resolution.Policy))

	if len(result.Failures) > 0 {
		for _, f := range result.Failures {
			fmt.Fprintf(w, "  %s %s\n", styleError.Render(iconError), fberrors.UserMessage(f))
		}
	}

	if len(resolution.Collisions) == 0 {
		fmt.Fprintf(w, "  %s %s\n", styleSuccess.Render(iconSuccess), "no duplicate symbols")
		return
	}
	fmt.Fprintf(w, "  %s %s\n",
		styleWarning.Render(iconWarning),
		styleValue.Render(fmt.Sprintf("%d duplicate symbol group(s)", len(resolution.Collisions))))
	for _, c := range resolution.Collisions {
		fmt.Fprintf(w, "    %s %s\n",
			styleDim.Render(iconInfo),
			fmt.Sprintf("%s (%s): %s", c.Name, c.Kind, strings.Join(c.Units(), ", ")))
	}
	for _, id := range resolution.ExcludedUnits() {
		fmt.Fprintf(w, "    %s %s\n",
			styleDim.Render(iconInfo),
			fmt.Sprintf("excluded %s: %s", id, joinExcluded(resolution.Excluded[id])))
	}
}

func joinExcluded(names []string) string {
	return strings.Join(names, ", ")
}

// printDiagnostics renders each recorded failure with its stage and code.
func printDiagnostics(w io.Writer, diags []pipeline.Diagnostic) {
	for _, d := range diags {
		style := styleError
		icon := iconError
		if d.Severity == "warning" {
			style = styleWarning
			icon = iconWarning
		}
		fmt.Fprintf(w, "  %s %s %s\n",
			style.Render(icon),
			styleDim.Render(fmt.Sprintf("[%s/%s]", d.Stage, d.Code)),
			d.Message)
	}
}
