package depgraph

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts the import graph to Graphviz DOT format. Public headers
// are drawn filled, private headers and implementation files dashed, and
// external references as plain ellipses. The output is deterministic:
// nodes and edges follow arena order.
func ToDOT(g *Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph imports {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, u := range g.units {
		attrs := "fillcolor=lightblue"
		if !u.Public {
			attrs = "style=\"rounded,dashed\""
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", u.ID, attrs)
	}
	for _, ref := range g.external {
		fmt.Fprintf(&buf, "  %q [shape=ellipse, style=dashed, fillcolor=white];\n", ref)
	}

	buf.WriteString("\n")
	for i, u := range g.units {
		for _, j := range g.out[i] {
			fmt.Fprintf(&buf, "  %q -> %q;\n", u.ID, g.units[j].ID)
		}
		// External refs are leaf markers: drawn, never expanded.
		for _, ref := range u.Imports {
			if contains(g.external, ref) {
				fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", u.ID, ref)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func contains(sorted []string, s string) bool {
	for _, v := range sorted {
		if v == s {
			return true
		}
	}
	return false
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	return render(dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG)
}

func render(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
