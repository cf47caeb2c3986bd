package depgraph

import (
	"strings"
	"testing"

	fberrors "github.com/zhouruiyy/framework-auto-builder/pkg/errors"
	"github.com/zhouruiyy/framework-auto-builder/pkg/header"
)

func unit(id string, imports ...string) *header.SourceUnit {
	return &header.SourceUnit{
		ID:      id,
		Path:    id,
		Kind:    header.UnitHeader,
		Public:  true,
		Imports: imports,
	}
}

func ids(units []*header.SourceUnit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.ID
	}
	return out
}

func TestBuildResolvesByBaseName(t *testing.T) {
	g := Build([]*header.SourceUnit{
		unit("Headers/A.h"),
		unit("Headers/B.h", "A.h", "Foundation/Foundation.h"),
	})

	if got, want := g.EdgeCount(), 1; got != want {
		t.Errorf("edges = %d, want %d", got, want)
	}
	imports := g.Imports("Headers/B.h")
	if len(imports) != 1 || imports[0] != "Headers/A.h" {
		t.Errorf("imports = %v, want [Headers/A.h]", imports)
	}
	external := g.External()
	if len(external) != 1 || external[0] != "Foundation/Foundation.h" {
		t.Errorf("external = %v, want [Foundation/Foundation.h]", external)
	}
}

func TestBuildIgnoresSelfImport(t *testing.T) {
	g := Build([]*header.SourceUnit{
		unit("Headers/A.h", "A.h"),
	})
	if got, want := g.EdgeCount(), 0; got != want {
		t.Errorf("edges = %d, want %d", got, want)
	}
}

func TestTopoOrderDependenciesFirst(t *testing.T) {
	g := Build([]*header.SourceUnit{
		unit("Headers/C.h", "B.h"),
		unit("Headers/B.h", "A.h"),
		unit("Headers/A.h"),
	})

	ordered, err := g.TopoOrder()
	if err != nil {
		t.Fatalf("TopoOrder: %v", err)
	}
	got := ids(ordered)
	want := []string{"Headers/A.h", "Headers/B.h", "Headers/C.h"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestTopoOrderTiesBreakLexically(t *testing.T) {
	// Z and M have no relation; M must come first regardless of
	// discovery order.
	g := Build([]*header.SourceUnit{
		unit("Headers/Z.h"),
		unit("Headers/M.h"),
	})

	ordered, err := g.TopoOrder()
	if err != nil {
		t.Fatalf("TopoOrder: %v", err)
	}
	got := ids(ordered)
	if got[0] != "Headers/M.h" || got[1] != "Headers/Z.h" {
		t.Errorf("order = %v, want lexical", got)
	}
}

func TestTopoOrderCycle(t *testing.T) {
	g := Build([]*header.SourceUnit{
		unit("Headers/A.h", "B.h"),
		unit("Headers/B.h", "A.h"),
	})

	_, err := g.TopoOrder()
	if !fberrors.Is(err, fberrors.CodeCyclicDependency) {
		t.Fatalf("err = %v, want CYCLIC_DEPENDENCY", err)
	}
	if got := fberrors.GetSeverity(err); got != fberrors.SeverityFatal {
		t.Errorf("severity = %s, want fatal", got)
	}
}

func TestFindCycleNamesFullLoop(t *testing.T) {
	g := Build([]*header.SourceUnit{
		unit("Headers/A.h", "B.h"),
		unit("Headers/B.h", "C.h"),
		unit("Headers/C.h", "A.h"),
		unit("Headers/D.h"),
	})

	cycle := g.FindCycle()
	if cycle == nil {
		t.Fatal("FindCycle returned nil for cyclic graph")
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("cycle %v does not close on itself", cycle)
	}
	if got, want := len(cycle), 4; got != want {
		t.Errorf("cycle length = %d, want %d (%v)", got, want, cycle)
	}
}

func TestFindCycleAcyclic(t *testing.T) {
	g := Build([]*header.SourceUnit{
		unit("Headers/A.h"),
		unit("Headers/B.h", "A.h"),
	})
	if cycle := g.FindCycle(); cycle != nil {
		t.Errorf("FindCycle = %v, want nil", cycle)
	}
}

func TestToDOTDeterministic(t *testing.T) {
	units := []*header.SourceUnit{
		unit("Headers/A.h"),
		unit("Headers/B.h", "A.h", "UIKit/UIKit.h"),
	}
	first := ToDOT(Build(units))
	second := ToDOT(Build(units))
	if first != second {
		t.Error("DOT output differs between identical builds")
	}

	for _, want := range []string{
		`"Headers/A.h"`,
		`"Headers/B.h" -> "Headers/A.h";`,
		`"Headers/B.h" -> "UIKit/UIKit.h" [style=dashed];`,
	} {
		if !strings.Contains(first, want) {
			t.Errorf("DOT missing %s:\n%s", want, first)
		}
	}
}
