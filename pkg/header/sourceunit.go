// Package header analyzes Objective-C interface and implementation files
// into structural summaries.
//
// Each file becomes one SourceUnit: its declared symbols (classes,
// protocols, enumerations, functions, constants, categories), its import
// references, and its public/private classification. Analysis is
// per-file and never fatal to a run - a file that cannot be decoded is
// reported as a parse failure and skipped.
//
// SourceUnits are immutable after analysis; every downstream stage
// (graph building, symbol detection, synthesis) consumes them read-only.
package header

// SymbolKind tags what kind of declaration a symbol came from.
type SymbolKind string

// Symbol kinds recognized by the analyzer.
const (
	SymbolClass    SymbolKind = "class"
	SymbolProtocol SymbolKind = "protocol"
	SymbolEnum     SymbolKind = "enum"
	SymbolFunction SymbolKind = "function"
	SymbolConstant SymbolKind = "constant"
	SymbolCategory SymbolKind = "category"
)

// Symbol is one named declaration inside a source unit.
type Symbol struct {
	Name string     `json:"name"`
	Kind SymbolKind `json:"kind"`
}

// UnitKind distinguishes interface files from implementation files.
type UnitKind string

// Unit kinds.
const (
	UnitHeader         UnitKind = "header"
	UnitImplementation UnitKind = "implementation"
)

// SourceUnit is the analyzed summary of one header or implementation file.
// The ID is the unit's discovery path (slash-separated) and is unique
// within a run; duplicate base names in different directories stay distinct.
type SourceUnit struct {
	ID      string   `json:"id"`
	Path    string   `json:"path"`
	Kind    UnitKind `json:"kind"`
	Public  bool     `json:"public"`
	Symbols []Symbol `json:"symbols"`
	Imports []string `json:"imports"` // raw #import references, declaration order, deduplicated
}

// IsHeader reports whether the unit is an interface file.
func (u *SourceUnit) IsHeader() bool { return u.Kind == UnitHeader }

// SymbolNames returns the names of all declared symbols in declaration order.
func (u *SourceUnit) SymbolNames() []string {
	names := make([]string, len(u.Symbols))
	for i, s := range u.Symbols {
		names[i] = s.Name
	}
	return names
}

// SourceTree is the resolved, validated input handed to the analyzer:
// file paths already filtered to the conventional subdirectories.
type SourceTree struct {
	PublicHeaders  []string
	PrivateHeaders []string
	Sources        []string
}

// FileCount returns the total number of files in the tree.
func (t SourceTree) FileCount() int {
	return len(t.PublicHeaders) + len(t.PrivateHeaders) + len(t.Sources)
}
