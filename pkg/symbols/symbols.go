// Package symbols cross-references declared symbols across the whole
// source set and resolves collisions that would break linking once
// platform slices are merged.
//
// A collision is one symbol name declared by more than one interface file,
// or defined by more than one implementation file. An interface file and
// the implementation file that defines the same class are the declaration
// and definition of one logical symbol and do not collide.
//
// Resolution never mutates source files. All resolution is applied at the
// export layer: the umbrella header skips excluded units, and the original
// sources remain the auditable source of truth.
package symbols

import (
	"slices"

	fberrors "github.com/zhouruiyy/framework-auto-builder/pkg/errors"
	"github.com/zhouruiyy/framework-auto-builder/pkg/header"
)

// Policy selects how collisions are handled.
type Policy string

// Collision resolution policies.
const (
	// PolicyReportOnly records collisions in the report and changes
	// nothing; a downstream link failure is surfaced, not hidden.
	PolicyReportOnly Policy = "report-only"

	// PolicyAutoExclude keeps the first declaring unit in ascending
	// lexical ID order and drops the rest from the export surface.
	PolicyAutoExclude Policy = "auto-exclude"

	// PolicyFailFast aborts the run on any collision.
	PolicyFailFast Policy = "fail-fast"
)

// DefaultPolicy is applied when the configuration names no policy.
const DefaultPolicy = PolicyAutoExclude

// ValidPolicy reports whether p is a recognized policy.
func ValidPolicy(p Policy) bool {
	switch p {
	case PolicyReportOnly, PolicyAutoExclude, PolicyFailFast:
		return true
	}
	return false
}

// Record is the derived record for one symbol name: which units declare it
// (headers) and which define it (implementations). Unit ID lists are
// sorted ascending. Recomputed each run from the SourceUnit set.
type Record struct {
	Name       string            `json:"name"`
	Kind       header.SymbolKind `json:"kind"`
	DeclaredBy []string          `json:"declared_by,omitempty"`
	DefinedBy  []string          `json:"defined_by,omitempty"`
}

// IsCollision reports whether the record names a link-breaking duplicate:
// more than one declaring header, or more than one defining implementation.
func (r Record) IsCollision() bool {
	return len(r.DeclaredBy) > 1 || len(r.DefinedBy) > 1
}

// Units returns all units involved with the symbol, sorted, deduplicated.
func (r Record) Units() []string {
	ids := append(slices.Clone(r.DeclaredBy), r.DefinedBy...)
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Detect groups symbol declarations by exact name across the unit set.
// Exactly one record is produced per name, sorted by name.
func Detect(units []*header.SourceUnit) []Record {
	byName := make(map[string]*Record)
	var names []string

	for _, u := range units {
		for _, s := range u.Symbols {
			rec, ok := byName[s.Name]
			if !ok {
				rec = &Record{Name: s.Name, Kind: s.Kind}
				byName[s.Name] = rec
				names = append(names, s.Name)
			}
			if u.IsHeader() {
				rec.DeclaredBy = append(rec.DeclaredBy, u.ID)
			} else {
				rec.DefinedBy = append(rec.DefinedBy, u.ID)
			}
		}
	}

	slices.Sort(names)
	records := make([]Record, 0, len(names))
	for _, name := range names {
		rec := byName[name]
		slices.Sort(rec.DeclaredBy)
		rec.DeclaredBy = slices.Compact(rec.DeclaredBy)
		slices.Sort(rec.DefinedBy)
		rec.DefinedBy = slices.Compact(rec.DefinedBy)
		records = append(records, *rec)
	}
	return records
}

// Collisions filters records down to the collision groups.
func Collisions(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if r.IsCollision() {
			out = append(out, r)
		}
	}
	return out
}

// Resolution is the outcome of applying a policy to the detected set.
// Collisions are always populated, even when the policy changed nothing:
// a duplicate is reported regardless of how it was resolved.
type Resolution struct {
	Policy     Policy
	Records    []Record
	Collisions []Record

	// Excluded maps a unit ID to the colliding symbol names dropped from
	// the export surface. Only populated under PolicyAutoExclude.
	Excluded map[string][]string
}

// ExcludedUnits returns the IDs of units removed from the export surface,
// sorted ascending.
func (r *Resolution) ExcludedUnits() []string {
	ids := make([]string, 0, len(r.Excluded))
	for id := range r.Excluded {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Resolve detects collisions and applies the policy. Under PolicyFailFast
// any collision returns a SYMBOL_COLLISION error and the run must abort
// before building. Under PolicyAutoExclude, for each collision the first
// declaring unit in lexical order keeps its symbol and every other
// declaring unit is excluded from the export surface.
func Resolve(units []*header.SourceUnit, policy Policy) (*Resolution, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	if !ValidPolicy(policy) {
		return nil, fberrors.New(fberrors.CodeInvalidConfig, fberrors.StageSymbols, "unknown duplicate symbol policy %q", policy)
	}

	records := Detect(units)
	res := &Resolution{
		Policy:     policy,
		Records:    records,
		Collisions: Collisions(records),
		Excluded:   make(map[string][]string),
	}

	if len(res.Collisions) == 0 {
		return res, nil
	}

	switch policy {
	case PolicyFailFast:
		first := res.Collisions[0]
		return nil, fberrors.New(fberrors.CodeSymbolCollision, fberrors.StageSymbols,
			"symbol %q declared by %d units (%d collisions total)",
			first.Name, len(first.Units()), len(res.Collisions)).WithSeverity(fberrors.SeverityFatal)

	case PolicyAutoExclude:
		for _, c := range res.Collisions {
			if len(c.DeclaredBy) <= 1 {
				continue
			}
			// DeclaredBy is sorted; index 0 is the lexical winner.
			for _, loser := range c.DeclaredBy[1:] {
				res.Excluded[loser] = append(res.Excluded[loser], c.Name)
			}
		}
	}

	return res, nil
}
