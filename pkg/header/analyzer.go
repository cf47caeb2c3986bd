package header

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/zhouruiyy/framework-auto-builder/pkg/cache"
	fberrors "github.com/zhouruiyy/framework-auto-builder/pkg/errors"
)

// Declaration patterns. The analyzer is regex-grounded on the Objective-C
// surface syntax: it extracts names and kinds, not full type information.
var (
	reLineComment  = regexp.MustCompile(`(?m)//.*$`)
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reInactive     = regexp.MustCompile(`(?s)#if\s+0\b.*?#endif`)
	reImport       = regexp.MustCompile(`#(?:import|include)\s+[<"]([^">]+)[">]`)
	reInterface    = regexp.MustCompile(`@interface\s+(\w+)\s*(?:\(\s*(\w+)\s*\))?`)
	reImpl         = regexp.MustCompile(`@implementation\s+(\w+)\s*(?:\(\s*(\w+)\s*\))?`)
	reProtocol     = regexp.MustCompile(`@protocol\s+(\w+)\s*(.?)`)
	reNSEnum       = regexp.MustCompile(`typedef\s+NS_(?:ENUM|OPTIONS)\s*\(\s*\w+\s*,\s*(\w+)\s*\)`)
	reCEnum        = regexp.MustCompile(`(?s)typedef\s+enum\b[^{]*\{.*?\}\s*(\w+)\s*;`)
	reFunction     = regexp.MustCompile(`(?m)^[ \t]*(?:FOUNDATION_EXPORT\s+|FOUNDATION_EXTERN\s+|extern\s+)?[A-Za-z_][^;(){}]*[\s*](\w+)\s*\(([^)]*)\)\s*;`)
	reConstant     = regexp.MustCompile(`(?m)^[ \t]*(?:FOUNDATION_EXPORT|FOUNDATION_EXTERN|extern)\s+[^;(){}]*[\s*](\w+)\s*;`)
)

// Options configures an Analyzer. The zero value is usable: no cache,
// discarded log output.
type Options struct {
	// Cache stores analyzed units keyed by file content hash.
	// Nil disables caching.
	Cache cache.Cache

	// Refresh bypasses the cache for reads; results are still stored.
	Refresh bool

	Logger *log.Logger
}

// Analyzer parses header and implementation files into SourceUnits.
// It is safe for concurrent use; all state is read-only after construction.
type Analyzer struct {
	cache   cache.Cache
	refresh bool
	logger  *log.Logger
}

// NewAnalyzer creates an analyzer with the given options.
func NewAnalyzer(opts Options) *Analyzer {
	c := opts.Cache
	if c == nil {
		c = cache.NewNullCache()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Analyzer{cache: c, refresh: opts.Refresh, logger: logger}
}

// Result is the outcome of analyzing a source tree. Units are ordered by
// discovery path (public headers, then private headers, then sources, each
// ascending lexical) so downstream stages see a deterministic set
// regardless of filesystem enumeration order.
type Result struct {
	Units    []*SourceUnit
	Failures []*fberrors.Error
}

// Headers returns the analyzed header units.
func (r *Result) Headers() []*SourceUnit {
	var hs []*SourceUnit
	for _, u := range r.Units {
		if u.IsHeader() {
			hs = append(hs, u)
		}
	}
	return hs
}

// Sources returns the analyzed implementation units.
func (r *Result) Sources() []*SourceUnit {
	var ss []*SourceUnit
	for _, u := range r.Units {
		if !u.IsHeader() {
			ss = append(ss, u)
		}
	}
	return ss
}

// AnalyzeTree analyzes every file in the tree. Per-file failures are
// collected into Result.Failures and never abort the remaining files.
func (a *Analyzer) AnalyzeTree(ctx context.Context, tree SourceTree) *Result {
	result := &Result{}

	analyze := func(paths []string, kind UnitKind, public bool) {
		sorted := slices.Clone(paths)
		slices.Sort(sorted)
		for _, path := range sorted {
			unit, err := a.AnalyzeFile(ctx, path, kind, public)
			if err != nil {
				var fe *fberrors.Error
				if e, ok := err.(*fberrors.Error); ok {
					fe = e
				} else {
					fe = fberrors.Wrap(fberrors.CodeParseFailure, fberrors.StageAnalyze, err, "analyze %s", path)
				}
				a.logger.Warn("parse failure", "file", path, "err", fberrors.UserMessage(fe))
				result.Failures = append(result.Failures, fe.WithSeverity(fberrors.SeverityWarning))
				continue
			}
			result.Units = append(result.Units, unit)
		}
	}

	analyze(tree.PublicHeaders, UnitHeader, true)
	analyze(tree.PrivateHeaders, UnitHeader, false)
	analyze(tree.Sources, UnitImplementation, false)

	return result
}

// AnalyzeFile analyzes one file. The unit ID is the given path normalized
// to forward slashes. Returns a PARSE_FAILURE error for files that cannot
// be read or decoded as text.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, kind UnitKind, public bool) (*SourceUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fberrors.Wrap(fberrors.CodeParseFailure, fberrors.StageAnalyze, err, "read %s", path)
	}

	id := filepath.ToSlash(path)
	key := cache.UnitKey(cache.Hash(content) + ":" + id)

	if !a.refresh {
		if data, hit, err := a.cache.Get(ctx, key); err == nil && hit {
			var unit SourceUnit
			if json.Unmarshal(data, &unit) == nil {
				a.logger.Debug("analysis cache hit", "file", path)
				return &unit, nil
			}
		}
	}

	unit, err := Parse(id, path, kind, public, content)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(unit); err == nil {
		_ = a.cache.Set(ctx, key, data, 0)
	}
	return unit, nil
}

// Parse extracts the structural summary from raw file content.
// Returns a PARSE_FAILURE error if the content is not valid UTF-8 text.
func Parse(id, path string, kind UnitKind, public bool, content []byte) (*SourceUnit, error) {
	if !utf8.Valid(content) {
		return nil, fberrors.New(fberrors.CodeParseFailure, fberrors.StageAnalyze, "%s: not valid UTF-8 text", path)
	}

	text := string(content)
	text = reBlockComment.ReplaceAllString(text, "")
	text = reLineComment.ReplaceAllString(text, "")
	// Best effort: drop guarded-out branches, keep everything else.
	text = reInactive.ReplaceAllString(text, "")

	unit := &SourceUnit{
		ID:     id,
		Path:   path,
		Kind:   kind,
		Public: public,
	}

	unit.Imports = parseImports(text)
	if kind == UnitHeader {
		unit.Symbols = parseHeaderSymbols(text)
	} else {
		unit.Symbols = parseImplSymbols(text)
	}
	return unit, nil
}

func parseImports(text string) []string {
	var imports []string
	seen := make(map[string]bool)
	for _, m := range reImport.FindAllStringSubmatch(text, -1) {
		ref := m[1]
		if !seen[ref] {
			seen[ref] = true
			imports = append(imports, ref)
		}
	}
	return imports
}

func parseHeaderSymbols(text string) []Symbol {
	var symbols []Symbol

	for _, m := range reInterface.FindAllStringSubmatch(text, -1) {
		if m[2] != "" {
			symbols = append(symbols, Symbol{Name: m[1] + "(" + m[2] + ")", Kind: SymbolCategory})
		} else {
			symbols = append(symbols, Symbol{Name: m[1], Kind: SymbolClass})
		}
	}

	for _, m := range reProtocol.FindAllStringSubmatch(text, -1) {
		// "@protocol Foo;" and "@protocol Foo, Bar;" are forward
		// declarations, not definitions.
		if m[2] == ";" || m[2] == "," {
			continue
		}
		symbols = append(symbols, Symbol{Name: m[1], Kind: SymbolProtocol})
	}

	for _, m := range reNSEnum.FindAllStringSubmatch(text, -1) {
		symbols = append(symbols, Symbol{Name: m[1], Kind: SymbolEnum})
	}
	for _, m := range reCEnum.FindAllStringSubmatch(text, -1) {
		symbols = append(symbols, Symbol{Name: m[1], Kind: SymbolEnum})
	}

	for _, m := range reFunction.FindAllStringSubmatch(text, -1) {
		if strings.Contains(m[0], "typedef") {
			continue
		}
		symbols = append(symbols, Symbol{Name: m[1], Kind: SymbolFunction})
	}

	for _, m := range reConstant.FindAllStringSubmatch(text, -1) {
		symbols = append(symbols, Symbol{Name: m[1], Kind: SymbolConstant})
	}

	return dedupeSymbols(symbols)
}

func parseImplSymbols(text string) []Symbol {
	var symbols []Symbol
	for _, m := range reImpl.FindAllStringSubmatch(text, -1) {
		if m[2] != "" {
			symbols = append(symbols, Symbol{Name: m[1] + "(" + m[2] + ")", Kind: SymbolCategory})
		} else {
			symbols = append(symbols, Symbol{Name: m[1], Kind: SymbolClass})
		}
	}

	for _, m := range reFunction.FindAllStringSubmatch(text, -1) {
		if strings.Contains(m[0], "typedef") || strings.Contains(m[0], "static") {
			continue
		}
		symbols = append(symbols, Symbol{Name: m[1], Kind: SymbolFunction})
	}

	return dedupeSymbols(symbols)
}

// dedupeSymbols removes repeats of the same name+kind within one file,
// keeping first-declaration order. A class declared in both a base
// @interface and a class extension is still one symbol.
func dedupeSymbols(symbols []Symbol) []Symbol {
	var out []Symbol
	seen := make(map[Symbol]bool)
	for _, s := range symbols {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
