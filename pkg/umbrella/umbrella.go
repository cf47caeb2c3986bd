// Package umbrella synthesizes the single master header that re-exports
// every public header in dependency-safe order.
package umbrella

import (
	"bytes"
	"fmt"
	"path"

	"github.com/zhouruiyy/framework-auto-builder/pkg/header"
)

// Options configures synthesis.
type Options struct {
	// ModuleName is the framework module name used in the banner and guard.
	ModuleName string

	// Exclude lists unit IDs dropped from the export surface by the
	// duplicate-symbol resolver. Excluded units are not imported.
	Exclude map[string][]string
}

// Synthesize emits the umbrella header from the topologically ordered unit
// set. Private units and implementation files are skipped, each public
// header is imported exactly once (deduplicated by unit identity, not by
// import-line text), and the output is byte-for-byte deterministic for the
// same unit set and resolution decisions.
func Synthesize(ordered []*header.SourceUnit, opts Options) []byte {
	var buf bytes.Buffer

	guard := guardMacro(opts.ModuleName)
	fmt.Fprintf(&buf, "//\n//  %s.h\n//  %s\n//\n//  Umbrella header. Generated; do not edit.\n//\n\n", opts.ModuleName, opts.ModuleName)
	fmt.Fprintf(&buf, "#ifndef %s\n#define %s\n\n", guard, guard)

	seen := make(map[string]bool)
	excluded := false
	for _, u := range ordered {
		if !u.IsHeader() || !u.Public {
			continue
		}
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true

		if names, drop := opts.Exclude[u.ID]; drop {
			excluded = true
			fmt.Fprintf(&buf, "// %s excluded: duplicate symbol(s) %s\n", path.Base(u.ID), joinNames(names))
			continue
		}
		fmt.Fprintf(&buf, "#import \"%s\"\n", path.Base(u.ID))
	}
	if excluded {
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "\n#endif /* %s */\n", guard)
	return buf.Bytes()
}

func guardMacro(module string) string {
	out := make([]byte, 0, len(module)+10)
	for i := 0; i < len(module); i++ {
		c := module[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-('a'-'A'))
		case c >= 'A' && c <= 'Z' || c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out) + "_UMBRELLA_H"
}

func joinNames(names []string) string {
	var buf bytes.Buffer
	for i, n := range names {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(n)
	}
	return buf.String()
}
