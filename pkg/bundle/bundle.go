// Package bundle assembles successful platform slices into the final
// framework bundle directory and writes its manifest.
package bundle

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/zhouruiyy/framework-auto-builder/pkg/errors"
	"github.com/zhouruiyy/framework-auto-builder/pkg/toolchain"
)

// SliceInput is one successful platform build handed to the merger.
type SliceInput struct {
	Target       toolchain.Target
	ArtifactPath string

	// ExportHash fingerprints the slice's public export surface. Slices
	// in the same grouping must agree on it; empty skips the check.
	ExportHash string
}

// HeaderFile is one public header to install into every grouping.
type HeaderFile struct {
	Name string
	Path string
}

// Options configures a merge run.
type Options struct {
	ModuleName string

	// OutputDir is the parent directory; the bundle is written to
	// OutputDir/<ModuleName>.xcframework.
	OutputDir string

	// Umbrella is the synthesized umbrella header content, installed as
	// <ModuleName>.h in each grouping's Headers directory.
	Umbrella []byte

	// Headers are the original public headers, copied alongside the
	// umbrella.
	Headers []HeaderFile

	Logger *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.NewWithOptions(io.Discard, log.Options{})
	}
	return o.Logger
}

// Bundle is the merge outcome: the written manifest plus any groupings
// that were refused for incompatible slices. A grouping failure never
// blocks the remaining groupings.
type Bundle struct {
	Path     string
	Manifest Manifest
	Failures []GroupingFailure
}

// GroupingFailure records one grouping the merger refused to assemble.
type GroupingFailure struct {
	Grouping string
	Err      error
}

// Merge groups slices by OS family, validates each grouping, and writes
// the bundle tree. Slices must all have succeeded; the pipeline filters
// failures before calling.
func Merge(slices []SliceInput, opts Options) (*Bundle, error) {
	if opts.ModuleName == "" {
		return nil, errors.New(errors.CodeInvalidConfig, errors.StageMerge, "module name is required")
	}
	if len(slices) == 0 {
		return nil, errors.New(errors.CodeInvalidConfig, errors.StageMerge, "no slices to merge")
	}
	if err := validateHeaderNames(opts); err != nil {
		return nil, err
	}

	root := filepath.Join(opts.OutputDir, opts.ModuleName+".xcframework")
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, errors.StageMerge, err, "create bundle root")
	}

	groups := groupByFamily(slices)
	families := make([]string, 0, len(groups))
	for f := range groups {
		families = append(families, f)
	}
	sort.Strings(families)

	b := &Bundle{
		Path: root,
		Manifest: Manifest{
			FormatVersion: FormatVersion,
			ModuleName:    opts.ModuleName,
		},
	}

	for _, family := range families {
		group := groups[family]
		if err := validateGrouping(family, group); err != nil {
			opts.logger().Error("grouping refused", "grouping", family, "err", err)
			b.Failures = append(b.Failures, GroupingFailure{Grouping: family, Err: err})
			continue
		}
		entry, err := writeGrouping(root, family, group, opts)
		if err != nil {
			b.Failures = append(b.Failures, GroupingFailure{Grouping: family, Err: err})
			continue
		}
		b.Manifest.Groupings = append(b.Manifest.Groupings, *entry)
		opts.logger().Info("grouping assembled", "grouping", family, "variants", len(group))
	}

	if len(b.Manifest.Groupings) == 0 {
		return b, errors.New(errors.CodeSliceIncompatibility, errors.StageMerge,
			"no grouping could be assembled")
	}
	if err := b.Manifest.Write(filepath.Join(root, ManifestName)); err != nil {
		return nil, err
	}
	return b, nil
}

// validateHeaderNames refuses header sets that would overwrite each
// other in the flat Headers directory of a grouping.
func validateHeaderNames(opts Options) error {
	umbrellaName := opts.ModuleName + ".h"
	seen := map[string]string{umbrellaName: "the generated umbrella header"}
	for _, h := range opts.Headers {
		if prev, ok := seen[h.Name]; ok {
			return errors.New(errors.CodeInvalidConfig, errors.StageMerge,
				"duplicate header name %q: %s and %s", h.Name, prev, h.Path)
		}
		seen[h.Name] = h.Path
	}
	return nil
}

func groupByFamily(slices []SliceInput) map[string][]SliceInput {
	groups := make(map[string][]SliceInput)
	for _, s := range slices {
		groups[s.Target.Family] = append(groups[s.Target.Family], s)
	}
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool { return group[i].Target.ID < group[j].Target.ID })
	}
	return groups
}

// validateGrouping refuses groupings whose slices were built against
// different minimum OS versions or different export surfaces.
func validateGrouping(family string, group []SliceInput) error {
	first := group[0]
	for _, s := range group[1:] {
		if s.Target.MinOSVersion != first.Target.MinOSVersion {
			return errors.New(errors.CodeSliceIncompatibility, errors.StageMerge,
				"grouping %s: %s targets OS %s but %s targets OS %s",
				family, first.Target.ID, first.Target.MinOSVersion, s.Target.ID, s.Target.MinOSVersion)
		}
		if s.ExportHash != first.ExportHash {
			return errors.New(errors.CodeSliceIncompatibility, errors.StageMerge,
				"grouping %s: %s and %s expose different export surfaces",
				family, first.Target.ID, s.Target.ID)
		}
	}
	return nil
}

func writeGrouping(root, family string, group []SliceInput, opts Options) (*Grouping, error) {
	dir := filepath.Join(root, family)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, errors.StageMerge, err, "create grouping dir")
	}

	entry := &Grouping{
		ID:           family,
		MinOSVersion: group[0].Target.MinOSVersion,
	}

	archSet := make(map[string]bool)
	for _, s := range group {
		variantDir := filepath.Join(dir, s.Target.ID)
		dest := filepath.Join(variantDir, filepath.Base(s.ArtifactPath))
		if err := copyTree(s.ArtifactPath, dest); err != nil {
			return nil, errors.Wrap(errors.CodeMissingArtifact, errors.StageMerge, err,
				"copy artifact for %s", s.Target.ID)
		}
		rel, _ := filepath.Rel(root, dest)
		entry.Variants = append(entry.Variants, Variant{
			Target:        s.Target.ID,
			SDK:           s.Target.SDK,
			Architectures: s.Target.Archs,
			Path:          filepath.ToSlash(rel),
		})
		for _, a := range s.Target.Archs {
			archSet[a] = true
		}
	}
	for a := range archSet {
		entry.Architectures = append(entry.Architectures, a)
	}
	sort.Strings(entry.Architectures)

	if err := writeHeaders(dir, opts); err != nil {
		return nil, err
	}
	entry.HeadersPath = filepath.ToSlash(filepath.Join(family, "Headers"))

	desc, err := os.Create(filepath.Join(dir, "descriptor.json"))
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, errors.StageMerge, err, "write grouping descriptor")
	}
	defer desc.Close()
	if err := writeJSON(desc, entry); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, errors.StageMerge, err, "encode grouping descriptor")
	}
	return entry, nil
}

func writeHeaders(groupingDir string, opts Options) error {
	headersDir := filepath.Join(groupingDir, "Headers")
	if err := os.MkdirAll(headersDir, 0755); err != nil {
		return errors.Wrap(errors.CodeInternal, errors.StageMerge, err, "create headers dir")
	}
	umbrella := filepath.Join(headersDir, opts.ModuleName+".h")
	if err := os.WriteFile(umbrella, opts.Umbrella, 0644); err != nil {
		return errors.Wrap(errors.CodeInternal, errors.StageMerge, err, "write umbrella header")
	}
	for _, h := range opts.Headers {
		if err := copyFile(h.Path, filepath.Join(headersDir, h.Name)); err != nil {
			return errors.Wrap(errors.CodeInternal, errors.StageMerge, err, "copy header %s", h.Name)
		}
	}
	return nil
}

func copyTree(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dest)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	for _, e := range entries {
		if err := copyTree(filepath.Join(src, e.Name()), filepath.Join(dest, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
