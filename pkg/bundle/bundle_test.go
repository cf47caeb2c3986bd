package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zhouruiyy/framework-auto-builder/pkg/errors"
	"github.com/zhouruiyy/framework-auto-builder/pkg/toolchain"
)

func fakeArtifact(t *testing.T, dir, module string) string {
	t.Helper()
	path := filepath.Join(dir, module+".framework")
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, module), []byte("binary"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mustTarget(t *testing.T, id string) toolchain.Target {
	t.Helper()
	target, ok := toolchain.Lookup(id)
	if !ok {
		t.Fatalf("unknown target %s", id)
	}
	return target
}

func TestMergeGroupsByFamily(t *testing.T) {
	work := t.TempDir()
	out := t.TempDir()

	slices := []SliceInput{
		{Target: mustTarget(t, "ios-device"), ArtifactPath: fakeArtifact(t, filepath.Join(work, "d"), "Demo")},
		{Target: mustTarget(t, "ios-simulator"), ArtifactPath: fakeArtifact(t, filepath.Join(work, "s"), "Demo")},
		{Target: mustTarget(t, "macos"), ArtifactPath: fakeArtifact(t, filepath.Join(work, "m"), "Demo")},
	}
	b, err := Merge(slices, Options{
		ModuleName: "Demo",
		OutputDir:  out,
		Umbrella:   []byte("#import \"A.h\"\n"),
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(b.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", b.Failures)
	}
	if len(b.Manifest.Groupings) != 2 {
		t.Fatalf("groupings = %d, want 2 (ios, macos)", len(b.Manifest.Groupings))
	}

	ios := b.Manifest.Grouping("ios")
	if ios == nil {
		t.Fatal("manifest has no ios grouping")
	}
	if len(ios.Variants) != 2 {
		t.Errorf("ios variants = %d, want 2", len(ios.Variants))
	}
	wantArchs := []string{"arm64", "x86_64"}
	if len(ios.Architectures) != len(wantArchs) {
		t.Fatalf("ios archs = %v, want %v", ios.Architectures, wantArchs)
	}
	for i, a := range wantArchs {
		if ios.Architectures[i] != a {
			t.Errorf("ios archs[%d] = %s, want %s", i, ios.Architectures[i], a)
		}
	}

	if _, err := os.Stat(filepath.Join(b.Path, ManifestName)); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(b.Path, "ios", "Headers", "Demo.h")); err != nil {
		t.Errorf("umbrella not installed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(b.Path, "ios", "ios-device", "Demo.framework", "Demo")); err != nil {
		t.Errorf("device artifact not copied: %v", err)
	}
}

func TestMergeMinOSMismatchFailsOnlyThatGrouping(t *testing.T) {
	work := t.TempDir()
	out := t.TempDir()

	device := mustTarget(t, "ios-device")
	sim := mustTarget(t, "ios-simulator")
	sim.MinOSVersion = "15.0"

	slices := []SliceInput{
		{Target: device, ArtifactPath: fakeArtifact(t, filepath.Join(work, "d"), "Demo")},
		{Target: sim, ArtifactPath: fakeArtifact(t, filepath.Join(work, "s"), "Demo")},
		{Target: mustTarget(t, "macos"), ArtifactPath: fakeArtifact(t, filepath.Join(work, "m"), "Demo")},
	}
	b, err := Merge(slices, Options{ModuleName: "Demo", OutputDir: out, Umbrella: []byte("//\n")})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if len(b.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(b.Failures))
	}
	if b.Failures[0].Grouping != "ios" {
		t.Errorf("failed grouping = %s, want ios", b.Failures[0].Grouping)
	}
	if errors.GetCode(b.Failures[0].Err) != errors.CodeSliceIncompatibility {
		t.Errorf("code = %s, want SLICE_INCOMPATIBILITY", errors.GetCode(b.Failures[0].Err))
	}
	if b.Manifest.Grouping("ios") != nil {
		t.Error("incompatible ios grouping must not appear in manifest")
	}
	if b.Manifest.Grouping("macos") == nil {
		t.Error("macos grouping should still merge")
	}
	if _, err := os.Stat(filepath.Join(b.Path, "ios", "ios-device")); !os.IsNotExist(err) {
		t.Error("refused grouping must not leave artifacts in the bundle")
	}
}

func TestMergeExportSurfaceMismatch(t *testing.T) {
	work := t.TempDir()

	slices := []SliceInput{
		{Target: mustTarget(t, "ios-device"), ArtifactPath: fakeArtifact(t, filepath.Join(work, "d"), "Demo"), ExportHash: "aaa"},
		{Target: mustTarget(t, "ios-simulator"), ArtifactPath: fakeArtifact(t, filepath.Join(work, "s"), "Demo"), ExportHash: "bbb"},
	}
	b, err := Merge(slices, Options{ModuleName: "Demo", OutputDir: t.TempDir(), Umbrella: []byte("//\n")})
	if errors.GetCode(err) != errors.CodeSliceIncompatibility {
		t.Fatalf("error = %v, want SLICE_INCOMPATIBILITY", err)
	}
	if len(b.Manifest.Groupings) != 0 {
		t.Error("no grouping should be assembled")
	}
}

func TestMergeCopiesOriginalHeaders(t *testing.T) {
	work := t.TempDir()
	src := filepath.Join(work, "A.h")
	if err := os.WriteFile(src, []byte("@interface A\n@end\n"), 0644); err != nil {
		t.Fatal(err)
	}

	slices := []SliceInput{
		{Target: mustTarget(t, "macos"), ArtifactPath: fakeArtifact(t, filepath.Join(work, "m"), "Demo")},
	}
	b, err := Merge(slices, Options{
		ModuleName: "Demo",
		OutputDir:  t.TempDir(),
		Umbrella:   []byte("#import \"A.h\"\n"),
		Headers:    []HeaderFile{{Name: "A.h", Path: src}},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(b.Path, "macos", "Headers", "A.h")); err != nil {
		t.Errorf("original header not installed: %v", err)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	m := &Manifest{
		FormatVersion: FormatVersion,
		ModuleName:    "Demo",
		Groupings: []Grouping{{
			ID:            "ios",
			Architectures: []string{"arm64"},
			MinOSVersion:  "12.0",
			Variants:      []Variant{{Target: "ios-device", SDK: "iphoneos", Architectures: []string{"arm64"}, Path: "ios/ios-device/Demo.framework"}},
		}},
	}
	path := filepath.Join(t.TempDir(), ManifestName)
	if err := m.Write(path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if got.FormatVersion != FormatVersion || got.ModuleName != "Demo" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if g := got.Grouping("ios"); g == nil || g.MinOSVersion != "12.0" {
		t.Errorf("ios grouping = %+v", got.Grouping("ios"))
	}
}

func TestMergeNoSlices(t *testing.T) {
	_, err := Merge(nil, Options{ModuleName: "Demo", OutputDir: t.TempDir()})
	if errors.GetCode(err) != errors.CodeInvalidConfig {
		t.Errorf("code = %s, want INVALID_CONFIG", errors.GetCode(err))
	}
}

func TestMergeDuplicateHeaderNames(t *testing.T) {
	work := t.TempDir()
	slices := []SliceInput{
		{Target: mustTarget(t, "macos"), ArtifactPath: fakeArtifact(t, work, "Demo")},
	}

	_, err := Merge(slices, Options{
		ModuleName: "Demo",
		OutputDir:  t.TempDir(),
		Umbrella:   []byte("#import \"Dup.h\"\n"),
		Headers: []HeaderFile{
			{Name: "Dup.h", Path: "src/AAA/Headers/Dup.h"},
			{Name: "Dup.h", Path: "src/BBB/Headers/Dup.h"},
		},
	})
	if !errors.Is(err, errors.CodeInvalidConfig) {
		t.Errorf("Merge() error = %v, want INVALID_CONFIG", err)
	}
}

func TestMergeHeaderShadowingUmbrella(t *testing.T) {
	work := t.TempDir()
	slices := []SliceInput{
		{Target: mustTarget(t, "macos"), ArtifactPath: fakeArtifact(t, work, "Demo")},
	}

	_, err := Merge(slices, Options{
		ModuleName: "Demo",
		OutputDir:  t.TempDir(),
		Umbrella:   []byte("\n"),
		Headers:    []HeaderFile{{Name: "Demo.h", Path: "Headers/Demo.h"}},
	})
	if !errors.Is(err, errors.CodeInvalidConfig) {
		t.Errorf("Merge() error = %v, want INVALID_CONFIG", err)
	}
}
