package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zhouruiyy/framework-auto-builder/pkg/errors"
	"github.com/zhouruiyy/framework-auto-builder/pkg/toolchain"
)

// fakeToolchain produces artifacts on disk for succeeding targets and
// failure results for the rest.
type fakeToolchain struct {
	mu    sync.Mutex
	fail  map[string]bool
	slow  map[string]time.Duration
	built []string
}

func (f *fakeToolchain) Check(ctx context.Context) error { return nil }

func (f *fakeToolchain) Build(ctx context.Context, req toolchain.Request) (*toolchain.Result, error) {
	if d := f.slow[req.Target.ID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.built = append(f.built, req.Target.ID)
	f.mu.Unlock()

	if f.fail[req.Target.ID] {
		return &toolchain.Result{Success: false, Log: "error: compile failed"}, nil
	}
	artifact := filepath.Join(req.WorkDir, req.ModuleName+".framework")
	if err := os.MkdirAll(artifact, 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(artifact, req.ModuleName), []byte("binary"), 0644); err != nil {
		return nil, err
	}
	return &toolchain.Result{Success: true, ArtifactPath: artifact, Log: "build succeeded"}, nil
}

func testTargets(ids ...string) []toolchain.Target {
	var ts []toolchain.Target
	for _, id := range ids {
		t, ok := toolchain.Lookup(id)
		if !ok {
			panic("unknown target " + id)
		}
		ts = append(ts, t)
	}
	return ts
}

func TestBuildAllSucceeds(t *testing.T) {
	tc := &fakeToolchain{}
	o := New(tc, Options{Workers: 2})

	plan := Plan{
		ModuleName: "Demo",
		Scheme:     "Demo",
		WorkRoot:   t.TempDir(),
		Targets:    testTargets("ios-device", "ios-simulator", "macos"),
	}
	slices, err := o.BuildAll(context.Background(), plan)
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	if len(slices) != 3 {
		t.Fatalf("len(slices) = %d, want 3", len(slices))
	}
	for _, s := range slices {
		if s.Status != StatusSucceeded {
			t.Errorf("slice %s status = %s, want succeeded", s.Target.ID, s.Status)
		}
		if s.ArtifactPath == "" {
			t.Errorf("slice %s has no artifact path", s.Target.ID)
		}
	}
}

func TestBuildAllResultOrderMatchesPlan(t *testing.T) {
	tc := &fakeToolchain{slow: map[string]time.Duration{"ios-device": 30 * time.Millisecond}}
	o := New(tc, Options{Workers: 3})

	plan := Plan{
		ModuleName: "Demo",
		Scheme:     "Demo",
		WorkRoot:   t.TempDir(),
		Targets:    testTargets("ios-device", "ios-simulator", "macos"),
	}
	slices, err := o.BuildAll(context.Background(), plan)
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	want := []string{"ios-device", "ios-simulator", "macos"}
	for i, s := range slices {
		if s.Target.ID != want[i] {
			t.Errorf("slices[%d] = %s, want %s", i, s.Target.ID, want[i])
		}
	}
}

func TestBuildAllReportsFailure(t *testing.T) {
	tc := &fakeToolchain{fail: map[string]bool{"ios-simulator": true}}
	o := New(tc, Options{Workers: 2})

	plan := Plan{
		ModuleName: "Demo",
		Scheme:     "Demo",
		WorkRoot:   t.TempDir(),
		Targets:    testTargets("ios-device", "ios-simulator"),
	}
	slices, err := o.BuildAll(context.Background(), plan)
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}

	var failed *Slice
	for i := range slices {
		if slices[i].Target.ID == "ios-simulator" {
			failed = &slices[i]
		}
	}
	if failed == nil || failed.Status != StatusFailed {
		t.Fatalf("ios-simulator slice not reported as failed: %+v", failed)
	}
	if errors.GetCode(failed.Err) != errors.CodePlatformBuildFailure {
		t.Errorf("code = %s, want PLATFORM_BUILD_FAILURE", errors.GetCode(failed.Err))
	}
	if failed.Log == "" {
		t.Error("failed slice should carry the toolchain log")
	}
}

func TestBuildAllStopOnFailureSkipsRemaining(t *testing.T) {
	tc := &fakeToolchain{
		fail: map[string]bool{"ios-device": true},
		slow: map[string]time.Duration{
			"ios-simulator": 200 * time.Millisecond,
			"macos":         200 * time.Millisecond,
		},
	}
	o := New(tc, Options{Workers: 1, StopOnFailure: true})

	plan := Plan{
		ModuleName: "Demo",
		Scheme:     "Demo",
		WorkRoot:   t.TempDir(),
		Targets:    testTargets("ios-device", "ios-simulator", "macos"),
	}
	slices, err := o.BuildAll(context.Background(), plan)
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}

	skipped := 0
	for _, s := range slices {
		if s.Status == StatusSkipped {
			skipped++
		}
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}

func TestBuildAllNoTargets(t *testing.T) {
	o := New(&fakeToolchain{}, Options{})
	_, err := o.BuildAll(context.Background(), Plan{ModuleName: "Demo", WorkRoot: t.TempDir()})
	if errors.GetCode(err) != errors.CodeInvalidConfig {
		t.Errorf("code = %s, want INVALID_CONFIG", errors.GetCode(err))
	}
}

func TestValidateArtifactEmptyDir(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "Demo.framework")
	if err := os.MkdirAll(empty, 0755); err != nil {
		t.Fatal(err)
	}
	err := validateArtifact(empty)
	if errors.GetCode(err) != errors.CodeMissingArtifact {
		t.Errorf("code = %s, want MISSING_ARTIFACT", errors.GetCode(err))
	}
}

func TestSucceededAndFailedFilters(t *testing.T) {
	slices := []Slice{
		{Status: StatusSucceeded},
		{Status: StatusFailed},
		{Status: StatusSkipped},
		{Status: StatusSucceeded},
	}
	if got := len(Succeeded(slices)); got != 2 {
		t.Errorf("Succeeded() = %d, want 2", got)
	}
	if got := len(Failed(slices)); got != 1 {
		t.Errorf("Failed() = %d, want 1", got)
	}
}
