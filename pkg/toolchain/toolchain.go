// Package toolchain defines the external build capability the pipeline
// drives once per platform, and its xcodebuild implementation.
//
// The pipeline treats the toolchain as opaque: it calls Build once per
// requested platform target, observes exit status and captured output,
// and validates the artifact itself. Nothing in this package is retried;
// a build failure is a deterministic function of its inputs.
package toolchain

import "context"

// Request describes one platform build.
type Request struct {
	ModuleName  string // framework/module name
	ProjectPath string // path to the generated .xcodeproj
	Scheme      string // build scheme, typically the module name
	Target      Target // platform target to build for
	WorkDir     string // isolated working/output directory for this target
}

// Result is the observed outcome of one toolchain invocation.
type Result struct {
	Success      bool   // toolchain exited zero
	ArtifactPath string // produced binary artifact, empty on failure
	Log          string // captured combined output
}

// Toolchain is the external compile/link capability.
type Toolchain interface {
	// Check verifies the toolchain is available in the environment.
	Check(ctx context.Context) error

	// Build compiles the module for one platform target. A non-nil error
	// means the invocation itself could not run; a toolchain exit with
	// non-zero status is reported via Result.Success with the captured
	// log, not as an error.
	Build(ctx context.Context, req Request) (*Result, error)
}
