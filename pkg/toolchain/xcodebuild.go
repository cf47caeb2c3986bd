package toolchain

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Xcodebuild drives the xcodebuild command-line tool.
type Xcodebuild struct {
	// Configuration is the build configuration, "Release" by default.
	Configuration string

	Logger *log.Logger
}

// NewXcodebuild creates the standard xcodebuild-backed toolchain.
func NewXcodebuild(logger *log.Logger) *Xcodebuild {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Xcodebuild{Configuration: "Release", Logger: logger}
}

// Check verifies xcodebuild is installed and runnable.
func (x *Xcodebuild) Check(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "xcodebuild", "-version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("xcodebuild not available: %w", err)
	}
	if fields := strings.Fields(string(out)); len(fields) >= 2 {
		x.Logger.Debug("toolchain ready", "xcode", fields[1])
	}
	return nil
}

// Build invokes xcodebuild once for the requested target. The invocation
// inherits ctx, so cancelling the run terminates the child process and its
// partial output stays in the target's isolated work directory.
func (x *Xcodebuild) Build(ctx context.Context, req Request) (*Result, error) {
	if err := os.MkdirAll(req.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	args := []string{
		"-project", req.ProjectPath,
		"-scheme", req.Scheme,
		"-configuration", x.configuration(),
		"-sdk", req.Target.SDK,
		"-destination", req.Target.Destination,
		"BUILD_DIR=" + req.WorkDir,
		"SKIP_INSTALL=NO",
		"BUILD_LIBRARY_FOR_DISTRIBUTION=YES",
		"ONLY_ACTIVE_ARCH=NO",
	}
	if len(req.Target.Archs) > 0 {
		args = append(args, "ARCHS="+strings.Join(req.Target.Archs, " "))
	}
	if req.Target.MinOSVersion != "" && req.Target.Family == "ios" {
		args = append(args, "IPHONEOS_DEPLOYMENT_TARGET="+req.Target.MinOSVersion)
	}
	args = append(args, "build")

	x.Logger.Debug("invoking toolchain", "target", req.Target.ID, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "xcodebuild", args...)
	cmd.Dir = filepath.Dir(req.ProjectPath)
	out, err := cmd.CombinedOutput()
	logText := string(out)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Result{Success: false, Log: logText}, nil
	}

	artifact := x.findArtifact(req)
	return &Result{Success: true, ArtifactPath: artifact, Log: logText}, nil
}

func (x *Xcodebuild) configuration() string {
	if x.Configuration == "" {
		return "Release"
	}
	return x.Configuration
}

// findArtifact probes the product layouts xcodebuild is known to use, then
// falls back to walking the work directory. Returns empty if nothing was
// produced; the orchestrator treats that as MISSING_ARTIFACT.
func (x *Xcodebuild) findArtifact(req Request) string {
	name := req.ModuleName + ".framework"
	cfg := x.configuration()

	candidates := []string{
		filepath.Join(req.WorkDir, cfg, name),
		filepath.Join(req.WorkDir, cfg+"-"+req.Target.SDK, name),
		filepath.Join(req.WorkDir, "Products", cfg, name),
		filepath.Join(req.WorkDir, "Products", cfg+"-"+req.Target.SDK, name),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}

	var found string
	_ = filepath.WalkDir(req.WorkDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// Ensure Xcodebuild implements Toolchain.
var _ Toolchain = (*Xcodebuild)(nil)
