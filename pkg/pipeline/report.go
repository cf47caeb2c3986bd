package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	fberrors "github.com/zhouruiyy/framework-auto-builder/pkg/errors"
	"github.com/zhouruiyy/framework-auto-builder/pkg/symbols"
)

// Status is the overall outcome of a run.
type Status string

// Run outcomes.
const (
	StatusSucceeded Status = "succeeded"
	StatusPartial   Status = "partial" // some platforms failed, partial bundle emitted
	StatusFailed    Status = "failed"
)

// Report is the build summary persisted at the end of every run,
// successful or not.
type Report struct {
	ModuleName         string       `json:"module_name"`
	HeadersCount       int          `json:"headers_count"`
	SourcesCount       int          `json:"sources_count"`
	SymbolsCount       int          `json:"symbols_count"`
	Collisions         []Collision  `json:"collisions"`
	PlatformsAttempted []string     `json:"platforms_attempted"`
	PlatformsSucceeded []string     `json:"platforms_succeeded"`
	OverallStatus      Status       `json:"overall_status"`
	BundlePath         string       `json:"bundle_path,omitempty"`
	Diagnostics        []Diagnostic `json:"diagnostics,omitempty"`
	StartedAt          time.Time    `json:"started_at"`
	FinishedAt         time.Time    `json:"finished_at"`
}

// Collision is one duplicate-symbol group in the report. Every group is
// reported even when the resolution policy excluded the losers.
type Collision struct {
	Name  string   `json:"name"`
	Kind  string   `json:"kind"`
	Units []string `json:"units"`

	// Winner is the unit whose declaration stays exported under
	// auto-exclude; empty under the other policies.
	Winner string `json:"winner,omitempty"`
}

// Diagnostic is one reported failure: a parse failure, a cycle, a
// collision under fail-fast, a platform build failure, or a merge
// incompatibility.
type Diagnostic struct {
	Code     string `json:"code"`
	Stage    string `json:"stage"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func newReport(moduleName string, platforms []string) *Report {
	return &Report{
		ModuleName:         moduleName,
		Collisions:         []Collision{},
		PlatformsAttempted: platforms,
		PlatformsSucceeded: []string{},
		StartedAt:          time.Now().UTC(),
	}
}

// AddDiagnostic records an error in the report, preserving its code,
// stage, and severity when it is a structured pipeline error.
func (r *Report) AddDiagnostic(err error) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Code:     string(fberrors.GetCode(err)),
		Stage:    string(fberrors.GetStage(err)),
		Severity: string(fberrors.GetSeverity(err)),
		Message:  fberrors.UserMessage(err),
	})
}

func (r *Report) addCollisions(res *symbols.Resolution) {
	winner := func(rec symbols.Record) string {
		// A winner only exists when auto-exclude actually dropped the
		// other declaring headers; implementation-only collisions keep
		// every unit.
		if res.Policy != symbols.PolicyAutoExclude || len(rec.DeclaredBy) <= 1 {
			return ""
		}
		return rec.DeclaredBy[0]
	}
	for _, rec := range res.Collisions {
		r.Collisions = append(r.Collisions, Collision{
			Name:   rec.Name,
			Kind:   string(rec.Kind),
			Units:  rec.Units(),
			Winner: winner(rec),
		})
	}
}

func (r *Report) finish(status Status) {
	r.OverallStatus = status
	r.FinishedAt = time.Now().UTC()
}

// Write persists the report as indented JSON under dir.
func (r *Report) Write(dir string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fberrors.Wrap(fberrors.CodeInternal, fberrors.StageMerge, err, "encode build summary")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fberrors.Wrap(fberrors.CodeInternal, fberrors.StageMerge, err, "create output dir")
	}
	path := filepath.Join(dir, SummaryFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fberrors.Wrap(fberrors.CodeInternal, fberrors.StageMerge, err, "write build summary")
	}
	return nil
}

// ReadReport loads a previously written build summary.
func ReadReport(dir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(dir, SummaryFileName))
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
