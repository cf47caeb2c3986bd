// Package errors provides structured error types for the framework builder.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the pipeline stages and the CLI
//   - Machine-readable error codes for programmatic handling
//   - Attribution of every error to the pipeline stage that produced it
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Each code corresponds to one diagnostic kind emitted by the pipeline:
//   - PARSE_FAILURE: one header could not be decoded or parsed (recoverable)
//   - CYCLIC_DEPENDENCY: the header import graph contains a cycle (fatal)
//   - SYMBOL_COLLISION: a symbol is declared by more than one file
//   - PLATFORM_BUILD_FAILURE: one platform's toolchain invocation failed
//   - SLICE_INCOMPATIBILITY: two slices cannot be merged into one grouping
//   - MISSING_ARTIFACT: a build reported success but produced no artifact
//
// # Usage
//
//	err := errors.New(errors.CodeParseFailure, errors.StageAnalyze, "cannot decode %s", path)
//	if errors.Is(err, errors.CodeParseFailure) {
//	    // Handle per-file parse failure
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.CodePlatformBuildFailure, errors.StageBuild, origErr, "build %s", target)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the diagnostic kinds the pipeline can report.
const (
	CodeParseFailure         Code = "PARSE_FAILURE"
	CodeCyclicDependency     Code = "CYCLIC_DEPENDENCY"
	CodeSymbolCollision      Code = "SYMBOL_COLLISION"
	CodePlatformBuildFailure Code = "PLATFORM_BUILD_FAILURE"
	CodeSliceIncompatibility Code = "SLICE_INCOMPATIBILITY"
	CodeMissingArtifact      Code = "MISSING_ARTIFACT"

	// Glue-level codes used outside the six diagnostic kinds.
	CodeInvalidConfig Code = "INVALID_CONFIG"
	CodeInternal      Code = "INTERNAL_ERROR"
)

// Stage identifies the pipeline component an error originates from.
// Every reported error names its stage so the CLI layer can render
// diagnostics without guessing where they came from.
type Stage string

// Pipeline stages, in execution order.
const (
	StageAnalyze    Stage = "analyze"
	StageGraph      Stage = "graph"
	StageSymbols    Stage = "symbols"
	StageSynthesize Stage = "synthesize"
	StageBuild      Stage = "build"
	StageMerge      Stage = "merge"
)

// Severity classifies how a diagnostic affects the run.
type Severity string

// Severities attached to diagnostics.
const (
	SeverityWarning Severity = "warning" // recorded, run continues
	SeverityError   Severity = "error"   // fatal to one entity (file, platform, grouping)
	SeverityFatal   Severity = "fatal"   // aborts the whole run
)

// Error is a structured error with a code, the stage that produced it,
// and an optional cause.
type Error struct {
	Code     Code     // Machine-readable error code
	Stage    Stage    // Pipeline stage that produced the error
	Severity Severity // How the error affects the run
	Message  string   // Human-readable message
	Cause    error    // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Code, e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.Stage, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSeverity returns a copy of the error with the given severity.
func (e *Error) WithSeverity(s Severity) *Error {
	clone := *e
	clone.Severity = s
	return &clone
}

// New creates a new Error with the given code, stage, and formatted message.
// The severity defaults to SeverityError.
func New(code Code, stage Stage, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Stage:    stage,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, stage Stage, cause error, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Stage:    stage,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Cause:    cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetStage extracts the originating stage from an error, if available.
// Returns empty string if the error is not an *Error.
func GetStage(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// GetSeverity extracts the severity from an error.
// Returns SeverityError if the error is not an *Error.
func GetSeverity(err error) Severity {
	var e *Error
	if errors.As(err, &e) {
		return e.Severity
	}
	return SeverityError
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
