package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := New(CodeParseFailure, StageAnalyze, "cannot decode %s", "A.h")

	got := err.Error()
	if !strings.Contains(got, "PARSE_FAILURE") {
		t.Errorf("Error() = %q, want code in message", got)
	}
	if !strings.Contains(got, "analyze") {
		t.Errorf("Error() = %q, want stage in message", got)
	}
	if !strings.Contains(got, "A.h") {
		t.Errorf("Error() = %q, want formatted message", got)
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("exit status 65")
	err := Wrap(CodePlatformBuildFailure, StageBuild, cause, "build ios-device")

	if !stderrors.Is(err, cause) {
		t.Error("Wrap() should preserve the cause for errors.Is")
	}
	if !strings.Contains(err.Error(), "exit status 65") {
		t.Errorf("Error() = %q, want cause in message", err.Error())
	}
}

func TestIs(t *testing.T) {
	err := New(CodeCyclicDependency, StageGraph, "cycle detected")

	if !Is(err, CodeCyclicDependency) {
		t.Error("Is() = false, want true for matching code")
	}
	if Is(err, CodeSymbolCollision) {
		t.Error("Is() = true, want false for non-matching code")
	}
	if Is(stderrors.New("plain"), CodeCyclicDependency) {
		t.Error("Is() = true, want false for non-structured error")
	}
}

func TestIs_WrappedChain(t *testing.T) {
	inner := New(CodeMissingArtifact, StageBuild, "no artifact")
	outer := fmt.Errorf("platform ios-device: %w", inner)

	if !Is(outer, CodeMissingArtifact) {
		t.Error("Is() should unwrap fmt-wrapped chains")
	}
}

func TestGetCodeAndStage(t *testing.T) {
	err := New(CodeSliceIncompatibility, StageMerge, "min OS mismatch")

	if got := GetCode(err); got != CodeSliceIncompatibility {
		t.Errorf("GetCode() = %q, want %q", got, CodeSliceIncompatibility)
	}
	if got := GetStage(err); got != StageMerge {
		t.Errorf("GetStage() = %q, want %q", got, StageMerge)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
}

func TestWithSeverity(t *testing.T) {
	err := New(CodeSymbolCollision, StageSymbols, "duplicate NetworkManager")
	warn := err.WithSeverity(SeverityWarning)

	if warn.Severity != SeverityWarning {
		t.Errorf("WithSeverity() severity = %q, want %q", warn.Severity, SeverityWarning)
	}
	if err.Severity != SeverityError {
		t.Error("WithSeverity() must not mutate the original error")
	}
}

func TestUserMessage(t *testing.T) {
	err := New(CodeParseFailure, StageAnalyze, "cannot decode A.h")

	if got := UserMessage(err); got != "cannot decode A.h" {
		t.Errorf("UserMessage() = %q, want message without code prefix", got)
	}
	if got := UserMessage(stderrors.New("plain")); got != "plain" {
		t.Errorf("UserMessage(plain) = %q, want %q", got, "plain")
	}
}
