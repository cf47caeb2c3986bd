package xcodeproj

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/zhouruiyy/framework-auto-builder/pkg/errors"
)

// seqGenerator yields deterministic identifiers for output assertions.
func seqGenerator() *Generator {
	n := 0
	return &Generator{NewID: func() string {
		n++
		return fmt.Sprintf("%024X", n)
	}}
}

func TestGenerateWritesProjectTree(t *testing.T) {
	dir := t.TempDir()
	g := seqGenerator()

	projectDir, err := g.Generate(dir, Spec{
		ModuleName: "Demo",
		Headers:    []string{"B.h", "A.h"},
		Sources:    []string{"A.m", "B.m"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if filepath.Base(projectDir) != "Demo.xcodeproj" {
		t.Errorf("project dir = %s, want Demo.xcodeproj", projectDir)
	}

	for _, rel := range []string{
		"project.pbxproj",
		filepath.Join("xcshareddata", "xcschemes", "Demo.xcscheme"),
		filepath.Join("project.xcworkspace", "contents.xcworkspacedata"),
	} {
		if _, err := os.Stat(filepath.Join(projectDir, rel)); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "Info.plist")); err != nil {
		t.Errorf("Info.plist not written: %v", err)
	}
}

func TestGeneratePbxprojContents(t *testing.T) {
	dir := t.TempDir()
	g := seqGenerator()

	projectDir, err := g.Generate(dir, Spec{
		ModuleName:   "Demo",
		Headers:      []string{"B.h", "A.h"},
		Sources:      []string{"A.m"},
		MinOSVersion: "13.0",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(projectDir, "project.pbxproj"))
	if err != nil {
		t.Fatal(err)
	}
	pbx := string(data)

	for _, want := range []string{
		"// !$*UTF8*$!",
		"productType = \"com.apple.product-type.framework\";",
		"BUILD_LIBRARY_FOR_DISTRIBUTION = YES;",
		"IPHONEOS_DEPLOYMENT_TARGET = 13.0;",
		"A.h in Headers",
		"B.h in Headers",
		"A.m in Sources",
		"settings = {ATTRIBUTES = (Public, ); };",
		"rootObject = ",
	} {
		if !strings.Contains(pbx, want) {
			t.Errorf("pbxproj missing %q", want)
		}
	}

	// Headers emit in lexical order regardless of input order.
	if strings.Index(pbx, "A.h in Headers") > strings.Index(pbx, "B.h in Headers") {
		t.Error("headers not emitted in lexical order")
	}
}

func TestObjectIDFormat(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-F]{24}$`)
	seen := make(map[string]bool)
	for range 50 {
		id := objectID()
		if !re.MatchString(id) {
			t.Fatalf("objectID() = %q, want 24 uppercase hex digits", id)
		}
		if seen[id] {
			t.Fatalf("objectID() repeated %q", id)
		}
		seen[id] = true
	}
}

func TestGenerateDeterministicWithFixedIDs(t *testing.T) {
	spec := Spec{ModuleName: "Demo", Headers: []string{"A.h"}, Sources: []string{"A.m"}}

	first := seqGenerator().pbxproj(spec)
	second := seqGenerator().pbxproj(spec)
	if first != second {
		t.Error("pbxproj output differs across runs with identical identifiers")
	}
}

func TestGenerateRequiresModuleName(t *testing.T) {
	_, err := NewGenerator().Generate(t.TempDir(), Spec{})
	if errors.GetCode(err) != errors.CodeInvalidConfig {
		t.Errorf("code = %s, want INVALID_CONFIG", errors.GetCode(err))
	}
}

func TestGenerateKeepsExistingInfoPlist(t *testing.T) {
	dir := t.TempDir()
	custom := []byte("<plist><dict/></plist>\n")
	if err := os.WriteFile(filepath.Join(dir, "Info.plist"), custom, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewGenerator().Generate(dir, Spec{ModuleName: "Demo"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "Info.plist"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(custom) {
		t.Error("existing Info.plist was overwritten")
	}
}
