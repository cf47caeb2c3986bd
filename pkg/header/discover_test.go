package header

import (
	"os"
	"path/filepath"
	"testing"

	fberrors "github.com/zhouruiyy/framework-auto-builder/pkg/errors"
)

func writeTreeFile(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("// "+rel+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscoverTree(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "Headers/B.h")
	writeTreeFile(t, root, "Headers/A.h")
	writeTreeFile(t, root, "Headers/nested/C.h")
	writeTreeFile(t, root, "PrivateHeaders/Internal.h")
	writeTreeFile(t, root, "Sources/A.m")
	writeTreeFile(t, root, "Sources/C.mm")
	writeTreeFile(t, root, "Sources/legacy.c")
	writeTreeFile(t, root, "Sources/README.md")

	tree, err := DiscoverTree(root)
	if err != nil {
		t.Fatalf("DiscoverTree: %v", err)
	}

	if got, want := len(tree.PublicHeaders), 3; got != want {
		t.Errorf("public headers = %d, want %d (%v)", got, want, tree.PublicHeaders)
	}
	// Ascending lexical order, nested directories included.
	if filepath.Base(tree.PublicHeaders[0]) != "A.h" || filepath.Base(tree.PublicHeaders[1]) != "B.h" {
		t.Errorf("public headers not sorted: %v", tree.PublicHeaders)
	}
	if got, want := len(tree.PrivateHeaders), 1; got != want {
		t.Errorf("private headers = %d, want %d", got, want)
	}
	if got, want := len(tree.Sources), 3; got != want {
		t.Errorf("sources = %d, want %d (%v)", got, want, tree.Sources)
	}
	if got, want := tree.FileCount(), 7; got != want {
		t.Errorf("FileCount = %d, want %d", got, want)
	}
}

func TestDiscoverTreeColocatedImplementations(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "Headers/Widget.h")
	writeTreeFile(t, root, "Headers/Widget.m")

	tree, err := DiscoverTree(root)
	if err != nil {
		t.Fatalf("DiscoverTree: %v", err)
	}
	if got, want := len(tree.Sources), 1; got != want {
		t.Fatalf("sources = %d, want %d (%v)", got, want, tree.Sources)
	}
	if filepath.Base(tree.Sources[0]) != "Widget.m" {
		t.Errorf("source = %s, want Widget.m", tree.Sources[0])
	}
}

func TestDiscoverTreeMissingSubdirs(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "Headers/Only.h")

	tree, err := DiscoverTree(root)
	if err != nil {
		t.Fatalf("DiscoverTree: %v", err)
	}
	if len(tree.PrivateHeaders) != 0 || len(tree.Sources) != 0 {
		t.Errorf("expected empty private/sources, got %v / %v", tree.PrivateHeaders, tree.Sources)
	}
}

func TestDiscoverTreeNoPublicHeaders(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "Sources/Orphan.m")

	_, err := DiscoverTree(root)
	if !fberrors.Is(err, fberrors.CodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}
