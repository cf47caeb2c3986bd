package header

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	fberrors "github.com/zhouruiyy/framework-auto-builder/pkg/errors"
)

// Conventional subdirectory names scanned by DiscoverTree.
const (
	PublicHeadersDir  = "Headers"
	PrivateHeadersDir = "PrivateHeaders"
	SourcesDir        = "Sources"
)

var sourceExtensions = map[string]bool{
	".m":  true,
	".mm": true,
	".c":  true,
}

// DiscoverTree scans root for the conventional module layout:
//
//	Headers/        public interface files (.h)
//	PrivateHeaders/ private interface files (.h)
//	Sources/        implementation files (.m, .mm, .c)
//
// Implementation files placed next to the headers are picked up too, so
// flat layouts with Headers/ only still build. Missing subdirectories
// yield empty lists; a tree with no public headers is an error.
func DiscoverTree(root string) (SourceTree, error) {
	var tree SourceTree

	public, err := collect(filepath.Join(root, PublicHeadersDir), func(name string) bool {
		return strings.HasSuffix(name, ".h")
	})
	if err != nil {
		return tree, err
	}
	tree.PublicHeaders = public

	private, err := collect(filepath.Join(root, PrivateHeadersDir), func(name string) bool {
		return strings.HasSuffix(name, ".h")
	})
	if err != nil {
		return tree, err
	}
	tree.PrivateHeaders = private

	sources, err := collect(filepath.Join(root, SourcesDir), isSource)
	if err != nil {
		return tree, err
	}
	extra, err := collect(filepath.Join(root, PublicHeadersDir), isSource)
	if err != nil {
		return tree, err
	}
	tree.Sources = append(sources, extra...)
	slices.Sort(tree.Sources)

	if len(tree.PublicHeaders) == 0 {
		return tree, fberrors.New(fberrors.CodeInvalidConfig, fberrors.StageAnalyze,
			"no public headers found under %s", filepath.Join(root, PublicHeadersDir))
	}
	return tree, nil
}

func isSource(name string) bool {
	return sourceExtensions[filepath.Ext(name)]
}

func collect(dir string, match func(string) bool) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fberrors.Wrap(fberrors.CodeInternal, fberrors.StageAnalyze, err, "scan %s", dir)
	}
	slices.Sort(files)
	return files, nil
}
