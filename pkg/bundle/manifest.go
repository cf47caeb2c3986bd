package bundle

import (
	"encoding/json"
	"io"
	"os"

	"github.com/zhouruiyy/framework-auto-builder/pkg/errors"
)

// FormatVersion is the manifest schema version written by this release.
const FormatVersion = 1

// ManifestName is the manifest's file name inside the bundle root.
const ManifestName = "manifest.json"

// Manifest describes the assembled bundle: which grouping serves which
// platform family, with its architectures and minimum OS version.
type Manifest struct {
	FormatVersion int        `json:"format_version"`
	ModuleName    string     `json:"module_name"`
	Groupings     []Grouping `json:"groupings"`
}

// Grouping is one platform family's entry in the manifest.
type Grouping struct {
	ID            string    `json:"id"`
	Architectures []string  `json:"architectures"`
	MinOSVersion  string    `json:"min_os_version"`
	HeadersPath   string    `json:"headers_path"`
	Variants      []Variant `json:"variants"`
}

// Variant is one built slice inside a grouping.
type Variant struct {
	Target        string   `json:"target"`
	SDK           string   `json:"sdk"`
	Architectures []string `json:"architectures"`
	Path          string   `json:"path"`
}

// Grouping returns the entry with the given id, or nil.
func (m *Manifest) Grouping(id string) *Grouping {
	for i := range m.Groupings {
		if m.Groupings[i].ID == id {
			return &m.Groupings[i]
		}
	}
	return nil
}

// Write persists the manifest as indented JSON.
func (m *Manifest) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, errors.StageMerge, err, "write manifest")
	}
	defer f.Close()
	if err := writeJSON(f, m); err != nil {
		return errors.Wrap(errors.CodeInternal, errors.StageMerge, err, "encode manifest")
	}
	return nil
}

// ReadManifest loads a manifest from a bundle directory on disk.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, errors.StageMerge, err, "read manifest")
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, errors.StageMerge, err, "decode manifest")
	}
	return &m, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
