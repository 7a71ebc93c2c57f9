// Package build prepares the shippable unit list: it refreshes cached names
// and adds every unit the relation graph references to the build manifest.
package build

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultManifestPath is the project-relative manifest location.
const DefaultManifestPath = "build/units.toml"

// Manifest is the ordered list of unit locations included in a build.
type Manifest struct {
	Units []string `toml:"units"`
}

// Contains reports whether location is already listed.
func (m Manifest) Contains(location string) bool {
	for _, u := range m.Units {
		if u == location {
			return true
		}
	}
	return false
}

// LoadManifest reads the manifest at path. A missing file is an empty
// manifest.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{Units: []string{}}, nil
		}
		return Manifest{}, fmt.Errorf("build manifest load failed (%s): %w", path, err)
	}
	if m.Units == nil {
		m.Units = []string{}
	}
	return m, nil
}

// SaveManifest writes m to path, creating parent directories.
func SaveManifest(path string, m Manifest) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("build manifest encode failed (%s): %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("build manifest save failed (%s): %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("build manifest save failed (%s): %w", path, err)
	}
	return nil
}
