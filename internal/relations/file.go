package relations

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/unitctl/internal/unit"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the well-known project location of the relation graph.
const DefaultPath = "resources/relations.toml"

// FileStore persists the graph as one TOML or YAML document, chosen by the
// path's extension.
type FileStore struct {
	Path string
}

var _ Persister = FileStore{}

// Load reads the graph. A missing file is an empty graph; the file is created
// on first save.
func (f FileStore) Load() (unit.Graph, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return unit.Graph{}, nil
	}
	if err != nil {
		return unit.Graph{}, fmt.Errorf("relations load failed (%s): %w", f.Path, err)
	}

	var g unit.Graph
	if f.isYAML() {
		err = yaml.Unmarshal(data, &g)
	} else {
		err = toml.Unmarshal(data, &g)
	}
	if err != nil {
		return unit.Graph{}, fmt.Errorf("relations parse failed (%s): %w", f.Path, err)
	}
	for i := range g.Relations {
		if g.Relations[i].Children == nil {
			g.Relations[i].Children = []unit.Ref{}
		}
	}
	return g, nil
}

// Save writes g through a temp file and rename so readers never see a
// partial document.
func (f FileStore) Save(g unit.Graph) error {
	data, err := f.encode(g)
	if err != nil {
		return fmt.Errorf("relations encode failed (%s): %w", f.Path, err)
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("relations save failed (%s): %w", f.Path, err)
	}
	tmp, err := os.CreateTemp(dir, ".relations-*")
	if err != nil {
		return fmt.Errorf("relations save failed (%s): %w", f.Path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("relations save failed (%s): %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("relations save failed (%s): %w", f.Path, err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("relations save failed (%s): %w", f.Path, err)
	}
	return nil
}

// Create writes an empty graph at the path. It refuses to overwrite an
// existing store.
func (f FileStore) Create() error {
	if _, err := os.Stat(f.Path); err == nil {
		return fmt.Errorf("%w: %s", ErrStoreExists, f.Path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("relations create failed (%s): %w", f.Path, err)
	}
	return f.Save(unit.Graph{Relations: []unit.Relation{}})
}

func (f FileStore) encode(g unit.Graph) ([]byte, error) {
	if f.isYAML() {
		return yaml.Marshal(g)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f FileStore) isYAML() bool {
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
