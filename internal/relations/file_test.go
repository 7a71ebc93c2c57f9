package relations

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/danmuck/unitctl/internal/testutil/testlog"
	"github.com/danmuck/unitctl/internal/unit"
)

func sampleGraph() unit.Graph {
	return unit.Graph{Relations: []unit.Relation{
		{ID: "a", Name: "Alpha", Children: []unit.Ref{{ID: "b", Name: "Beta"}, {ID: "c", Name: "Gamma"}}},
		{ID: "d", Name: "Delta", Children: []unit.Ref{}},
	}}
}

func TestFileStoreRoundTripTOMLAndYAML(t *testing.T) {
	testlog.Start(t)
	for _, name := range []string{"relations.toml", "relations.yaml"} {
		path := filepath.Join(t.TempDir(), "resources", name)
		f := FileStore{Path: path}
		if err := f.Save(sampleGraph()); err != nil {
			t.Fatalf("%s save: %v", name, err)
		}
		got, err := f.Load()
		if err != nil {
			t.Fatalf("%s load: %v", name, err)
		}
		if !reflect.DeepEqual(got, sampleGraph()) {
			t.Fatalf("%s round trip mismatch:\n got=%+v\nwant=%+v", name, got, sampleGraph())
		}
	}
}

func TestFileStoreMissingIsEmpty(t *testing.T) {
	testlog.Start(t)
	g, err := FileStore{Path: filepath.Join(t.TempDir(), "none.toml")}.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(g.Relations) != 0 {
		t.Fatalf("expected empty graph, got %+v", g)
	}
}

func TestFileStoreParseError(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "relations.toml")
	if err := os.WriteFile(path, []byte("relations = ["), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := (FileStore{Path: path}).Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFileStoreCreateRefusesExisting(t *testing.T) {
	testlog.Start(t)
	f := FileStore{Path: filepath.Join(t.TempDir(), "resources", "relations.toml")}
	if err := f.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.Create(); !errors.Is(err, ErrStoreExists) {
		t.Fatalf("expected ErrStoreExists, got %v", err)
	}
}

func TestOpenPersistsMutations(t *testing.T) {
	testlog.Start(t)
	f := FileStore{Path: filepath.Join(t.TempDir(), "relations.toml")}
	s, err := Open(f)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.InsertRoot(unit.Ref{ID: "a", Name: "Alpha"})
	_ = s.InsertChild("a", unit.Ref{ID: "b", Name: "Beta"})

	reopened, err := Open(f)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.ChildrenByID("a"); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("mutations not persisted: %+v", reopened.Graph())
	}
}
