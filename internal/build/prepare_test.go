package build

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/danmuck/unitctl/internal/relations"
	"github.com/danmuck/unitctl/internal/testutil/testlog"
	"github.com/danmuck/unitctl/internal/unit"
)

type mapResolver map[string]string

func (m mapResolver) LocationFromID(id string) (string, bool) {
	loc, ok := m[id]
	return loc, ok
}

func TestPrepareAddsReferencedUnitsOnce(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "build", "units.toml")
	if err := SaveManifest(path, Manifest{Units: []string{"Menu.unit", "B.unit"}}); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}

	store := relations.New(unit.Graph{Relations: []unit.Relation{
		{ID: "r", Children: []unit.Ref{{ID: "b"}, {ID: "a"}, {ID: "gone"}}},
		{ID: "s", Children: []unit.Ref{{ID: "a"}}},
	}})
	resolver := mapResolver{"r": "Root.unit", "s": "Second.unit", "a": "A.unit", "b": "B.unit"}

	report, err := NewPackager(store, resolver, path).Prepare()
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if !report.Resynced {
		t.Fatalf("expected names resynced")
	}
	if !reflect.DeepEqual(report.Missing, []string{"gone"}) {
		t.Fatalf("unexpected missing: %v", report.Missing)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	want := []string{"Menu.unit", "B.unit", "A.unit", "Root.unit", "Second.unit"}
	if !reflect.DeepEqual(m.Units, want) {
		t.Fatalf("unexpected manifest: %v", m.Units)
	}
	if store.ChildrenByID("r")[0].Name != "B" {
		t.Fatalf("names not resynced: %+v", store.ChildrenByID("r"))
	}

	again, err := NewPackager(store, resolver, path).Prepare()
	if err != nil {
		t.Fatalf("second prepare: %v", err)
	}
	if len(again.Added) != 0 || again.Resynced {
		t.Fatalf("second pass changed state: %+v", again)
	}
}

func TestLoadManifestMissingIsEmpty(t *testing.T) {
	testlog.Start(t)
	m, err := LoadManifest(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Units == nil || len(m.Units) != 0 {
		t.Fatalf("expected empty manifest, got %#v", m.Units)
	}
}
