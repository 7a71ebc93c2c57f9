package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/unitctl/internal/build"
	"github.com/danmuck/unitctl/internal/relations"
	"github.com/danmuck/unitctl/internal/testutil/testlog"
	"github.com/danmuck/unitctl/internal/unit"
)

func TestInitThenBuildRoundTrip(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	t.Chdir(dir)

	app := &App{ConfigPath: filepath.Join(dir, "unitctl.toml")}
	if err := (&InitCmd{}).Run(app); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := (&InitCmd{}).Run(app); err == nil {
		t.Fatalf("expected second init to refuse existing config")
	}

	cfg, err := app.config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, name := range []string{"Root", "A"} {
		path := filepath.Join(cfg.ContentRoot, name+cfg.UnitExtension)
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatalf("write unit: %v", err)
		}
	}

	_, store, cat, err := app.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rootID, _ := cat.IDFromLocation(filepath.Join(cfg.ContentRoot, "Root.unit"))
	childID, _ := cat.IDFromLocation(filepath.Join(cfg.ContentRoot, "A.unit"))
	if err := store.InsertRoot(unit.Ref{ID: rootID}); err != nil {
		t.Fatalf("insert root: %v", err)
	}
	if err := store.InsertChild(rootID, unit.Ref{ID: childID}); err != nil {
		t.Fatalf("insert child: %v", err)
	}

	if err := (&BuildCmd{}).Run(app); err != nil {
		t.Fatalf("build: %v", err)
	}
	m, err := build.LoadManifest(cfg.BuildManifest)
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if len(m.Units) != 2 {
		t.Fatalf("expected 2 manifest entries, got %v", m.Units)
	}

	reopened, err := relations.Open(relations.FileStore{Path: cfg.RelationsPath})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if children := reopened.ChildrenByName("Root"); len(children) != 1 || children[0].Name != "A" {
		t.Fatalf("names not persisted after build: %+v", children)
	}
}
