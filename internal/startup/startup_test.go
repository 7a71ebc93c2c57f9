package startup

import (
	"reflect"
	"testing"

	"github.com/danmuck/unitctl/internal/relations"
	"github.com/danmuck/unitctl/internal/testutil/fakeengine"
	"github.com/danmuck/unitctl/internal/testutil/testlog"
	"github.com/danmuck/unitctl/internal/unit"
)

func store() *relations.Store {
	return relations.New(unit.Graph{Relations: []unit.Relation{
		{ID: "m", Name: "Main", Children: []unit.Ref{
			{ID: "h", Name: "Hud"},
			{ID: "a", Name: "Audio"},
			{ID: "w", Name: "World"},
		}},
	}})
}

func TestApplyRunsOnceAndSkipsLoaded(t *testing.T) {
	testlog.Start(t)
	fake := fakeengine.New()
	fake.SetActive("Main")
	fake.Preload("Audio")
	gate := New(store(), fake)

	if !gate.Apply() {
		t.Fatalf("first apply must do the work")
	}
	if got := fake.IssuedNames("load"); !reflect.DeepEqual(got, []string{"Hud", "World"}) {
		t.Fatalf("unexpected loads: %v", got)
	}
	if gate.Apply() {
		t.Fatalf("second apply must be a no-op")
	}
	if n := len(fake.IssuedNames("load")); n != 2 {
		t.Fatalf("second apply issued loads: total=%d", n)
	}
	if !gate.Applied() {
		t.Fatalf("expected gate flipped")
	}
}

func TestApplyFlipsGateDespiteFailures(t *testing.T) {
	testlog.Start(t)
	fake := fakeengine.New().FailOn("Hud")
	fake.SetActive("Main")
	gate := New(store(), fake)

	if !gate.Apply() {
		t.Fatalf("first apply must do the work")
	}
	if got := fake.IssuedNames("load"); !reflect.DeepEqual(got, []string{"Hud", "Audio", "World"}) {
		t.Fatalf("expected best-effort loads, got %v", got)
	}
	if gate.Apply() || !gate.Applied() {
		t.Fatalf("gate must stay flipped after a failed child")
	}
}

func TestApplyWithUnknownRootStillFlips(t *testing.T) {
	testlog.Start(t)
	fake := fakeengine.New()
	fake.SetActive("Unregistered")
	gate := New(store(), fake)
	if !gate.Apply() || len(fake.Issued()) != 0 {
		t.Fatalf("expected no loads for unknown root, issued=%v", fake.Issued())
	}
	if !gate.Applied() {
		t.Fatalf("expected gate flipped")
	}
}

func TestApplyWithoutActiveRootIgnoresUnresolvedRoot(t *testing.T) {
	testlog.Start(t)
	s := relations.New(unit.Graph{Relations: []unit.Relation{
		{ID: "stale", Name: "", Children: []unit.Ref{{ID: "h", Name: "Hud"}}},
	}})
	fake := fakeengine.New()
	gate := New(s, fake)
	if !gate.Apply() {
		t.Fatalf("first apply must flip the gate")
	}
	if len(fake.Issued()) != 0 {
		t.Fatalf("no root is active, nothing may load: %v", fake.Issued())
	}
}

func TestApplyEditorModeIsInert(t *testing.T) {
	testlog.Start(t)
	fake := fakeengine.New()
	fake.SetActive("Main")
	gate := New(store(), fake, WithEditorMode(true))
	if gate.Apply() || gate.Applied() || len(fake.Issued()) != 0 {
		t.Fatalf("editor mode must not compose or flip the gate")
	}
}
