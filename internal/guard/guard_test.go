package guard

import (
	"reflect"
	"testing"

	"github.com/danmuck/unitctl/internal/relations"
	"github.com/danmuck/unitctl/internal/testutil/fakeengine"
	"github.com/danmuck/unitctl/internal/testutil/testlog"
	"github.com/danmuck/unitctl/internal/unit"
)

type mapResolver map[string]string

func (m mapResolver) IDFromLocation(location string) (string, bool) {
	for id, loc := range m {
		if loc == location {
			return id, true
		}
	}
	return "", false
}

func (m mapResolver) LocationFromID(id string) (string, bool) {
	loc, ok := m[id]
	return loc, ok
}

func fixture() (*relations.Store, mapResolver) {
	store := relations.New(unit.Graph{Relations: []unit.Relation{
		{ID: "r", Name: "Root", Children: []unit.Ref{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "lost"}}},
		{ID: "s", Name: "Second", Children: []unit.Ref{{ID: "c"}}},
	}})
	resolver := mapResolver{
		"r": "Root.unit",
		"s": "Second.unit",
		"a": "A.unit",
		"b": "B.unit",
		"c": "C.unit",
		"x": "Plain.unit",
	}
	return store, resolver
}

func TestGuardSymmetryLeavesIndependentUnitsAlone(t *testing.T) {
	testlog.Start(t)
	store, resolver := fixture()
	fake := fakeengine.New()
	fake.Preload("B.unit")
	g := New(store, resolver, fake)

	if !g.RootOpened("Root.unit") {
		t.Fatalf("expected root session composed")
	}
	if g.State() != StateLocked || g.Root() != "r" {
		t.Fatalf("unexpected state=%s root=%q", g.State(), g.Root())
	}
	if got := g.Locked(); !reflect.DeepEqual(got, []string{"A.unit", "C.unit"}) {
		t.Fatalf("unexpected locked set: %v", got)
	}
	if got := fake.IssuedNames("open"); !reflect.DeepEqual(got, []string{"A.unit", "C.unit"}) {
		t.Fatalf("unexpected opens: %v", got)
	}

	if !g.RootClosing("Root.unit") {
		t.Fatalf("expected close to release session")
	}
	if g.State() != StateIdle || len(g.Locked()) != 0 {
		t.Fatalf("expected idle with empty lock set, state=%s", g.State())
	}
	for _, call := range fake.PickCalls() {
		if call.Name == "B.unit" {
			t.Fatalf("independently open unit touched: %+v", call)
		}
	}
	unlocked := []string{}
	for _, call := range fake.PickCalls() {
		if call.Op == "unlock" {
			unlocked = append(unlocked, call.Name)
		}
	}
	if !reflect.DeepEqual(unlocked, []string{"A.unit", "C.unit"}) {
		t.Fatalf("unexpected unlocks: %v", unlocked)
	}
	if len(fake.Unpickable()) != 0 {
		t.Fatalf("locks left behind: %v", fake.Unpickable())
	}
}

func TestGuardReopenIsIdempotent(t *testing.T) {
	testlog.Start(t)
	store, resolver := fixture()
	fake := fakeengine.New()
	g := New(store, resolver, fake)

	g.RootOpened("Root.unit")
	calls := len(fake.Issued())
	if g.RootOpened("Root.unit") {
		t.Fatalf("reopen while locked must be a no-op")
	}
	if len(fake.Issued()) != calls {
		t.Fatalf("reopen issued requests")
	}
}

func TestGuardIgnoresNonRootsAndForeignClose(t *testing.T) {
	testlog.Start(t)
	store, resolver := fixture()
	fake := fakeengine.New()
	g := New(store, resolver, fake)

	if g.RootOpened("Plain.unit") || g.RootOpened("Unknown.unit") {
		t.Fatalf("non-root open must be ignored")
	}
	g.RootOpened("Root.unit")
	if g.RootClosing("Second.unit") || g.RootClosing("Unknown.unit") {
		t.Fatalf("closing another unit must not release the session")
	}
	if g.State() != StateLocked {
		t.Fatalf("expected session still locked, got %s", g.State())
	}
}

func TestGuardOpenFailureSkipsChild(t *testing.T) {
	testlog.Start(t)
	store, resolver := fixture()
	fake := fakeengine.New().FailOn("A.unit")
	g := New(store, resolver, fake)

	g.RootOpened("Root.unit")
	if got := g.Locked(); !reflect.DeepEqual(got, []string{"B.unit", "C.unit"}) {
		t.Fatalf("unexpected locked set: %v", got)
	}
}

func TestGuardSwitchingRootsRelocksOwnedChildren(t *testing.T) {
	testlog.Start(t)
	store, resolver := fixture()
	fake := fakeengine.New()
	g := New(store, resolver, fake)

	g.RootOpened("Root.unit")
	if !g.RootOpened("Second.unit") {
		t.Fatalf("expected second root composed")
	}
	if g.Root() != "s" {
		t.Fatalf("unexpected root %q", g.Root())
	}
	if got := g.Locked(); !reflect.DeepEqual(got, []string{"C.unit"}) {
		t.Fatalf("child opened by this guard must be locked under the new root: %v", got)
	}
	if got := fake.Unpickable(); !reflect.DeepEqual(got, []string{"C.unit"}) {
		t.Fatalf("unexpected locks after switch: %v", got)
	}
	if got := fake.IssuedNames("open"); !reflect.DeepEqual(got, []string{"A.unit", "B.unit", "C.unit"}) {
		t.Fatalf("owned child must not be reopened: %v", got)
	}

	if !g.RootClosing("Second.unit") {
		t.Fatalf("expected second session released")
	}
	if len(fake.Unpickable()) != 0 {
		t.Fatalf("locks left after close: %v", fake.Unpickable())
	}
}

func TestGuardSwitchingRootsLeavesIndependentUnitAlone(t *testing.T) {
	testlog.Start(t)
	store, resolver := fixture()
	fake := fakeengine.New()
	fake.Preload("C.unit")
	g := New(store, resolver, fake)

	g.RootOpened("Root.unit")
	g.RootOpened("Second.unit")
	if len(g.Locked()) != 0 {
		t.Fatalf("independently open unit must not be owned: %v", g.Locked())
	}
	for _, call := range fake.PickCalls() {
		if call.Name == "C.unit" {
			t.Fatalf("independently open unit touched: %+v", call)
		}
	}
}

func TestBeforeRuntimeResyncsNames(t *testing.T) {
	testlog.Start(t)
	store, resolver := fixture()
	g := New(store, resolver, fakeengine.New())
	if !g.BeforeRuntime() {
		t.Fatalf("expected names to change")
	}
	children := store.ChildrenByName("Root")
	if children[0].Name != "A" || children[3].Name != "" {
		t.Fatalf("unexpected names: %+v", children)
	}
	if g.BeforeRuntime() {
		t.Fatalf("second resync must be a no-op")
	}
}
