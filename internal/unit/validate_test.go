package unit

import (
	"errors"
	"testing"

	"github.com/danmuck/unitctl/internal/testutil/testlog"
)

func TestValidateRefFailures(t *testing.T) {
	testlog.Start(t)
	cases := []Ref{
		{ID: ""},
		{ID: "   "},
		{ID: ".lead"},
		{ID: "trail-"},
		{ID: "double..sep"},
		{ID: "has space"},
		{ID: "slash/id"},
	}
	for _, ref := range cases {
		if err := ValidateRef(ref); !errors.Is(err, ErrInvalidRef) {
			t.Fatalf("expected ErrInvalidRef for ref=%+v, got %v", ref, err)
		}
	}
}

func TestValidateRefAcceptsUUIDAndDottedIDs(t *testing.T) {
	testlog.Start(t)
	for _, id := range []string{"0b9c2a4e-6f7d-4f1a-9c3e-2d5b8a7e1f00", "unit.forest", "A1_b2"} {
		if err := ValidateRef(Ref{ID: id}); err != nil {
			t.Fatalf("expected %q to validate, got %v", id, err)
		}
	}
}

func TestNameFromLocation(t *testing.T) {
	testlog.Start(t)
	name, ok := NameFromLocation("content/levels/Forest.UNIT", ".unit")
	if !ok || name != "Forest" {
		t.Fatalf("unexpected name=%q ok=%v", name, ok)
	}
	if _, ok := NameFromLocation("content/levels/Forest.png", ".unit"); ok {
		t.Fatalf("expected non-unit location to be rejected")
	}
	if _, ok := NameFromLocation("", ".unit"); ok {
		t.Fatalf("expected empty location to be rejected")
	}
}

func TestGraphCloneIsDeep(t *testing.T) {
	testlog.Start(t)
	g := Graph{Relations: []Relation{{ID: "a", Children: []Ref{{ID: "b"}}}}}
	c := g.Clone()
	c.Relations[0].Children[0].ID = "mutated"
	c.Relations[0].ID = "mutated"
	if g.Relations[0].ID != "a" || g.Relations[0].Children[0].ID != "b" {
		t.Fatalf("clone shares storage with source: %+v", g)
	}
}
