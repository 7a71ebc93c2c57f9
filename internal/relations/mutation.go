package relations

import (
	"fmt"

	"github.com/danmuck/unitctl/internal/unit"
)

// InsertRoot appends ref as a new root with no children.
func (s *Store) InsertRoot(ref unit.Ref) error {
	if err := unit.ValidateRef(ref); err != nil {
		return err
	}
	_, err := s.mutate("insert_root", func(g *unit.Graph) (bool, error) {
		if indexOfRoot(*g, ref.ID) >= 0 {
			return false, duplicateError(ref, "as a root")
		}
		g.Relations = append(g.Relations, unit.Relation{ID: ref.ID, Name: ref.Name, Children: []unit.Ref{}})
		return true, nil
	})
	return err
}

// InsertChild appends ref to the children of rootID. An id already present
// among the root's children is rejected.
func (s *Store) InsertChild(rootID string, ref unit.Ref) error {
	if err := unit.ValidateRef(ref); err != nil {
		return err
	}
	_, err := s.mutate("insert_child", func(g *unit.Graph) (bool, error) {
		idx := indexOfRoot(*g, rootID)
		if idx < 0 {
			return false, fmt.Errorf("%w: %q", ErrRootNotFound, rootID)
		}
		rel := &g.Relations[idx]
		if indexOfRef(rel.Children, ref.ID, -1) >= 0 {
			return false, duplicateError(ref, fmt.Sprintf("under root %q", label(rel.Ref())))
		}
		rel.Children = append(rel.Children, ref)
		return true, nil
	})
	return err
}

// ReplaceAt swaps the entry at index for ref. rootID selects a child list; an
// empty rootID addresses the root list. The new id is checked against the
// entry's siblings, excluding the entry itself.
func (s *Store) ReplaceAt(rootID string, index int, ref unit.Ref) error {
	if err := unit.ValidateRef(ref); err != nil {
		return err
	}
	_, err := s.mutate("replace", func(g *unit.Graph) (bool, error) {
		if rootID == "" {
			if err := checkIndex(index, len(g.Relations)); err != nil {
				return false, err
			}
			if i := indexOfRoot(*g, ref.ID); i >= 0 && i != index {
				return false, duplicateError(ref, "as a root")
			}
			rel := &g.Relations[index]
			if rel.ID == ref.ID && rel.Name == ref.Name {
				return false, nil
			}
			rel.ID, rel.Name = ref.ID, ref.Name
			return true, nil
		}

		idx := indexOfRoot(*g, rootID)
		if idx < 0 {
			return false, fmt.Errorf("%w: %q", ErrRootNotFound, rootID)
		}
		rel := &g.Relations[idx]
		if err := checkIndex(index, len(rel.Children)); err != nil {
			return false, err
		}
		if indexOfRef(rel.Children, ref.ID, index) >= 0 {
			return false, duplicateError(ref, fmt.Sprintf("under root %q", label(rel.Ref())))
		}
		if rel.Children[index] == ref {
			return false, nil
		}
		rel.Children[index] = ref
		return true, nil
	})
	return err
}

// RemoveAt deletes the entry at index. An empty rootID addresses the root list.
func (s *Store) RemoveAt(rootID string, index int) error {
	_, err := s.mutate("remove_at", func(g *unit.Graph) (bool, error) {
		if rootID == "" {
			if err := checkIndex(index, len(g.Relations)); err != nil {
				return false, err
			}
			g.Relations = append(g.Relations[:index], g.Relations[index+1:]...)
			return true, nil
		}
		idx := indexOfRoot(*g, rootID)
		if idx < 0 {
			return false, fmt.Errorf("%w: %q", ErrRootNotFound, rootID)
		}
		rel := &g.Relations[idx]
		if err := checkIndex(index, len(rel.Children)); err != nil {
			return false, err
		}
		rel.Children = append(rel.Children[:index], rel.Children[index+1:]...)
		return true, nil
	})
	return err
}

// Reorder moves the entry at from to position to, shifting the entries
// between them. An empty rootID addresses the root list.
func (s *Store) Reorder(rootID string, from, to int) error {
	_, err := s.mutate("reorder", func(g *unit.Graph) (bool, error) {
		if rootID == "" {
			if err := checkIndex(from, len(g.Relations)); err != nil {
				return false, err
			}
			if err := checkIndex(to, len(g.Relations)); err != nil {
				return false, err
			}
			if from == to {
				return false, nil
			}
			g.Relations = move(g.Relations, from, to)
			return true, nil
		}
		idx := indexOfRoot(*g, rootID)
		if idx < 0 {
			return false, fmt.Errorf("%w: %q", ErrRootNotFound, rootID)
		}
		rel := &g.Relations[idx]
		if err := checkIndex(from, len(rel.Children)); err != nil {
			return false, err
		}
		if err := checkIndex(to, len(rel.Children)); err != nil {
			return false, err
		}
		if from == to {
			return false, nil
		}
		rel.Children = move(rel.Children, from, to)
		return true, nil
	})
	return err
}

// RemoveUnit drops every root with id and every child entry with id across
// the remaining roots. It reports whether the graph changed and is a no-op on
// a graph already free of id.
func (s *Store) RemoveUnit(id string) bool {
	if id == "" {
		return false
	}
	changed, _ := s.mutate("remove_unit", func(g *unit.Graph) (bool, error) {
		changed := false
		kept := g.Relations[:0]
		for _, rel := range g.Relations {
			if rel.ID == id {
				changed = true
				continue
			}
			kept = append(kept, rel)
		}
		g.Relations = kept

		for i := range g.Relations {
			children := g.Relations[i].Children
			out := children[:0]
			for _, child := range children {
				if child.ID == id {
					changed = true
					continue
				}
				out = append(out, child)
			}
			g.Relations[i].Children = out
		}
		return changed, nil
	})
	return changed
}

// ResyncNames re-derives every cached name from its id through r. Entries
// whose location is unknown or not a unit get an empty name; nothing is
// removed. It reports whether any name changed.
func (s *Store) ResyncNames(r Resolver) bool {
	changed, _ := s.mutate("resync_names", func(g *unit.Graph) (bool, error) {
		changed := false
		resolve := func(id string) string {
			loc, ok := r.LocationFromID(id)
			if !ok {
				return ""
			}
			name, ok := unit.NameFromLocation(loc, s.ext)
			if !ok {
				return ""
			}
			return name
		}
		for i := range g.Relations {
			rel := &g.Relations[i]
			if name := resolve(rel.ID); name != rel.Name {
				rel.Name = name
				changed = true
			}
			for j := range rel.Children {
				child := &rel.Children[j]
				if name := resolve(child.ID); name != child.Name {
					child.Name = name
					changed = true
				}
			}
		}
		return changed, nil
	})
	return changed
}

func indexOfRef(refs []unit.Ref, id string, skip int) int {
	for i, ref := range refs {
		if i != skip && ref.ID == id {
			return i
		}
	}
	return -1
}

func checkIndex(index, n int) error {
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, n)
	}
	return nil
}

func move[T any](items []T, from, to int) []T {
	item := items[from]
	items = append(items[:from], items[from+1:]...)
	items = append(items[:to], append([]T{item}, items[to:]...)...)
	return items
}

func label(ref unit.Ref) string {
	if ref.Name != "" {
		return ref.Name
	}
	return ref.ID
}

