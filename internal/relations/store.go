package relations

import (
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/unitctl/internal/observability"
	"github.com/danmuck/unitctl/internal/unit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Persister loads and saves the whole graph.
type Persister interface {
	Load() (unit.Graph, error)
	Save(g unit.Graph) error
}

// Resolver maps stable ids to content locations.
type Resolver interface {
	LocationFromID(id string) (string, bool)
}

// Store owns the relation graph and its single persisted write path.
type Store struct {
	mu        sync.RWMutex
	graph     unit.Graph
	persister Persister
	dirty     bool
	ext       string
	logger    zerolog.Logger
}

type Option func(*Store)

// WithLogger sets the logger failures are reported through.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = observability.Component(logger, "relations")
	}
}

// WithUnitExtension sets the file extension a resolved location must carry to
// count as a unit during name resync.
func WithUnitExtension(ext string) Option {
	return func(s *Store) {
		s.ext = ext
	}
}

const DefaultUnitExtension = ".unit"

// New returns an in-memory store seeded with a copy of g. Mutations are not
// persisted.
func New(g unit.Graph, opts ...Option) *Store {
	s := &Store{
		graph:  g.Clone(),
		ext:    DefaultUnitExtension,
		logger: observability.Component(log.Logger, "relations"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the graph through p and returns a store that persists every
// mutation through it.
func Open(p Persister, opts ...Option) (*Store, error) {
	g, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("relations: open: %w", err)
	}
	s := New(g, opts...)
	s.persister = p
	return s, nil
}

// IsRoot reports whether id is registered as a root.
func (s *Store) IsRoot(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOfRoot(s.graph, id) >= 0
}

// ChildrenByID returns a copy of the children of root id, empty when unknown.
func (s *Store) ChildrenByID(rootID string) []unit.Ref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rel := range s.graph.Relations {
		if rel.ID == rootID {
			return copyRefs(rel.Children)
		}
	}
	return []unit.Ref{}
}

// ChildrenByName returns a copy of the children of the first root whose cached
// name is rootName, empty when unknown. Used where ids cannot be resolved.
// An empty rootName never matches: an empty cached name is unresolved.
func (s *Store) ChildrenByName(rootName string) []unit.Ref {
	if rootName == "" {
		return []unit.Ref{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rel := range s.graph.Relations {
		if rel.Name == rootName {
			return copyRefs(rel.Children)
		}
	}
	return []unit.Ref{}
}

// AllReferencedIDs returns every root and child id once, sorted.
func (s *Store) AllReferencedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, rel := range s.graph.Relations {
		if rel.ID != "" {
			seen[rel.ID] = struct{}{}
		}
		for _, child := range rel.Children {
			if child.ID != "" {
				seen[child.ID] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Roots returns the root refs in graph order.
func (s *Store) Roots() []unit.Ref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]unit.Ref, 0, len(s.graph.Relations))
	for _, rel := range s.graph.Relations {
		out = append(out, rel.Ref())
	}
	return out
}

// Graph returns a deep copy of the current graph.
func (s *Store) Graph() unit.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Clone()
}

// Dirty reports whether a mutation has not been persisted yet.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Flush retries persistence of an unsaved graph. It is the owner's
// save-at-shutdown hook.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty || s.persister == nil {
		return nil
	}
	if err := s.persister.Save(s.graph); err != nil {
		observability.RecordSave(false)
		return fmt.Errorf("relations: flush: %w", err)
	}
	observability.RecordSave(true)
	s.dirty = false
	return nil
}

// mutate applies fn to a copy of the graph under the write lock. A rejected
// mutation leaves the graph unchanged. A persistence failure is logged and the
// in-memory graph stays authoritative until the next successful save.
func (s *Store) mutate(op string, fn func(g *unit.Graph) (bool, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.graph.Clone()
	changed, err := fn(&next)
	if err != nil {
		result := "rejected"
		if IsConflict(err) {
			result = "conflict"
		}
		observability.RecordMutation(op, result)
		return false, err
	}
	if !changed {
		observability.RecordMutation(op, "noop")
		return false, nil
	}

	s.graph = next
	s.dirty = true
	observability.RecordMutation(op, "ok")
	s.persistLocked(op)
	return true, nil
}

func (s *Store) persistLocked(op string) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(s.graph); err != nil {
		observability.RecordSave(false)
		s.logger.Error().Err(err).Str("op", op).Msg("relations.Store.persist save failed; keeping in-memory graph")
		return
	}
	observability.RecordSave(true)
	s.dirty = false
}

func indexOfRoot(g unit.Graph, id string) int {
	for i, rel := range g.Relations {
		if rel.ID == id {
			return i
		}
	}
	return -1
}

func copyRefs(in []unit.Ref) []unit.Ref {
	out := make([]unit.Ref, len(in))
	copy(out, in)
	return out
}
