package guard

import (
	"sync"

	"github.com/danmuck/unitctl/internal/engine"
	"github.com/danmuck/unitctl/internal/observability"
	"github.com/danmuck/unitctl/internal/relations"
	"github.com/danmuck/unitctl/internal/unit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the guard's position in one root-open session.
type State int

const (
	StateIdle State = iota
	StateComposing
	StateLocked
	StateUnlocking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComposing:
		return "composing"
	case StateLocked:
		return "locked"
	case StateUnlocking:
		return "unlocking"
	default:
		return "unknown"
	}
}

// Graph is the id-keyed store surface used in the authoring environment.
type Graph interface {
	IsRoot(id string) bool
	ChildrenByID(rootID string) []unit.Ref
	ResyncNames(r relations.Resolver) bool
}

// Resolver is the bidirectional id<->location mapping.
type Resolver interface {
	IDFromLocation(location string) (string, bool)
	LocationFromID(id string) (string, bool)
}

// Guard reacts to root open/close lifecycle events from the authoring
// environment.
type Guard struct {
	graph    Graph
	resolver Resolver
	editor   engine.Editor
	logger   zerolog.Logger

	mu     sync.Mutex
	state  State
	rootID string
	locked []string
	// opened holds locations this guard opened. They stay open across
	// sessions, so a later root that declares one takes ownership of it.
	opened map[string]struct{}
}

type Option func(*Guard)

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) {
		g.logger = observability.Component(logger, "guard")
	}
}

func New(graph Graph, resolver Resolver, editor engine.Editor, opts ...Option) *Guard {
	g := &Guard{
		graph:    graph,
		resolver: resolver,
		editor:   editor,
		logger:   observability.Component(log.Logger, "guard"),
		opened:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RootOpened composes the root at location: every declared child that is not
// open yet is opened additively and locked. Children left open by an earlier
// session of this guard are locked again; independently open units are not. Non-roots are ignored. Reopening
// the locked root is a no-op; opening a different root first releases the
// current session. It reports whether a session was composed.
func (g *Guard) RootOpened(location string) bool {
	id, ok := g.resolver.IDFromLocation(location)
	if !ok || !g.graph.IsRoot(id) {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateLocked && g.rootID == id {
		return false
	}
	if g.state == StateLocked {
		g.releaseLocked()
	}

	g.state = StateComposing
	g.rootID = id
	g.locked = g.locked[:0]

	for _, child := range g.graph.ChildrenByID(id) {
		loc, ok := g.resolver.LocationFromID(child.ID)
		if !ok || loc == "" {
			g.logger.Warn().Str("root", id).Str("child_id", child.ID).Msg("guard.Guard.RootOpened child has no location")
			continue
		}
		_, owned := g.opened[loc]
		if g.editor.IsOpen(loc) {
			if !owned {
				continue
			}
		} else {
			delete(g.opened, loc)
			if err := g.editor.OpenAdditive(loc); err != nil {
				g.logger.Error().Err(err).Str("root", id).Str("child", loc).Msg("guard.Guard.RootOpened child open failed")
				continue
			}
			g.opened[loc] = struct{}{}
		}
		if err := g.editor.SetPickable(loc, false); err != nil {
			g.logger.Error().Err(err).Str("child", loc).Msg("guard.Guard.RootOpened child lock failed")
			continue
		}
		g.locked = append(g.locked, loc)
	}

	g.state = StateLocked
	g.logger.Info().Str("root", id).Int("locked", len(g.locked)).Msg("guard.Guard.RootOpened composed")
	return true
}

// RootClosing unlocks every child this guard locked for the root at location
// and returns to idle. Closing anything else is ignored.
func (g *Guard) RootClosing(location string) bool {
	id, ok := g.resolver.IDFromLocation(location)
	if !ok {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateLocked || g.rootID != id {
		return false
	}
	g.releaseLocked()
	return true
}

// BeforeRuntime refreshes cached names so runtime lookups by name match the
// current content locations.
func (g *Guard) BeforeRuntime() bool {
	return g.graph.ResyncNames(g.resolver)
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Root returns the id of the composed root, empty when idle.
func (g *Guard) Root() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rootID
}

// Locked returns the locations this guard holds locked, in lock order.
func (g *Guard) Locked() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.locked...)
}

func (g *Guard) releaseLocked() {
	g.state = StateUnlocking
	for _, loc := range g.locked {
		if err := g.editor.SetPickable(loc, true); err != nil {
			g.logger.Error().Err(err).Str("child", loc).Msg("guard.Guard.release child unlock failed")
		}
	}
	g.logger.Info().Str("root", g.rootID).Int("unlocked", len(g.locked)).Msg("guard.Guard.release released")
	g.locked = nil
	g.rootID = ""
	g.state = StateIdle
}
