// Package startup applies the relation graph to the active root once per
// process, after the host has brought that root up.
package startup

import (
	"sync"
	"time"

	"github.com/danmuck/unitctl/internal/engine"
	"github.com/danmuck/unitctl/internal/observability"
	"github.com/danmuck/unitctl/internal/unit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ChildSource is the name-keyed lookup used at startup, where ids may not be
// resolvable yet.
type ChildSource interface {
	ChildrenByName(rootName string) []unit.Ref
}

// Initializer is a one-shot gate. The first Apply composes the active root's
// children; every later Apply is a no-op.
type Initializer struct {
	store   ChildSource
	runtime engine.Runtime
	logger  zerolog.Logger
	editor  bool

	mu      sync.Mutex
	applied bool
}

type Option func(*Initializer)

func WithLogger(logger zerolog.Logger) Option {
	return func(i *Initializer) {
		i.logger = observability.Component(logger, "startup")
	}
}

// WithEditorMode disables the gate entirely. In the authoring environment the
// composition guard owns child loading.
func WithEditorMode(editor bool) Option {
	return func(i *Initializer) {
		i.editor = editor
	}
}

func New(store ChildSource, runtime engine.Runtime, opts ...Option) *Initializer {
	i := &Initializer{
		store:   store,
		runtime: runtime,
		logger:  observability.Component(log.Logger, "startup"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Apply loads every child of the active root that is not already loaded,
// additively and best-effort. It reports whether this call did the work. The
// gate flips on the first call whether or not any child failed.
func (i *Initializer) Apply() bool {
	if i.editor {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.applied {
		return false
	}
	i.applied = true

	root := i.runtime.ActiveRoot()
	children := i.store.ChildrenByName(root)
	loaded := 0
	for _, child := range children {
		if child.Name == "" || i.runtime.IsLoaded(child.Name) {
			continue
		}
		start := time.Now()
		err := i.runtime.LoadUnit(child.Name, engine.Additive)
		observability.RecordUnitLoad(engine.Additive.String(), time.Since(start), err == nil)
		if err != nil {
			i.logger.Error().
				Err(err).
				Str("root", root).
				Str("child", child.Name).
				Msg("startup.Initializer.Apply child load failed")
			continue
		}
		loaded++
	}
	i.logger.Info().
		Str("root", root).
		Int("declared", len(children)).
		Int("loaded", loaded).
		Msg("startup.Initializer.Apply composed")
	return true
}

// Applied reports whether the gate has flipped.
func (i *Initializer) Applied() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.applied
}
