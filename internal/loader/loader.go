package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/danmuck/unitctl/internal/engine"
	"github.com/danmuck/unitctl/internal/observability"
	"github.com/danmuck/unitctl/internal/unit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var ErrRootLoad = errors.New("loader: root load failed")

// ChildSource is the name-keyed lookup the loader composes from.
type ChildSource interface {
	ChildrenByName(rootName string) []unit.Ref
}

// Loader drives load and unload of a root plus its children.
type Loader struct {
	store   ChildSource
	runtime engine.Runtime
	logger  zerolog.Logger

	mu     sync.Mutex
	root   string
	loaded map[string]struct{}
}

type Option func(*Loader)

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = observability.Component(logger, "loader")
	}
}

func New(store ChildSource, runtime engine.Runtime, opts ...Option) *Loader {
	l := &Loader{
		store:   store,
		runtime: runtime,
		logger:  observability.Component(log.Logger, "loader"),
		loaded:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadWithChildren makes rootName the exclusive active root, then loads each
// child additively in store order, blocking on every request. Only a failed
// root load is returned; child failures are logged and the loop continues.
func (l *Loader) LoadWithChildren(rootName string) error {
	start := time.Now()
	err := l.runtime.LoadUnit(rootName, engine.Exclusive)
	observability.RecordUnitLoad(engine.Exclusive.String(), time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrRootLoad, rootName, err)
	}
	l.reset(rootName)

	for _, child := range l.store.ChildrenByName(rootName) {
		if !l.loadable(rootName, child) {
			continue
		}
		start := time.Now()
		err := l.runtime.LoadUnit(child.Name, engine.Additive)
		l.settleLoad(rootName, child, time.Since(start), err)
	}
	return nil
}

// LoadWithChildrenAsync is LoadWithChildren over the asynchronous primitive.
// Each request is awaited before the next child is issued. A done ctx stops
// the caller waiting and issuing further children; requests already issued
// run to completion in the host.
func (l *Loader) LoadWithChildrenAsync(ctx context.Context, rootName string) error {
	start := time.Now()
	err := engine.Await(ctx, l.runtime.LoadUnitAsync(rootName, engine.Exclusive))
	if abandoned(ctx, err) {
		return err
	}
	observability.RecordUnitLoad(engine.Exclusive.String(), time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrRootLoad, rootName, err)
	}
	l.reset(rootName)

	for _, child := range l.store.ChildrenByName(rootName) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !l.loadable(rootName, child) {
			continue
		}
		start := time.Now()
		err := engine.Await(ctx, l.runtime.LoadUnitAsync(child.Name, engine.Additive))
		if abandoned(ctx, err) {
			return err
		}
		l.settleLoad(rootName, child, time.Since(start), err)
	}
	return nil
}

// abandoned reports whether err is ctx giving up the wait rather than the
// request's own result.
func abandoned(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// UnloadAllChildren unloads every loaded child of the active root and blocks
// until each request completes. Children that are not loaded are skipped.
func (l *Loader) UnloadAllChildren() {
	names := l.unloadTargets()
	ops := make([]engine.Operation, len(names))
	for i, name := range names {
		ops[i] = l.runtime.UnloadUnitAsync(name)
	}
	for i, op := range ops {
		l.settleUnload(names[i], engine.Wait(op))
	}
}

// UnloadAllChildrenAsync issues every unload at once and returns when all of
// them have completed. Unload failures are logged, not returned.
func (l *Loader) UnloadAllChildrenAsync(ctx context.Context) error {
	var g errgroup.Group
	for _, name := range l.unloadTargets() {
		op := l.runtime.UnloadUnitAsync(name)
		g.Go(func() error {
			err := engine.Await(ctx, op)
			if abandoned(ctx, err) {
				return err
			}
			l.settleUnload(name, err)
			return nil
		})
	}
	return g.Wait()
}

// Root returns the root the loaded set belongs to.
func (l *Loader) Root() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.root
}

// Loaded returns the children this loader brought in for the current root,
// sorted by name.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.loaded))
	for name := range l.loaded {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (l *Loader) unloadTargets() []string {
	active := l.runtime.ActiveRoot()
	children := l.store.ChildrenByName(active)
	names := make([]string, 0, len(children))
	for _, child := range children {
		if child.Name == "" || !l.runtime.IsLoaded(child.Name) {
			continue
		}
		names = append(names, child.Name)
	}
	return names
}

func (l *Loader) loadable(rootName string, child unit.Ref) bool {
	if child.Name != "" {
		return true
	}
	l.logger.Error().
		Str("root", rootName).
		Str("child_id", child.ID).
		Msg("loader.Loader.load child has no resolved name; resync names before loading")
	observability.RecordUnitLoad(engine.Additive.String(), 0, false)
	return false
}

func (l *Loader) settleLoad(rootName string, child unit.Ref, elapsed time.Duration, err error) {
	observability.RecordUnitLoad(engine.Additive.String(), elapsed, err == nil)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("root", rootName).
			Str("child", child.Name).
			Str("child_id", child.ID).
			Msg("loader.Loader.load child load failed")
		return
	}
	l.mu.Lock()
	l.loaded[child.Name] = struct{}{}
	l.mu.Unlock()
}

func (l *Loader) settleUnload(name string, err error) {
	observability.RecordUnitUnload(err == nil)
	if err != nil {
		l.logger.Error().Err(err).Str("child", name).Msg("loader.Loader.unload child unload failed")
		return
	}
	l.mu.Lock()
	delete(l.loaded, name)
	l.mu.Unlock()
}

func (l *Loader) reset(rootName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.root = rootName
	l.loaded = make(map[string]struct{})
}
