package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/danmuck/unitctl/internal/observability"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultDebounce = 250 * time.Millisecond

// Identities is what the feed needs to pair a rename with its far side.
type Identities interface {
	IDFromLocation(location string) (string, bool)
	ReadID(location string) (string, bool)
	IsUnit(location string) bool
}

// Watcher turns filesystem events under a content root into debounced
// change batches.
type Watcher struct {
	root     string
	ids      Identities
	debounce time.Duration
	logger   zerolog.Logger
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithWatcherLogger(logger zerolog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = observability.Component(logger, "monitor.watcher")
	}
}

func NewWatcher(root string, ids Identities, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:     filepath.Clean(root),
		ids:      ids,
		debounce: DefaultDebounce,
		logger:   observability.Component(log.Logger, "monitor.watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done, calling handle once per settled batch.
// handle runs on the watcher goroutine.
func (w *Watcher) Run(ctx context.Context, handle func(Batch)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("monitor: create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root, nil); err != nil {
		return err
	}
	w.logger.Info().Str("root", w.root).Dur("debounce", w.debounce).Msg("monitor.Watcher.Run watching")

	p := newPending()
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.observe(fsw, p, event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("monitor.Watcher.Run watcher error")

		case <-timer.C:
			batch := p.batch(w.ids)
			p = newPending()
			if batch.Empty() {
				continue
			}
			w.logger.Debug().
				Int("imported", len(batch.Imported)).
				Int("deleted", len(batch.Deleted)).
				Int("moved", len(batch.MovedTo)).
				Msg("monitor.Watcher.Run batch")
			handle(batch)
		}
	}
}

// observe records one event and reports whether it is relevant.
func (w *Watcher) observe(fsw *fsnotify.Watcher, p *pending, event fsnotify.Event) bool {
	path := filepath.Clean(event.Name)
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(fsw, path, p); err != nil {
				w.logger.Warn().Err(err).Str("path", path).Msg("monitor.Watcher.observe add dir failed")
			}
			return true
		}
		if w.ids.IsUnit(path) {
			p.created.add(path)
			return true
		}
	case event.Has(fsnotify.Remove):
		if w.ids.IsUnit(path) {
			p.removed.add(path)
			return true
		}
	case event.Has(fsnotify.Rename):
		if w.ids.IsUnit(path) {
			p.renamed.add(path)
			return true
		}
	}
	return false
}

// addTree watches dir and its subdirectories. When p is set, unit files
// already inside are recorded as created.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string, p *pending) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != w.root {
				return nil
			}
			return fmt.Errorf("monitor: walk %s: %w", path, err)
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("monitor: watch %s: %w", path, err)
			}
			return nil
		}
		if p != nil && w.ids.IsUnit(path) {
			p.created.add(filepath.Clean(path))
		}
		return nil
	})
}

type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

type pending struct {
	created orderedSet
	removed orderedSet
	renamed orderedSet
}

func newPending() *pending {
	return &pending{
		created: orderedSet{seen: make(map[string]struct{})},
		removed: orderedSet{seen: make(map[string]struct{})},
		renamed: orderedSet{seen: make(map[string]struct{})},
	}
}

// batch classifies the settled events. A rename whose id reappears at a
// created path is a move; any other rename left the tree and is a delete.
// Paths that exist again at flush time were replaced in place and are not
// deletions; created paths that are gone again are dropped.
func (p *pending) batch(ids Identities) Batch {
	var b Batch
	exists := func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	paired := make(map[string]struct{})
	for _, old := range p.renamed.items {
		if exists(old) {
			continue
		}
		id, ok := ids.IDFromLocation(old)
		matched := false
		if ok {
			for _, created := range p.created.items {
				if _, used := paired[created]; used {
					continue
				}
				if cid, ok := ids.ReadID(created); ok && cid == id {
					paired[created] = struct{}{}
					b.MovedFrom = append(b.MovedFrom, old)
					b.MovedTo = append(b.MovedTo, created)
					matched = true
					break
				}
			}
		}
		if !matched {
			b.Deleted = append(b.Deleted, old)
		}
	}
	for _, path := range p.removed.items {
		if !exists(path) {
			b.Deleted = append(b.Deleted, path)
		}
	}
	for _, path := range p.created.items {
		if _, used := paired[path]; used || !exists(path) {
			continue
		}
		b.Imported = append(b.Imported, path)
	}
	return b
}
