package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Headless is an in-process Runtime and Editor. Every request completes
// immediately; known restricts which names and locations can be loaded.
type Headless struct {
	mu         sync.RWMutex
	known      func(string) bool
	active     string
	loaded     map[string]struct{}
	open       map[string]struct{}
	unpickable map[string]struct{}
	logger     zerolog.Logger
}

var (
	_ Runtime = (*Headless)(nil)
	_ Editor  = (*Headless)(nil)
)

// NewHeadless returns an empty headless engine. A nil known accepts every unit.
func NewHeadless(known func(string) bool) *Headless {
	return &Headless{
		known:      known,
		loaded:     make(map[string]struct{}),
		open:       make(map[string]struct{}),
		unpickable: make(map[string]struct{}),
		logger:     log.Logger,
	}
}

// WithLogger replaces the logger used for request tracing.
func (h *Headless) WithLogger(logger zerolog.Logger) *Headless {
	h.logger = logger
	return h
}

func (h *Headless) LoadUnit(name string, mode Mode) error {
	if h.known != nil && !h.known(name) {
		return fmt.Errorf("%w: %q", ErrUnknownUnit, name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if mode == Exclusive {
		h.active = name
		h.loaded = map[string]struct{}{name: {}}
	} else {
		h.loaded[name] = struct{}{}
	}
	h.logger.Debug().Str("unit", name).Stringer("mode", mode).Msg("engine.Headless.LoadUnit")
	return nil
}

func (h *Headless) LoadUnitAsync(name string, mode Mode) Operation {
	return Completed(h.LoadUnit(name, mode))
}

func (h *Headless) UnloadUnitAsync(name string) Operation {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.loaded[name]; !ok {
		return Completed(fmt.Errorf("%w: %q", ErrNotLoaded, name))
	}
	delete(h.loaded, name)
	h.logger.Debug().Str("unit", name).Msg("engine.Headless.UnloadUnit")
	return Completed(nil)
}

func (h *Headless) ActiveRoot() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}

func (h *Headless) IsLoaded(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.loaded[name]
	return ok
}

// Loaded returns the loaded unit names sorted.
func (h *Headless) Loaded() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.loaded))
	for name := range h.loaded {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (h *Headless) IsOpen(location string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.open[location]
	return ok
}

func (h *Headless) OpenAdditive(location string) error {
	if h.known != nil && !h.known(location) {
		return fmt.Errorf("%w: %q", ErrUnknownUnit, location)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open[location] = struct{}{}
	return nil
}

func (h *Headless) SetPickable(location string, pickable bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.open[location]; !ok {
		return fmt.Errorf("%w: %q", ErrNotLoaded, location)
	}
	if pickable {
		delete(h.unpickable, location)
	} else {
		h.unpickable[location] = struct{}{}
	}
	return nil
}

// IsPickable reports whether location's contents can be selected.
func (h *Headless) IsPickable(location string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, locked := h.unpickable[location]
	return !locked
}
