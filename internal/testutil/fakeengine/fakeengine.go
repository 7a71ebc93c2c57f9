// Package fakeengine is a scriptable engine double that records the order
// requests are issued in separately from the order they complete in.
package fakeengine

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/danmuck/unitctl/internal/engine"
)

var ErrInjected = errors.New("fakeengine: injected failure")

// Call is one issued request.
type Call struct {
	Op   string
	Name string
	Mode engine.Mode
}

// Engine implements engine.Runtime and engine.Editor.
type Engine struct {
	mu sync.Mutex

	// Fail maps a name or location to the error its requests return.
	Fail map[string]error
	// Delay holds async completion for the given name.
	Delay map[string]time.Duration

	active     string
	loaded     map[string]struct{}
	open       map[string]struct{}
	unpickable map[string]struct{}
	issued     []Call
	completed  []string
	pickCalls  []Call
}

var (
	_ engine.Runtime = (*Engine)(nil)
	_ engine.Editor  = (*Engine)(nil)
)

func New() *Engine {
	return &Engine{
		Fail:       make(map[string]error),
		Delay:      make(map[string]time.Duration),
		loaded:     make(map[string]struct{}),
		open:       make(map[string]struct{}),
		unpickable: make(map[string]struct{}),
	}
}

// FailOn makes every request for name fail with ErrInjected.
func (e *Engine) FailOn(name string) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Fail[name] = ErrInjected
	return e
}

// SetActive marks name as the active root with nothing else loaded.
func (e *Engine) SetActive(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = name
	e.loaded = map[string]struct{}{name: {}}
}

// Preload marks names as already loaded and open without recording calls.
func (e *Engine) Preload(names ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, name := range names {
		e.loaded[name] = struct{}{}
		e.open[name] = struct{}{}
	}
}

func (e *Engine) LoadUnit(name string, mode engine.Mode) error {
	e.record(Call{Op: "load", Name: name, Mode: mode})
	return e.finishLoad(name, mode)
}

func (e *Engine) LoadUnitAsync(name string, mode engine.Mode) engine.Operation {
	e.record(Call{Op: "load", Name: name, Mode: mode})
	return e.async(name, func() error { return e.finishLoad(name, mode) })
}

func (e *Engine) UnloadUnitAsync(name string) engine.Operation {
	e.record(Call{Op: "unload", Name: name})
	return e.async(name, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		if err := e.Fail[name]; err != nil {
			return err
		}
		if _, ok := e.loaded[name]; !ok {
			return engine.ErrNotLoaded
		}
		delete(e.loaded, name)
		e.completed = append(e.completed, name)
		return nil
	})
}

func (e *Engine) async(name string, finish func() error) engine.Operation {
	e.mu.Lock()
	delay := e.Delay[name]
	e.mu.Unlock()
	if delay <= 0 {
		return engine.Completed(finish())
	}
	op := engine.NewCompletion()
	go func() {
		time.Sleep(delay)
		op.Complete(finish())
	}()
	return op
}

func (e *Engine) finishLoad(name string, mode engine.Mode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.Fail[name]; err != nil {
		return err
	}
	if mode == engine.Exclusive {
		e.active = name
		e.loaded = map[string]struct{}{name: {}}
	} else {
		e.loaded[name] = struct{}{}
	}
	e.completed = append(e.completed, name)
	return nil
}

func (e *Engine) record(c Call) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.issued = append(e.issued, c)
}

func (e *Engine) ActiveRoot() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Engine) IsLoaded(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.loaded[name]
	return ok
}

func (e *Engine) IsOpen(location string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.open[location]
	return ok
}

func (e *Engine) OpenAdditive(location string) error {
	e.record(Call{Op: "open", Name: location, Mode: engine.Additive})
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.Fail[location]; err != nil {
		return err
	}
	e.open[location] = struct{}{}
	return nil
}

func (e *Engine) SetPickable(location string, pickable bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	op := "lock"
	if pickable {
		op = "unlock"
	}
	e.pickCalls = append(e.pickCalls, Call{Op: op, Name: location})
	if pickable {
		delete(e.unpickable, location)
	} else {
		e.unpickable[location] = struct{}{}
	}
	return nil
}

// Issued returns every recorded request in issue order.
func (e *Engine) Issued() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.issued...)
}

// IssuedNames returns the names of issued requests with operation op.
func (e *Engine) IssuedNames(op string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.issued))
	for _, c := range e.issued {
		if c.Op == op {
			out = append(out, c.Name)
		}
	}
	return out
}

// Completed returns names in the order their requests succeeded.
func (e *Engine) Completed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.completed...)
}

// PickCalls returns lock/unlock calls in order.
func (e *Engine) PickCalls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.pickCalls...)
}

// Unpickable returns locked locations sorted.
func (e *Engine) Unpickable() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.unpickable))
	for loc := range e.unpickable {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}
