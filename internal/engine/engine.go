package engine

import "errors"

var (
	ErrUnknownUnit = errors.New("engine: unknown unit")
	ErrNotLoaded   = errors.New("engine: unit not loaded")
)

// Mode selects how a unit load interacts with what is already loaded.
type Mode int

const (
	// Exclusive replaces every loaded unit and makes the target the active root.
	Exclusive Mode = iota
	// Additive loads the target alongside what is already loaded.
	Additive
)

func (m Mode) String() string {
	switch m {
	case Exclusive:
		return "exclusive"
	case Additive:
		return "additive"
	default:
		return "unknown"
	}
}

// Primitive is the host's fallible unit-loading primitive, addressed by name.
type Primitive interface {
	LoadUnit(name string, mode Mode) error
	LoadUnitAsync(name string, mode Mode) Operation
	UnloadUnitAsync(name string) Operation
}

// Units reports runtime unit state.
type Units interface {
	ActiveRoot() string
	IsLoaded(name string) bool
}

// Runtime is everything the loaders need from the host.
type Runtime interface {
	Primitive
	Units
}

// Editor is the authoring environment's unit surface, addressed by location.
type Editor interface {
	IsOpen(location string) bool
	OpenAdditive(location string) error
	SetPickable(location string, pickable bool) error
}
