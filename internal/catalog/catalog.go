// Package catalog indexes the content directory and owns the bidirectional
// id<->location mapping.
//
// Every unit file carries a sidecar "<file>.meta" YAML document holding its
// stable id. Ids are minted once and travel with the sidecar on moves.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/unitctl/internal/observability"
	"github.com/danmuck/unitctl/internal/unit"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const MetaSuffix = ".meta"

var ErrNotUnit = errors.New("catalog: not a unit location")

type sidecar struct {
	ID string `yaml:"id"`
}

// Catalog maps unit locations under one content root to stable ids.
type Catalog struct {
	root   string
	ext    string
	logger zerolog.Logger
	newID  func() string

	mu         sync.RWMutex
	byLocation map[string]string
	byID       map[string]string
}

type Option func(*Catalog)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Catalog) {
		c.logger = observability.Component(logger, "catalog")
	}
}

// WithIDSource replaces uuid minting.
func WithIDSource(next func() string) Option {
	return func(c *Catalog) {
		c.newID = next
	}
}

func New(root, ext string, opts ...Option) *Catalog {
	c := &Catalog{
		root:       filepath.Clean(root),
		ext:        ext,
		logger:     observability.Component(log.Logger, "catalog"),
		newID:      uuid.NewString,
		byLocation: make(map[string]string),
		byID:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsUnit reports whether location names a unit file for this catalog.
func (c *Catalog) IsUnit(location string) bool {
	return unit.IsUnitLocation(location, c.ext)
}

// Scan walks the content root and registers every unit file. Per-file
// failures are logged and skipped.
func (c *Catalog) Scan() error {
	count := 0
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == c.root {
				return err
			}
			c.logger.Warn().Err(err).Str("path", path).Msg("catalog.Catalog.Scan skipped path")
			return nil
		}
		if d.IsDir() || !c.IsUnit(path) {
			return nil
		}
		if _, err := c.Register(path); err != nil {
			c.logger.Error().Err(err).Str("path", path).Msg("catalog.Catalog.Scan register failed")
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("catalog scan failed (%s): %w", c.root, err)
	}
	c.logger.Info().Str("root", c.root).Int("units", count).Msg("catalog.Catalog.Scan indexed")
	return nil
}

// Register indexes the unit at location, minting and writing a sidecar id
// when none exists. When the sidecar's id is already indexed at another
// location that still exists, the file is a copy and gets a fresh id; when
// the other location is gone, the unit moved.
func (c *Catalog) Register(location string) (string, error) {
	location = filepath.Clean(location)
	if !c.IsUnit(location) {
		return "", fmt.Errorf("%w: %s", ErrNotUnit, location)
	}

	id, ok := c.ReadID(location)
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok {
		if prev, taken := c.byID[id]; taken && prev != location {
			if _, err := os.Stat(prev); err == nil {
				ok = false
			} else {
				delete(c.byLocation, prev)
			}
		}
	}
	if !ok {
		id = c.newID()
		if err := writeSidecar(location, id); err != nil {
			return "", err
		}
	}

	if old, had := c.byLocation[location]; had && old != id {
		delete(c.byID, old)
	}
	c.byLocation[location] = id
	c.byID[id] = location
	return id, nil
}

// ReadID reads the id stored in location's sidecar.
func (c *Catalog) ReadID(location string) (string, bool) {
	data, err := os.ReadFile(filepath.Clean(location) + MetaSuffix)
	if err != nil {
		return "", false
	}
	var meta sidecar
	if err := yaml.Unmarshal(data, &meta); err != nil {
		c.logger.Warn().Err(err).Str("path", location).Msg("catalog.Catalog.ReadID unreadable sidecar")
		return "", false
	}
	id := strings.TrimSpace(meta.ID)
	if !unit.IsValidID(id) {
		return "", false
	}
	return id, true
}

func (c *Catalog) IDFromLocation(location string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byLocation[filepath.Clean(location)]
	return id, ok
}

func (c *Catalog) LocationFromID(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	loc, ok := c.byID[id]
	return loc, ok
}

// Forget drops location from the index.
func (c *Catalog) Forget(location string) {
	location = filepath.Clean(location)
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.byLocation[location]; ok {
		delete(c.byLocation, location)
		if c.byID[id] == location {
			delete(c.byID, id)
		}
	}
}

// Move re-points the id indexed at from to the location to.
func (c *Catalog) Move(from, to string) {
	from, to = filepath.Clean(from), filepath.Clean(to)
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byLocation[from]
	if !ok {
		return
	}
	delete(c.byLocation, from)
	c.byLocation[to] = id
	c.byID[id] = to
}

// Units lists every indexed unit with its derived name, sorted by location.
func (c *Catalog) Units() []unit.Ref {
	c.mu.RLock()
	defer c.mu.RUnlock()
	locs := make([]string, 0, len(c.byLocation))
	for loc := range c.byLocation {
		locs = append(locs, loc)
	}
	sort.Strings(locs)
	out := make([]unit.Ref, 0, len(locs))
	for _, loc := range locs {
		name, _ := unit.NameFromLocation(loc, c.ext)
		out = append(out, unit.Ref{ID: c.byLocation[loc], Name: name})
	}
	return out
}

// Known reports whether key is an indexed location or the name of one.
func (c *Catalog) Known(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.byLocation[filepath.Clean(key)]; ok {
		return true
	}
	for loc := range c.byLocation {
		if name, _ := unit.NameFromLocation(loc, c.ext); name == key {
			return true
		}
	}
	return false
}

func writeSidecar(location, id string) error {
	data, err := yaml.Marshal(sidecar{ID: id})
	if err != nil {
		return fmt.Errorf("catalog sidecar encode failed (%s): %w", location, err)
	}
	if err := os.WriteFile(location+MetaSuffix, data, 0o644); err != nil {
		return fmt.Errorf("catalog sidecar write failed (%s): %w", location, err)
	}
	return nil
}
