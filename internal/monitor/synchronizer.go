package monitor

import (
	"github.com/danmuck/unitctl/internal/observability"
	"github.com/danmuck/unitctl/internal/relations"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Batch is one content-store mutation notification. MovedTo[i] pairs with
// MovedFrom[i].
type Batch struct {
	Imported  []string
	Deleted   []string
	MovedTo   []string
	MovedFrom []string
}

// Empty reports whether the batch carries no locations.
func (b Batch) Empty() bool {
	return len(b.Imported) == 0 && len(b.Deleted) == 0 && len(b.MovedTo) == 0 && len(b.MovedFrom) == 0
}

// Graph is the relation store surface the synchronizer writes back into.
type Graph interface {
	RemoveUnit(id string) bool
	ResyncNames(r relations.Resolver) bool
}

// Index is the id<->location mapping. It must still resolve deleted
// locations when Handle runs; Handle updates it afterwards.
type Index interface {
	IDFromLocation(location string) (string, bool)
	LocationFromID(id string) (string, bool)
	IsUnit(location string) bool
	Register(location string) (string, error)
	Forget(location string)
	Move(from, to string)
}

// Result summarizes what one batch changed.
type Result struct {
	Pruned   []string
	Resynced bool
}

// Synchronizer applies change batches to the relation graph.
type Synchronizer struct {
	graph  Graph
	index  Index
	logger zerolog.Logger
}

type Option func(*Synchronizer)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = observability.Component(logger, "monitor")
	}
}

func NewSynchronizer(graph Graph, index Index, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		graph:  graph,
		index:  index,
		logger: observability.Component(log.Logger, "monitor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle prunes every deleted unit from the graph, then brings the index up
// to date and resyncs names when units moved or appeared. Re-running a batch
// is a no-op.
func (s *Synchronizer) Handle(batch Batch) Result {
	var res Result
	for _, loc := range batch.Deleted {
		if !s.index.IsUnit(loc) {
			continue
		}
		id, ok := s.index.IDFromLocation(loc)
		if !ok {
			continue
		}
		if s.graph.RemoveUnit(id) {
			observability.RecordPrunedUnit()
			res.Pruned = append(res.Pruned, id)
			s.logger.Info().Str("id", id).Str("location", loc).Msg("monitor.Synchronizer.Handle pruned deleted unit")
		}
	}
	for _, loc := range batch.Deleted {
		s.index.Forget(loc)
	}

	touched := 0
	for i, to := range batch.MovedTo {
		if i >= len(batch.MovedFrom) || !s.index.IsUnit(to) {
			continue
		}
		s.index.Move(batch.MovedFrom[i], to)
		touched++
	}
	for _, loc := range batch.Imported {
		if !s.index.IsUnit(loc) {
			continue
		}
		if _, err := s.index.Register(loc); err != nil {
			s.logger.Error().Err(err).Str("location", loc).Msg("monitor.Synchronizer.Handle register failed")
			continue
		}
		// an import can be the far side of a move the feed could not pair
		touched++
	}
	if touched > 0 {
		res.Resynced = s.graph.ResyncNames(s.index)
	}
	return res
}
