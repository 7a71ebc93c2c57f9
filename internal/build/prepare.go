package build

import (
	"github.com/danmuck/unitctl/internal/observability"
	"github.com/danmuck/unitctl/internal/relations"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Source is the store surface the packaging step reads.
type Source interface {
	AllReferencedIDs() []string
	ResyncNames(r relations.Resolver) bool
}

// Report describes one packaging pass.
type Report struct {
	Added    []string
	Missing  []string
	Resynced bool
}

// Packager adds referenced units to a manifest file.
type Packager struct {
	source   Source
	resolver relations.Resolver
	path     string
	logger   zerolog.Logger
}

type Option func(*Packager)

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Packager) {
		p.logger = observability.Component(logger, "build")
	}
}

func NewPackager(source Source, resolver relations.Resolver, manifestPath string, opts ...Option) *Packager {
	p := &Packager{
		source:   source,
		resolver: resolver,
		path:     manifestPath,
		logger:   observability.Component(log.Logger, "build"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare resyncs names, then appends the location of every referenced unit
// not already in the manifest. Existing entries keep their order. Ids with no
// known location are reported as missing and skipped.
func (p *Packager) Prepare() (Report, error) {
	report := Report{Resynced: p.source.ResyncNames(p.resolver)}

	manifest, err := LoadManifest(p.path)
	if err != nil {
		return report, err
	}
	for _, id := range p.source.AllReferencedIDs() {
		loc, ok := p.resolver.LocationFromID(id)
		if !ok || loc == "" {
			report.Missing = append(report.Missing, id)
			p.logger.Warn().Str("id", id).Msg("build.Packager.Prepare referenced unit has no location")
			continue
		}
		if manifest.Contains(loc) {
			continue
		}
		manifest.Units = append(manifest.Units, loc)
		report.Added = append(report.Added, loc)
	}

	if len(report.Added) > 0 {
		if err := SaveManifest(p.path, manifest); err != nil {
			return report, err
		}
	}
	p.logger.Info().
		Str("manifest", p.path).
		Int("added", len(report.Added)).
		Int("missing", len(report.Missing)).
		Msg("build.Packager.Prepare complete")
	return report, nil
}
