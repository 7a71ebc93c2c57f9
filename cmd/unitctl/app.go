package main

import (
	"fmt"

	"github.com/danmuck/unitctl/internal/catalog"
	"github.com/danmuck/unitctl/internal/config"
	"github.com/danmuck/unitctl/internal/relations"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App carries state shared by every subcommand.
type App struct {
	ConfigPath string
}

func (a *App) logger() zerolog.Logger {
	return log.Logger
}

func (a *App) config() (config.Config, error) {
	return config.Load(a.ConfigPath, true)
}

func (a *App) openStore(cfg config.Config) (*relations.Store, error) {
	store, err := relations.Open(
		relations.FileStore{Path: cfg.RelationsPath},
		relations.WithLogger(a.logger()),
		relations.WithUnitExtension(cfg.UnitExtension),
	)
	if err != nil {
		return nil, fmt.Errorf("open relation store: %w", err)
	}
	return store, nil
}

func (a *App) scanCatalog(cfg config.Config) (*catalog.Catalog, error) {
	cat := catalog.New(cfg.ContentRoot, cfg.UnitExtension, catalog.WithLogger(a.logger()))
	if err := cat.Scan(); err != nil {
		return nil, err
	}
	return cat, nil
}

// load opens the config, store, and catalog together.
func (a *App) load() (config.Config, *relations.Store, *catalog.Catalog, error) {
	cfg, err := a.config()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	store, err := a.openStore(cfg)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	cat, err := a.scanCatalog(cfg)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, store, cat, nil
}
