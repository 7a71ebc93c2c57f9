package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danmuck/unitctl/internal/build"
	"github.com/danmuck/unitctl/internal/config"
	"github.com/danmuck/unitctl/internal/engine"
	"github.com/danmuck/unitctl/internal/loader"
	"github.com/danmuck/unitctl/internal/relations"
	"github.com/danmuck/unitctl/internal/unit"
	"gopkg.in/yaml.v3"
)

type InitCmd struct {
	Force bool `help:"Overwrite an existing config file."`
}

func (c *InitCmd) Run(app *App) error {
	if err := config.WriteTemplate(app.ConfigPath, c.Force); err != nil {
		return err
	}
	cfg, err := app.config()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.ContentRoot, 0o755); err != nil {
		return fmt.Errorf("create content root: %w", err)
	}
	err = relations.FileStore{Path: cfg.RelationsPath}.Create()
	if errors.Is(err, relations.ErrStoreExists) {
		fmt.Printf("relation store already exists at %s\n", cfg.RelationsPath)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("created %s and %s\n", app.ConfigPath, cfg.RelationsPath)
	return nil
}

type ListCmd struct {
	Format string `help:"Output format." enum:"table,yaml" default:"table"`
}

func (c *ListCmd) Run(app *App) error {
	cfg, err := app.config()
	if err != nil {
		return err
	}
	store, err := app.openStore(cfg)
	if err != nil {
		return err
	}
	g := store.Graph()
	if c.Format == "yaml" {
		return yaml.NewEncoder(os.Stdout).Encode(g)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROOT\tID\tCHILDREN")
	for _, rel := range g.Relations {
		fmt.Fprintf(w, "%s\t%s\t%s\n", display(rel.Name), rel.ID, joinNames(rel.Children))
	}
	return w.Flush()
}

type ChildrenCmd struct {
	Root string `arg:"" help:"Root name or id."`
	ByID bool   `help:"Treat the argument as an id." name:"id"`
}

func (c *ChildrenCmd) Run(app *App) error {
	cfg, err := app.config()
	if err != nil {
		return err
	}
	store, err := app.openStore(cfg)
	if err != nil {
		return err
	}
	var children []unit.Ref
	if c.ByID {
		children = store.ChildrenByID(c.Root)
	} else {
		children = store.ChildrenByName(c.Root)
	}
	for _, child := range children {
		fmt.Printf("%s\t%s\n", child.ID, display(child.Name))
	}
	return nil
}

type ResyncCmd struct{}

func (c *ResyncCmd) Run(app *App) error {
	_, store, cat, err := app.load()
	if err != nil {
		return err
	}
	changed := store.ResyncNames(cat)
	if err := store.Flush(); err != nil {
		return err
	}
	fmt.Printf("names changed: %t\n", changed)
	return nil
}

type BuildCmd struct {
	Manifest string `help:"Override the manifest path from config."`
}

func (c *BuildCmd) Run(app *App) error {
	cfg, store, cat, err := app.load()
	if err != nil {
		return err
	}
	path := cfg.BuildManifest
	if c.Manifest != "" {
		path = c.Manifest
	}
	report, err := build.NewPackager(store, cat, path, build.WithLogger(app.logger())).Prepare()
	if err != nil {
		return err
	}
	if err := store.Flush(); err != nil {
		return err
	}
	fmt.Printf("added %d unit(s) to %s\n", len(report.Added), path)
	for _, id := range report.Missing {
		fmt.Printf("missing: %s\n", id)
	}
	return nil
}

type ComposeCmd struct {
	Root    string        `arg:"" help:"Root name to load exclusively."`
	Async   bool          `help:"Use the asynchronous load path."`
	Timeout time.Duration `help:"Bound the asynchronous wait." default:"30s"`
}

func (c *ComposeCmd) Run(app *App) error {
	_, store, cat, err := app.load()
	if err != nil {
		return err
	}
	runtime := engine.NewHeadless(cat.Known).WithLogger(app.logger())
	l := loader.New(store, runtime, loader.WithLogger(app.logger()))

	if c.Async {
		ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
		defer cancel()
		err = l.LoadWithChildrenAsync(ctx, c.Root)
	} else {
		err = l.LoadWithChildren(c.Root)
	}
	if err != nil {
		return err
	}
	fmt.Printf("active: %s\n", runtime.ActiveRoot())
	fmt.Printf("loaded: %s\n", strings.Join(runtime.Loaded(), ", "))
	return nil
}

func display(name string) string {
	if name == "" {
		return "<unresolved>"
	}
	return name
}

func joinNames(refs []unit.Ref) string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, display(ref.Name))
	}
	return strings.Join(names, ", ")
}
