package main

import (
	"github.com/alecthomas/kong"
	"github.com/danmuck/unitctl/internal/logging"
)

type CLI struct {
	Config string `help:"Path to the unitctl TOML config." short:"c" default:"unitctl.toml" type:"path"`

	Serve    ServeCmd    `cmd:"" help:"Run the authoring API, live synchronizer, and headless engine."`
	Init     InitCmd     `cmd:"" help:"Create a config and an empty relation store."`
	List     ListCmd     `cmd:"" help:"List roots and their children."`
	Children ChildrenCmd `cmd:"" help:"Show the children of a root by name or id."`
	Resync   ResyncCmd   `cmd:"" help:"Re-derive cached names from the content directory."`
	Build    BuildCmd    `cmd:"" help:"Add every referenced unit to the build manifest."`
	Compose  ComposeCmd  `cmd:"" help:"Dry-run loading a root with its children on the headless engine."`
}

func main() {
	logging.ConfigureRuntime()

	cli := new(CLI)
	ctx := kong.Parse(
		cli,
		kong.Name("unitctl"),
		kong.Description("Unit relation graph tooling"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&App{ConfigPath: cli.Config})
	ctx.FatalIfErrorf(err)
}
