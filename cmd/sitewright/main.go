package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitewright/cmd/sitewright/commands"
	"git.home.luguber.info/inful/sitewright/internal/version"

	// Built-in plugins register themselves at init time.
	_ "git.home.luguber.info/inful/sitewright/internal/plugin/builtin/content"
	_ "git.home.luguber.info/inful/sitewright/internal/plugin/builtin/gitmeta"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("sitewright"),
		kong.Description("Hook-driven static site generator"),
		kong.UsageOnError(),
		kong.Vars{"version": version.Full()},
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
