package main

import (
	"fmt"

	"github.com/a-h/solvent/internal/cli"
	"github.com/alecthomas/kong"
)

// CLI is the top-level command tree, mirroring every subcommand against
// the core packages it exercises end to end: resolving a spec against a
// channel, diffing it into a transaction, and executing that transaction
// against a prefix.
type CLI struct {
	cli.Globals
	Version VersionCmd `cmd:"" help:"Show version information"`
	Solve   SolveCmd   `cmd:"" help:"Resolve match specs against a channel and print the result"`
	Install InstallCmd `cmd:"" help:"Resolve and install match specs into a prefix"`
	Remove  RemoveCmd  `cmd:"" help:"Remove packages from a prefix"`
	List    ListCmd    `cmd:"" help:"List packages installed in a prefix"`
}

var Version = "dev"

type VersionCmd struct{}

func (cmd *VersionCmd) Run(g *cli.Globals) error {
	fmt.Println(Version)
	return nil
}

func main() {
	c := CLI{}

	cacheDir, pkgCacheDir := defaultCacheDirs()

	ctx := kong.Parse(&c,
		kong.Name("solvent"),
		kong.Description("Resolve and install conda packages"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{
			"cacheDir":    cacheDir,
			"pkgCacheDir": pkgCacheDir,
		},
	)
	err := ctx.Run(&c.Globals)
	ctx.FatalIfErrorf(err)
}
