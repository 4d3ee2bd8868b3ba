package main

import (
	"context"
	"fmt"

	"github.com/a-h/solvent/installer"
	"github.com/a-h/solvent/internal/cli"
	"github.com/a-h/solvent/pkgcache"
	"github.com/a-h/solvent/repodata"
	"github.com/a-h/solvent/transaction"
)

// InstallCmd solves specs against a channel and executes the resulting
// transaction against a conda prefix.
type InstallCmd struct {
	Prefix   string   `arg:"" help:"Target prefix directory"`
	Channel  []string `help:"Channel base URL (repeatable)" default:"https://conda.anaconda.org/conda-forge" env:"SOLVENT_CHANNEL"`
	Platform string   `help:"Target platform, e.g. linux-64" default:"linux-64" env:"SOLVENT_PLATFORM"`
	Specs    []string `arg:"" help:"Match specs to install, e.g. 'python>=3.10'"`
}

func (cmd *InstallCmd) Run(g *cli.Globals) error {
	log := g.Logger()
	ctx := context.Background()

	env, err := cli.NewEnvironment(g, nil, cmd.Channel)
	if err != nil {
		return err
	}

	solved, err := solveSpecs(ctx, env, cmd.Platform, cmd.Specs, log)
	if err != nil {
		return err
	}

	current, err := repodata.LoadPrefixRecords(cmd.Prefix)
	if err != nil {
		return fmt.Errorf("solvent: load current prefix state: %w", err)
	}

	tx := transaction.Build(current, solved.Installed, nil, nil, cmd.Platform)
	if len(tx.Operations) == 0 {
		fmt.Println("nothing to do")
		return nil
	}

	driver := installer.NewInstallDriver(cmd.Prefix, current, nil, false)
	in := &installer.Installer{
		Driver:   driver,
		Cache:    env.Packages,
		URLFor:   func(r *repodata.RepoDataRecord) string { return r.URL },
		Fetch:    fetchFuncFor(env),
		Metrics:  env.Metrics,
		Reporter: pkgcache.NopReporter{},
	}

	result, err := in.Run(ctx, tx)
	if err != nil {
		return fmt.Errorf("solvent: run transaction: %w", err)
	}

	all := append(append([]*repodata.PrefixRecord{}, result.LinkedRecords...), tx.Unchanged...)
	if err := in.Finalize(all); err != nil {
		return fmt.Errorf("solvent: finalize clobber resolution: %w", err)
	}

	for _, op := range tx.Operations {
		fmt.Printf("%s %s\n", op.Kind, operationLabel(op))
	}
	return nil
}

func operationLabel(op transaction.Operation) string {
	if op.New != nil {
		return fmt.Sprintf("%s=%s=%s", op.New.Name, op.New.Version, op.New.Build)
	}
	return fmt.Sprintf("%s=%s=%s", op.Old.Name, op.Old.Version, op.Old.Build)
}

// fetchFuncFor builds the pkgcache.FetchFunc used by Installer: a plain
// HTTP GET of the record's URL, written to the archive path pkgcache gives
// it. Extraction past the download step is handled by the Cache's
// configured Extractor.
func fetchFuncFor(env *cli.Environment) func(ctx context.Context, index int, key pkgcache.BucketKey, url string) pkgcache.FetchFunc {
	return func(ctx context.Context, index int, key pkgcache.BucketKey, url string) pkgcache.FetchFunc {
		return func(ctx context.Context, archivePath string) error {
			return downloadTo(ctx, url, archivePath)
		}
	}
}
