package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/a-h/solvent/internal/cli"
	"github.com/a-h/solvent/matchspec"
	"github.com/a-h/solvent/solver"
)

// SolveCmd resolves a set of match specs against one or more channels and
// prints the resulting set of packages, without touching a prefix.
type SolveCmd struct {
	Channel  []string `help:"Channel base URL (repeatable)" default:"https://conda.anaconda.org/conda-forge" env:"SOLVENT_CHANNEL"`
	Platform string   `help:"Target platform, e.g. linux-64" default:"linux-64" env:"SOLVENT_PLATFORM"`
	Specs    []string `arg:"" help:"Match specs to install, e.g. 'python>=3.10'"`
}

func (cmd *SolveCmd) Run(g *cli.Globals) error {
	log := g.Logger()
	ctx := context.Background()

	env, err := cli.NewEnvironment(g, nil, cmd.Channel)
	if err != nil {
		return err
	}

	tx, err := solveSpecs(ctx, env, cmd.Platform, cmd.Specs, log)
	if err != nil {
		return err
	}

	for _, rec := range tx.Installed {
		fmt.Printf("%s=%s=%s\n", rec.Name, rec.Version, rec.Build)
	}
	return nil
}

// solveSpecs loads repodata for the requested specs' package names,
// interns them into a solver.Pool, and runs one CDCL solve asking for all
// of specs to be installed.
func solveSpecs(ctx context.Context, env *cli.Environment, platform string, specs []string, log *slog.Logger) (*solver.Transaction, error) {
	names, parsed, err := parseSpecNames(specs)
	if err != nil {
		return nil, err
	}

	records, err := env.Gateway.LoadRecords(ctx, []string{platform}, names)
	if err != nil {
		return nil, fmt.Errorf("solvent: load repodata: %w", err)
	}
	log.Debug("loaded repodata", slog.Int("records", len(records)), slog.Int("names", len(names)))

	pool := solver.NewPool()
	for _, rec := range records {
		pool.AddSolvable(rec)
	}
	provider := solver.NewCondaProvider(pool, records, solver.StrategyDefault)
	sv := solver.NewSolver(pool, provider)

	jobs := make([]solver.Job, len(parsed))
	for i, ms := range parsed {
		jobs[i] = solver.Job{Kind: solver.JobInstall, Spec: pool.InternMatchSpec(ms)}
	}

	tx, problem, err := sv.Solve(ctx, jobs)
	if err != nil {
		return nil, fmt.Errorf("solvent: solve: %w", err)
	}
	if problem != nil {
		return nil, fmt.Errorf("solvent: unsatisfiable:\n%s", problem.Graph.Report())
	}
	return tx, nil
}

func parseSpecNames(specs []string) (names []string, parsed []matchspec.MatchSpec, err error) {
	names = make([]string, 0, len(specs))
	parsed = make([]matchspec.MatchSpec, 0, len(specs))
	for _, s := range specs {
		ms, err := matchspec.ParseMatchSpec(s)
		if err != nil {
			return nil, nil, fmt.Errorf("solvent: parse match spec %q: %w", s, err)
		}
		names = append(names, ms.Name)
		parsed = append(parsed, ms)
	}
	return names, parsed, nil
}
