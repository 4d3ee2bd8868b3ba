package main

import (
	"context"
	"fmt"

	"github.com/a-h/solvent/installer"
	"github.com/a-h/solvent/internal/cli"
	"github.com/a-h/solvent/repodata"
	"github.com/a-h/solvent/transaction"
)

// RemoveCmd removes named packages from a prefix, leaving every other
// installed package untouched.
type RemoveCmd struct {
	Prefix string   `arg:"" help:"Target prefix directory"`
	Names  []string `arg:"" help:"Package names to remove"`
}

func (cmd *RemoveCmd) Run(g *cli.Globals) error {
	ctx := context.Background()

	current, err := repodata.LoadPrefixRecords(cmd.Prefix)
	if err != nil {
		return fmt.Errorf("solvent: load current prefix state: %w", err)
	}

	toRemove := make(map[string]bool, len(cmd.Names))
	for _, n := range cmd.Names {
		toRemove[n] = true
	}

	var desired []*repodata.RepoDataRecord
	for _, rec := range current {
		if toRemove[rec.Name] {
			continue
		}
		desired = append(desired, &rec.RepoDataRecord)
	}

	tx := transaction.Build(current, desired, nil, nil, "")
	if len(tx.Operations) == 0 {
		fmt.Println("nothing to do")
		return nil
	}

	driver := installer.NewInstallDriver(cmd.Prefix, current, nil, false)
	in := &installer.Installer{Driver: driver}

	for _, op := range tx.Operations {
		if op.Kind != transaction.OpRemove {
			continue
		}
		fmt.Printf("remove %s=%s=%s\n", op.Old.Name, op.Old.Version, op.Old.Build)
	}

	result, err := in.Run(ctx, tx)
	if err != nil {
		return fmt.Errorf("solvent: run transaction: %w", err)
	}

	remaining := append(append([]*repodata.PrefixRecord{}, result.LinkedRecords...), tx.Unchanged...)
	return in.Finalize(remaining)
}
