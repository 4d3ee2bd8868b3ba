package main

import (
	"fmt"

	"github.com/a-h/solvent/internal/cli"
	"github.com/a-h/solvent/repodata"
)

// ListCmd prints every package currently recorded in a prefix's
// conda-meta directory.
type ListCmd struct {
	Prefix string `arg:"" help:"Prefix directory to list"`
}

func (cmd *ListCmd) Run(g *cli.Globals) error {
	records, err := repodata.LoadPrefixRecords(cmd.Prefix)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("%s=%s=%s\n", rec.Name, rec.Version, rec.Build)
	}
	return nil
}
