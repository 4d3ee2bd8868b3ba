package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/a-h/solvent/metrics"
	"github.com/a-h/solvent/pkgcache"
	"github.com/a-h/solvent/repodata"
	"github.com/a-h/solvent/transaction"
)

// DefaultIOPermits is the default number of concurrent link-phase slots
// (§4.6 "Configuration": "I/O-concurrency semaphore (default permits =
// 100)").
const DefaultIOPermits = 100

// FetchURLFor builds the URL a RepoDataRecord should be downloaded from,
// given to Installer so it can drive pkgcache.GetOrFetch.
type FetchURLFor func(record *repodata.RepoDataRecord) string

// Installer executes Transactions against a prefix (§4.6).
type Installer struct {
	Driver    *InstallDriver
	Cache     *pkgcache.Cache
	Fetch     func(ctx context.Context, index int, key pkgcache.BucketKey, url string) pkgcache.FetchFunc
	URLFor    FetchURLFor
	IOPermits int64
	Metrics   metrics.Metrics
	Reporter  pkgcache.Reporter
}

// InstallationResult summarizes one executed transaction.
type InstallationResult struct {
	Transaction    *transaction.Transaction
	LinkedRecords  []*repodata.PrefixRecord
	ClobberedPaths map[string][]string
}

// Run executes tx against the Installer's prefix, per §4.6's three-step
// protocol.
func (in *Installer) Run(ctx context.Context, tx *transaction.Transaction) (*InstallationResult, error) {
	permits := in.IOPermits
	if permits <= 0 {
		permits = DefaultIOPermits
	}
	sem := semaphore.NewWeighted(permits)

	g, gctx := errgroup.WithContext(ctx)
	linked := make([]*repodata.PrefixRecord, len(tx.Operations))

	for i, op := range tx.Operations {
		i, op := i, op
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &CancelledError{Op: op, Err: fmt.Errorf("panic: %v", r)}
				}
			}()

			if op.Kind == transaction.OpRemove {
				if err := unlinkPackage(in.Driver, op.Old); err != nil {
					return err
				}
				in.Metrics.IncrementInstallerUnlinks(gctx, int64(len(op.Old.Files)))
				return nil
			}

			rec, err := in.installOperation(gctx, sem, op)
			if err != nil {
				return err
			}
			linked[i] = rec
			in.Metrics.IncrementInstallerLinks(gctx, int64(len(rec.Files)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var linkedRecords []*repodata.PrefixRecord
	for _, rec := range linked {
		if rec != nil {
			linkedRecords = append(linkedRecords, rec)
		}
	}

	clobberedPaths := in.Driver.Clobber.Clobbers()
	in.Metrics.IncrementClobbers(ctx, int64(len(clobberedPaths)))

	return &InstallationResult{
		Transaction:    tx,
		LinkedRecords:  linkedRecords,
		ClobberedPaths: clobberedPaths,
	}, nil
}

// installOperation handles install/change/reinstall: fetch into the
// package cache, link into the prefix (holding one I/O semaphore slot
// during the link phase only), and write the resulting PrefixRecord to
// conda-meta.
func (in *Installer) installOperation(ctx context.Context, sem *semaphore.Weighted, op transaction.Operation) (*repodata.PrefixRecord, error) {
	record := op.New
	key := pkgcache.BucketKey{Name: record.Name, Version: record.Version, Build: record.Build, SHA256: record.SHA256}

	index := in.Cache.NextIndex()
	url := in.URLFor(record)
	fetch := in.Fetch(ctx, index, key, url)

	cacheDir, err := in.Cache.GetOrFetchWithRetry(ctx, index, key, fetch, pkgcache.DefaultRetryPolicy, in.Reporter)
	if err != nil {
		return nil, fmt.Errorf("installer: acquire cache dir for %s: %w", record.Name, err)
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("installer: acquire I/O slot for %s: %w", record.Name, err)
	}
	defer sem.Release(1)

	if in.Driver.RunScripts {
		if err := in.Driver.Scripts.RunPreLink(ctx, in.Driver.Prefix, &repodata.PrefixRecord{RepoDataRecord: *record}); err != nil {
			return nil, fmt.Errorf("installer: pre-link script for %s: %w", record.Name, err)
		}
	}

	prefixRecord, err := linkPackage(ctx, in.Driver, cacheDir, record, "")
	if err != nil {
		return nil, err
	}

	if err := writeMetaFile(in.Driver.Prefix, prefixRecord); err != nil {
		return nil, err
	}

	if in.Driver.RunScripts {
		if err := in.Driver.Scripts.RunPostLink(ctx, in.Driver.Prefix, prefixRecord); err != nil {
			return nil, fmt.Errorf("installer: post-link script for %s: %w", record.Name, err)
		}
	}
	return prefixRecord, nil
}

func writeMetaFile(prefix string, record *repodata.PrefixRecord) error {
	metaDir := filepath.Join(prefix, "conda-meta")
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return fmt.Errorf("installer: create conda-meta dir: %w", err)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("installer: marshal prefix record for %s: %w", record.Name, err)
	}
	path := filepath.Join(metaDir, record.MetaFileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("installer: write %s: %w", path, err)
	}
	return nil
}
