// Package installer implements the Installer (§4.6): executing a
// Transaction against a target prefix, fetching and extracting packages
// via pkgcache, linking their files, and resolving clobber contention.
package installer

import (
	"context"
	"fmt"

	"github.com/a-h/solvent/clobber"
	"github.com/a-h/solvent/repodata"
	"github.com/a-h/solvent/transaction"
)

// ScriptRunner executes a package's pre-link/post-link scripts, if
// present and enabled. A nil ScriptRunner disables script execution.
type ScriptRunner interface {
	RunPreLink(ctx context.Context, prefix string, record *repodata.PrefixRecord) error
	RunPostLink(ctx context.Context, prefix string, record *repodata.PrefixRecord) error
}

// NopScriptRunner runs nothing, for callers that disable link scripts.
type NopScriptRunner struct{}

func (NopScriptRunner) RunPreLink(ctx context.Context, prefix string, record *repodata.PrefixRecord) error {
	return nil
}
func (NopScriptRunner) RunPostLink(ctx context.Context, prefix string, record *repodata.PrefixRecord) error {
	return nil
}

// InstallDriver holds the state shared across one transaction's execution:
// the clobber registry seeded from the prefix's current records, and the
// script runner used for pre/post-link hooks (§4.6 step 1 "Pre-process").
type InstallDriver struct {
	Prefix     string
	Clobber    *clobber.Registry
	Scripts    ScriptRunner
	RunScripts bool
}

// NewInstallDriver seeds a clobber registry from current and returns a
// driver ready to execute a Transaction against prefix.
func NewInstallDriver(prefix string, current []*repodata.PrefixRecord, scripts ScriptRunner, runScripts bool) *InstallDriver {
	reg := clobber.New()
	reg.Seed(current)
	if scripts == nil {
		scripts = NopScriptRunner{}
	}
	return &InstallDriver{Prefix: prefix, Clobber: reg, Scripts: scripts, RunScripts: runScripts}
}

// CancelledError is returned when a spawned per-operation task panics
// (§4.6 "Concurrency"). A cancelled context does not produce one.
type CancelledError struct {
	Op  transaction.Operation
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("installer: operation on %s cancelled: %v", operationName(e.Op), e.Err)
}
func (e *CancelledError) Unwrap() error { return e.Err }

func operationName(op transaction.Operation) string {
	if op.New != nil {
		return op.New.Name
	}
	if op.Old != nil {
		return op.Old.Name
	}
	return "<unknown>"
}
