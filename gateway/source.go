// Package gateway implements the repodata Gateway (§4.1): coalesced subdir
// construction, per-name fetch coalescing, and recursive dependency
// discovery across one or more channels and platforms.
package gateway

import (
	"context"

	"github.com/a-h/solvent/repodata"
)

// source is one (channel, platform)'s record-acquisition strategy: local
// directory, full remote repodata.json, or sharded remote manifest. Each
// variant answers "give me whatever you know about these package names",
// materializing only what it has to.
type source interface {
	// records returns every record this source holds for any of names.
	// A name this source has no records for is simply absent from the
	// result; that is not an error.
	records(ctx context.Context, names []string) ([]*repodata.RepoDataRecord, error)
}
