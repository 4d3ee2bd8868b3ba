// Package cli holds the flags and helpers shared by every cmd/solvent
// subcommand, the same role the teacher's cmd/globals package plays for
// its own subcommand tree.
package cli

import (
	"log/slog"
	"os"
)

// MirrorFlags configures an optional S3-compatible durable mirror in
// front of the local package cache, the same per-flag shape the
// teacher's ServeCmd embeds for its own S3 storage backend.
type MirrorFlags struct {
	Bucket          string `help:"S3 bucket for the package archive mirror (disables the mirror if empty)" env:"SOLVENT_MIRROR_S3_BUCKET"`
	Prefix          string `help:"Key prefix within the bucket" default:"solvent/" env:"SOLVENT_MIRROR_S3_PREFIX"`
	Region          string `help:"S3 region" default:"us-east-1" env:"SOLVENT_MIRROR_S3_REGION"`
	Endpoint        string `help:"S3 endpoint URL (for MinIO/custom endpoints)" env:"SOLVENT_MIRROR_S3_ENDPOINT"`
	AccessKeyID     string `help:"S3 access key ID (uses ambient credentials if unset)" env:"SOLVENT_MIRROR_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `help:"S3 secret access key (uses ambient credentials if unset)" env:"SOLVENT_MIRROR_S3_SECRET_ACCESS_KEY"`
	ForcePathStyle  bool   `help:"Use path-style S3 URLs (required for MinIO)" env:"SOLVENT_MIRROR_S3_FORCE_PATH_STYLE"`
}

// Globals carries flags common to every subcommand.
type Globals struct {
	Verbose     bool        `help:"Enable debug logging" short:"v"`
	CacheDir    string      `help:"Directory for the HTTP repodata cache" default:"${cacheDir}" env:"SOLVENT_CACHE_DIR"`
	PkgCacheDir string      `help:"Directory for the extracted package cache" default:"${pkgCacheDir}" env:"SOLVENT_PKG_CACHE_DIR"`
	Mirror      MirrorFlags `embed:"" prefix:"mirror-"`
}

// Logger builds the slog.Logger every subcommand logs through, honoring
// Globals.Verbose the same way the teacher's subcommands each did inline.
func (g *Globals) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{}
	if g.Verbose {
		opts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
