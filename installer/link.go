package installer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/a-h/solvent/repodata"
)

// linkPackage materializes record's files from cacheDir into prefix,
// consulting driver's clobber registry for each destination, and returns
// the PrefixRecord to persist into conda-meta (§4.6 step 2, sub-step
// "install/changes/reinstalls").
func linkPackage(ctx context.Context, driver *InstallDriver, cacheDir string, record *repodata.RepoDataRecord, requestedSpec string) (*repodata.PrefixRecord, error) {
	pathsJSON, err := os.ReadFile(filepath.Join(cacheDir, "info", "paths.json"))
	if err != nil {
		return nil, fmt.Errorf("installer: read paths.json for %s: %w", record.Name, err)
	}
	var paths repodata.PathsData
	if err := json.Unmarshal(pathsJSON, &paths); err != nil {
		return nil, fmt.Errorf("installer: parse paths.json for %s: %w", record.Name, err)
	}

	declared := make([]string, len(paths.Paths))
	for i, p := range paths.Paths {
		declared[i] = p.Path
	}
	redirects := driver.Clobber.Register(record.Name, declared)

	files := make([]string, 0, len(paths.Paths))
	linked := make([]repodata.PathData, 0, len(paths.Paths))

	for _, p := range paths.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		destRel := p.Path
		if redirect, ok := redirects[p.Path]; ok {
			destRel = redirect
		}

		srcPath := filepath.Join(cacheDir, p.Path)
		destPath := filepath.Join(driver.Prefix, destRel)

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return nil, fmt.Errorf("installer: create parent dir for %s: %w", destRel, err)
		}

		if err := placeFile(srcPath, destPath, driver.Prefix, p); err != nil {
			return nil, fmt.Errorf("installer: place %s: %w", destRel, err)
		}

		files = append(files, destRel)
		placed := p
		placed.Path = destRel
		if p.PrefixPlaceholder != "" {
			inPrefixSHA, err := sha256File(destPath)
			if err != nil {
				return nil, fmt.Errorf("installer: hash rewritten %s: %w", destRel, err)
			}
			placed.SHA256InPrefix = inPrefixSHA
		}
		linked = append(linked, placed)
	}

	return &repodata.PrefixRecord{
		RepoDataRecord: *record,
		Files:          files,
		PathsData:      repodata.PathsData{PathsVersion: repodata.PathsVersion, Paths: linked},
		Link:           &repodata.LinkInfo{Source: cacheDir, Type: repodata.PathTypeHardlink},
		RequestedSpec:  requestedSpec,
		SourceCacheDir: cacheDir,
	}, nil
}

// placeFile materializes src at dest, honoring p's prefix-placeholder
// rewrite if set, falling back from a hard link to a copy when the two
// paths aren't on the same filesystem (§4.6 step 2a).
func placeFile(src, dest, prefix string, p repodata.PathData) error {
	if p.PrefixPlaceholder != "" {
		return copyWithPlaceholderRewrite(src, dest, p.PrefixPlaceholder, prefix)
	}
	if p.NoLink {
		return copyFile(src, dest)
	}

	if err := os.Link(src, dest); err == nil {
		return nil
	}
	return copyFile(src, dest)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func copyWithPlaceholderRewrite(src, dest, placeholder, prefix string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	rewritten := bytes.ReplaceAll(content, []byte(placeholder), []byte(prefix))
	return os.WriteFile(dest, rewritten, 0o644)
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
