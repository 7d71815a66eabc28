package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/bills-extractor/constants"
)

// WalkDirectory walks root, skips hidden entries if requested, and prepares every
// supported file. A second file with identical content is reported as deduplicated.
func WalkDirectory(ctx context.Context, root string, skipHidden bool) ([]Upload, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []Upload
	var stats DirStats
	seen := map[string]struct{}{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Upload{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if !AllowedExt(ext) {
			return nil
		}
		stats.Matched++

		u, err := PrepareFile(path)
		if err != nil {
			results = append(results, Upload{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		if _, dup := seen[u.UploadID]; dup {
			u.Deduplicated = true
			stats.Deduplicated++
		}
		seen[u.UploadID] = struct{}{}

		results = append(results, u)
		stats.Succeeded++
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
