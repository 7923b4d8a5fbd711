// Package ingest gathers leaderboard screenshots from the local filesystem.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/fan-ledger/internal/ocr"
)

// FileResult describes what happened to one path during collection.
type FileResult struct {
	Path         string
	HashHex      string
	Deduplicated bool
	Err          string
}

type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Collected    uint32
	Deduplicated uint32
	Failed       uint32
}

// Collect reads every screenshot named by paths. Directories are walked recursively,
// keeping files with an accepted extension and skipping hidden entries when skipHidden
// is set. Files named explicitly are read whatever their extension. Byte-identical
// screenshots are collected once.
func Collect(paths []string, skipHidden bool, logger *slog.Logger) ([]ocr.Source, []FileResult, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(paths) == 0 {
		return nil, nil, DirStats{}, errors.New("at least one path is required")
	}

	var (
		sources []ocr.Source
		results []FileResult
		stats   DirStats
		seen    = map[string]bool{}
	)
	add := func(path string) {
		stats.Matched++
		data, err := os.ReadFile(path)
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return
		}
		sum := sha256.Sum256(data)
		hashHex := hex.EncodeToString(sum[:])
		if seen[hashHex] {
			results = append(results, FileResult{Path: path, HashHex: hashHex, Deduplicated: true})
			stats.Deduplicated++
			logger.Debug("ingest.duplicate", "path", path, "sha256", hashHex)
			return
		}
		seen[hashHex] = true
		sources = append(sources, ocr.Source{Name: path, Data: data})
		results = append(results, FileResult{Path: path, HashHex: hashHex})
		stats.Collected++
	}

	for _, root := range paths {
		root = strings.TrimSpace(root)
		info, err := os.Stat(root)
		if err != nil {
			return nil, results, stats, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			stats.Scanned++
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			stats.Scanned++
			if walkErr != nil {
				results = append(results, FileResult{Path: path, Err: walkErr.Error()})
				stats.Failed++
				return nil // continue walking
			}
			if skipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, results, stats, fmt.Errorf("walk: %w", err)
		}
	}

	logger.Info("ingest.collected",
		"scanned", stats.Scanned,
		"collected", stats.Collected,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return sources, results, stats, nil
}
