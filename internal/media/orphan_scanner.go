/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/ministry_platform/internal/models"
)

// ScanResult summarizes one orphan scan.
type ScanResult struct {
	TotalFiles int           `json:"total_files"`
	Orphans    []string      `json:"orphans"`
	Removed    int           `json:"removed"`
	TotalSize  int64         `json:"total_size"`
	Errors     int           `json:"errors"`
	Duration   time.Duration `json:"duration"`
}

// OrphanScanner finds stored files that no gallery image or page banner
// references.
type OrphanScanner struct {
	db      *gorm.DB
	storage *FilesystemStorage
	minAge  time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewOrphanScanner creates a scanner over filesystem storage. Files younger
// than minAge are ignored so in-flight uploads are never reported.
func NewOrphanScanner(db *gorm.DB, storage *FilesystemStorage, minAge time.Duration, logger zerolog.Logger) *OrphanScanner {
	return &OrphanScanner{
		db:      db,
		storage: storage,
		minAge:  minAge,
		now:     time.Now,
		logger:  logger.With().Str("component", "orphan_scanner").Logger(),
	}
}

// Scan walks the media root. With remove set, orphans are deleted.
func (s *OrphanScanner) Scan(ctx context.Context, remove bool) (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{Orphans: []string{}}

	known, err := s.knownKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load known keys: %w", err)
	}

	root := s.storage.Root()
	cutoff := s.now().Add(-s.minAge)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipDir
			}
			s.logger.Warn().Err(err).Str("path", path).Msg("error accessing path")
			result.Errors++
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		result.TotalFiles++
		rel, err := filepath.Rel(root, path)
		if err != nil {
			result.Errors++
			return nil
		}
		key := filepath.ToSlash(rel)
		if _, ok := known[key]; ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			result.Errors++
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}

		result.Orphans = append(result.Orphans, key)
		result.TotalSize += info.Size()
		if remove {
			if err := os.Remove(path); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("failed to remove orphan")
				result.Errors++
				return nil
			}
			result.Removed++
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("walk media directory: %w", err)
	}

	result.Duration = time.Since(start)
	s.logger.Info().
		Int("total_files", result.TotalFiles).
		Int("orphans", len(result.Orphans)).
		Int("removed", result.Removed).
		Dur("duration", result.Duration).
		Msg("orphan scan completed")
	return result, nil
}

func (s *OrphanScanner) knownKeys(ctx context.Context) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	for _, model := range []any{&models.GalleryImage{}, &models.PageBanner{}} {
		var keys []string
		if err := s.db.WithContext(ctx).Model(model).
			Where("storage_key <> ''").
			Pluck("storage_key", &keys).Error; err != nil {
			return nil, err
		}
		for _, k := range keys {
			known[k] = struct{}{}
		}
	}
	return known, nil
}
