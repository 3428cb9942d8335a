/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/ministry_platform/internal/config"
)

// Upload errors.
var (
	ErrEmptyFile       = errors.New("empty file")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("file too large")
)

// imageTypes maps accepted content types to file extensions.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Storage abstracts file storage operations. Keys are slash separated and
// relative to the storage root.
type Storage interface {
	Store(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
	CheckAccess(ctx context.Context) error
}

// Stored describes an uploaded file.
type Stored struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Service stores brand images.
type Service struct {
	storage Storage
	maxSize int64
	logger  zerolog.Logger
}

// NewService creates a media service using filesystem or S3 storage based on config.
func NewService(cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	logger = logger.With().Str("component", "media").Logger()

	var storage Storage
	if cfg.S3Bucket != "" {
		if cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "" {
			logger.Warn().Msg("S3 credentials not configured, falling back to the default AWS chain")
		}
		s3Storage, err := NewS3Storage(context.Background(), S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			UsePathStyle:    cfg.S3UsePathStyle,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize S3 storage: %w", err)
		}
		storage = s3Storage
	} else {
		storage = NewFilesystemStorage(cfg.MediaRoot, strings.TrimRight(cfg.BaseURL, "/")+"/media", logger)
	}

	return NewServiceWithStorage(storage, cfg.MaxUploadSizeBytes(), logger), nil
}

// NewServiceWithStorage wraps an existing backend. maxSize <= 0 means no
// limit.
func NewServiceWithStorage(storage Storage, maxSize int64, logger zerolog.Logger) *Service {
	return &Service{storage: storage, maxSize: maxSize, logger: logger}
}

// Storage returns the backend.
func (s *Service) Storage() Storage {
	return s.storage
}

// Upload validates an image and stores it under the brand's prefix.
func (s *Service) Upload(ctx context.Context, brandID string, body io.Reader) (*Stored, error) {
	limit := s.maxSize
	if limit <= 0 {
		limit = 1 << 40
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	key := buildMediaPath(brandID, uuid.NewString(), ext)
	if err := s.storage.Store(ctx, key, contentType, bytes.NewReader(data)); err != nil {
		s.logger.Error().Err(err).Str("brand_id", brandID).Msg("media store failed")
		return nil, fmt.Errorf("store media: %w", err)
	}

	s.logger.Info().Str("brand_id", brandID).Str("key", key).Int("size", len(data)).Msg("media stored")
	return &Stored{Key: key, URL: s.storage.URL(key), ContentType: contentType, Size: int64(len(data))}, nil
}

// Delete removes a stored file. Empty keys are ignored.
func (s *Service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("media delete failed")
		return fmt.Errorf("delete media: %w", err)
	}
	s.logger.Info().Str("key", key).Msg("media deleted")
	return nil
}

// URL returns the public URL for a stored file.
func (s *Service) URL(key string) string {
	return s.storage.URL(key)
}

// CheckStorageAccess verifies that the storage backend is accessible.
func (s *Service) CheckStorageAccess(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.storage.CheckAccess(ctx)
}

// buildMediaPath spreads files as brand_id/id[0:2]/id[2:4]/id.ext.
func buildMediaPath(brandID, id, ext string) string {
	if len(id) < 4 {
		return path.Join(brandID, id+ext)
	}
	return path.Join(brandID, id[0:2], id[2:4], id+ext)
}
