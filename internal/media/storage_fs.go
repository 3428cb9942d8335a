/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// ErrInvalidKey is returned for keys that escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

// FilesystemStorage implements Storage on the local filesystem. Files are
// served by the HTTP server under publicBase.
type FilesystemStorage struct {
	rootDir    string
	publicBase string
	logger     zerolog.Logger
}

// NewFilesystemStorage creates a filesystem-based storage backend.
func NewFilesystemStorage(rootDir, publicBase string, logger zerolog.Logger) *FilesystemStorage {
	return &FilesystemStorage{
		rootDir:    rootDir,
		publicBase: strings.TrimRight(publicBase, "/"),
		logger:     logger,
	}
}

// Root returns the storage directory.
func (fs *FilesystemStorage) Root() string {
	return fs.rootDir
}

func (fs *FilesystemStorage) fullPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return filepath.Join(fs.rootDir, clean), nil
}

// Store writes body to key.
func (fs *FilesystemStorage) Store(_ context.Context, key, _ string, body io.Reader) error {
	full, err := fs.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	dest, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dest, body); err != nil {
		dest.Close()
		os.Remove(full)
		return fmt.Errorf("write file: %w", err)
	}
	if err := dest.Close(); err != nil {
		os.Remove(full)
		return fmt.Errorf("close file: %w", err)
	}

	fs.logger.Debug().Str("path", full).Str("key", key).Msg("filesystem storage: file stored")
	return nil
}

// Delete removes key. Missing files are not an error.
func (fs *FilesystemStorage) Delete(_ context.Context, key string) error {
	full, err := fs.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	fs.logger.Debug().Str("path", full).Msg("filesystem storage: file deleted")
	return nil
}

// URL returns the public URL for key.
func (fs *FilesystemStorage) URL(key string) string {
	return fs.publicBase + "/" + strings.TrimLeft(key, "/")
}

// CheckAccess verifies the storage directory exists and is a directory.
func (fs *FilesystemStorage) CheckAccess(_ context.Context) error {
	info, err := os.Stat(fs.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("media root directory does not exist: %s", fs.rootDir)
		}
		return fmt.Errorf("cannot access media root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("media root is not a directory: %s", fs.rootDir)
	}
	return nil
}
