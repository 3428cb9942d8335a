/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package youtube serves curated channel video lists.
package youtube

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/ministry_platform/internal/cache"
)

//go:embed channels.yaml
var builtin []byte

// Video is one curated video. Field names follow the YouTube Data API.
type Video struct {
	ID          string `yaml:"id" json:"id"`
	VideoID     string `yaml:"videoId" json:"videoId"`
	Title       string `yaml:"title" json:"title"`
	PublishedAt string `yaml:"publishedAt" json:"publishedAt"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category"`
	Duration    string `yaml:"duration" json:"duration"`
	Views       string `yaml:"views" json:"views"`
}

// Catalog maps channel handles to videos.
type Catalog struct {
	channels map[string][]Video
}

// Builtin returns the embedded catalog.
func Builtin() (*Catalog, error) {
	return Parse(builtin)
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Channels map[string][]Video `yaml:"channels"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse youtube catalog: %w", err)
	}
	c := &Catalog{channels: make(map[string][]Video, len(doc.Channels))}
	for handle, videos := range doc.Channels {
		c.channels[NormalizeHandle(handle)] = videos
	}
	return c, nil
}

// NormalizeHandle strips a leading @ and surrounding space.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

// Videos returns the channel's videos, or an empty slice for unknown
// handles.
func (c *Catalog) Videos(handle string) []Video {
	videos := c.channels[NormalizeHandle(handle)]
	out := make([]Video, len(videos))
	copy(out, videos)
	return out
}

// Service fronts the catalog with the shared cache.
type Service struct {
	catalog *Catalog
	cache   *cache.Cache
}

// NewService creates a service. A nil cache is allowed.
func NewService(catalog *Catalog, c *cache.Cache) *Service {
	return &Service{catalog: catalog, cache: c}
}

// Channel returns the videos for handle.
func (s *Service) Channel(ctx context.Context, handle string) []Video {
	handle = NormalizeHandle(handle)
	var videos []Video
	if s.cache.GetYouTube(ctx, handle, &videos) && videos != nil {
		return videos
	}
	videos = s.catalog.Videos(handle)
	_ = s.cache.SetYouTube(ctx, handle, videos)
	return videos
}
