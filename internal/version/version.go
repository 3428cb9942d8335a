/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version reports the build version and polls for newer releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Version is set at build time:
//
//	-X github.com/friendsincode/ministry_platform/internal/version.Version=X.Y.Z
var Version = "0.4.0"

// ReleasesURL is the endpoint returning the latest release as JSON.
const ReleasesURL = "https://api.github.com/repos/friendsincode/ministry_platform/releases/latest"

// Status describes the running build against the latest known release.
type Status struct {
	Current         string    `json:"current"`
	Latest          string    `json:"latest,omitempty"`
	UpdateAvailable bool      `json:"update_available"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	CheckedAt       time.Time `json:"checked_at,omitempty"`
}

type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker polls the releases endpoint.
type Checker struct {
	url    string
	period time.Duration
	client *http.Client
	logger zerolog.Logger

	mu     sync.RWMutex
	status Status
}

// NewChecker creates a checker against url. An empty url uses ReleasesURL.
func NewChecker(url string, logger zerolog.Logger) *Checker {
	if url == "" {
		url = ReleasesURL
	}
	return &Checker{
		url:    url,
		period: 6 * time.Hour,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("component", "update_checker").Logger(),
		status: Status{Current: Version},
	}
}

// Run checks once, then every period until ctx is done.
func (c *Checker) Run(ctx context.Context) error {
	c.Check(ctx)
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Status returns the last check result. A nil Checker reports the build
// version only.
func (c *Checker) Status() Status {
	if c == nil {
		return Status{Current: Version}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Check fetches the latest release. Failures keep the previous status.
func (c *Checker) Check(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		c.logger.Debug().Err(err).Msg("build release request")
		return
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "ministry-platform/"+Version)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Msg("fetch latest release")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Debug().Int("status", resp.StatusCode).Msg("unexpected release status")
		return
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		c.logger.Debug().Err(err).Msg("decode release")
		return
	}

	latest := strings.TrimPrefix(rel.TagName, "v")
	st := Status{
		Current:         Version,
		Latest:          latest,
		UpdateAvailable: Compare(Version, latest) < 0,
		ReleaseURL:      rel.HTMLURL,
		CheckedAt:       time.Now(),
	}
	c.mu.Lock()
	c.status = st
	c.mu.Unlock()

	if st.UpdateAvailable {
		c.logger.Info().Str("current", Version).Str("latest", latest).Msg("new version available")
	}
}

// Compare orders two major.minor.patch strings: -1, 0 or 1.
func Compare(a, b string) int {
	pa, pb := parse(a), parse(b)
	for i := range pa {
		switch {
		case pa[i] < pb[i]:
			return -1
		case pa[i] > pb[i]:
			return 1
		}
	}
	return 0
}

func parse(v string) [3]int {
	var out [3]int
	parts := strings.SplitN(strings.TrimPrefix(v, "v"), ".", 3)
	for i, p := range parts {
		if j := strings.IndexAny(p, "-+"); j >= 0 {
			p = p[:j]
		}
		_, _ = fmt.Sscanf(p, "%d", &out[i])
	}
	return out
}
