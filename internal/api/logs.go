/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"time"

	"github.com/friendsincode/ministry_platform/internal/logbuffer"
)

func (a *API) handleLogsList(w http.ResponseWriter, r *http.Request) {
	if a.logs == nil {
		writeError(w, http.StatusServiceUnavailable, "logs_unavailable")
		return
	}
	q := r.URL.Query()
	f := logbuffer.Filter{
		Level:     q.Get("level"),
		Component: q.Get("component"),
		BrandID:   q.Get("brand_id"),
		Search:    q.Get("search"),
		Limit:     queryLimit(r, 500, logbuffer.DefaultCapacity),
		Ascending: q.Get("order") == "asc",
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_since")
			return
		}
		f.Since = t
	}

	entries := a.logs.Query(f)
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (a *API) handleLogsStats(w http.ResponseWriter, r *http.Request) {
	if a.logs == nil {
		writeError(w, http.StatusServiceUnavailable, "logs_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, a.logs.Stats())
}
