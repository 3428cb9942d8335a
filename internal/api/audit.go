/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/ministry_platform/internal/audit"
	"github.com/friendsincode/ministry_platform/internal/models"
)

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	if a.auditSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "audit_unavailable")
		return
	}
	filters := parseAuditFilters(r)

	logs, total, err := a.auditSvc.Query(r.Context(), filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to query audit logs")
		writeError(w, http.StatusInternalServerError, "query_failed")
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"audit_logs": logs,
		"total":      total,
		"limit":      filters.Limit,
		"offset":     filters.Offset,
	})
}

// parseAuditFilters extracts query filters from the request. Malformed
// values are ignored.
func parseAuditFilters(r *http.Request) audit.QueryFilters {
	q := r.URL.Query()
	filters := audit.QueryFilters{Limit: 100}

	if actorID := q.Get("actor_id"); actorID != "" {
		filters.ActorID = &actorID
	}
	if brandID := q.Get("brand_id"); brandID != "" {
		filters.BrandID = &brandID
	}
	if action := q.Get("action"); action != "" {
		act := models.AuditAction(action)
		filters.Action = &act
	}
	if start := q.Get("start_time"); start != "" {
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			filters.StartTime = &t
		}
	}
	if end := q.Get("end_time"); end != "" {
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			filters.EndTime = &t
		}
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 500 {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		filters.Offset = offset
	}
	return filters
}
