/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/friendsincode/ministry_platform/internal/models"
)

// handleAnalyticsOverview returns per-collection totals and recent
// submissions for the dashboard.
func (a *API) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	collections := []struct {
		key   string
		model any
	}{
		{"events", &models.Event{}},
		{"ministries", &models.Ministry{}},
		{"announcements", &models.Announcement{}},
		{"volunteers", &models.VolunteerApplication{}},
		{"subscribers", &models.Subscriber{}},
		{"prayers", &models.PrayerRequest{}},
		{"testimonials", &models.Testimonial{}},
		{"sermons", &models.Sermon{}},
		{"contacts", &models.ContactMessage{}},
	}

	totals := make(map[string]int64, len(collections))
	for _, c := range collections {
		var n int64
		if err := brandScope(a.db.WithContext(r.Context()).Model(c.model), r).Count(&n).Error; err != nil {
			a.dbFailure(w, err, "count "+c.key)
			return
		}
		totals[c.key] = n
	}

	volunteers := []models.VolunteerApplication{}
	if err := brandScope(a.db.WithContext(r.Context()), r).Order("created_at DESC").Limit(5).Find(&volunteers).Error; err != nil {
		a.dbFailure(w, err, "recent volunteers")
		return
	}
	prayers := []models.PrayerRequest{}
	if err := brandScope(a.db.WithContext(r.Context()), r).Order("created_at DESC").Limit(5).Find(&prayers).Error; err != nil {
		a.dbFailure(w, err, "recent prayers")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totals": totals,
		"recent_activity": map[string]any{
			"volunteers": volunteers,
			"prayers":    prayers,
		},
	})
}
