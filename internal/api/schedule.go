/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/ministry_platform/internal/countdown"
	"github.com/friendsincode/ministry_platform/internal/models"
	"github.com/friendsincode/ministry_platform/internal/scheduler/state"
)

type nextServiceResponse struct {
	countdown.Result
	Schedule     string `json:"schedule"`
	Timezone     string `json:"timezone"`
	TotalSeconds int64  `json:"total_seconds"`
}

type slotResponse struct {
	Name     string               `json:"name"`
	Start    string               `json:"start"`
	Weekdays countdown.WeekdaySet `json:"days"`
}

type occurrenceResponse struct {
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	InDays   int       `json:"in_days"`
}

// scheduleFor resolves the schedule for ?domain= or ?brand_id=, falling back
// to the default schedule. ok is false when a response has been written.
func (a *API) scheduleFor(w http.ResponseWriter, r *http.Request) (countdown.Schedule, bool) {
	if domain := r.URL.Query().Get("domain"); domain != "" {
		return a.catalog.For(domain), true
	}
	brandID := r.URL.Query().Get("brand_id")
	if brandID == "" {
		return a.catalog.Default, true
	}
	brand, ok := a.cache.GetBrand(r.Context(), brandID)
	if !ok {
		var b models.Brand
		if err := a.db.WithContext(r.Context()).First(&b, "id = ?", brandID).Error; err != nil {
			a.dbFailure(w, err, "load brand")
			return countdown.Schedule{}, false
		}
		_ = a.cache.SetBrand(r.Context(), &b)
		brand = &b
	}
	return a.catalog.For(brand.Domain), true
}

func (a *API) handleScheduleNext(w http.ResponseWriter, r *http.Request) {
	sched, ok := a.scheduleFor(w, r)
	if !ok {
		return
	}
	res := sched.Next(a.now())
	writeJSON(w, http.StatusOK, nextServiceResponse{
		Result:       res,
		Schedule:     sched.Name,
		Timezone:     zoneName(sched),
		TotalSeconds: res.TotalSeconds(),
	})
}

func (a *API) handleSchedule(w http.ResponseWriter, r *http.Request) {
	sched, ok := a.scheduleFor(w, r)
	if !ok {
		return
	}
	slots := make([]slotResponse, len(sched.Slots))
	for i, s := range sched.Slots {
		slots[i] = slotResponse{Name: s.Name, Start: s.Clock(), Weekdays: s.Weekdays}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schedule": sched.Name,
		"timezone": zoneName(sched),
		"slots":    slots,
	})
}

func (a *API) handleScheduleUpcoming(w http.ResponseWriter, r *http.Request) {
	sched, ok := a.scheduleFor(w, r)
	if !ok {
		return
	}
	days := countdown.LookaheadDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 31 {
			writeError(w, http.StatusBadRequest, "invalid_days")
			return
		}
		days = n
	}
	occ := sched.Upcoming(a.now(), days)
	out := make([]occurrenceResponse, len(occ))
	for i, o := range occ {
		out[i] = occurrenceResponse{Name: o.Slot.Name, StartsAt: o.StartsAt, InDays: o.DayOffset}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleScheduleRecent lists services this instance has seen start.
func (a *API) handleScheduleRecent(w http.ResponseWriter, r *http.Request) {
	if a.starts == nil {
		writeJSON(w, http.StatusOK, []state.Start{})
		return
	}
	writeJSON(w, http.StatusOK, a.starts.Recent(r.URL.Query().Get("schedule")))
}

func zoneName(s countdown.Schedule) string {
	if s.Location == nil {
		return time.Local.String()
	}
	return s.Location.String()
}
