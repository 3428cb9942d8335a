/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package countdown

import (
	"sort"
	"time"
)

// LookaheadDays is how many calendar days Resolve searches, today included.
const LookaheadDays = 7

// Result is the time remaining until the next service.
type Result struct {
	Days            int           `json:"days"`
	Hours           int           `json:"hours"`
	Minutes         int           `json:"minutes"`
	Seconds         int           `json:"seconds"`
	NextServiceName string        `json:"next_service_name"`
	StartsAt        time.Time     `json:"starts_at"`
	Remaining       time.Duration `json:"-"`
}

// IsZero reports whether the search found no service.
func (r Result) IsZero() bool { return r.NextServiceName == "" }

// TotalSeconds recombines the decomposed fields.
func (r Result) TotalSeconds() int64 {
	return int64(r.Days)*86400 + int64(r.Hours)*3600 + int64(r.Minutes)*60 + int64(r.Seconds)
}

// Occurrence is one dated instance of a slot.
type Occurrence struct {
	Slot      ServiceSlot
	Index     int
	DayOffset int
	StartsAt  time.Time
}

// Upcoming expands slots into future occurrences over the given number of
// calendar days starting with now's day, in iteration order (day offset, then
// slot order). On day 0 a slot only counts if its minute of day is after
// now's minute of day. Dates are built in now's location.
func Upcoming(now time.Time, slots []ServiceSlot, days int) []Occurrence {
	if days <= 0 {
		return nil
	}
	loc := now.Location()
	nowMinute := now.Hour()*60 + now.Minute()
	y, m, d := now.Date()

	out := make([]Occurrence, 0, len(slots)*days)
	for offset := 0; offset < days; offset++ {
		day := time.Date(y, m, d+offset, 0, 0, 0, 0, loc)
		weekday := day.Weekday()
		for i, slot := range slots {
			if !slot.Weekdays.Has(weekday) {
				continue
			}
			if offset == 0 && slot.StartMinute <= nowMinute {
				continue
			}
			at := time.Date(day.Year(), day.Month(), day.Day(), slot.StartMinute/60, slot.StartMinute%60, 0, 0, loc)
			// A DST jump can fold a wall time back onto or before now.
			if !at.After(now) {
				continue
			}
			out = append(out, Occurrence{Slot: slot, Index: i, DayOffset: offset, StartsAt: at})
		}
	}
	return out
}

// Resolve finds the nearest future service within LookaheadDays. The first
// occurrence in iteration order wins a tie. If nothing qualifies the zero
// Result is returned.
//
// Remaining time is rounded up to the whole second, so a result is never
// reported as zero while the service is still in the future.
func Resolve(now time.Time, slots []ServiceSlot) Result {
	var best *Occurrence
	occurrences := Upcoming(now, slots, LookaheadDays)
	for i := range occurrences {
		if best == nil || occurrences[i].StartsAt.Before(best.StartsAt) {
			best = &occurrences[i]
		}
	}
	if best == nil {
		return Result{}
	}

	remaining := best.StartsAt.Sub(now)
	total := int64((remaining + time.Second - 1) / time.Second)

	return Result{
		Days:            int(total / 86400),
		Hours:           int(total % 86400 / 3600),
		Minutes:         int(total % 3600 / 60),
		Seconds:         int(total % 60),
		NextServiceName: best.Slot.Name,
		StartsAt:        best.StartsAt,
		Remaining:       remaining,
	}
}

// SortByStart orders occurrences chronologically, keeping iteration order
// for equal start times.
func SortByStart(occ []Occurrence) {
	sort.SliceStable(occ, func(i, j int) bool {
		return occ[i].StartsAt.Before(occ[j].StartsAt)
	})
}
