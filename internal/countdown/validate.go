/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package countdown

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors.
var (
	ErrEmptySchedule = errors.New("schedule has no slots")
	ErrSlotName      = errors.New("slot name is empty")
	ErrStartMinute   = errors.New("slot start minute out of range")
	ErrNoWeekdays    = errors.New("slot has no active weekdays")
	ErrWeekdayRange  = errors.New("slot weekday out of range")
)

// Validate rejects schedules that cannot be resolved sensibly.
func Validate(slots []ServiceSlot) error {
	if len(slots) == 0 {
		return ErrEmptySchedule
	}
	for i, s := range slots {
		var err error
		switch {
		case strings.TrimSpace(s.Name) == "":
			err = ErrSlotName
		case s.StartMinute < 0 || s.StartMinute >= MinutesPerDay:
			err = ErrStartMinute
		case s.Weekdays&^Daily != 0:
			err = ErrWeekdayRange
		case s.Weekdays.Empty():
			err = ErrNoWeekdays
		}
		if err != nil {
			return fmt.Errorf("slot %d (%q): %w", i, s.Name, err)
		}
	}
	return nil
}

// UncoveredWeekdays lists weekdays with no slot at all.
func UncoveredWeekdays(slots []ServiceSlot) []time.Weekday {
	var covered WeekdaySet
	for _, s := range slots {
		covered |= s.Weekdays
	}
	return (Daily &^ covered).Days()
}
