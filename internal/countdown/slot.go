/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package countdown resolves the next occurrence of a weekly service schedule
// and drives a once-per-second countdown over it.
package countdown

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinutesPerDay bounds ServiceSlot.StartMinute.
const MinutesPerDay = 24 * 60

// WeekdaySet is a bitmask of weekdays, bit 0 = Sunday ... bit 6 = Saturday.
type WeekdaySet uint8

const (
	// Daily contains every weekday.
	Daily WeekdaySet = 0x7f
	// MondayToSaturday contains every weekday except Sunday.
	MondayToSaturday WeekdaySet = Daily &^ (1 << time.Sunday)
)

var errInvalidWeekday = errors.New("invalid weekday")

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// Weekdays builds a set from the given days.
func Weekdays(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// With returns a copy of s that also contains d.
func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d)
}

// Has reports whether d is in the set.
func (s WeekdaySet) Has(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return s&(1<<uint(d)) != 0
}

// Empty reports whether no weekday is set.
func (s WeekdaySet) Empty() bool { return s&Daily == 0 }

// Days lists the members in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// Names returns three-letter lowercase day names.
func (s WeekdaySet) Names() []string {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = strings.ToLower(d.String()[:3])
	}
	return names
}

func (s WeekdaySet) String() string {
	switch s & Daily {
	case Daily:
		return "daily"
	case 0:
		return "none"
	}
	return strings.Join(s.Names(), ",")
}

// MarshalJSON encodes the set as a list of day names.
func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalYAML accepts "daily", a single day, a range such as "mon-sat",
// a comma list, or a sequence of names or 0..6 integers.
func (s *WeekdaySet) UnmarshalYAML(value *yaml.Node) error {
	var set WeekdaySet
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := ParseWeekdays(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		set = parsed
	case yaml.SequenceNode:
		for _, item := range value.Content {
			parsed, err := ParseWeekdays(item.Value)
			if err != nil {
				return fmt.Errorf("line %d: %w", item.Line, err)
			}
			set |= parsed
		}
	default:
		return fmt.Errorf("line %d: days must be a string or a list", value.Line)
	}
	*s = set
	return nil
}

// ParseWeekdays parses one day expression. See UnmarshalYAML for the forms.
func ParseWeekdays(expr string) (WeekdaySet, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	switch expr {
	case "":
		return 0, nil
	case "daily", "everyday", "every day", "all":
		return Daily, nil
	}

	var set WeekdaySet
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if from, to, ok := strings.Cut(part, "-"); ok {
			start, err := parseWeekday(from)
			if err != nil {
				return 0, err
			}
			end, err := parseWeekday(to)
			if err != nil {
				return 0, err
			}
			// Ranges may wrap, e.g. "sat-mon".
			for d := start; ; d = (d + 1) % 7 {
				set = set.With(d)
				if d == end {
					break
				}
			}
			continue
		}
		d, err := parseWeekday(part)
		if err != nil {
			return 0, err
		}
		set = set.With(d)
	}
	return set, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	if d, ok := weekdayNames[s]; ok {
		return d, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 6 {
		return 0, fmt.Errorf("%w %q", errInvalidWeekday, s)
	}
	return time.Weekday(n), nil
}

// ServiceSlot is a service that recurs weekly at a fixed local time.
type ServiceSlot struct {
	Name        string
	StartMinute int
	Weekdays    WeekdaySet
}

// Slot is shorthand for building a slot from an hour and minute.
func Slot(name string, hour, minute int, days WeekdaySet) ServiceSlot {
	return ServiceSlot{Name: name, StartMinute: hour*60 + minute, Weekdays: days}
}

// Clock renders StartMinute as HH:MM.
func (s ServiceSlot) Clock() string {
	return fmt.Sprintf("%02d:%02d", s.StartMinute/60, s.StartMinute%60)
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("time %q: bad hour", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q: bad minute", s)
	}
	return hour*60 + minute, nil
}

// ReferenceSchedule is the compiled-in weekly schedule used when no
// schedule file is configured. Evening Service also meets on Sunday so the
// Sunday countdown continues past the main service.
func ReferenceSchedule() []ServiceSlot {
	return []ServiceSlot{
		Slot("Morning Service", 7, 0, Daily),
		Slot("Main Service", 10, 0, Weekdays(time.Sunday)),
		Slot("Evening Service", 18, 30, Daily),
		Slot("Friday Service", 19, 0, Weekdays(time.Friday)),
	}
}
