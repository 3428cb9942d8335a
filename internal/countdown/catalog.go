/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package countdown

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultScheduleName names the schedule used when no brand override exists.
const DefaultScheduleName = "default"

// Schedule is a validated slot list bound to a time zone.
type Schedule struct {
	Name     string
	Location *time.Location
	Slots    []ServiceSlot
}

// Next resolves the next service as seen from now in the schedule's zone.
func (s Schedule) Next(now time.Time) Result {
	return Resolve(now.In(s.location()), s.Slots)
}

// Upcoming lists occurrences over the next days in chronological order.
func (s Schedule) Upcoming(now time.Time, days int) []Occurrence {
	occ := Upcoming(now.In(s.location()), s.Slots, days)
	SortByStart(occ)
	return occ
}

func (s Schedule) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// Catalog maps brand domains to schedules.
type Catalog struct {
	Default Schedule
	brands  map[string]Schedule
}

// For returns the schedule for a brand domain, falling back to the default.
func (c *Catalog) For(domain string) Schedule {
	if s, ok := c.brands[normalizeDomain(domain)]; ok {
		return s
	}
	return c.Default
}

// Schedules returns the default schedule followed by brand schedules sorted by name.
func (c *Catalog) Schedules() []Schedule {
	out := []Schedule{c.Default}
	names := make([]string, 0, len(c.brands))
	for name := range c.brands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, c.brands[name])
	}
	return out
}

// ReferenceCatalog holds only the compiled-in reference schedule.
func ReferenceCatalog(loc *time.Location) *Catalog {
	return &Catalog{
		Default: Schedule{Name: DefaultScheduleName, Location: loc, Slots: ReferenceSchedule()},
		brands:  map[string]Schedule{},
	}
}

type catalogFile struct {
	Timezone string                  `yaml:"timezone"`
	Default  scheduleFile            `yaml:"default"`
	Brands   map[string]scheduleFile `yaml:"brands"`
}

type scheduleFile struct {
	Timezone string     `yaml:"timezone"`
	Slots    []slotFile `yaml:"slots"`
}

type slotFile struct {
	Name  string     `yaml:"name"`
	Start string     `yaml:"start"`
	Days  WeekdaySet `yaml:"days"`
}

// LoadCatalog reads a YAML schedule catalog. An empty path yields the
// reference catalog in the fallback zone. The fallback zone also applies when
// the file names none.
func LoadCatalog(path, fallbackTZ string) (*Catalog, error) {
	fallback, err := loadLocation(fallbackTZ)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return ReferenceCatalog(fallback), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule catalog: %w", err)
	}
	cat, err := ParseCatalog(data, fallback)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog decodes and validates a catalog document. A document without
// default slots keeps the reference schedule as its default.
func ParseCatalog(data []byte, fallback *time.Location) (*Catalog, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schedule catalog: %w", err)
	}

	base := fallback
	if doc.Timezone != "" {
		loc, err := loadLocation(doc.Timezone)
		if err != nil {
			return nil, err
		}
		base = loc
	}

	cat := &Catalog{brands: make(map[string]Schedule, len(doc.Brands))}

	if len(doc.Default.Slots) == 0 {
		cat.Default = Schedule{Name: DefaultScheduleName, Location: base, Slots: ReferenceSchedule()}
	} else {
		s, err := doc.Default.build(DefaultScheduleName, base)
		if err != nil {
			return nil, err
		}
		cat.Default = s
	}

	for domain, sf := range doc.Brands {
		key := normalizeDomain(domain)
		if key == "" {
			return nil, fmt.Errorf("brand schedule with empty domain")
		}
		s, err := sf.build(key, base)
		if err != nil {
			return nil, err
		}
		cat.brands[key] = s
	}
	return cat, nil
}

func (sf scheduleFile) build(name string, base *time.Location) (Schedule, error) {
	loc := base
	if sf.Timezone != "" {
		l, err := loadLocation(sf.Timezone)
		if err != nil {
			return Schedule{}, fmt.Errorf("schedule %s: %w", name, err)
		}
		loc = l
	}
	slots := make([]ServiceSlot, 0, len(sf.Slots))
	for i, raw := range sf.Slots {
		minute, err := ParseClock(raw.Start)
		if err != nil {
			return Schedule{}, fmt.Errorf("schedule %s slot %d: %w", name, i, err)
		}
		slots = append(slots, ServiceSlot{Name: strings.TrimSpace(raw.Name), StartMinute: minute, Weekdays: raw.Days})
	}
	if err := Validate(slots); err != nil {
		return Schedule{}, fmt.Errorf("schedule %s: %w", name, err)
	}
	return Schedule{Name: name, Location: loc, Slots: slots}, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

func normalizeDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
}
