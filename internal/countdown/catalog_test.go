/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package countdown

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleCatalog = `
timezone: UTC
default:
  slots:
    - name: Morning Prayer
      start: "06:30"
      days: daily
brands:
  www.NehemiahDavid.com:
    slots:
      - name: Sunday Worship
        start: "11:00"
        days: [sun]
      - name: Bible Study
        start: "19:30"
        days: "tue, thu"
      - name: Youth Night
        start: "18:00"
        days: [5]
`

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog([]byte(sampleCatalog), time.UTC)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}

	if got := cat.Default.Slots[0]; got.Name != "Morning Prayer" || got.StartMinute != 390 || got.Weekdays != Daily {
		t.Fatalf("default slot = %+v", got)
	}

	brand := cat.For("nehemiahdavid.com")
	if brand.Name != "nehemiahdavid.com" {
		t.Fatalf("brand schedule name = %q", brand.Name)
	}
	if len(brand.Slots) != 3 {
		t.Fatalf("brand slots = %d, want 3", len(brand.Slots))
	}
	if brand.Slots[1].Weekdays != Weekdays(time.Tuesday, time.Thursday) {
		t.Fatalf("bible study days = %v", brand.Slots[1].Weekdays)
	}
	if brand.Slots[2].Weekdays != Weekdays(time.Friday) {
		t.Fatalf("youth days = %v", brand.Slots[2].Weekdays)
	}

	if got := cat.For("unknown.org"); got.Name != DefaultScheduleName {
		t.Fatalf("unknown brand fell back to %q", got.Name)
	}

	all := cat.Schedules()
	if len(all) != 2 || all[0].Name != DefaultScheduleName {
		t.Fatalf("Schedules() = %v", all)
	}
}

func TestParseCatalogWithoutDefaultKeepsReference(t *testing.T) {
	cat, err := ParseCatalog([]byte("timezone: UTC\n"), time.Local)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if len(cat.Default.Slots) != len(ReferenceSchedule()) {
		t.Fatalf("default slots = %d, want reference schedule", len(cat.Default.Slots))
	}
	if cat.Default.Location != time.UTC {
		t.Fatalf("location = %v, want UTC", cat.Default.Location)
	}
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
		wantMsg string
	}{
		{
			name:    "missing days",
			doc:     "default:\n  slots:\n    - name: Vigil\n      start: \"23:00\"\n",
			wantErr: ErrNoWeekdays,
		},
		{
			name:    "empty name",
			doc:     "default:\n  slots:\n    - name: \" \"\n      start: \"09:00\"\n      days: daily\n",
			wantErr: ErrSlotName,
		},
		{
			name:    "bad start",
			doc:     "default:\n  slots:\n    - name: Late\n      start: \"24:00\"\n      days: daily\n",
			wantMsg: "bad hour",
		},
		{
			name:    "bad weekday",
			doc:     "default:\n  slots:\n    - name: Odd\n      start: \"09:00\"\n      days: [7]\n",
			wantMsg: "invalid weekday",
		},
		{
			name:    "bad timezone",
			doc:     "timezone: Mars/Olympus\n",
			wantMsg: "load timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.doc), time.UTC)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("err = %v, want message containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	cat, err := LoadCatalog("", "UTC")
	if err != nil {
		t.Fatalf("LoadCatalog empty path: %v", err)
	}
	if cat.Default.Location != time.UTC || len(cat.Default.Slots) != 4 {
		t.Fatalf("reference catalog = %+v", cat.Default)
	}

	path := filepath.Join(t.TempDir(), "schedule.yaml")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cat, err = LoadCatalog(path, "")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if cat.Default.Slots[0].Name != "Morning Prayer" {
		t.Fatalf("default = %+v", cat.Default.Slots)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestScheduleNextUsesScheduleZone(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	s := Schedule{Name: "x", Location: loc, Slots: []ServiceSlot{Slot("Dawn", 7, 0, Daily)}}

	// 03:30 UTC is 06:30 local.
	got := s.Next(time.Date(2026, time.October, 5, 3, 30, 0, 0, time.UTC))
	if got.Hours != 0 || got.Minutes != 30 {
		t.Fatalf("got %dh%dm, want 0h30m", got.Hours, got.Minutes)
	}
	if got.StartsAt.Location() != loc {
		t.Fatalf("StartsAt in %v, want %v", got.StartsAt.Location(), loc)
	}
}

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		in   string
		want WeekdaySet
	}{
		{"daily", Daily},
		{"mon-sat", MondayToSaturday},
		{"sat-mon", Weekdays(time.Saturday, time.Sunday, time.Monday)},
		{"Sunday", Weekdays(time.Sunday)},
		{"mon,wed,fri", Weekdays(time.Monday, time.Wednesday, time.Friday)},
		{"0", Weekdays(time.Sunday)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekdays(tt.in)
			if err != nil {
				t.Fatalf("ParseWeekdays(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseWeekdays(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseWeekdays("funday"); err == nil {
		t.Fatal("expected error for unknown day")
	}
}

func TestWeekdaySetString(t *testing.T) {
	if got := Daily.String(); got != "daily" {
		t.Fatalf("Daily = %q", got)
	}
	if got := Weekdays(time.Friday, time.Sunday).String(); got != "sun,fri" {
		t.Fatalf("set = %q, want sun,fri", got)
	}
}
