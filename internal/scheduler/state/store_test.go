package state

import (
	"testing"
	"time"
)

func TestRecordDeduplicates(t *testing.T) {
	s := NewStore(0)
	at := time.Date(2026, 10, 4, 10, 0, 0, 0, time.UTC)
	st := Start{Schedule: "default", Service: "Main Service", StartsAt: at}

	if !s.Record(st) {
		t.Fatal("first record should be new")
	}
	if s.Record(st) {
		t.Fatal("duplicate record should not be new")
	}
	if !s.Record(Start{Schedule: "grace.example", Service: "Main Service", StartsAt: at}) {
		t.Fatal("other schedule should be new")
	}
	if got := len(s.Recent("default")); got != 1 {
		t.Fatalf("Recent(default) = %d, want 1", got)
	}
	if got := len(s.Recent("")); got != 2 {
		t.Fatalf("Recent() = %d, want 2", got)
	}
}

func TestRecordPrunesOldEntries(t *testing.T) {
	s := NewStore(24 * time.Hour)
	base := time.Date(2026, 10, 4, 10, 0, 0, 0, time.UTC)
	s.Record(Start{Schedule: "default", Service: "Main Service", StartsAt: base})
	s.Record(Start{Schedule: "default", Service: "Evening Service", StartsAt: base.Add(8*time.Hour + 30*time.Minute)})
	s.Record(Start{Schedule: "default", Service: "Morning Service", StartsAt: base.Add(45 * time.Hour)})

	recent := s.Recent("")
	if len(recent) != 1 || recent[0].Service != "Morning Service" {
		t.Fatalf("Recent = %+v, want only Morning Service", recent)
	}

	s.Prune(base.Add(100 * time.Hour))
	if got := len(s.Recent("")); got != 0 {
		t.Fatalf("after Prune, Recent = %d, want 0", got)
	}
}
