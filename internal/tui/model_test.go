package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/friendsincode/ministry_platform/internal/countdown"
)

func fixedClock(t time.Time) countdown.Clock {
	return countdown.ClockFunc(func() time.Time { return t })
}

func testCatalog(t *testing.T) *countdown.Catalog {
	t.Helper()
	cat, err := countdown.ParseCatalog([]byte(`
timezone: UTC
brands:
  nehemiahdavid.com:
    slots:
      - name: Sunday Worship
        start: "11:00"
        days: [sun]
`), time.UTC)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	return cat
}

// 09:00 UTC on a Sunday.
var sunday = time.Date(2026, time.October, 11, 9, 0, 0, 0, time.UTC)

func TestModelShowsNextService(t *testing.T) {
	m := NewModel(testCatalog(t), countdown.DefaultScheduleName, fixedClock(sunday))
	if got := m.Result().NextServiceName; got != "Main Service" {
		t.Fatalf("next = %q, want Main Service", got)
	}
	view := m.View()
	for _, want := range []string{"Main Service", "01", "hours"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelTickRefreshes(t *testing.T) {
	m := NewModel(testCatalog(t), "", fixedClock(sunday))
	updated, cmd := m.Update(TickMsg(sunday.Add(59*time.Minute + 30*time.Second)))
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}
	r := updated.(Model).Result()
	if r.TotalSeconds() != 30 {
		t.Fatalf("remaining = %ds, want 30", r.TotalSeconds())
	}
}

func TestModelCyclesSchedules(t *testing.T) {
	m := NewModel(testCatalog(t), "", fixedClock(sunday))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	nm := next.(Model)
	if nm.Schedule().Name != "nehemiahdavid.com" {
		t.Fatalf("schedule = %q, want nehemiahdavid.com", nm.Schedule().Name)
	}
	if nm.Result().NextServiceName != "Sunday Worship" {
		t.Fatalf("next = %q, want Sunday Worship", nm.Result().NextServiceName)
	}

	back, _ := nm.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if back.(Model).Schedule().Name != countdown.DefaultScheduleName {
		t.Fatalf("schedule = %q, want default", back.(Model).Schedule().Name)
	}
}

func TestModelQuit(t *testing.T) {
	m := NewModel(testCatalog(t), "", fixedClock(sunday))
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	if updated.(Model).View() != "" {
		t.Fatal("view should be empty after quitting")
	}
}

func TestPlain(t *testing.T) {
	sched := countdown.ReferenceCatalog(time.UTC).Default
	got := Plain("default", sched.Next(sunday))
	if !strings.HasPrefix(got, "default: Main Service in 0d 01h 00m 00s") {
		t.Fatalf("Plain = %q", got)
	}
	if got := Plain("empty", countdown.Result{}); got != "empty: no services scheduled" {
		t.Fatalf("Plain = %q", got)
	}
}
