/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package tui renders a live next-service countdown in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/friendsincode/ministry_platform/internal/countdown"
)

// TickMsg carries the wall clock reading for one refresh.
type TickMsg time.Time

// Model is the countdown screen. It cycles through every schedule in the
// catalog.
type Model struct {
	schedules    []countdown.Schedule
	current      int
	clock        countdown.Clock
	result       countdown.Result
	upcoming     []countdown.Occurrence
	showUpcoming bool
	keys         KeyMap
	help         help.Model
	width        int
	height       int
	quitting     bool
}

// NewModel builds a model over the catalog's schedules, starting with the
// one named start when present.
func NewModel(catalog *countdown.Catalog, start string, clock countdown.Clock) Model {
	if clock == nil {
		clock = countdown.RealClock{}
	}
	m := Model{
		schedules: catalog.Schedules(),
		clock:     clock,
		keys:      DefaultKeyMap(),
		help:      help.New(),
	}
	for i, s := range m.schedules {
		if s.Name == start {
			m.current = i
		}
	}
	m.refresh(clock.Now())
	return m
}

// Schedule returns the schedule being shown.
func (m Model) Schedule() countdown.Schedule { return m.schedules[m.current] }

// Result returns the most recent countdown.
func (m Model) Result() countdown.Result { return m.result }

func (m *Model) refresh(now time.Time) {
	s := m.schedules[m.current]
	m.result = s.Next(now)
	m.upcoming = s.Upcoming(now, 1)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return TickMsg(m.clock.Now())
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		m.refresh(time.Time(msg))
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.current = (m.current + 1) % len(m.schedules)
			m.refresh(m.clock.Now())
		case key.Matches(msg, m.keys.Prev):
			m.current = (m.current - 1 + len(m.schedules)) % len(m.schedules)
			m.refresh(m.clock.Now())
		case key.Matches(msg, m.keys.Upcoming):
			m.showUpcoming = !m.showUpcoming
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

// Plain formats a result as a single line for non-interactive output.
func Plain(schedule string, r countdown.Result) string {
	if r.IsZero() {
		return fmt.Sprintf("%s: no services scheduled", schedule)
	}
	return fmt.Sprintf("%s: %s in %dd %02dh %02dm %02ds (%s)",
		schedule, r.NextServiceName, r.Days, r.Hours, r.Minutes, r.Seconds,
		r.StartsAt.Format("Mon Jan 2 15:04 MST"))
}

func scheduleTitle(s countdown.Schedule) string {
	name := s.Name
	if name == countdown.DefaultScheduleName {
		name = "All sites"
	}
	return strings.ToUpper(name)
}
