/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Padding(1, 2).
			Align(lipgloss.Center)

	serviceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Padding(0, 1)

	unitStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Width(8).
			Align(lipgloss.Center)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	upcomingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(1, 0, 0, 0)
)

func unit(value int, label string) string {
	return unitStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		fmt.Sprintf("%02d", value),
		labelStyle.Render(label),
	))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.Schedule()
	sections := []string{titleStyle.Render(scheduleTitle(s))}

	if m.result.IsZero() {
		sections = append(sections, serviceStyle.Render("No services scheduled"))
	} else {
		sections = append(sections,
			serviceStyle.Render("Next: "+m.result.NextServiceName),
			lipgloss.JoinHorizontal(lipgloss.Top,
				unit(m.result.Days, "days"),
				unit(m.result.Hours, "hours"),
				unit(m.result.Minutes, "mins"),
				unit(m.result.Seconds, "secs"),
			),
			labelStyle.Render(m.result.StartsAt.Format("Monday Jan 2, 15:04 MST")),
		)
	}

	if m.showUpcoming {
		lines := "Next 24 hours:"
		if len(m.upcoming) == 0 {
			lines += "\n  nothing scheduled"
		}
		for _, o := range m.upcoming {
			lines += fmt.Sprintf("\n  %s  %s", o.StartsAt.Format("Mon 15:04"), o.Slot.Name)
		}
		sections = append(sections, upcomingStyle.Render(lines))
	}

	sections = append(sections, "", m.help.View(m.keys))
	content := lipgloss.JoinVertical(lipgloss.Center, sections...)

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	return content
}
