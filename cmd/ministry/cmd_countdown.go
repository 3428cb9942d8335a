/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/friendsincode/ministry_platform/internal/countdown"
	"github.com/friendsincode/ministry_platform/internal/tui"
)

var (
	countdownDomain   string
	countdownPlain    bool
	countdownFile     string
	countdownTimezone string
)

var countdownCmd = &cobra.Command{
	Use:   "countdown",
	Short: "Show the time until the next service",
	Long: `Show a live countdown to the next scheduled service.

The schedule catalog is read from --schedule (or MINISTRY_SCHEDULE_FILE). No
database or server is required.

Examples:
  # Interactive countdown across all sites
  ministry countdown

  # One line for a single site
  ministry countdown --domain nehemiahdavid.com --plain
`,
	RunE: runCountdown,
}

func init() {
	countdownCmd.Flags().StringVar(&countdownDomain, "domain", "", "Site domain whose schedule to show")
	countdownCmd.Flags().BoolVar(&countdownPlain, "plain", false, "Print one line and exit")
	countdownCmd.Flags().StringVar(&countdownFile, "schedule", os.Getenv("MINISTRY_SCHEDULE_FILE"), "YAML schedule catalog")
	countdownCmd.Flags().StringVar(&countdownTimezone, "timezone", firstEnv("MINISTRY_SCHEDULE_TIMEZONE", "TZ"), "IANA zone used when the catalog names none")
	rootCmd.AddCommand(countdownCmd)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func runCountdown(cmd *cobra.Command, args []string) error {
	catalog, err := countdown.LoadCatalog(countdownFile, countdownTimezone)
	if err != nil {
		return err
	}

	schedule := catalog.For(countdownDomain)
	if countdownPlain {
		fmt.Fprintln(cmd.OutOrStdout(), tui.Plain(schedule.Name, schedule.Next(countdown.RealClock{}.Now())))
		return nil
	}

	p := tea.NewProgram(tui.NewModel(catalog, schedule.Name, countdown.RealClock{}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("countdown: %w", err)
	}
	return nil
}
