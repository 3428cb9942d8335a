/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/ministry_platform/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close(database)
		logger.Info().Str("backend", string(cfg.DBBackend)).Msg("migrations applied")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the reference brands with sample content",
	Long: `Insert the reference brands (Nehemiah David Ministries and Faith Center)
along with a few sample events and ministries.

Brands that already exist by domain are skipped, so the command is safe to
run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close(database)

		res, err := db.Seed(database)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d brands, %d events, %d ministries\n", res.Brands, res.Events, res.Ministries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
