/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/ministry_platform/internal/db"
	"github.com/friendsincode/ministry_platform/internal/media"
)

var (
	mediaScanRemove bool
	mediaScanMinAge time.Duration
	mediaScanJSON   bool
)

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Media storage maintenance",
}

var mediaScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find uploaded files that no gallery image or page banner references",
	Long: `Walk the media root and report files without a referencing record.

Only filesystem storage can be scanned. Files newer than --min-age are
ignored so in-flight uploads are not reported.

Examples:
  # Report orphans
  ministry media scan

  # Delete orphans older than a day
  ministry media scan --remove --min-age 24h
`,
	RunE: runMediaScan,
}

func init() {
	mediaScanCmd.Flags().BoolVar(&mediaScanRemove, "remove", false, "Delete orphaned files")
	mediaScanCmd.Flags().DurationVar(&mediaScanMinAge, "min-age", time.Hour, "Ignore files modified more recently than this")
	mediaScanCmd.Flags().BoolVar(&mediaScanJSON, "json", false, "Print the result as JSON")
	mediaCmd.AddCommand(mediaScanCmd)
	rootCmd.AddCommand(mediaCmd)
}

func runMediaScan(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	svc, err := media.NewService(cfg, logger)
	if err != nil {
		return fmt.Errorf("media storage: %w", err)
	}
	fs, ok := svc.Storage().(*media.FilesystemStorage)
	if !ok {
		return errors.New("media scan requires filesystem storage")
	}

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close(database)

	res, err := media.NewOrphanScanner(database, fs, mediaScanMinAge, logger).Scan(context.Background(), mediaScanRemove)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if mediaScanJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	for _, p := range res.Orphans {
		fmt.Fprintln(out, p)
	}
	fmt.Fprintf(out, "%d files scanned in %s, %d orphaned, %d removed, %d errors\n",
		res.TotalFiles, res.Duration.Round(time.Millisecond), len(res.Orphans), res.Removed, res.Errors)
	return nil
}
