/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/friendsincode/ministry_platform/internal/auth"
	"github.com/friendsincode/ministry_platform/internal/db"
	"github.com/friendsincode/ministry_platform/internal/models"
)

var (
	adminEmail    string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Long: `Create an admin account directly in the database.

Use this to recover access when the register endpoint is closed because an
admin already exists.`,
	RunE: runAdminCreate,
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email address")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(adminCmd)
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	email := models.NormalizeEmail(adminEmail)
	if email == "" {
		return errors.New("email is required")
	}

	if err := loadConfig(); err != nil {
		return err
	}
	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close(database)

	var existing int64
	if err := database.Model(&models.Admin{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return fmt.Errorf("lookup admin: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("admin %s already exists", email)
	}

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return err
	}
	admin := models.Admin{ID: uuid.NewString(), Email: email, PasswordHash: hash, Role: models.RoleAdmin}
	if err := database.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Email, admin.ID)
	return nil
}
