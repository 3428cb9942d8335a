/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"strings"
	"time"
)

// RoleName enumerates the token roles.
type RoleName string

const (
	RoleAdmin  RoleName = "admin"
	RoleMember RoleName = "member"
)

// Admin is a CMS operator account.
type Admin struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         RoleName  `gorm:"type:varchar(16);not null;default:admin" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// User is a member portal account scoped to a brand.
type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `gorm:"not null" json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Role         RoleName  `gorm:"type:varchar(16);not null;default:member" json:"role"`
	BrandID      string    `gorm:"type:uuid;index" json:"brand_id"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Brand is one church site served by the platform.
type Brand struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Domain         string    `gorm:"uniqueIndex;not null" json:"domain"`
	LogoURL        string    `json:"logo_url,omitempty"`
	PrimaryColor   string    `gorm:"type:varchar(16);default:'#1a1a1a'" json:"primary_color"`
	SecondaryColor string    `gorm:"type:varchar(16);default:'#4a90e2'" json:"secondary_color"`
	Tagline        string    `json:"tagline,omitempty"`
	HeroVideoURL   string    `json:"hero_video_url,omitempty"`
	HeroImageURL   string    `json:"hero_image_url,omitempty"`
	ServiceTimes   string    `json:"service_times,omitempty"`
	Location       string    `json:"location,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Default brand colors.
const (
	DefaultPrimaryColor   = "#1a1a1a"
	DefaultSecondaryColor = "#4a90e2"
)

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
