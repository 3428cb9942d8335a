/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// APIKey lets an admin automate the CMS without a session token.
type APIKey struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	AdminID    string     `gorm:"type:uuid;index;not null" json:"admin_id"`
	Name       string     `gorm:"not null" json:"name"`
	KeyHash    string     `gorm:"uniqueIndex;not null" json:"-"`
	KeyPrefix  string     `gorm:"size:11" json:"key_prefix"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ValidAt reports whether the key is usable at now.
func (k *APIKey) ValidAt(now time.Time) bool {
	return k.RevokedAt == nil && now.Before(k.ExpiresAt)
}
