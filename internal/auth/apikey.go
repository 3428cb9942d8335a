/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/ministry_platform/internal/models"
)

const (
	APIKeyPrefix      = "mp_"
	APIKeyRandomBytes = 24
)

var (
	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrAPIKeyExpired  = errors.New("api key expired")
	ErrAPIKeyRevoked  = errors.New("api key revoked")
	ErrAdminNotFound  = errors.New("admin not found")
)

func hashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey creates a key for an admin. The plaintext is returned once
// and only its hash is stored.
func GenerateAPIKey(adminID, name string, expiresIn time.Duration) (string, *models.APIKey, error) {
	randomBytes := make([]byte, APIKeyRandomBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", nil, err
	}
	plaintext := APIKeyPrefix + hex.EncodeToString(randomBytes)

	return plaintext, &models.APIKey{
		ID:        uuid.NewString(),
		AdminID:   adminID,
		Name:      name,
		KeyHash:   hashKey(plaintext),
		KeyPrefix: plaintext[:11],
		ExpiresAt: time.Now().Add(expiresIn),
	}, nil
}

// ValidateAPIKey resolves a plaintext key to admin claims and stamps its
// last use.
func ValidateAPIKey(db *gorm.DB, plaintext string) (*Claims, error) {
	var key models.APIKey
	err := db.Where("key_hash = ?", hashKey(plaintext)).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if key.RevokedAt != nil {
		return nil, ErrAPIKeyRevoked
	}
	if !key.ValidAt(now) {
		return nil, ErrAPIKeyExpired
	}

	var admin models.Admin
	err = db.First(&admin, "id = ?", key.AdminID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := db.Model(&key).UpdateColumn("last_used_at", now).Error; err != nil {
		return nil, err
	}

	return &Claims{
		UserID: admin.ID,
		Email:  admin.Email,
		Role:   string(models.RoleAdmin),
	}, nil
}

// RevokeAPIKey revokes a key owned by adminID.
func RevokeAPIKey(db *gorm.DB, keyID, adminID string) error {
	result := db.Model(&models.APIKey{}).
		Where("id = ? AND admin_id = ? AND revoked_at IS NULL", keyID, adminID).
		Update("revoked_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// ListAPIKeys returns the admin's keys, newest first.
func ListAPIKeys(db *gorm.DB, adminID string) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := db.Where("admin_id = ?", adminID).
		Order("created_at DESC").
		Find(&keys).Error
	return keys, err
}
