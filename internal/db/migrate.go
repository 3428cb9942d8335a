/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"
	"strings"

	"github.com/friendsincode/ministry_platform/internal/models"
	"gorm.io/gorm"
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		// Accounts
		&models.Admin{},
		&models.User{},
		&models.APIKey{},
		&models.AuditLog{},

		// Brands and site content
		&models.Brand{},
		&models.Event{},
		&models.EventAttendee{},
		&models.Ministry{},
		&models.Announcement{},
		&models.Sermon{},
		&models.Testimonial{},
		&models.GalleryImage{},
		&models.LiveStream{},
		&models.PageBanner{},

		// Outreach
		&models.VolunteerApplication{},
		&models.Subscriber{},
		&models.ContactMessage{},
		&models.PrayerRequest{},

		// Giving
		&models.GivingCategory{},
		&models.Donation{},
		&models.PaymentTransaction{},
		&models.Foundation{},
		&models.FoundationDonation{},

		// Webhooks
		&models.WebhookTarget{},
		&models.WebhookLog{},
	}
}

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(Models()...); err != nil {
		return err
	}
	if err := normalizeBrandDomains(database); err != nil {
		return err
	}
	return nil
}

// normalizeBrandDomains lowercases stored domains and strips a leading www.
// so lookups by Host header match.
func normalizeBrandDomains(database *gorm.DB) error {
	var brands []models.Brand
	if err := database.Select("id", "domain").Find(&brands).Error; err != nil {
		return fmt.Errorf("normalize brand domains query: %w", err)
	}
	for _, b := range brands {
		d := NormalizeDomain(b.Domain)
		if d == b.Domain {
			continue
		}
		if err := database.Model(&models.Brand{}).Where("id = ?", b.ID).Update("domain", d).Error; err != nil {
			return fmt.Errorf("normalize brand domain %s: %w", b.ID, err)
		}
	}
	return nil
}

// NormalizeDomain returns the canonical form of a brand domain.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if i := strings.IndexByte(d, ':'); i >= 0 {
		d = d[:i]
	}
	return strings.TrimPrefix(d, "www.")
}
