/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/ministry_platform/internal/models"
)

type seedBrand struct {
	brand      models.Brand
	events     []models.Event
	ministries []models.Ministry
}

func referenceBrands(now time.Time) []seedBrand {
	day := func(offset int) string { return now.AddDate(0, 0, offset).Format("2006-01-02") }
	return []seedBrand{
		{
			brand: models.Brand{
				Name:         "Nehemiah David Ministries",
				Domain:       "nehemiahdavid.com",
				Tagline:      "Rebuilding lives through the Word",
				ServiceTimes: "Sun 10:00, Daily 07:00 and 18:30, Fri 19:00",
				Location:     "Hyderabad, India",
			},
			events: []models.Event{
				{Title: "Healing Crusade", Date: day(14), Time: "18:30", Location: "Main Grounds", IsFree: true},
				{Title: "Leaders Conference", Date: day(30), Time: "09:00", Location: "Conference Hall", IsFree: false},
			},
			ministries: []models.Ministry{
				{Title: "Prayer Ministry", Description: "Intercession for the church and the nations."},
				{Title: "Outreach", Description: "Serving communities across the region."},
			},
		},
		{
			brand: models.Brand{
				Name:         "Faith Center",
				Domain:       "faithcenter.in",
				Tagline:      "A place to belong",
				ServiceTimes: "Sun 10:00",
				Location:     "Hyderabad, India",
			},
			events: []models.Event{
				{Title: "Youth Night", Date: day(7), Time: "19:00", Location: "Youth Hall", IsFree: true},
			},
			ministries: []models.Ministry{
				{Title: "Kids Church", Description: "Sunday school for ages 4 to 12."},
				{Title: "Worship Team", Description: "Music and creative arts."},
			},
		},
	}
}

// SeedResult counts rows inserted by Seed.
type SeedResult struct {
	Brands     int
	Events     int
	Ministries int
}

// Seed inserts the reference brands with sample events and ministries.
// Brands whose domain already exists are left untouched.
func Seed(database *gorm.DB) (SeedResult, error) {
	var res SeedResult
	err := database.Transaction(func(tx *gorm.DB) error {
		for _, sb := range referenceBrands(time.Now()) {
			var existing models.Brand
			err := tx.Where("domain = ?", sb.brand.Domain).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("lookup brand %s: %w", sb.brand.Domain, err)
			}

			brand := sb.brand
			brand.ID = uuid.NewString()
			brand.PrimaryColor = models.DefaultPrimaryColor
			brand.SecondaryColor = models.DefaultSecondaryColor
			if err := tx.Create(&brand).Error; err != nil {
				return fmt.Errorf("create brand %s: %w", brand.Domain, err)
			}
			res.Brands++

			for _, ev := range sb.events {
				ev.ID = uuid.NewString()
				ev.BrandID = brand.ID
				if err := tx.Create(&ev).Error; err != nil {
					return fmt.Errorf("create event %q: %w", ev.Title, err)
				}
				res.Events++
			}
			for _, m := range sb.ministries {
				m.ID = uuid.NewString()
				m.BrandID = brand.ID
				if err := tx.Create(&m).Error; err != nil {
					return fmt.Errorf("create ministry %q: %w", m.Title, err)
				}
				res.Ministries++
			}
		}
		return nil
	})
	return res, err
}
