/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Volunteer application statuses.
const (
	VolunteerStatusNew       = "new"
	VolunteerStatusContacted = "contacted"
	VolunteerStatusPlaced    = "placed"
)

// VolunteerApplication is a sign-up to serve in a ministry.
type VolunteerApplication struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID      string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"not null" json:"email"`
	Phone        string    `json:"phone"`
	Ministry     string    `json:"ministry"`
	Availability string    `json:"availability"`
	Skills       string    `gorm:"type:text" json:"skills,omitempty"`
	Message      string    `gorm:"type:text" json:"message,omitempty"`
	Status       string    `gorm:"type:varchar(16);index;not null;default:new" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Subscriber receives newsletters by email or text.
type Subscriber struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID   string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Email     string    `gorm:"index" json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactMessage is a message sent through the contact form.
type ContactMessage struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID   string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null" json:"email"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Prayer request statuses.
const (
	PrayerStatusNew      = "new"
	PrayerStatusPraying  = "praying"
	PrayerStatusAnswered = "answered"
)

// ValidPrayerStatus reports whether s is a known prayer status.
func ValidPrayerStatus(s string) bool {
	switch s {
	case PrayerStatusNew, PrayerStatusPraying, PrayerStatusAnswered:
		return true
	}
	return false
}

// PrayerRequest is a request for prayer. Anonymous requests hide the
// requester's name on the public wall.
type PrayerRequest struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID     string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Name        string    `gorm:"not null" json:"name"`
	Email       string    `json:"email,omitempty"`
	Request     string    `gorm:"type:text;not null" json:"request"`
	IsAnonymous bool      `gorm:"not null;default:false" json:"is_anonymous"`
	Status      string    `gorm:"type:varchar(16);index;not null;default:new" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Public returns the copy shown on the prayer wall.
func (p PrayerRequest) Public() PrayerRequest {
	out := p
	out.Email = ""
	if p.IsAnonymous {
		out.Name = "Anonymous"
	}
	return out
}
