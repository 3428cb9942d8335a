/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Event is a dated gathering that visitors can register for.
type Event struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID     string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Date        string    `gorm:"type:varchar(32);index" json:"date"`
	Time        string    `gorm:"type:varchar(32)" json:"time,omitempty"`
	Location    string    `json:"location"`
	IsFree      bool      `gorm:"not null" json:"is_free"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventAttendee is one registration for an event.
type EventAttendee struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   string    `gorm:"type:uuid;index;not null" json:"event_id"`
	BrandID   string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null" json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Guests    int       `gorm:"not null;default:1" json:"guests"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ministry describes a church ministry.
type Ministry struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID     string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Announcement is a notice shown on the site. Urgent announcements surface
// in a banner while inside their optional schedule window.
type Announcement struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID        string     `gorm:"type:uuid;index;not null" json:"brand_id"`
	Title          string     `gorm:"not null" json:"title"`
	Content        string     `gorm:"type:text" json:"content"`
	ContentHTML    string     `gorm:"type:text" json:"content_html"`
	IsUrgent       bool       `gorm:"index;not null;default:false" json:"is_urgent"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ActiveAt reports whether now falls inside the schedule window.
func (a Announcement) ActiveAt(now time.Time) bool {
	if a.ScheduledStart != nil && now.Before(*a.ScheduledStart) {
		return false
	}
	if a.ScheduledEnd != nil && now.After(*a.ScheduledEnd) {
		return false
	}
	return true
}

// Sermon media types.
const (
	MediaTypeVideo = "video"
	MediaTypeAudio = "audio"
)

// Sermon is a recorded message.
type Sermon struct {
	ID              string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID         string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Title           string    `gorm:"not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	DescriptionHTML string    `gorm:"type:text" json:"description_html"`
	Speaker         string    `json:"speaker"`
	Date            string    `gorm:"type:varchar(32);index" json:"date"`
	MediaType       string    `gorm:"type:varchar(16)" json:"media_type"`
	MediaURL        string    `json:"media_url"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	Transcript      string    `gorm:"type:text" json:"transcript,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Testimonial is a member story.
type Testimonial struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID   string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Name      string    `gorm:"not null" json:"name"`
	Content   string    `gorm:"type:text" json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	Featured  bool      `gorm:"index;not null;default:false" json:"featured"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GalleryImage is a photo, optionally tied to an event.
type GalleryImage struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID     string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	EventID     *string   `gorm:"type:uuid;index" json:"event_id,omitempty"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	ImageURL    string    `gorm:"not null" json:"image_url"`
	StorageKey  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (GalleryImage) TableName() string {
	return "gallery"
}

// LiveStream is an embedded stream link.
type LiveStream struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID       string     `gorm:"type:uuid;index;not null" json:"brand_id"`
	Title         string     `gorm:"not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description,omitempty"`
	StreamURL     string     `gorm:"not null" json:"stream_url"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	IsLive        bool       `gorm:"index;not null" json:"is_live"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PageTypes lists the pages a banner can be attached to.
var PageTypes = []string{
	"home", "about", "events", "ministries", "books", "foundations",
	"messages", "contact", "testimonials", "prayer-wall", "gallery",
}

// ValidPageType reports whether p is a known page.
func ValidPageType(p string) bool {
	for _, t := range PageTypes {
		if t == p {
			return true
		}
	}
	return false
}

// PageBanner is the hero image for one page of a brand site.
type PageBanner struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID    string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	PageType   string    `gorm:"type:varchar(32);index;not null" json:"page_type"`
	Title      string    `json:"title,omitempty"`
	Subtitle   string    `json:"subtitle,omitempty"`
	ImageURL   string    `gorm:"not null" json:"image_url"`
	StorageKey string    `json:"-"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
