/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// WebhookEventType names an outbound webhook event.
type WebhookEventType string

const (
	WebhookEventServiceStarted   WebhookEventType = "service.started"
	WebhookEventPaymentCompleted WebhookEventType = "payment.completed"
	WebhookEventPrayerSubmitted  WebhookEventType = "prayer.submitted"
)

// WebhookTarget is an outbound webhook subscription for a brand.
type WebhookTarget struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID   string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	URL       string    `gorm:"type:varchar(512);not null" json:"url"`
	Events    string    `gorm:"type:varchar(255)" json:"events"` // comma separated
	Secret    string    `gorm:"type:varchar(255)" json:"-"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (WebhookTarget) TableName() string {
	return "webhook_targets"
}

// NewWebhookTarget creates an active target with a random signing secret.
func NewWebhookTarget(brandID, url, events string) *WebhookTarget {
	return &WebhookTarget{
		ID:      uuid.NewString(),
		BrandID: brandID,
		URL:     url,
		Events:  events,
		Secret:  uuid.NewString(),
		Active:  true,
	}
}

// Wants reports whether the target subscribes to event. An empty list means
// every event.
func (t WebhookTarget) Wants(event WebhookEventType) bool {
	if strings.TrimSpace(t.Events) == "" {
		return true
	}
	for _, e := range strings.Split(t.Events, ",") {
		if strings.TrimSpace(e) == string(event) {
			return true
		}
	}
	return false
}

// WebhookLog records one delivery attempt.
type WebhookLog struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	TargetID   string    `gorm:"type:uuid;index;not null" json:"target_id"`
	Event      string    `gorm:"type:varchar(64);not null" json:"event"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	StatusCode int       `json:"status_code"`
	Response   string    `gorm:"type:text" json:"response,omitempty"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	Duration   int       `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (WebhookLog) TableName() string {
	return "webhook_logs"
}
