/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction defines the type of audited action.
type AuditAction string

const (
	AuditActionBrandCreate    AuditAction = "brand.create"
	AuditActionBrandUpdate    AuditAction = "brand.update"
	AuditActionBrandDelete    AuditAction = "brand.delete"
	AuditActionContentCreate  AuditAction = "content.create"
	AuditActionContentUpdate  AuditAction = "content.update"
	AuditActionContentDelete  AuditAction = "content.delete"
	AuditActionDonationRecord AuditAction = "donation.record"
	AuditActionPaymentSettle  AuditAction = "payment.settle"
	AuditActionPaymentFail    AuditAction = "payment.fail"
	AuditActionPrayerStatus   AuditAction = "prayer.status"
	AuditActionAPIKeyCreate   AuditAction = "apikey.create"
	AuditActionAPIKeyRevoke   AuditAction = "apikey.revoke"
	AuditActionWebhookCreate  AuditAction = "webhook.create"
	AuditActionWebhookDelete  AuditAction = "webhook.delete"
)

// AuditLog records admin mutations.
type AuditLog struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp    time.Time      `gorm:"index:idx_audit_timestamp;not null" json:"timestamp"`
	ActorID      *string        `gorm:"type:uuid;index:idx_audit_actor" json:"actor_id,omitempty"` // nil for system actions
	ActorEmail   string         `gorm:"type:varchar(255)" json:"actor_email,omitempty"`
	BrandID      *string        `gorm:"type:uuid;index:idx_audit_brand" json:"brand_id,omitempty"`
	Action       AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null" json:"action"`
	ResourceType string         `gorm:"type:varchar(64)" json:"resource_type"`
	ResourceID   string         `gorm:"type:varchar(64)" json:"resource_id"`
	Details      map[string]any `gorm:"type:text;serializer:json" json:"details,omitempty"`
	IPAddress    string         `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent    string         `gorm:"type:varchar(512)" json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
