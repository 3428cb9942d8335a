/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Payment statuses mirror the processor's checkout session state.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
	PaymentStatusExpired = "expired"
)

// Transaction lifecycle states.
const (
	TransactionInitiated = "initiated"
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
)

// GivingCategory is a fund donors can give to.
type GivingCategory struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID     string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	IsActive    bool      `gorm:"index;not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Donation is a manually recorded gift.
type Donation struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID    string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	DonorName  string    `gorm:"not null" json:"donor_name"`
	DonorEmail string    `json:"donor_email"`
	Amount     float64   `gorm:"not null" json:"amount"`
	Category   string    `json:"category"`
	Date       string    `gorm:"type:varchar(32)" json:"date"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PaymentTransaction tracks one online checkout session from creation to
// settlement.
type PaymentTransaction struct {
	ID            string            `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID       string            `gorm:"type:uuid;index;not null" json:"brand_id"`
	SessionID     string            `gorm:"uniqueIndex;not null" json:"session_id"`
	Amount        float64           `gorm:"not null" json:"amount"`
	Currency      string            `gorm:"type:varchar(8);not null;default:usd" json:"currency"`
	Category      string            `json:"category"`
	CategoryID    string            `json:"category_id,omitempty"`
	FoundationID  string            `gorm:"index" json:"foundation_id,omitempty"`
	UserID        string            `gorm:"index" json:"user_id,omitempty"`
	UserEmail     string            `json:"user_email,omitempty"`
	DonorName     string            `json:"donor_name,omitempty"`
	PaymentStatus string            `gorm:"type:varchar(16);index;not null;default:pending" json:"payment_status"`
	Status        string            `gorm:"type:varchar(16);not null;default:initiated" json:"status"`
	Metadata      map[string]string `gorm:"type:text;serializer:json" json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Settled reports whether the transaction reached a terminal state.
func (t PaymentTransaction) Settled() bool {
	switch t.PaymentStatus {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusExpired:
		return true
	}
	return false
}

// Foundation is a fundraising campaign with an optional goal.
type Foundation struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID       string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Title         string    `gorm:"not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	ImageURL      string    `json:"image_url"`
	GalleryImages []string  `gorm:"type:text;serializer:json" json:"gallery_images"`
	GoalAmount    *float64  `json:"goal_amount,omitempty"`
	RaisedAmount  float64   `gorm:"not null;default:0" json:"raised_amount"`
	IsActive      bool      `gorm:"index;not null" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Progress returns the raised fraction of the goal, capped at 1. Campaigns
// without a goal report 0.
func (f Foundation) Progress() float64 {
	if f.GoalAmount == nil || *f.GoalAmount <= 0 {
		return 0
	}
	p := f.RaisedAmount / *f.GoalAmount
	if p > 1 {
		return 1
	}
	return p
}

// FoundationDonation is a gift made toward a foundation.
type FoundationDonation struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID       string    `gorm:"type:uuid;index;not null" json:"brand_id"`
	FoundationID  string    `gorm:"type:uuid;index;not null" json:"foundation_id"`
	SessionID     string    `gorm:"index" json:"session_id,omitempty"`
	DonorName     string    `json:"donor_name"`
	DonorEmail    string    `json:"donor_email,omitempty"`
	Amount        float64   `gorm:"not null" json:"amount"`
	Message       string    `gorm:"type:text" json:"message,omitempty"`
	PaymentStatus string    `gorm:"type:varchar(16);not null;default:pending" json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
}
