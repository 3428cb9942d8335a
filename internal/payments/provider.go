/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package payments creates hosted checkout sessions and settles the payment
// transactions behind them.
package payments

import (
	"context"
	"errors"
	"math"
)

var (
	ErrDisabled         = errors.New("payments not configured")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrBrandRequired    = errors.New("brand_id is required")
	ErrSessionNotFound  = errors.New("checkout session not found")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// CheckoutRequest describes one hosted checkout.
type CheckoutRequest struct {
	AmountCents   int64
	Currency      string
	Description   string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

// Session is the provider's view of a checkout session.
type Session struct {
	ID            string
	URL           string
	Status        string // open, complete, expired
	PaymentStatus string // paid, unpaid, no_payment_required
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
}

// WebhookEvent is a verified notification about a session.
type WebhookEvent struct {
	ID      string
	Type    string
	Session Session
}

// Provider is a hosted checkout processor.
type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// ToCents converts a decimal amount to minor units.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
