/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
	"github.com/friendsincode/ministry_platform/internal/telemetry"
)

// Donor identifies the signed-in member behind a checkout, if any.
type Donor struct {
	UserID string
	Email  string
}

// CheckoutInput is a donation checkout as submitted by the site.
type CheckoutInput struct {
	Amount       float64
	Category     string
	CategoryID   string
	FoundationID string
	DonorName    string
	BrandID      string
	Origin       string
}

// Service records payment transactions and settles them from provider
// updates.
type Service struct {
	db       *gorm.DB
	provider Provider
	bus      *events.Bus
	currency string
	baseURL  string
	logger   zerolog.Logger
}

// NewService builds a payment service. A nil provider disables checkouts.
func NewService(db *gorm.DB, provider Provider, bus *events.Bus, currency, baseURL string, logger zerolog.Logger) *Service {
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		db:       db,
		provider: provider,
		bus:      bus,
		currency: strings.ToLower(currency),
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger.With().Str("component", "payments").Logger(),
	}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool { return s != nil && s.provider != nil }

// CreateCheckout opens a hosted session and stores a pending transaction.
func (s *Service) CreateCheckout(ctx context.Context, in CheckoutInput, donor *Donor) (*models.PaymentTransaction, string, error) {
	if !s.Enabled() {
		return nil, "", ErrDisabled
	}
	if in.Amount <= 0 {
		return nil, "", ErrInvalidAmount
	}
	if in.BrandID == "" {
		return nil, "", ErrBrandRequired
	}

	donorName := strings.TrimSpace(in.DonorName)
	if donorName == "" {
		donorName = "Anonymous"
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "General"
	}

	metadata := map[string]string{
		"category":   category,
		"brand_id":   in.BrandID,
		"donor_name": donorName,
	}
	if in.CategoryID != "" {
		metadata["category_id"] = in.CategoryID
	}
	if in.FoundationID != "" {
		metadata["foundation_id"] = in.FoundationID
	}
	req := CheckoutRequest{
		AmountCents: ToCents(in.Amount),
		Currency:    s.currency,
		Description: "Donation - " + category,
		Metadata:    metadata,
	}
	if donor != nil {
		metadata["user_id"] = donor.UserID
		metadata["user_email"] = donor.Email
		req.CustomerEmail = donor.Email
	}

	origin := strings.TrimRight(in.Origin, "/")
	if origin == "" {
		origin = s.baseURL
	}
	req.SuccessURL = origin + "/giving/success?session_id={CHECKOUT_SESSION_ID}"
	req.CancelURL = origin + "/giving"

	session, err := s.provider.CreateCheckout(ctx, req)
	if err != nil {
		telemetry.CheckoutSessionsTotal.WithLabelValues("error").Inc()
		return nil, "", err
	}

	txn := &models.PaymentTransaction{
		ID:            uuid.NewString(),
		BrandID:       in.BrandID,
		SessionID:     session.ID,
		Amount:        in.Amount,
		Currency:      s.currency,
		Category:      category,
		CategoryID:    in.CategoryID,
		FoundationID:  in.FoundationID,
		DonorName:     donorName,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.TransactionInitiated,
		Metadata:      metadata,
	}
	if donor != nil {
		txn.UserID = donor.UserID
		txn.UserEmail = donor.Email
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, "", fmt.Errorf("store transaction: %w", err)
	}

	telemetry.CheckoutSessionsTotal.WithLabelValues("created").Inc()
	s.logger.Info().Str("session_id", session.ID).Str("brand_id", in.BrandID).Float64("amount", in.Amount).Msg("checkout created")
	return txn, session.URL, nil
}

// Status returns the transaction for sessionID, refreshing it from the
// provider unless it is already paid.
func (s *Service) Status(ctx context.Context, sessionID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&txn).Error; err != nil {
		return nil, err
	}
	if txn.PaymentStatus == models.PaymentStatusPaid || !s.Enabled() {
		return &txn, nil
	}

	session, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, sessionID, paymentStatusOf(session))
}

// HandleWebhook verifies and applies a provider notification.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	if ev.Session.ID == "" {
		return ev, nil
	}

	status := webhookStatusOf(ev)
	if _, err := s.settle(ctx, ev.Session.ID, status); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return ev, nil
}

// webhookStatusOf settles a notification. Anything short of paid is a
// failure, expiry included.
func webhookStatusOf(ev *WebhookEvent) string {
	switch status := paymentStatusOf(&ev.Session); {
	case status == models.PaymentStatusPaid:
		return status
	case ev.Type == "checkout.session.expired", status == models.PaymentStatusExpired:
		return models.PaymentStatusExpired
	default:
		return models.PaymentStatusFailed
	}
}

// paymentStatusOf maps a polled session. Unfinished sessions stay pending.
func paymentStatusOf(session *Session) string {
	switch {
	case session.PaymentStatus == "paid", session.PaymentStatus == "no_payment_required":
		return models.PaymentStatusPaid
	case session.Status == "expired":
		return models.PaymentStatusExpired
	default:
		return models.PaymentStatusPending
	}
}

// settle moves the transaction to status. The first transition to paid
// credits any foundation and publishes payment.completed.
func (s *Service) settle(ctx context.Context, sessionID, status string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	becamePaid, becameFailed := false, false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() != "sqlite" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Where("session_id = ?", sessionID).First(&txn).Error; err != nil {
			return err
		}
		if txn.PaymentStatus == status || txn.PaymentStatus == models.PaymentStatusPaid {
			return nil
		}
		if status == models.PaymentStatusPending && txn.Settled() {
			return nil
		}

		lifecycle := models.TransactionInitiated
		switch status {
		case models.PaymentStatusPaid:
			lifecycle = models.TransactionCompleted
		case models.PaymentStatusFailed, models.PaymentStatusExpired:
			lifecycle = models.TransactionFailed
		}
		now := time.Now()
		if err := tx.Model(&txn).Updates(map[string]any{
			"payment_status": status,
			"status":         lifecycle,
			"updated_at":     now,
		}).Error; err != nil {
			return err
		}
		txn.PaymentStatus, txn.Status, txn.UpdatedAt = status, lifecycle, now

		if status != models.PaymentStatusPaid {
			becameFailed = lifecycle == models.TransactionFailed
			return nil
		}
		becamePaid = true
		if txn.FoundationID == "" {
			return nil
		}
		if err := tx.Create(&models.FoundationDonation{
			ID:            uuid.NewString(),
			BrandID:       txn.BrandID,
			FoundationID:  txn.FoundationID,
			SessionID:     txn.SessionID,
			DonorName:     txn.DonorName,
			DonorEmail:    txn.UserEmail,
			Amount:        txn.Amount,
			PaymentStatus: models.PaymentStatusPaid,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Foundation{}).
			Where("id = ?", txn.FoundationID).
			Update("raised_amount", gorm.Expr("raised_amount + ?", txn.Amount)).Error
	})
	if err != nil {
		return nil, err
	}

	telemetry.PaymentStatusTotal.WithLabelValues(txn.PaymentStatus).Inc()
	if becamePaid {
		s.logger.Info().Str("session_id", sessionID).Float64("amount", txn.Amount).Msg("payment completed")
		s.bus.Publish(events.EventPaymentCompleted, events.Payload{
			"brand_id":      txn.BrandID,
			"resource_type": "payment",
			"resource_id":   txn.ID,
			"session_id":    txn.SessionID,
			"amount":        txn.Amount,
			"currency":      txn.Currency,
			"category":      txn.Category,
			"donor_name":    txn.DonorName,
			"email":         txn.UserEmail,
		})
	}
	if becameFailed {
		s.logger.Warn().Str("session_id", sessionID).Str("payment_status", txn.PaymentStatus).Msg("payment failed")
		s.bus.Publish(events.EventPaymentFailed, events.Payload{
			"brand_id":       txn.BrandID,
			"resource_type":  "payment",
			"resource_id":    txn.ID,
			"session_id":     txn.SessionID,
			"amount":         txn.Amount,
			"currency":       txn.Currency,
			"payment_status": txn.PaymentStatus,
		})
	}
	return &txn, nil
}
