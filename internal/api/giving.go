/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/ministry_platform/internal/auth"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
	"github.com/friendsincode/ministry_platform/internal/payments"
)

const maxWebhookBody = 64 << 10

func (a *API) givingRoutes(r chi.Router) {
	categories := &resource[models.GivingCategory]{
		api: a, label: "Category", kind: "giving_category", order: "name ASC", limit: 100,
		init: func() models.GivingCategory { return models.GivingCategory{IsActive: true} },
		keys: func(c *models.GivingCategory) (*string, *string) { return &c.ID, &c.BrandID },
		filter: func(q *gorm.DB, _ *http.Request) *gorm.DB {
			return q.Where("is_active = ?", true)
		},
		prepare: func(c *models.GivingCategory) string { return required(c.Name, "name_required") },
	}
	r.Route("/giving-categories", func(r chi.Router) { categories.mount(r, a.admin()) })

	r.Route("/donations", func(r chi.Router) {
		r.Use(a.admin()...)
		r.Post("/", a.handleDonationCreate)
		r.Get("/", a.handleDonationsList)
		r.Get("/stats", a.handleDonationStats)
	})

	r.Route("/payments", func(r chi.Router) {
		r.With(a.public(), auth.Optional(a.db, a.jwtSecret)).Post("/create-checkout", a.handleCreateCheckout)
		r.Get("/status/{session_id}", a.handlePaymentStatus)
		r.With(a.member()...).Get("/history", a.handlePaymentHistory)
		r.With(a.admin()...).Get("/transactions", a.handlePaymentTransactions)
		r.With(a.admin()...).Get("/stats", a.handlePaymentStats)
	})
	r.Post("/webhook/stripe", a.handleStripeWebhook)

	foundations := &resource[models.Foundation]{
		api: a, label: "Foundation", kind: "foundation", limit: 100,
		init: func() models.Foundation { return models.Foundation{IsActive: true} },
		keys: func(f *models.Foundation) (*string, *string) { return &f.ID, &f.BrandID },
		filter: func(q *gorm.DB, r *http.Request) *gorm.DB {
			if active, ok := queryBool(r, "is_active"); ok {
				q = q.Where("is_active = ?", active)
			}
			return q
		},
		prepare: func(f *models.Foundation) string {
			if code := required(f.Title, "title_required"); code != "" {
				return code
			}
			if f.GoalAmount != nil && *f.GoalAmount < 0 {
				return "invalid_goal_amount"
			}
			if f.GalleryImages == nil {
				f.GalleryImages = []string{}
			}
			return ""
		},
	}
	r.Route("/foundations", func(r chi.Router) {
		r.With(a.public()).Post("/donate", a.handleFoundationDonate)
		r.With(a.admin()...).Get("/{id}/donations", a.handleFoundationDonations)
		foundations.mount(r, a.admin())
	})
}

func (a *API) handleDonationCreate(w http.ResponseWriter, r *http.Request) {
	var d models.Donation
	if !decode(w, r, &d) {
		return
	}
	switch {
	case strings.TrimSpace(d.BrandID) == "":
		writeError(w, http.StatusBadRequest, "brand_id_required")
		return
	case strings.TrimSpace(d.DonorName) == "":
		writeError(w, http.StatusBadRequest, "donor_name_required")
		return
	case d.Amount <= 0:
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	d.ID = uuid.NewString()
	if d.Category == "" {
		d.Category = "General"
	}
	if d.Date == "" {
		d.Date = a.now().Format("2006-01-02")
	}

	if err := a.db.WithContext(r.Context()).Create(&d).Error; err != nil {
		a.dbFailure(w, err, "record donation")
		return
	}
	a.publishAuditEvent(r, events.EventAuditDonation, events.Payload{
		"brand_id":      d.BrandID,
		"resource_type": "donation",
		"resource_id":   d.ID,
		"amount":        d.Amount,
	})
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleDonationsList(w http.ResponseWriter, r *http.Request) {
	donations := []models.Donation{}
	q := brandScope(a.db.WithContext(r.Context()), r)
	if err := q.Order("created_at DESC").Limit(1000).Find(&donations).Error; err != nil {
		a.dbFailure(w, err, "list donations")
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

type categoryTotal struct {
	Category string
	Total    float64
}

// totals sums amount over q, grouped by category.
func totals(q *gorm.DB, model any) (float64, int64, map[string]float64, error) {
	var sum struct {
		Total float64
		Count int64
	}
	if err := q.Session(&gorm.Session{}).Model(model).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Scan(&sum).Error; err != nil {
		return 0, 0, nil, err
	}

	var rows []categoryTotal
	if err := q.Session(&gorm.Session{}).Model(model).
		Select("category, COALESCE(SUM(amount), 0) AS total").
		Group("category").
		Scan(&rows).Error; err != nil {
		return 0, 0, nil, err
	}
	byCategory := make(map[string]float64, len(rows))
	for _, row := range rows {
		name := row.Category
		if name == "" {
			name = "General"
		}
		byCategory[name] += row.Total
	}
	return sum.Total, sum.Count, byCategory, nil
}

func (a *API) handleDonationStats(w http.ResponseWriter, r *http.Request) {
	q := brandScope(a.db.WithContext(r.Context()), r)
	total, count, byCategory, err := totals(q, &models.Donation{})
	if err != nil {
		a.dbFailure(w, err, "donation stats")
		return
	}
	recent := []models.Donation{}
	if err := q.Order("created_at DESC").Limit(10).Find(&recent).Error; err != nil {
		a.dbFailure(w, err, "recent donations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":       total,
		"count":       count,
		"by_category": byCategory,
		"donations":   recent,
	})
}

func (a *API) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	if !a.payments.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "payments_disabled")
		return
	}
	var req struct {
		Amount       float64 `json:"amount"`
		Category     string  `json:"category"`
		CategoryID   string  `json:"category_id"`
		FoundationID string  `json:"foundation_id"`
		DonorName    string  `json:"donor_name"`
		BrandID      string  `json:"brand_id"`
		OriginURL    string  `json:"origin_url"`
	}
	if !decode(w, r, &req) {
		return
	}

	var donor *payments.Donor
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims.HasRole(string(models.RoleMember)) {
		donor = &payments.Donor{UserID: claims.UserID, Email: claims.Email}
	}
	origin := req.OriginURL
	if origin == "" {
		origin = r.Header.Get("Origin")
	}

	txn, url, err := a.payments.CreateCheckout(r.Context(), payments.CheckoutInput{
		Amount:       req.Amount,
		Category:     req.Category,
		CategoryID:   req.CategoryID,
		FoundationID: req.FoundationID,
		DonorName:    req.DonorName,
		BrandID:      req.BrandID,
		Origin:       origin,
	}, donor)
	switch {
	case errors.Is(err, payments.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	case errors.Is(err, payments.ErrBrandRequired):
		writeError(w, http.StatusBadRequest, "brand_id_required")
		return
	case err != nil:
		a.logger.Error().Err(err).Msg("create checkout failed")
		writeError(w, http.StatusInternalServerError, "checkout_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url, "session_id": txn.SessionID})
}

func (a *API) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	if a.payments == nil {
		writeError(w, http.StatusServiceUnavailable, "payments_disabled")
		return
	}
	txn, err := a.payments.Status(r.Context(), chi.URLParam(r, "session_id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("payment status failed")
		writeError(w, http.StatusInternalServerError, "status_failed")
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (a *API) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	_, err = a.payments.HandleWebhook(r.Context(), body, r.Header.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, payments.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "payments_disabled")
		return
	case errors.Is(err, payments.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "invalid_signature")
		return
	case err != nil:
		a.logger.Warn().Err(err).Msg("stripe webhook rejected")
		writeError(w, http.StatusBadRequest, "webhook_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (a *API) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	txns := []models.PaymentTransaction{}
	q := brandScope(a.db.WithContext(r.Context()).Where("user_id = ?", claims.UserID), r)
	if err := q.Order("created_at DESC").Limit(100).Find(&txns).Error; err != nil {
		a.dbFailure(w, err, "payment history")
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func (a *API) handlePaymentTransactions(w http.ResponseWriter, r *http.Request) {
	txns := []models.PaymentTransaction{}
	q := brandScope(a.db.WithContext(r.Context()), r)
	if status := r.URL.Query().Get("payment_status"); status != "" {
		q = q.Where("payment_status = ?", status)
	}
	if err := q.Order("created_at DESC").Limit(1000).Find(&txns).Error; err != nil {
		a.dbFailure(w, err, "list transactions")
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func (a *API) handlePaymentStats(w http.ResponseWriter, r *http.Request) {
	q := brandScope(a.db.WithContext(r.Context()).Where("payment_status = ?", models.PaymentStatusPaid), r)
	total, count, byCategory, err := totals(q, &models.PaymentTransaction{})
	if err != nil {
		a.dbFailure(w, err, "payment stats")
		return
	}
	recent := []models.PaymentTransaction{}
	if err := q.Order("created_at DESC").Limit(10).Find(&recent).Error; err != nil {
		a.dbFailure(w, err, "recent transactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":               total,
		"count":               count,
		"by_category":         byCategory,
		"recent_transactions": recent,
	})
}

// handleFoundationDonate records an offline gift and credits the foundation
// in one transaction.
func (a *API) handleFoundationDonate(w http.ResponseWriter, r *http.Request) {
	var d models.FoundationDonation
	if !decode(w, r, &d) {
		return
	}
	switch {
	case strings.TrimSpace(d.FoundationID) == "":
		writeError(w, http.StatusBadRequest, "foundation_id_required")
		return
	case strings.TrimSpace(d.DonorName) == "":
		writeError(w, http.StatusBadRequest, "donor_name_required")
		return
	case d.Amount <= 0:
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}

	err := a.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var f models.Foundation
		if err := tx.Select("id", "brand_id").First(&f, "id = ?", d.FoundationID).Error; err != nil {
			return err
		}
		d.ID = uuid.NewString()
		d.BrandID = f.BrandID
		d.SessionID = ""
		d.PaymentStatus = models.TransactionCompleted
		if err := tx.Create(&d).Error; err != nil {
			return err
		}
		return tx.Model(&models.Foundation{}).Where("id = ?", f.ID).Updates(map[string]any{
			"raised_amount": gorm.Expr("raised_amount + ?", d.Amount),
			"updated_at":    time.Now(),
		}).Error
	})
	if err != nil {
		a.dbFailure(w, err, "foundation donation")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleFoundationDonations(w http.ResponseWriter, r *http.Request) {
	donations := []models.FoundationDonation{}
	err := a.db.WithContext(r.Context()).
		Where("foundation_id = ?", chi.URLParam(r, "id")).
		Order("created_at DESC").
		Limit(1000).
		Find(&donations).Error
	if err != nil {
		a.dbFailure(w, err, "list foundation donations")
		return
	}
	writeJSON(w, http.StatusOK, donations)
}
