/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
)

var webhookEvents = map[string]bool{
	string(models.WebhookEventServiceStarted):   true,
	string(models.WebhookEventPaymentCompleted): true,
	string(models.WebhookEventPrayerSubmitted):  true,
}

func validWebhookURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// normalizeEvents trims a comma separated list and rejects unknown names.
func normalizeEvents(raw string) (string, bool) {
	var out []string
	for _, e := range strings.Split(raw, ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !webhookEvents[e] {
			return "", false
		}
		out = append(out, e)
	}
	return strings.Join(out, ","), true
}

func (a *API) handleWebhooksList(w http.ResponseWriter, r *http.Request) {
	targets := []models.WebhookTarget{}
	q := brandScope(a.db.WithContext(r.Context()), r)
	if err := q.Order("created_at DESC").Find(&targets).Error; err != nil {
		a.dbFailure(w, err, "list webhooks")
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

func (a *API) handleWebhooksCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BrandID string `json:"brand_id"`
		URL     string `json:"url"`
		Events  string `json:"events"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.BrandID == "" {
		writeError(w, http.StatusBadRequest, "brand_id_required")
		return
	}
	if !validWebhookURL(req.URL) {
		writeError(w, http.StatusBadRequest, "invalid_url")
		return
	}
	evts, ok := normalizeEvents(req.Events)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_events")
		return
	}

	target := models.NewWebhookTarget(req.BrandID, req.URL, evts)
	if err := a.db.WithContext(r.Context()).Create(target).Error; err != nil {
		a.dbFailure(w, err, "create webhook")
		return
	}

	a.publishAuditEvent(r, events.EventAuditWebhookCreate, events.Payload{
		"brand_id":      target.BrandID,
		"resource_type": "webhook",
		"resource_id":   target.ID,
		"url":           target.URL,
	})

	// The signing secret is only returned on create.
	writeJSON(w, http.StatusOK, map[string]any{
		"webhook": target,
		"secret":  target.Secret,
	})
}

func (a *API) loadWebhook(w http.ResponseWriter, r *http.Request) (*models.WebhookTarget, bool) {
	var target models.WebhookTarget
	if err := a.db.WithContext(r.Context()).First(&target, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
		a.dbFailure(w, err, "get webhook")
		return nil, false
	}
	return &target, true
}

func (a *API) handleWebhooksGet(w http.ResponseWriter, r *http.Request) {
	target, ok := a.loadWebhook(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, target)
}

func (a *API) handleWebhooksUpdate(w http.ResponseWriter, r *http.Request) {
	target, ok := a.loadWebhook(w, r)
	if !ok {
		return
	}

	var req struct {
		URL    *string `json:"url,omitempty"`
		Events *string `json:"events,omitempty"`
		Active *bool   `json:"active,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}

	updates := make(map[string]any)
	if req.URL != nil {
		if !validWebhookURL(*req.URL) {
			writeError(w, http.StatusBadRequest, "invalid_url")
			return
		}
		updates["url"] = *req.URL
	}
	if req.Events != nil {
		evts, ok := normalizeEvents(*req.Events)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_events")
			return
		}
		updates["events"] = evts
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	db := a.db.WithContext(r.Context())
	if len(updates) > 0 {
		if err := db.Model(target).Updates(updates).Error; err != nil {
			a.dbFailure(w, err, "update webhook")
			return
		}
	}
	if err := db.First(target, "id = ?", target.ID).Error; err != nil {
		a.dbFailure(w, err, "reload webhook")
		return
	}
	writeJSON(w, http.StatusOK, target)
}

func (a *API) handleWebhooksDelete(w http.ResponseWriter, r *http.Request) {
	target, ok := a.loadWebhook(w, r)
	if !ok {
		return
	}
	db := a.db.WithContext(r.Context())
	if err := db.Where("target_id = ?", target.ID).Delete(&models.WebhookLog{}).Error; err != nil {
		a.dbFailure(w, err, "delete webhook logs")
		return
	}
	if err := db.Delete(target).Error; err != nil {
		a.dbFailure(w, err, "delete webhook")
		return
	}

	a.publishAuditEvent(r, events.EventAuditWebhookDelete, events.Payload{
		"brand_id":      target.BrandID,
		"resource_type": "webhook",
		"resource_id":   target.ID,
	})
	deleted(w, "Webhook")
}

// handleWebhooksTest delivers a sample payload synchronously and reports
// the outcome.
func (a *API) handleWebhooksTest(w http.ResponseWriter, r *http.Request) {
	if a.webhooks == nil {
		writeError(w, http.StatusServiceUnavailable, "webhooks_unavailable")
		return
	}
	target, ok := a.loadWebhook(w, r)
	if !ok {
		return
	}
	if err := a.webhooks.TestWebhook(r.Context(), *target); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleWebhooksLogs(w http.ResponseWriter, r *http.Request) {
	logs := []models.WebhookLog{}
	err := a.db.WithContext(r.Context()).
		Where("target_id = ?", chi.URLParam(r, "id")).
		Order("created_at DESC").
		Limit(queryLimit(r, 50, 500)).
		Find(&logs).Error
	if err != nil {
		a.dbFailure(w, err, "list webhook logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
