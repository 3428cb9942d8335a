/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/friendsincode/ministry_platform/internal/auth"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c credentials) validate(w http.ResponseWriter) bool {
	if strings.TrimSpace(c.Email) == "" {
		writeError(w, http.StatusBadRequest, "email_required")
		return false
	}
	if c.Password == "" {
		writeError(w, http.StatusBadRequest, "password_required")
		return false
	}
	return true
}

func (a *API) issue(w http.ResponseWriter, claims auth.Claims) (string, bool) {
	token, err := auth.Issue(a.jwtSecret, claims, a.tokenTTL)
	if err != nil {
		a.logger.Error().Err(err).Msg("issue token failed")
		writeError(w, http.StatusInternalServerError, "token_error")
		return "", false
	}
	return token, true
}

// handleAdminRegister creates an admin account. The first admin can register
// freely; after that only an authenticated admin may add another.
func (a *API) handleAdminRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) || !req.validate(w) {
		return
	}

	db := a.db.WithContext(r.Context())
	var admins int64
	if err := db.Model(&models.Admin{}).Count(&admins).Error; err != nil {
		a.dbFailure(w, err, "count admins")
		return
	}
	if admins > 0 {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok || !claims.HasRole(string(models.RoleAdmin)) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
	}

	email := models.NormalizeEmail(req.Email)
	var existing int64
	if err := db.Model(&models.Admin{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		a.dbFailure(w, err, "lookup admin")
		return
	}
	if existing > 0 {
		writeError(w, http.StatusBadRequest, "admin_exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		writeError(w, http.StatusBadRequest, "password_too_short")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("hash password failed")
		writeError(w, http.StatusInternalServerError, "hash_error")
		return
	}

	admin := models.Admin{ID: uuid.NewString(), Email: email, PasswordHash: hash, Role: models.RoleAdmin}
	if err := db.Create(&admin).Error; err != nil {
		a.dbFailure(w, err, "create admin")
		return
	}

	token, ok := a.issue(w, auth.Claims{UserID: admin.ID, Email: admin.Email, Role: string(models.RoleAdmin)})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "admin": admin})
}

func (a *API) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) || !req.validate(w) {
		return
	}

	var admin models.Admin
	err := a.db.WithContext(r.Context()).First(&admin, "email = ?", models.NormalizeEmail(req.Email)).Error
	if err != nil || !auth.CheckPassword(admin.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, ok := a.issue(w, auth.Claims{UserID: admin.ID, Email: admin.Email, Role: string(models.RoleAdmin)})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "admin": admin})
}

func (a *API) handleAdminMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	var admin models.Admin
	if err := a.db.WithContext(r.Context()).First(&admin, "id = ?", claims.UserID).Error; err != nil {
		a.dbFailure(w, err, "load admin")
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

func (a *API) handleAPIKeysList(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	keys, err := auth.ListAPIKeys(a.db.WithContext(r.Context()), claims.UserID)
	if err != nil {
		a.dbFailure(w, err, "list api keys")
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (a *API) handleAPIKeysCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string `json:"name"`
		ExpiresInDays int    `json:"expires_in_days"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	days := req.ExpiresInDays
	if days <= 0 {
		days = 90
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	plaintext, key, err := auth.GenerateAPIKey(claims.UserID, req.Name, time.Duration(days)*24*time.Hour)
	if err != nil {
		a.logger.Error().Err(err).Msg("generate api key failed")
		writeError(w, http.StatusInternalServerError, "key_error")
		return
	}
	if err := a.db.WithContext(r.Context()).Create(key).Error; err != nil {
		a.dbFailure(w, err, "store api key")
		return
	}

	a.publishAuditEvent(r, events.EventAuditAPIKeyCreate, events.Payload{
		"resource_type": "api_key",
		"resource_id":   key.ID,
		"name":          key.Name,
	})

	// The plaintext key is only ever returned here.
	writeJSON(w, http.StatusOK, map[string]any{"key": plaintext, "api_key": key})
}

func (a *API) handleAPIKeysRevoke(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	id := chi.URLParam(r, "id")
	err := auth.RevokeAPIKey(a.db.WithContext(r.Context()), id, claims.UserID)
	if errors.Is(err, auth.ErrAPIKeyNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.dbFailure(w, err, "revoke api key")
		return
	}

	a.publishAuditEvent(r, events.EventAuditAPIKeyRevoke, events.Payload{
		"resource_type": "api_key",
		"resource_id":   id,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "API key revoked"})
}
