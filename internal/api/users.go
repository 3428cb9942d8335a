/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/friendsincode/ministry_platform/internal/auth"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
)

type userRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	BrandID  string `json:"brand_id"`
}

func (a *API) userRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.With(a.public()).Post("/register", a.handleUserRegister)
		r.With(a.public()).Post("/login", a.handleUserLogin)
		r.Group(func(r chi.Router) {
			r.Use(a.member()...)
			r.Get("/me", a.handleUserMe)
			r.Put("/me", a.handleUserUpdateMe)
		})
		r.Group(func(r chi.Router) {
			r.Use(a.admin()...)
			r.Get("/", a.handleUsersList)
			r.Post("/", a.handleUsersCreate)
			r.Put("/{id}/status", a.handleUserStatus)
			r.Delete("/{id}", a.handleUserDelete)
		})
	})
}

// createUser validates req and stores a new member. ok is false when a
// response has been written.
func (a *API) createUser(w http.ResponseWriter, r *http.Request, req userRequest) (*models.User, bool) {
	switch {
	case strings.TrimSpace(req.Email) == "":
		writeError(w, http.StatusBadRequest, "email_required")
		return nil, false
	case !emailPattern.MatchString(strings.TrimSpace(req.Email)):
		writeError(w, http.StatusBadRequest, "invalid_email")
		return nil, false
	case req.Password == "":
		writeError(w, http.StatusBadRequest, "password_required")
		return nil, false
	case strings.TrimSpace(req.Name) == "":
		writeError(w, http.StatusBadRequest, "name_required")
		return nil, false
	case strings.TrimSpace(req.BrandID) == "":
		writeError(w, http.StatusBadRequest, "brand_id_required")
		return nil, false
	}

	db := a.db.WithContext(r.Context())
	email := models.NormalizeEmail(req.Email)
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		a.dbFailure(w, err, "lookup user")
		return nil, false
	}
	if existing > 0 {
		writeError(w, http.StatusBadRequest, "user_exists")
		return nil, false
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		writeError(w, http.StatusBadRequest, "password_too_short")
		return nil, false
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("hash password failed")
		writeError(w, http.StatusInternalServerError, "hash_error")
		return nil, false
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         models.RoleMember,
		BrandID:      req.BrandID,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		a.dbFailure(w, err, "create user")
		return nil, false
	}
	return user, true
}

func memberClaims(u *models.User) auth.Claims {
	return auth.Claims{UserID: u.ID, Email: u.Email, Role: string(models.RoleMember), BrandID: u.BrandID}
}

func (a *API) handleUserRegister(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	user, ok := a.createUser(w, r, req)
	if !ok {
		return
	}
	token, ok := a.issue(w, memberClaims(user))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (a *API) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) || !req.validate(w) {
		return
	}

	var user models.User
	err := a.db.WithContext(r.Context()).First(&user, "email = ?", models.NormalizeEmail(req.Email)).Error
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusForbidden, "account_inactive")
		return
	}

	token, ok := a.issue(w, memberClaims(&user))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (a *API) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	var user models.User
	if err := a.db.WithContext(r.Context()).First(&user, "id = ?", claims.UserID).Error; err != nil {
		a.dbFailure(w, err, "load user")
		return nil, false
	}
	return &user, true
}

func (a *API) handleUserMe(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUserUpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
		Email *string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}

	updates := map[string]any{"updated_at": time.Now()}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name_required")
			return
		}
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		email := models.NormalizeEmail(*req.Email)
		if !emailPattern.MatchString(email) {
			writeError(w, http.StatusBadRequest, "invalid_email")
			return
		}
		if email != user.Email {
			var taken int64
			if err := a.db.WithContext(r.Context()).Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&taken).Error; err != nil {
				a.dbFailure(w, err, "check email")
				return
			}
			if taken > 0 {
				writeError(w, http.StatusBadRequest, "user_exists")
				return
			}
		}
		updates["email"] = email
	}

	db := a.db.WithContext(r.Context())
	if err := db.Model(user).Updates(updates).Error; err != nil {
		a.dbFailure(w, err, "update user")
		return
	}
	if err := db.First(user, "id = ?", user.ID).Error; err != nil {
		a.dbFailure(w, err, "reload user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUsersList(w http.ResponseWriter, r *http.Request) {
	users := []models.User{}
	q := brandScope(a.db.WithContext(r.Context()), r)
	if err := q.Order("created_at DESC").Limit(1000).Find(&users).Error; err != nil {
		a.dbFailure(w, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleUsersCreate(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	user, ok := a.createUser(w, r, req)
	if !ok {
		return
	}
	a.publishAuditEvent(r, events.EventAuditContentCreate, events.Payload{
		"brand_id":      user.BrandID,
		"resource_type": "user",
		"resource_id":   user.ID,
	})
	writeJSON(w, http.StatusOK, user)
}

// handleUserStatus activates or deactivates a member via ?is_active=.
// Deactivated members lose access on their next request.
func (a *API) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	active, err := strconv.ParseBool(r.URL.Query().Get("is_active"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "is_active_required")
		return
	}

	id := chi.URLParam(r, "id")
	result := a.db.WithContext(r.Context()).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"is_active":  active,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		a.dbFailure(w, result.Error, "update user status")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	a.publishAuditEvent(r, events.EventAuditContentUpdate, events.Payload{
		"resource_type": "user",
		"resource_id":   id,
		"is_active":     active,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "User status updated"})
}

func (a *API) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result := a.db.WithContext(r.Context()).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		a.dbFailure(w, result.Error, "delete user")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	a.publishAuditEvent(r, events.EventAuditContentDelete, events.Payload{
		"resource_type": "user",
		"resource_id":   id,
	})
	deleted(w, "User")
}
