/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/friendsincode/ministry_platform/internal/models"
)

// Middleware requires an X-API-Key header or a Bearer token and injects the
// resulting claims. A nil db disables API keys.
func Middleware(db *gorm.DB, jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := authenticate(db, jwtSecret, r)
			if !ok {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// Optional attaches claims when valid credentials are present and lets
// anonymous requests through otherwise.
func Optional(db *gorm.DB, jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := authenticate(db, jwtSecret, r); ok {
				r = r.WithContext(WithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects requests whose claims lack one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				unauthorized(w)
				return
			}
			for _, role := range roles {
				if claims.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"forbidden"}`))
		})
	}
}

func authenticate(db *gorm.DB, jwtSecret []byte, r *http.Request) (*Claims, bool) {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" && db != nil {
		claims, err := ValidateAPIKey(db.WithContext(r.Context()), key)
		return claims, err == nil
	}
	if len(jwtSecret) == 0 {
		return nil, false
	}
	token := extractToken(r)
	if token == "" {
		return nil, false
	}
	claims, err := Parse(jwtSecret, token)
	if err != nil || claims == nil {
		return nil, false
	}
	if claims.Role == string(models.RoleMember) && db != nil && !memberActive(db.WithContext(r.Context()), claims.UserID) {
		return nil, false
	}
	return claims, true
}

// memberActive reports whether the member account still exists and is
// active.
func memberActive(db *gorm.DB, userID string) bool {
	var user models.User
	if err := db.Select("id", "is_active").First(&user, "id = ?", userID).Error; err != nil {
		return false
	}
	return user.IsActive
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}

func extractToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
