/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/ministry_platform/internal/audit"
	"github.com/friendsincode/ministry_platform/internal/auth"
	"github.com/friendsincode/ministry_platform/internal/cache"
	"github.com/friendsincode/ministry_platform/internal/countdown"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/leadership"
	"github.com/friendsincode/ministry_platform/internal/logbuffer"
	"github.com/friendsincode/ministry_platform/internal/media"
	"github.com/friendsincode/ministry_platform/internal/models"
	"github.com/friendsincode/ministry_platform/internal/payments"
	"github.com/friendsincode/ministry_platform/internal/ratelimit"
	"github.com/friendsincode/ministry_platform/internal/scheduler/state"
	"github.com/friendsincode/ministry_platform/internal/webhooks"
	"github.com/friendsincode/ministry_platform/internal/youtube"
)

const maxJSONBody = 1 << 20

// Deps collects the services the API depends on. Optional services may be
// nil; their routes answer 503.
type Deps struct {
	DB        *gorm.DB
	JWTSecret []byte
	TokenTTL  time.Duration
	Bus       *events.Bus
	Cache     *cache.Cache
	Catalog   *countdown.Catalog
	Starts    *state.Store
	Payments  *payments.Service
	Media     *media.Service
	YouTube   *youtube.Service
	Webhooks  *webhooks.Service
	Audit     *audit.Service
	Limiter   *ratelimit.Limiter
	Leader    leadership.Leader
	Logs      *logbuffer.Buffer
	Logger    zerolog.Logger
}

// API exposes HTTP handlers.
type API struct {
	db        *gorm.DB
	jwtSecret []byte
	tokenTTL  time.Duration
	bus       *events.Bus
	cache     *cache.Cache
	catalog   *countdown.Catalog
	starts    *state.Store
	payments  *payments.Service
	media     *media.Service
	youtube   *youtube.Service
	webhooks  *webhooks.Service
	auditSvc  *audit.Service
	limiter   *ratelimit.Limiter
	leader    leadership.Leader
	logs      *logbuffer.Buffer
	now       func() time.Time
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(d Deps) *API {
	catalog := d.Catalog
	if catalog == nil {
		catalog = countdown.ReferenceCatalog(time.Local)
	}
	ttl := d.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &API{
		db:        d.DB,
		jwtSecret: d.JWTSecret,
		tokenTTL:  ttl,
		bus:       d.Bus,
		cache:     d.Cache,
		catalog:   catalog,
		starts:    d.Starts,
		payments:  d.Payments,
		media:     d.Media,
		youtube:   d.YouTube,
		webhooks:  d.Webhooks,
		auditSvc:  d.Audit,
		limiter:   d.Limiter,
		leader:    d.Leader,
		logs:      d.Logs,
		now:       time.Now,
		logger:    d.Logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers all API routes on r.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", a.handleSchedule)
			r.Get("/next", a.handleScheduleNext)
			r.Get("/upcoming", a.handleScheduleUpcoming)
			r.Get("/recent", a.handleScheduleRecent)
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(a.public(), auth.Optional(a.db, a.jwtSecret)).Post("/register", a.handleAdminRegister)
			r.With(a.public()).Post("/login", a.handleAdminLogin)
			r.With(a.admin()...).Get("/me", a.handleAdminMe)
			r.Route("/api-keys", func(r chi.Router) {
				r.Use(a.admin()...)
				r.Get("/", a.handleAPIKeysList)
				r.Post("/", a.handleAPIKeysCreate)
				r.Delete("/{id}", a.handleAPIKeysRevoke)
			})
		})

		r.Route("/brands", func(r chi.Router) {
			r.Get("/", a.handleBrandsList)
			r.Get("/{id}", a.handleBrandsGet)
			r.With(a.admin()...).Post("/", a.handleBrandsCreate)
			r.With(a.admin()...).Put("/{id}", a.handleBrandsUpdate)
			r.With(a.admin()...).Delete("/{id}", a.handleBrandsDelete)
		})

		a.contentRoutes(r)
		a.outreachRoutes(r)
		a.givingRoutes(r)
		a.userRoutes(r)

		r.Get("/youtube/channel/{handle}", a.handleYouTubeChannel)

		gallery := a.gallery()
		r.Route("/gallery", func(r chi.Router) {
			r.Get("/", gallery.list)
			r.With(a.admin()...).Post("/", gallery.create)
			r.With(a.admin()...).Post("/upload", a.handleGalleryUpload)
			r.With(a.admin()...).Delete("/{id}", a.handleGalleryDelete)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.admin()...)
			r.Get("/analytics/overview", a.handleAnalyticsOverview)
			r.Get("/audit", a.handleAuditList)
			r.Get("/logs", a.handleLogsList)
			r.Get("/logs/stats", a.handleLogsStats)
			r.Route("/webhooks", func(r chi.Router) {
				r.Get("/", a.handleWebhooksList)
				r.Post("/", a.handleWebhooksCreate)
				r.Get("/{id}", a.handleWebhooksGet)
				r.Put("/{id}", a.handleWebhooksUpdate)
				r.Delete("/{id}", a.handleWebhooksDelete)
				r.Post("/{id}/test", a.handleWebhooksTest)
				r.Get("/{id}/logs", a.handleWebhooksLogs)
			})
		})
	})
}

// admin requires a valid token or API key carrying the admin role.
func (a *API) admin() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		auth.Middleware(a.db, a.jwtSecret),
		auth.RequireRole(string(models.RoleAdmin)),
	}
}

// member requires a member token.
func (a *API) member() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		auth.Middleware(a.db, a.jwtSecret),
		auth.RequireRole(string(models.RoleMember)),
	}
}

// public applies the per-client limiter to anonymous write endpoints.
func (a *API) public() func(http.Handler) http.Handler {
	if a.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return a.limiter.Middleware
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if a.leader != nil {
		resp["leader"] = a.leader.IsLeader()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// decode reads a JSON body into dst, answering 400 invalid_json on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

// dbFailure maps a lookup error to 404 or 500.
func (a *API) dbFailure(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	a.logger.Error().Err(err).Msg(what + " failed")
	writeError(w, http.StatusInternalServerError, "db_error")
}

func deleted(w http.ResponseWriter, label string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": label + " deleted"})
}

// brandScope filters q by ?brand_id= when present.
func brandScope(q *gorm.DB, r *http.Request) *gorm.DB {
	if id := r.URL.Query().Get("brand_id"); id != "" {
		return q.Where("brand_id = ?", id)
	}
	return q
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, key string) (value, ok bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// queryLimit returns ?limit= clamped to (0, max], or def.
func queryLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// auditContext extracts actor and request info for audit logging.
func (a *API) auditContext(r *http.Request) events.Payload {
	payload := events.Payload{
		"ip_address": ratelimit.ClientIP(r),
		"user_agent": r.UserAgent(),
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims != nil {
		payload["actor_id"] = claims.UserID
		payload["actor_email"] = claims.Email
	}
	return payload
}

// publishAuditEvent publishes an audit event with actor and request context.
func (a *API) publishAuditEvent(r *http.Request, eventType events.EventType, data events.Payload) {
	payload := a.auditContext(r)
	for k, v := range data {
		payload[k] = v
	}
	a.bus.Publish(eventType, payload)
}

// brandName looks up the display name used in notification subjects.
func (a *API) brandName(r *http.Request, brandID string) string {
	if b, ok := a.cache.GetBrand(r.Context(), brandID); ok {
		return b.Name
	}
	var brand models.Brand
	if err := a.db.WithContext(r.Context()).Select("id", "name").First(&brand, "id = ?", brandID).Error; err != nil {
		return ""
	}
	return brand.Name
}
