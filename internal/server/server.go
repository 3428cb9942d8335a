/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/ministry_platform/internal/api"
	"github.com/friendsincode/ministry_platform/internal/audit"
	"github.com/friendsincode/ministry_platform/internal/cache"
	"github.com/friendsincode/ministry_platform/internal/config"
	"github.com/friendsincode/ministry_platform/internal/countdown"
	"github.com/friendsincode/ministry_platform/internal/db"
	"github.com/friendsincode/ministry_platform/internal/eventbus"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/leadership"
	"github.com/friendsincode/ministry_platform/internal/logbuffer"
	"github.com/friendsincode/ministry_platform/internal/media"
	"github.com/friendsincode/ministry_platform/internal/notifications"
	"github.com/friendsincode/ministry_platform/internal/payments"
	"github.com/friendsincode/ministry_platform/internal/ratelimit"
	"github.com/friendsincode/ministry_platform/internal/scheduler"
	"github.com/friendsincode/ministry_platform/internal/scheduler/state"
	"github.com/friendsincode/ministry_platform/internal/telemetry"
	"github.com/friendsincode/ministry_platform/internal/version"
	"github.com/friendsincode/ministry_platform/internal/webhooks"
	"github.com/friendsincode/ministry_platform/internal/youtube"
)

type worker struct {
	name string
	run  func(ctx context.Context) error
}

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db       *gorm.DB
	bus      *events.Bus
	cache    *cache.Cache
	catalog  *countdown.Catalog
	leader   leadership.Leader
	election *leadership.Election
	media    *media.Service
	api      *api.API
	updates  *version.Checker
	logs     *logbuffer.Buffer
	workers  []worker

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(trustedRealIP(cfg.TrustedProxies))
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(cors.Handler(corsOptions(cfg.CORSOrigins)))
	router.Use(telemetry.TracingMiddleware("ministry-platform-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Uploads may legitimately outlast the request timeout.
			if strings.HasSuffix(r.URL.Path, "/upload") {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
		logs:   logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "Stripe-Signature"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: !(len(origins) == 1 && origins[0] == "*"),
		MaxAge:           300,
	}
}

// trustedRealIP applies chi's RealIP only when the direct peer is a trusted
// proxy. Other clients keep their socket address so spoofed forwarding
// headers cannot dodge per-IP limits.
func trustedRealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		forwarded := middleware.RealIP(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fromTrustedPeer(r.RemoteAddr, trusted) {
				forwarded.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func fromTrustedPeer(remoteAddr string, trusted []netip.Prefix) bool {
	ap, err := netip.ParseAddrPort(remoteAddr)
	if err != nil {
		return false
	}
	addr := ap.Addr().Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data: https:; frame-ancestors 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.DeferClose(func() error { return db.Close(database) })
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database

	catalog, err := countdown.LoadCatalog(s.cfg.ScheduleFile, s.cfg.ScheduleTimezone)
	if err != nil {
		return fmt.Errorf("load service schedule: %w", err)
	}
	s.catalog = catalog
	s.logger.Info().
		Int("schedules", len(catalog.Schedules())).
		Str("timezone", catalog.Default.Location.String()).
		Msg("service schedule loaded")

	cacheCfg := cache.DefaultConfig()
	cacheCfg.RedisAddr = s.cfg.RedisAddr
	cacheCfg.RedisPassword = s.cfg.RedisPassword
	cacheCfg.RedisDB = s.cfg.RedisDB
	s.cache = cache.New(cacheCfg, s.logger)
	s.DeferClose(s.cache.Close)
	s.addWorker("cache_invalidator", cache.NewInvalidator(s.cache, s.bus).Run)

	if err := s.initLeadership(); err != nil {
		return err
	}

	transport, err := eventbus.NewTransport(s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	if transport != nil {
		s.DeferClose(transport.Close)
		s.addWorker("event_relay", eventbus.NewRelay(s.bus, transport, s.cfg.InstanceID, events.ClusterEvents, s.logger).Run)
	}

	if s.cfg.S3Bucket == "" {
		if err := os.MkdirAll(s.cfg.MediaRoot, 0o755); err != nil {
			return fmt.Errorf("create media directory %s: %w", s.cfg.MediaRoot, err)
		}
	}
	mediaSvc, err := media.NewService(s.cfg, s.logger)
	if err != nil {
		return err
	}
	if err := mediaSvc.CheckStorageAccess(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("media storage not reachable, uploads will fail")
	}
	s.media = mediaSvc

	var provider payments.Provider
	if s.cfg.PaymentsEnabled() {
		provider = payments.NewStripeProvider(s.cfg.StripeAPIKey, s.cfg.StripeWebhookSecret)
	} else {
		s.logger.Info().Msg("stripe not configured, online giving disabled")
	}
	paymentSvc := payments.NewService(s.db, provider, s.bus, s.cfg.Currency, s.cfg.BaseURL, s.logger)

	videos, err := youtube.Builtin()
	if err != nil {
		return fmt.Errorf("load video catalog: %w", err)
	}

	auditSvc := audit.NewService(s.db, s.bus, s.logger)
	s.addWorker("audit", auditSvc.Run)

	notifier := notifications.NewService(notifications.SenderFromConfig(s.cfg, s.logger), s.bus, s.cfg.AdminNotifyEmail, s.logger)
	s.addWorker("notifications", notifier.Run)

	webhookSvc := webhooks.NewService(s.db, s.bus, s.catalog, s.logger)
	s.addWorker("webhooks", webhookSvc.Run)

	limiter := ratelimit.New(s.cfg.PublicRateLimitPerMinute, s.cfg.PublicRateLimitBurst)
	s.addWorker("rate_limit_sweeper", limiter.Run)

	starts := state.NewStore(24 * time.Hour)
	watcher := scheduler.NewWatcher(s.catalog, s.bus, starts, s.logger)
	jobs := scheduler.NewJobs(s.db, notifier, s.catalog.Default.Location, s.logger)
	s.addWorker("leader_jobs", scheduler.NewLeaderAware(scheduler.Group(watcher, jobs), s.leader, s.logger).Run)

	s.updates = version.NewChecker("", s.logger)
	if s.cfg.IsProduction() {
		s.addWorker("update_checker", s.updates.Run)
	}

	s.addWorker("db_metrics", func(ctx context.Context) error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	})

	s.api = api.New(api.Deps{
		DB:        s.db,
		JWTSecret: []byte(s.cfg.JWTSigningKey),
		TokenTTL:  s.cfg.JWTTTL,
		Bus:       s.bus,
		Cache:     s.cache,
		Catalog:   s.catalog,
		Starts:    starts,
		Payments:  paymentSvc,
		Media:     mediaSvc,
		YouTube:   youtube.NewService(videos, s.cache),
		Webhooks:  webhookSvc,
		Audit:     auditSvc,
		Limiter:   limiter,
		Leader:    s.leader,
		Logs:      s.logs,
		Logger:    s.logger,
	})
	return nil
}

// initLeadership elects a leader over Redis when enabled. A single instance
// always leads.
func (s *Server) initLeadership() error {
	if !s.cfg.LeaderElectionEnabled {
		s.leader = leadership.Static(true)
		return nil
	}
	electionCfg := leadership.DefaultConfig()
	electionCfg.RedisAddr = s.cfg.RedisAddr
	electionCfg.RedisPassword = s.cfg.RedisPassword
	electionCfg.RedisDB = s.cfg.RedisDB
	electionCfg.ElectionKey = "ministry:leader:scheduler"
	if s.cfg.InstanceID != "" {
		electionCfg.InstanceID = s.cfg.InstanceID
	}

	election, err := leadership.NewElection(electionCfg, s.logger)
	if err != nil {
		return fmt.Errorf("create leader election: %w", err)
	}
	s.election = election
	s.leader = election
	s.DeferClose(election.Stop)
	s.logger.Info().
		Str("redis_addr", s.cfg.RedisAddr).
		Str("instance_id", election.InstanceID()).
		Msg("leader election enabled for scheduled jobs")
	return nil
}

func (s *Server) addWorker(name string, run func(ctx context.Context) error) {
	s.workers = append(s.workers, worker{name: name, run: run})
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close stops background workers and releases owned resources in reverse
// order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	if len(s.workers) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.election != nil {
		s.election.Start(ctx)
	}

	for _, w := range s.workers {
		s.bgWG.Add(1)
		go func(w worker) {
			defer s.bgWG.Done()
			if err := w.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Str("worker", w.name).Msg("background worker exited")
			}
		}(w)
	}
	s.logger.Info().Int("workers", len(s.workers)).Msg("background workers started")
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.updates.Status(),
	}
	if s.cfg.LeaderElectionEnabled && s.leader != nil {
		resp["leader"] = s.leader.IsLeader()
	}

	status := http.StatusOK
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	resp["cache"] = s.cache.IsAvailable()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", telemetry.Handler())

	// Uploaded files are served directly when stored on local disk.
	if s.cfg.S3Bucket == "" {
		fs := http.StripPrefix("/media/", http.FileServer(http.Dir(s.cfg.MediaRoot)))
		s.router.Handle("/media/*", fs)
	}

	s.api.Routes(s.router)
}
