/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ratelimit throttles public form submissions per client address.
package ratelimit

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/friendsincode/ministry_platform/internal/telemetry"
)

// IdleTTL is how long an unused client entry is kept.
const IdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a keyed token bucket, one bucket per client IP.
type Limiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

// New creates a limiter allowing perMinute requests per client with the given
// burst. A non-positive perMinute disables limiting.
func New(perMinute, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
	}
	return &Limiter{
		limit:    limit,
		burst:    burst,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow reports whether key may make a request now.
func (l *Limiter) Allow(key string) bool {
	if l.limit == rate.Inf {
		return true
	}
	now := l.now()
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

// retryAfter is the wait until one token is available again.
func (l *Limiter) retryAfter() time.Duration {
	if l.limit == rate.Inf || l.limit == 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(l.limit))
}

// Sweep drops entries idle for longer than IdleTTL and returns how many were
// removed.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-IdleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Run sweeps idle entries until ctx is done.
func (l *Limiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(IdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Allow(ClientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}
		telemetry.RateLimitedTotal.WithLabelValues(endpoint(r)).Inc()
		if d := l.retryAfter(); d > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate_limited"})
	})
}

// ClientIP returns the request's remote host. The server rewrites RemoteAddr
// from proxy headers only for requests arriving from a trusted proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func endpoint(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
