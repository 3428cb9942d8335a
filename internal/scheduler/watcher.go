/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/ministry_platform/internal/countdown"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/scheduler/state"
	"github.com/friendsincode/ministry_platform/internal/telemetry"
)

// Watcher follows every schedule in a catalog and announces each service as
// it starts.
type Watcher struct {
	catalog  *countdown.Catalog
	bus      *events.Bus
	store    *state.Store
	clock    countdown.Clock
	interval time.Duration
	logger   zerolog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherClock overrides the clock.
func WithWatcherClock(c countdown.Clock) WatcherOption {
	return func(w *Watcher) { w.clock = c }
}

// WithWatcherInterval overrides the five-second poll.
func WithWatcherInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher builds a watcher over catalog.
func NewWatcher(catalog *countdown.Catalog, bus *events.Bus, store *state.Store, logger zerolog.Logger, opts ...WatcherOption) *Watcher {
	if store == nil {
		store = state.NewStore(0)
	}
	w := &Watcher{
		catalog:  catalog,
		bus:      bus,
		store:    store,
		clock:    countdown.RealClock{},
		interval: 5 * time.Second,
		logger:   logger.With().Str("component", "service_watcher").Logger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Store exposes recorded starts.
func (w *Watcher) Store() *state.Store { return w.store }

// Run ticks every schedule until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	schedules := w.catalog.Schedules()
	w.logger.Info().Int("schedules", len(schedules)).Dur("interval", w.interval).Msg("service watcher started")

	var wg sync.WaitGroup
	for _, s := range schedules {
		wg.Add(1)
		go func(s countdown.Schedule) {
			defer wg.Done()
			var prev countdown.Result
			t := countdown.NewTicker(s, countdown.WithClock(w.clock), countdown.WithInterval(w.interval))
			if err := t.Run(ctx, func(r countdown.Result) {
				w.observe(s.Name, prev, r)
				prev = r
			}); err != nil {
				w.logger.Error().Err(err).Str("schedule", s.Name).Msg("schedule ticker stopped")
			}
		}(s)
	}
	wg.Wait()
	w.logger.Info().Msg("service watcher stopped")
	return nil
}

// observe compares consecutive results. The previous target has started once
// the next result points elsewhere and its start time has passed.
func (w *Watcher) observe(schedule string, prev, cur countdown.Result) {
	if cur.IsZero() {
		telemetry.NextServiceSeconds.WithLabelValues(schedule).Set(-1)
	} else {
		telemetry.NextServiceSeconds.WithLabelValues(schedule).Set(float64(cur.TotalSeconds()))
	}

	if prev.IsZero() {
		return
	}
	if !cur.IsZero() && cur.StartsAt.Equal(prev.StartsAt) && cur.NextServiceName == prev.NextServiceName {
		return
	}
	if w.clock.Now().Before(prev.StartsAt) {
		return
	}

	if !w.store.Record(state.Start{Schedule: schedule, Service: prev.NextServiceName, StartsAt: prev.StartsAt}) {
		return
	}

	telemetry.ServiceStartsTotal.WithLabelValues(schedule, prev.NextServiceName).Inc()
	w.logger.Info().
		Str("schedule", schedule).
		Str("service", prev.NextServiceName).
		Time("starts_at", prev.StartsAt).
		Msg("service started")

	payload := events.Payload{
		"schedule":  schedule,
		"service":   prev.NextServiceName,
		"starts_at": prev.StartsAt.Format(time.RFC3339),
	}
	if !cur.IsZero() {
		payload["next_service"] = cur.NextServiceName
		payload["next_starts_at"] = cur.StartsAt.Format(time.RFC3339)
	}
	w.bus.Publish(events.EventServiceStarted, payload)
}
