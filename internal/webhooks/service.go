/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/ministry_platform/internal/countdown"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
	"github.com/friendsincode/ministry_platform/internal/telemetry"
)

// Delivery headers.
const (
	HeaderEvent     = "X-Ministry-Event"
	HeaderTimestamp = "X-Ministry-Timestamp"
	HeaderSignature = "X-Ministry-Signature"
	HeaderDelivery  = "X-Ministry-Delivery"
)

// EventTest is sent by TestWebhook.
const EventTest = "test"

const maxLoggedResponse = 1024

// Payload is the JSON body posted to webhook targets.
type Payload struct {
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	BrandID   string         `json:"brand_id"`
	Data      map[string]any `json:"data"`
}

// Service delivers outbound webhooks for bus events.
type Service struct {
	db      *gorm.DB
	bus     *events.Bus
	catalog *countdown.Catalog
	logger  zerolog.Logger
	client  *http.Client
	now     func() time.Time

	inflight sync.WaitGroup
}

// NewService creates a webhook service. The catalog maps service.started
// events, which are keyed by schedule name, to the brands using that
// schedule.
func NewService(db *gorm.DB, bus *events.Bus, catalog *countdown.Catalog, logger zerolog.Logger) *Service {
	return &Service{
		db:      db,
		bus:     bus,
		catalog: catalog,
		logger:  logger.With().Str("component", "webhooks").Logger(),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// Run listens for events until ctx is done. In-flight deliveries finish
// before Run returns.
func (s *Service) Run(ctx context.Context) error {
	started := s.bus.Subscribe(events.EventServiceStarted)
	paid := s.bus.Subscribe(events.EventPaymentCompleted)
	prayer := s.bus.Subscribe(events.EventPrayerSubmitted)
	defer func() {
		s.bus.Unsubscribe(events.EventServiceStarted, started)
		s.bus.Unsubscribe(events.EventPaymentCompleted, paid)
		s.bus.Unsubscribe(events.EventPrayerSubmitted, prayer)
		s.inflight.Wait()
	}()

	s.logger.Info().Msg("webhook service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("webhook service stopping")
			return nil
		case p := <-started:
			for _, brandID := range s.brandsForSchedule(ctx, str(p, "schedule")) {
				s.Fire(ctx, brandID, models.WebhookEventServiceStarted, p)
			}
		case p := <-paid:
			s.Fire(ctx, str(p, "brand_id"), models.WebhookEventPaymentCompleted, publicPayment(p))
		case p := <-prayer:
			if anon, _ := p["is_anonymous"].(bool); anon {
				continue
			}
			s.Fire(ctx, str(p, "brand_id"), models.WebhookEventPrayerSubmitted, publicPrayer(p))
		}
	}
}

// brandsForSchedule returns the brands whose domain resolves to schedule.
func (s *Service) brandsForSchedule(ctx context.Context, schedule string) []string {
	if schedule == "" || s.catalog == nil {
		return nil
	}
	var brands []models.Brand
	if err := s.db.WithContext(ctx).Select("id", "domain").Find(&brands).Error; err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch brands")
		return nil
	}
	var ids []string
	for _, b := range brands {
		if s.catalog.For(b.Domain).Name == schedule {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// Fire delivers event to every active target of the brand that wants it.
// Deliveries run in the background.
func (s *Service) Fire(ctx context.Context, brandID string, event models.WebhookEventType, data map[string]any) {
	if brandID == "" {
		return
	}
	var targets []models.WebhookTarget
	if err := s.db.WithContext(ctx).Where("brand_id = ? AND active = ?", brandID, true).Find(&targets).Error; err != nil {
		s.logger.Error().Err(err).Str("brand_id", brandID).Msg("failed to fetch webhooks")
		return
	}

	for _, target := range targets {
		if !target.Wants(event) {
			continue
		}
		s.inflight.Add(1)
		go func(target models.WebhookTarget) {
			defer s.inflight.Done()
			if err := s.Deliver(context.WithoutCancel(ctx), target, string(event), data); err != nil {
				s.logger.Warn().Err(err).Str("webhook", target.ID).Str("event", string(event)).Msg("webhook delivery failed")
			}
		}(target)
	}
}

// Wait blocks until background deliveries finish.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Deliver posts one payload to target and records the attempt.
func (s *Service) Deliver(ctx context.Context, target models.WebhookTarget, event string, data map[string]any) error {
	now := s.now().UTC()
	body, err := json.Marshal(Payload{
		Event:     event,
		Timestamp: now,
		BrandID:   target.BrandID,
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		s.record(ctx, target, event, body, 0, "", err, 0)
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Ministry-Platform-Webhook/1.0")
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(now.Unix(), 10))
	req.Header.Set(HeaderDelivery, uuid.NewString())
	if target.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(body, target.Secret))
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	took := time.Since(start)
	if err != nil {
		s.record(ctx, target, event, body, 0, "", err, took)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedResponse))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	s.record(ctx, target, event, body, resp.StatusCode, string(snippet), err, took)
	if err == nil {
		s.logger.Debug().Str("webhook", target.ID).Str("event", event).Int("status", resp.StatusCode).Msg("webhook delivered")
	}
	return err
}

// TestWebhook sends a sample payload to target.
func (s *Service) TestWebhook(ctx context.Context, target models.WebhookTarget) error {
	return s.Deliver(ctx, target, EventTest, map[string]any{
		"message": "This is a test webhook delivery",
	})
}

// Sign returns the HMAC-SHA256 signature header value for body.
func Sign(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature produced by Sign.
func Verify(body []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}

func (s *Service) record(ctx context.Context, target models.WebhookTarget, event string, body []byte, status int, response string, deliveryErr error, took time.Duration) {
	result := "ok"
	entry := &models.WebhookLog{
		ID:         uuid.NewString(),
		TargetID:   target.ID,
		Event:      event,
		Payload:    string(body),
		StatusCode: status,
		Response:   response,
		Duration:   int(took.Milliseconds()),
	}
	if deliveryErr != nil {
		result = "error"
		entry.Error = deliveryErr.Error()
	}
	telemetry.WebhookDeliveriesTotal.WithLabelValues(event, result).Inc()

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Error().Err(err).Msg("failed to log webhook delivery")
	}
}

func publicPayment(p events.Payload) map[string]any {
	out := map[string]any{}
	for _, k := range []string{"resource_id", "session_id", "amount", "currency", "category", "donor_name"} {
		if v, ok := p[k]; ok {
			out[k] = v
		}
	}
	return out
}

func publicPrayer(p events.Payload) map[string]any {
	return map[string]any{
		"id":      p["resource_id"],
		"name":    p["name"],
		"request": p["request"],
	}
}

func str(p events.Payload, key string) string {
	v, _ := p[key].(string)
	return v
}
