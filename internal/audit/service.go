/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
)

// actions maps bus events to the audit action they record.
var actions = map[events.EventType]models.AuditAction{
	events.EventAuditBrandCreate:   models.AuditActionBrandCreate,
	events.EventAuditBrandUpdate:   models.AuditActionBrandUpdate,
	events.EventAuditBrandDelete:   models.AuditActionBrandDelete,
	events.EventAuditContentCreate: models.AuditActionContentCreate,
	events.EventAuditContentUpdate: models.AuditActionContentUpdate,
	events.EventAuditContentDelete: models.AuditActionContentDelete,
	events.EventAuditDonation:      models.AuditActionDonationRecord,
	events.EventAuditPrayerStatus:  models.AuditActionPrayerStatus,
	events.EventAuditAPIKeyCreate:  models.AuditActionAPIKeyCreate,
	events.EventAuditAPIKeyRevoke:  models.AuditActionAPIKeyRevoke,
	events.EventAuditWebhookCreate: models.AuditActionWebhookCreate,
	events.EventAuditWebhookDelete: models.AuditActionWebhookDelete,
	events.EventPaymentCompleted:   models.AuditActionPaymentSettle,
	events.EventPaymentFailed:      models.AuditActionPaymentFail,
}

// Service records admin mutations published on the bus.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

type entryEvent struct {
	action  models.AuditAction
	payload events.Payload
}

// Run subscribes to the audit events and stores them until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	merged := make(chan entryEvent, 16)
	subs := make(map[events.EventType]events.Subscriber, len(actions))
	for eventType, action := range actions {
		sub := s.bus.Subscribe(eventType)
		subs[eventType] = sub
		go func(action models.AuditAction, sub events.Subscriber) {
			for payload := range sub {
				select {
				case merged <- entryEvent{action: action, payload: payload}:
				case <-ctx.Done():
					return
				}
			}
		}(action, sub)
	}
	defer func() {
		for eventType, sub := range subs {
			s.bus.Unsubscribe(eventType, sub)
		}
	}()

	s.logger.Info().Int("events", len(subs)).Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return nil
		case ev := <-merged:
			s.logAuditEntry(ctx, ev.action, ev.payload)
		}
	}
}

func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, payload events.Payload) {
	entry := &models.AuditLog{
		Action:  action,
		Details: make(map[string]any),
	}

	if actorID, ok := payload["actor_id"].(string); ok && actorID != "" {
		entry.ActorID = &actorID
	}
	if brandID, ok := payload["brand_id"].(string); ok && brandID != "" {
		entry.BrandID = &brandID
	}
	entry.ActorEmail, _ = payload["actor_email"].(string)
	entry.ResourceType, _ = payload["resource_type"].(string)
	entry.ResourceID, _ = payload["resource_id"].(string)
	entry.IPAddress, _ = payload["ip_address"].(string)
	entry.UserAgent, _ = payload["user_agent"].(string)

	for k, v := range payload {
		switch k {
		case "actor_id", "actor_email", "brand_id", "resource_type", "resource_id", "ip_address", "user_agent":
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly.
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	now := time.Now()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")
	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	ActorID   *string
	BrandID   *string
	Action    *models.AuditAction
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Query returns matching entries, newest first, and the unpaged total.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if filters.ActorID != nil {
		query = query.Where("actor_id = ?", *filters.ActorID)
	}
	if filters.BrandID != nil {
		query = query.Where("brand_id = ?", *filters.BrandID)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query = query.Limit(limit)
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
