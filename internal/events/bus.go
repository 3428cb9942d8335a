/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventServiceStarted   EventType = "service.started"
	EventPaymentCompleted EventType = "payment.completed"
	EventPaymentFailed    EventType = "payment.failed"
	EventPrayerSubmitted  EventType = "prayer.submitted"
	EventContactReceived  EventType = "contact.received"
	EventVolunteerApplied EventType = "volunteer.applied"
	EventEventRegistered  EventType = "event.registered"

	// Cache invalidation events
	EventBrandUpdated EventType = "cache.brand_updated"
	EventBrandDeleted EventType = "cache.brand_deleted"

	// Audit events
	EventAuditBrandCreate   EventType = "audit.brand.create"
	EventAuditBrandUpdate   EventType = "audit.brand.update"
	EventAuditBrandDelete   EventType = "audit.brand.delete"
	EventAuditContentCreate EventType = "audit.content.create"
	EventAuditContentUpdate EventType = "audit.content.update"
	EventAuditContentDelete EventType = "audit.content.delete"
	EventAuditDonation      EventType = "audit.donation.record"
	EventAuditPrayerStatus  EventType = "audit.prayer.status"
	EventAuditAPIKeyCreate  EventType = "audit.apikey.create"
	EventAuditAPIKeyRevoke  EventType = "audit.apikey.revoke"
	EventAuditWebhookCreate EventType = "audit.webhook.create"
	EventAuditWebhookDelete EventType = "audit.webhook.delete"
)

// ClusterEvents are mirrored between instances by the relay. Only cache
// invalidation crosses; every other event is handled where it is published.
var ClusterEvents = []EventType{
	EventBrandUpdated,
	EventBrandDeleted,
}

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers miss events.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	b.subs[eventType] = subs
}
