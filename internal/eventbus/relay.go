/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus mirrors selected in-process events to other instances.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/ministry_platform/internal/config"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/telemetry"
)

// SubjectPrefix namespaces relayed events on the transport.
const SubjectPrefix = "ministry.events."

// OriginKey marks payloads injected from another instance so they are not
// relayed again.
const OriginKey = "origin_node"

// Transport moves encoded messages between instances.
type Transport interface {
	Name() string
	Publish(ctx context.Context, subject string, data []byte) error
	// Receive delivers messages for every relayed subject until ctx is done.
	Receive(ctx context.Context, handle func(subject string, data []byte)) error
	Close() error
}

type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

func unmarshalMessage(data []byte) (*message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal relay message: %w", err)
	}
	return &msg, nil
}

// Relay forwards local events to the transport and injects remote events
// into the local bus.
type Relay struct {
	bus       *events.Bus
	transport Transport
	nodeID    string
	types     []events.EventType
	logger    zerolog.Logger
}

// NewRelay creates a relay for the given event types. An empty nodeID gets a
// random one.
func NewRelay(bus *events.Bus, transport Transport, nodeID string, types []events.EventType, logger zerolog.Logger) *Relay {
	if nodeID == "" {
		nodeID = uuid.NewString()
	}
	return &Relay{
		bus:       bus,
		transport: transport,
		nodeID:    nodeID,
		types:     types,
		logger:    logger.With().Str("component", "event_relay").Str("backend", transport.Name()).Logger(),
	}
}

// NodeID returns this instance's relay identity.
func (r *Relay) NodeID() string {
	return r.nodeID
}

// Run relays events until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	wanted := make(map[events.EventType]bool, len(r.types))
	for _, t := range r.types {
		wanted[t] = true
	}

	var wg sync.WaitGroup
	for _, eventType := range r.types {
		sub := r.bus.Subscribe(eventType)
		wg.Add(1)
		go func(eventType events.EventType, sub events.Subscriber) {
			defer wg.Done()
			defer r.bus.Unsubscribe(eventType, sub)
			for {
				select {
				case <-ctx.Done():
					return
				case p, ok := <-sub:
					if !ok {
						return
					}
					r.forward(ctx, eventType, p)
				}
			}
		}(eventType, sub)
	}

	r.logger.Info().Str("node_id", r.nodeID).Int("events", len(r.types)).Msg("event relay started")
	err := r.transport.Receive(ctx, func(subject string, data []byte) {
		r.inject(wanted, subject, data)
	})
	wg.Wait()
	r.logger.Info().Msg("event relay stopped")
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (r *Relay) forward(ctx context.Context, eventType events.EventType, p events.Payload) {
	if origin, _ := p[OriginKey].(string); origin != "" {
		return
	}
	data, err := marshalMessage(eventType, p, r.nodeID)
	if err != nil {
		r.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to marshal event")
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.transport.Publish(pubCtx, SubjectPrefix+string(eventType), data); err != nil {
		r.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("failed to relay event")
		return
	}
	telemetry.EventRelayTotal.WithLabelValues(r.transport.Name(), "out").Inc()
}

func (r *Relay) inject(wanted map[events.EventType]bool, subject string, data []byte) {
	msg, err := unmarshalMessage(data)
	if err != nil {
		r.logger.Warn().Err(err).Str("subject", subject).Msg("dropping malformed relay message")
		return
	}
	if msg.NodeID == r.nodeID {
		return
	}
	if !wanted[msg.EventType] || strings.TrimPrefix(subject, SubjectPrefix) != string(msg.EventType) {
		return
	}
	payload := msg.Payload
	if payload == nil {
		payload = events.Payload{}
	}
	payload[OriginKey] = msg.NodeID
	r.bus.Publish(msg.EventType, payload)
	telemetry.EventRelayTotal.WithLabelValues(r.transport.Name(), "in").Inc()
	r.logger.Debug().Str("event_type", string(msg.EventType)).Str("source_node", msg.NodeID).Msg("relayed remote event")
}

// NewTransport builds the transport for the configured backend. The memory
// backend has no transport and returns nil.
func NewTransport(cfg *config.Config, logger zerolog.Logger) (Transport, error) {
	switch cfg.EventBusBackend {
	case config.EventBusRedis:
		t, err := NewRedisTransport(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.EventBusNATS:
		t, err := NewNATSTransport(NATSConfig{URL: cfg.NATSURL, Name: "ministry-" + cfg.InstanceID}, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.EventBusMemory, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported event bus backend %q", cfg.EventBusBackend)
	}
}
