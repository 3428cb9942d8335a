/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Fake is an in-memory Provider for tests and local development. Webhooks
// are JSON WebhookEvent bodies signed with the literal secret.
type Fake struct {
	Secret string

	mu       sync.Mutex
	seq      int
	sessions map[string]*Session
	Requests []CheckoutRequest
}

// NewFake creates a fake provider.
func NewFake(secret string) *Fake {
	return &Fake{Secret: secret, sessions: make(map[string]*Session)}
}

// CreateCheckout records the request and opens an unpaid session.
func (f *Fake) CreateCheckout(_ context.Context, req CheckoutRequest) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("cs_test_%d", f.seq)
	s := &Session{
		ID:            id,
		URL:           "https://checkout.test/" + id,
		Status:        "open",
		PaymentStatus: "unpaid",
		AmountTotal:   req.AmountCents,
		Currency:      req.Currency,
		Metadata:      req.Metadata,
	}
	f.sessions[id] = s
	f.Requests = append(f.Requests, req)
	cp := *s
	return &cp, nil
}

// GetSession returns the stored session.
func (f *Fake) GetSession(_ context.Context, id string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// SetStatus changes a session as the processor would.
func (f *Fake) SetStatus(id, status, paymentStatus string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.Status = status
		s.PaymentStatus = paymentStatus
	}
}

// ParseWebhook checks the signature against Secret and decodes payload.
func (f *Fake) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if signature != f.Secret {
		return nil, ErrInvalidSignature
	}
	var ev WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	return &ev, nil
}
