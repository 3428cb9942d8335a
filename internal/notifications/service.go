/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/ministry_platform/internal/config"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/markdown"
	"github.com/friendsincode/ministry_platform/internal/models"
	"github.com/friendsincode/ministry_platform/internal/telemetry"
)

// Email kinds, used as the metric label.
const (
	KindPrayer       = "prayer"
	KindContact      = "contact"
	KindVolunteer    = "volunteer"
	KindRegistration = "registration"
	KindReceipt      = "receipt"
	KindDigest       = "prayer_digest"
)

// Service turns site activity into email: staff alerts for form submissions,
// event registration confirmations, donation receipts and the daily prayer
// digest.
type Service struct {
	sender     Sender
	bus        *events.Bus
	adminEmail string
	logger     zerolog.Logger
}

// NewService creates a notification service. Alerts are skipped when
// adminEmail is empty; confirmations and receipts still go out.
func NewService(sender Sender, bus *events.Bus, adminEmail string, logger zerolog.Logger) *Service {
	return &Service{
		sender:     sender,
		bus:        bus,
		adminEmail: adminEmail,
		logger:     logger.With().Str("component", "notifications").Logger(),
	}
}

// SenderFromConfig picks the Resend sender when a key is configured.
func SenderFromConfig(cfg *config.Config, logger zerolog.Logger) Sender {
	if cfg.ResendAPIKey == "" {
		return NewLogSender(logger)
	}
	return NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
}

type handler func(ctx context.Context, p events.Payload) error

// Run consumes bus events until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	handlers := map[events.EventType]handler{
		events.EventPrayerSubmitted:  s.prayerAlert,
		events.EventContactReceived:  s.contactAlert,
		events.EventVolunteerApplied: s.volunteerAlert,
		events.EventEventRegistered:  s.registrationConfirm,
		events.EventPaymentCompleted: s.receipt,
	}

	var wg sync.WaitGroup
	for eventType, h := range handlers {
		sub := s.bus.Subscribe(eventType)
		wg.Add(1)
		go func(eventType events.EventType, sub events.Subscriber, h handler) {
			defer wg.Done()
			defer s.bus.Unsubscribe(eventType, sub)
			for {
				select {
				case <-ctx.Done():
					return
				case p, ok := <-sub:
					if !ok {
						return
					}
					if err := h(ctx, p); err != nil {
						s.logger.Warn().Err(err).Str("event", string(eventType)).Msg("notification failed")
					}
				}
			}
		}(eventType, sub, h)
	}

	s.logger.Info().Int("events", len(handlers)).Msg("notification service started")
	wg.Wait()
	return nil
}

func (s *Service) send(ctx context.Context, kind string, msg Message) error {
	err := s.sender.Send(ctx, msg)
	result := "sent"
	switch {
	case errors.Is(err, ErrNoRecipient):
		result = "skipped"
		err = nil
	case err != nil:
		result = "error"
	}
	telemetry.EmailsSentTotal.WithLabelValues(kind, result).Inc()
	return err
}

func (s *Service) alert(ctx context.Context, kind, subject, body, replyTo string) error {
	if s.adminEmail == "" {
		telemetry.EmailsSentTotal.WithLabelValues(kind, "skipped").Inc()
		return nil
	}
	return s.send(ctx, kind, Message{
		To:      []string{s.adminEmail},
		ReplyTo: replyTo,
		Subject: subject,
		HTML:    markdown.MustRender(body),
	})
}

func (s *Service) prayerAlert(ctx context.Context, p events.Payload) error {
	name := str(p, "name")
	if b, _ := p["is_anonymous"].(bool); b {
		name = "Anonymous"
	}
	body := fmt.Sprintf("**From:** %s\n\n%s", escape(name), quote(str(p, "request")))
	return s.alert(ctx, KindPrayer, subject(p, "New prayer request"), body, str(p, "email"))
}

func (s *Service) contactAlert(ctx context.Context, p events.Payload) error {
	body := fmt.Sprintf("**From:** %s (%s)\n**Subject:** %s\n\n%s",
		escape(str(p, "name")), escape(str(p, "email")), escape(str(p, "subject")), quote(str(p, "message")))
	return s.alert(ctx, KindContact, subject(p, "New contact message"), body, str(p, "email"))
}

func (s *Service) volunteerAlert(ctx context.Context, p events.Payload) error {
	body := fmt.Sprintf("**Name:** %s\n**Email:** %s\n**Phone:** %s\n**Ministry:** %s\n**Availability:** %s\n\n%s",
		escape(str(p, "name")), escape(str(p, "email")), escape(str(p, "phone")),
		escape(str(p, "ministry")), escape(str(p, "availability")), quote(str(p, "message")))
	return s.alert(ctx, KindVolunteer, subject(p, "New volunteer application"), body, str(p, "email"))
}

func (s *Service) registrationConfirm(ctx context.Context, p events.Payload) error {
	email := str(p, "email")
	if email == "" {
		return s.send(ctx, KindRegistration, Message{})
	}
	body := fmt.Sprintf("Hi %s,\n\nYou're registered for **%s** on %s %s.\n\nWe look forward to seeing you.",
		escape(str(p, "name")), escape(str(p, "event_title")), escape(str(p, "date")), escape(str(p, "time")))
	return s.send(ctx, KindRegistration, Message{
		To:      []string{email},
		Subject: subject(p, "Registration confirmed: "+str(p, "event_title")),
		HTML:    markdown.MustRender(body),
	})
}

func (s *Service) receipt(ctx context.Context, p events.Payload) error {
	email := str(p, "email")
	if email == "" {
		return s.send(ctx, KindReceipt, Message{})
	}
	amount, _ := p["amount"].(float64)
	body := fmt.Sprintf("Thank you for your gift of **%.2f %s** to %s.\n\nReference: `%s`",
		amount, strings.ToUpper(str(p, "currency")), escape(str(p, "category")), str(p, "session_id"))
	return s.send(ctx, KindReceipt, Message{
		To:      []string{email},
		Subject: subject(p, "Thank you for your gift"),
		HTML:    markdown.MustRender(body),
	})
}

// SendPrayerDigest emails staff the prayer requests received for one brand.
func (s *Service) SendPrayerDigest(ctx context.Context, brand models.Brand, prayers []models.PrayerRequest) error {
	if len(prayers) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## %d new prayer request(s) for %s\n\n", len(prayers), escape(brand.Name))
	for _, pr := range prayers {
		name := pr.Name
		if pr.IsAnonymous {
			name = "Anonymous"
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", escape(name), quote(pr.Request))
	}
	return s.alert(ctx, KindDigest, fmt.Sprintf("[%s] Prayer digest", brand.Name), b.String(), "")
}

func subject(p events.Payload, base string) string {
	if brand := str(p, "brand_name"); brand != "" {
		return "[" + brand + "] " + base
	}
	return base
}

func str(p events.Payload, key string) string {
	v, _ := p[key].(string)
	return v
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`,
)

func escape(s string) string {
	return mdEscaper.Replace(strings.TrimSpace(s))
}

// quote renders user text as a blockquote.
func quote(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "> " + escape(line)
	}
	return strings.Join(lines, "\n")
}
