/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("no recipient")

// Message is one outbound email.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendSender sends through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a Resend-backed sender.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

// Send implements Sender.
func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipient
	}
	req := &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if msg.ReplyTo != "" {
		req.ReplyTo = msg.ReplyTo
	}
	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. Used when no
// email provider is configured.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "email").Logger()}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipient
	}
	s.logger.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("email not sent, no provider configured")
	return nil
}
