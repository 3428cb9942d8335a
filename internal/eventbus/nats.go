package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Name          string
	Token         string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "ministry",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSTransport relays over core NATS subjects.
type NATSTransport struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSTransport connects to NATS. Zero fields take DefaultNATSConfig
// values.
func NewNATSTransport(cfg NATSConfig, logger zerolog.Logger) (*NATSTransport, error) {
	def := DefaultNATSConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = def.MaxReconnects
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = def.ReconnectWait
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info().Str("url", conn.ConnectedUrl()).Msg("nats event transport connected")
	return &NATSTransport{conn: conn, logger: logger}, nil
}

// Name implements Transport.
func (t *NATSTransport) Name() string { return "nats" }

// Publish implements Transport.
func (t *NATSTransport) Publish(_ context.Context, subject string, data []byte) error {
	return t.conn.Publish(subject, data)
}

// Receive implements Transport.
func (t *NATSTransport) Receive(ctx context.Context, handle func(subject string, data []byte)) error {
	sub, err := t.conn.Subscribe(SubjectPrefix+">", func(m *nats.Msg) {
		handle(m.Subject, m.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

// Close implements Transport.
func (t *NATSTransport) Close() error {
	return t.conn.Drain()
}
