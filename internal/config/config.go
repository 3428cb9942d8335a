/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"net/netip"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Event bus backends for relaying events between instances.
const (
	EventBusMemory = "memory"
	EventBusRedis  = "redis"
	EventBusNATS   = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment     string
	HTTPBind        string
	HTTPPort        int
	BaseURL         string // Public site URL used for checkout return links
	DBBackend       DatabaseBackend
	DBDSN           string
	MediaRoot       string
	JWTSigningKey   string
	JWTTTL          time.Duration
	CORSOrigins     []string
	MaxUploadSizeMB int

	// Peers allowed to set X-Forwarded-For / X-Real-IP. Empty means proxy
	// headers are ignored and the socket address identifies the client.
	TrustedProxies []netip.Prefix

	// Service schedule
	ScheduleFile     string // YAML catalog; empty uses the compiled-in schedule
	ScheduleTimezone string // IANA zone used when the catalog names none

	// S3 Object Storage configuration
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3PublicBaseURL   string // Optional CDN/CloudFront URL
	S3UsePathStyle    bool   // Required for MinIO

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	LeaderElectionEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	InstanceID            string
	EventBusBackend       string
	NATSURL               string

	// Payments
	StripeAPIKey        string
	StripeWebhookSecret string
	Currency            string

	// Email
	ResendAPIKey     string
	EmailFrom        string
	AdminNotifyEmail string

	// Public form throttling
	PublicRateLimitPerMinute int
	PublicRateLimitBurst     int

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:     getEnvAny([]string{"MINISTRY_ENV"}, "development"),
		HTTPBind:        getEnvAny([]string{"MINISTRY_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:        getEnvIntAny([]string{"MINISTRY_HTTP_PORT", "PORT"}, 8001),
		BaseURL:         strings.TrimRight(getEnvAny([]string{"MINISTRY_BASE_URL", "FRONTEND_URL"}, ""), "/"),
		DBBackend:       DatabaseBackend(getEnvAny([]string{"MINISTRY_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:           getEnvAny([]string{"MINISTRY_DB_DSN", "DATABASE_URL"}, ""),
		MediaRoot:       getEnvAny([]string{"MINISTRY_MEDIA_ROOT"}, "./media"),
		JWTSigningKey:   getEnvAny([]string{"MINISTRY_JWT_SIGNING_KEY", "JWT_SECRET"}, ""),
		JWTTTL:          time.Duration(getEnvIntAny([]string{"MINISTRY_JWT_TTL_HOURS"}, 24)) * time.Hour,
		CORSOrigins:     splitList(getEnvAny([]string{"MINISTRY_CORS_ORIGINS", "CORS_ORIGINS"}, "*")),
		MaxUploadSizeMB: getEnvIntAny([]string{"MINISTRY_MAX_UPLOAD_SIZE_MB"}, 10),

		ScheduleFile:     getEnvAny([]string{"MINISTRY_SCHEDULE_FILE"}, ""),
		ScheduleTimezone: getEnvAny([]string{"MINISTRY_SCHEDULE_TIMEZONE", "TZ"}, ""),

		S3AccessKeyID:     getEnvAny([]string{"MINISTRY_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"MINISTRY_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"MINISTRY_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"MINISTRY_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"MINISTRY_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3PublicBaseURL:   getEnvAny([]string{"MINISTRY_S3_PUBLIC_BASE_URL", "S3_PUBLIC_BASE_URL"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"MINISTRY_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		TracingEnabled:    getEnvBoolAny([]string{"MINISTRY_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"MINISTRY_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"MINISTRY_TRACING_SAMPLE_RATE"}, 1.0),

		LeaderElectionEnabled: getEnvBoolAny([]string{"MINISTRY_LEADER_ELECTION_ENABLED"}, false),
		RedisAddr:             getEnvAny([]string{"MINISTRY_REDIS_ADDR", "REDIS_ADDR"}, "localhost:6379"),
		RedisPassword:         getEnvAny([]string{"MINISTRY_REDIS_PASSWORD", "REDIS_PASSWORD"}, ""),
		RedisDB:               getEnvIntAny([]string{"MINISTRY_REDIS_DB"}, 0),
		InstanceID:            getEnvAny([]string{"MINISTRY_INSTANCE_ID", "HOSTNAME"}, ""),
		EventBusBackend:       strings.ToLower(getEnvAny([]string{"MINISTRY_EVENT_BUS"}, EventBusMemory)),
		NATSURL:               getEnvAny([]string{"MINISTRY_NATS_URL", "NATS_URL"}, "nats://localhost:4222"),

		StripeAPIKey:        getEnvAny([]string{"MINISTRY_STRIPE_API_KEY", "STRIPE_API_KEY"}, ""),
		StripeWebhookSecret: getEnvAny([]string{"MINISTRY_STRIPE_WEBHOOK_SECRET", "STRIPE_WEBHOOK_SECRET"}, ""),
		Currency:            strings.ToLower(getEnvAny([]string{"MINISTRY_CURRENCY"}, "usd")),

		ResendAPIKey:     getEnvAny([]string{"MINISTRY_RESEND_API_KEY", "RESEND_API_KEY"}, ""),
		EmailFrom:        getEnvAny([]string{"MINISTRY_EMAIL_FROM"}, "Ministry <noreply@example.org>"),
		AdminNotifyEmail: getEnvAny([]string{"MINISTRY_ADMIN_NOTIFY_EMAIL"}, ""),

		PublicRateLimitPerMinute: getEnvIntAny([]string{"MINISTRY_PUBLIC_RATE_LIMIT_PER_MINUTE"}, 30),
		PublicRateLimitBurst:     getEnvIntAny([]string{"MINISTRY_PUBLIC_RATE_LIMIT_BURST"}, 10),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("MINISTRY_DB_DSN or DATABASE_URL must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("MINISTRY_JWT_SIGNING_KEY or JWT_SECRET must be provided")
	}

	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("MINISTRY_JWT_TTL_HOURS must be positive")
	}

	switch cfg.EventBusBackend {
	case EventBusMemory, EventBusRedis, EventBusNATS:
	default:
		return nil, fmt.Errorf("unsupported event bus backend %q", cfg.EventBusBackend)
	}

	if strings.EqualFold(cfg.Environment, "production") {
		if cfg.StripeAPIKey != "" && cfg.StripeWebhookSecret == "" {
			return nil, fmt.Errorf("MINISTRY_STRIPE_WEBHOOK_SECRET is required when Stripe is enabled in production")
		}
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("MINISTRY_BASE_URL must be set in production")
		}
	}

	if cfg.PublicRateLimitPerMinute < 0 || cfg.PublicRateLimitBurst < 0 {
		return nil, fmt.Errorf("public rate limit values must not be negative")
	}

	proxies, err := parsePrefixes(splitList(getEnvAny([]string{"MINISTRY_TRUSTED_PROXIES"}, "")))
	if err != nil {
		return nil, fmt.Errorf("MINISTRY_TRUSTED_PROXIES: %w", err)
	}
	cfg.TrustedProxies = proxies

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"MONGO_URL":       "MongoDB is no longer supported; set MINISTRY_DB_BACKEND and MINISTRY_DB_DSN",
		"DB_NAME":         "database name belongs in MINISTRY_DB_DSN",
		"JWT_SECRET":      "use MINISTRY_JWT_SIGNING_KEY",
		"STRIPE_API_KEY":  "use MINISTRY_STRIPE_API_KEY",
		"CORS_ORIGINS":    "use MINISTRY_CORS_ORIGINS",
		"ENVIRONMENT":     "use MINISTRY_ENV",
		"TRACING_ENABLED": "use MINISTRY_TRACING_ENABLED",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	sort.Strings(warnings)
	return warnings
}

// MaxUploadSizeBytes returns the configured upload limit in bytes.
// A value of 0 means "not configured" and callers should use endpoint defaults.
func (c *Config) MaxUploadSizeBytes() int64 {
	if c == nil || c.MaxUploadSizeMB <= 0 {
		return 0
	}
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// PaymentsEnabled reports whether a checkout provider is configured.
func (c *Config) PaymentsEnabled() bool { return c.StripeAPIKey != "" }

// parsePrefixes accepts CIDRs or bare addresses, which become single-host
// prefixes.
func parsePrefixes(items []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(items))
	for _, item := range items {
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
