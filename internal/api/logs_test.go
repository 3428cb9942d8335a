package api

import (
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/ministry_platform/internal/logbuffer"
)

func TestLogsEndpoint(t *testing.T) {
	buf := logbuffer.New(16)
	h := newHarness(t, func(d *Deps) { d.Logs = buf })

	logger := zerolog.New(buf)
	logger.Info().Str("component", "scheduler").Msg("reminders queued")
	logger.Error().Str("component", "notifications").Str("brand_id", "b1").Msg("send failed")

	expectError(t, h.do(http.MethodGet, "/api/v1/logs", "", nil), http.StatusUnauthorized, "unauthorized")

	rec := h.do(http.MethodGet, "/api/v1/logs?level=error", h.adminToken(), nil)
	expectStatus(t, rec, http.StatusOK)
	got := decodeBody[struct {
		Entries []logbuffer.Entry `json:"entries"`
		Count   int               `json:"count"`
	}](t, rec)
	if got.Count != 1 || got.Entries[0].Message != "send failed" || got.Entries[0].BrandID != "b1" {
		t.Fatalf("logs = %+v", got)
	}

	expectError(t, h.do(http.MethodGet, "/api/v1/logs?since=yesterday", h.adminToken(), nil), http.StatusBadRequest, "invalid_since")

	rec = h.do(http.MethodGet, "/api/v1/logs/stats", h.adminToken(), nil)
	expectStatus(t, rec, http.StatusOK)
	stats := decodeBody[logbuffer.Stats](t, rec)
	if stats.Count != 2 || stats.Levels["error"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestLogsUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	expectError(t, h.do(http.MethodGet, "/api/v1/logs", h.adminToken(), nil), http.StatusServiceUnavailable, "logs_unavailable")
}
