package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/ministry_platform/internal/countdown"
	"github.com/friendsincode/ministry_platform/internal/db"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
)

type received struct {
	headers http.Header
	body    []byte
}

type sink struct {
	mu     sync.Mutex
	got    []received
	status int
}

func (s *sink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.got = append(s.got, received{headers: r.Header.Clone(), body: body})
	status := s.status
	s.mu.Unlock()
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func setup(t *testing.T) (*gorm.DB, *events.Bus, *countdown.Catalog) {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := database.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	catalog, err := countdown.ParseCatalog([]byte(`
brands:
  hope.example:
    slots:
      - {name: Vespers, start: "18:00", days: daily}
`), time.UTC)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return database, events.NewBus(), catalog
}

func TestDeliverSignsAndLogs(t *testing.T) {
	database, bus, catalog := setup(t)
	rcv := &sink{}
	srv := httptest.NewServer(rcv)
	defer srv.Close()

	svc := NewService(database, bus, catalog, zerolog.Nop())
	target := models.NewWebhookTarget("brand-1", srv.URL, "")
	if err := database.Create(target).Error; err != nil {
		t.Fatalf("create target: %v", err)
	}

	if err := svc.TestWebhook(context.Background(), *target); err != nil {
		t.Fatalf("TestWebhook: %v", err)
	}
	if rcv.count() != 1 {
		t.Fatalf("received %d deliveries, want 1", rcv.count())
	}
	got := rcv.got[0]
	if got.headers.Get(HeaderEvent) != EventTest {
		t.Fatalf("event header = %q", got.headers.Get(HeaderEvent))
	}
	if !Verify(got.body, target.Secret, got.headers.Get(HeaderSignature)) {
		t.Fatal("signature did not verify")
	}
	var payload Payload
	if err := json.Unmarshal(got.body, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.BrandID != "brand-1" || payload.Event != EventTest {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	var logs []models.WebhookLog
	database.Find(&logs)
	if len(logs) != 1 || logs[0].StatusCode != http.StatusNoContent || logs[0].Error != "" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}

func TestDeliverRecordsErrorStatus(t *testing.T) {
	database, bus, catalog := setup(t)
	rcv := &sink{status: http.StatusBadGateway}
	srv := httptest.NewServer(rcv)
	defer srv.Close()

	svc := NewService(database, bus, catalog, zerolog.Nop())
	target := models.NewWebhookTarget("brand-1", srv.URL, "")
	if err := svc.Deliver(context.Background(), *target, "payment.completed", nil); err == nil {
		t.Fatal("expected error for 502 response")
	}
	var entry models.WebhookLog
	if err := database.First(&entry).Error; err != nil {
		t.Fatalf("load log: %v", err)
	}
	if entry.StatusCode != http.StatusBadGateway || entry.Error == "" {
		t.Fatalf("unexpected log: %+v", entry)
	}
}

func TestFireFiltersByEventAndActive(t *testing.T) {
	database, bus, catalog := setup(t)
	rcv := &sink{}
	srv := httptest.NewServer(rcv)
	defer srv.Close()

	svc := NewService(database, bus, catalog, zerolog.Nop())
	wants := models.NewWebhookTarget("brand-1", srv.URL, "payment.completed")
	other := models.NewWebhookTarget("brand-1", srv.URL, "service.started")
	inactive := models.NewWebhookTarget("brand-1", srv.URL, "")
	for _, tgt := range []*models.WebhookTarget{wants, other, inactive} {
		if err := database.Create(tgt).Error; err != nil {
			t.Fatalf("create target: %v", err)
		}
	}
	database.Model(inactive).Update("active", false)

	svc.Fire(context.Background(), "brand-1", models.WebhookEventPaymentCompleted, map[string]any{"amount": 10.0})
	svc.Wait()

	if rcv.count() != 1 {
		t.Fatalf("received %d deliveries, want 1", rcv.count())
	}
}

func TestServiceStartedRoutesBySchedule(t *testing.T) {
	database, bus, catalog := setup(t)
	rcv := &sink{}
	srv := httptest.NewServer(rcv)
	defer srv.Close()

	hope := models.Brand{ID: "b-hope", Name: "Hope", Domain: "hope.example"}
	grace := models.Brand{ID: "b-grace", Name: "Grace", Domain: "grace.example"}
	database.Create(&hope)
	database.Create(&grace)
	database.Create(models.NewWebhookTarget(hope.ID, srv.URL, "service.started"))
	database.Create(models.NewWebhookTarget(grace.ID, srv.URL+"/grace", "service.started"))

	svc := NewService(database, bus, catalog, zerolog.Nop())
	if got := svc.brandsForSchedule(context.Background(), "hope.example"); len(got) != 1 || got[0] != hope.ID {
		t.Fatalf("brandsForSchedule(hope) = %v", got)
	}
	if got := svc.brandsForSchedule(context.Background(), countdown.DefaultScheduleName); len(got) != 1 || got[0] != grace.ID {
		t.Fatalf("brandsForSchedule(default) = %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for rcv.count() == 0 && time.Now().Before(deadline) {
		bus.Publish(events.EventServiceStarted, events.Payload{"schedule": "hope.example", "service": "Vespers"})
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rcv.count() == 0 {
		t.Fatal("no delivery for service.started")
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	body := []byte(`{"event":"test"}`)
	sig := Sign(body, "s3cret")
	if !Verify(body, "s3cret", sig) {
		t.Fatal("valid signature rejected")
	}
	if Verify([]byte(`{"event":"x"}`), "s3cret", sig) {
		t.Fatal("tampered body accepted")
	}
	if Verify(body, "other", sig) {
		t.Fatal("wrong secret accepted")
	}
}
