package audit

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
)

func newTestService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	bus := events.NewBus()
	return NewService(db, bus, zerolog.Nop()), bus
}

func TestLogAndQuery(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	brand := "b1"
	other := "b2"

	for i, b := range []*string{&brand, &brand, &other} {
		entry := &models.AuditLog{
			Action:    models.AuditActionContentCreate,
			BrandID:   b,
			Timestamp: time.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := svc.Log(ctx, entry); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	logs, total, err := svc.Query(ctx, QueryFilters{BrandID: &brand})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 2 || len(logs) != 2 {
		t.Fatalf("total = %d, len = %d, want 2", total, len(logs))
	}
	if !logs[0].Timestamp.After(logs[1].Timestamp) {
		t.Fatal("expected newest first")
	}

	logs, total, err = svc.Query(ctx, QueryFilters{Limit: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 3 || len(logs) != 1 {
		t.Fatalf("total = %d, len = %d, want 3 and 1", total, len(logs))
	}
}

func TestRunRecordsBusEvents(t *testing.T) {
	svc, bus := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()

	// wait for subscriptions
	deadline := time.Now().Add(2 * time.Second)
	for {
		bus.Publish(events.EventAuditBrandUpdate, events.Payload{
			"actor_id":      "a1",
			"brand_id":      "b1",
			"resource_type": "brand",
			"resource_id":   "b1",
			"field":         "tagline",
		})
		var count int64
		svc.db.Model(&models.AuditLog{}).Count(&count)
		if count > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("audit entry never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	var entry models.AuditLog
	if err := svc.db.First(&entry).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Action != models.AuditActionBrandUpdate || entry.ResourceType != "brand" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.ActorID == nil || *entry.ActorID != "a1" {
		t.Fatalf("actor = %v, want a1", entry.ActorID)
	}
	if entry.Details["field"] != "tagline" {
		t.Fatalf("details = %v", entry.Details)
	}
}
