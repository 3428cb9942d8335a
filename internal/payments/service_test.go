package payments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
)

func newTestService(t *testing.T) (*Service, *Fake, *events.Bus, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.PaymentTransaction{}, &models.Foundation{}, &models.FoundationDonation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	fake := NewFake("whsec_test")
	bus := events.NewBus()
	return NewService(db, fake, bus, "USD", "https://grace.example/", zerolog.Nop()), fake, bus, db
}

func TestCreateCheckoutValidates(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	if _, _, err := svc.CreateCheckout(ctx, CheckoutInput{Amount: 0, BrandID: "b1"}, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	if _, _, err := svc.CreateCheckout(ctx, CheckoutInput{Amount: 10}, nil); !errors.Is(err, ErrBrandRequired) {
		t.Fatalf("err = %v, want ErrBrandRequired", err)
	}

	disabled := NewService(nil, nil, nil, "", "", zerolog.Nop())
	if _, _, err := disabled.CreateCheckout(ctx, CheckoutInput{Amount: 10, BrandID: "b1"}, nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestCreateCheckoutRecordsTransaction(t *testing.T) {
	svc, fake, _, _ := newTestService(t)
	txn, url, err := svc.CreateCheckout(context.Background(), CheckoutInput{
		Amount:   25.50,
		Category: "Missions",
		BrandID:  "b1",
	}, &Donor{UserID: "u1", Email: "ruth@example.com"})
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	if url == "" || txn.SessionID == "" {
		t.Fatalf("url = %q, session = %q", url, txn.SessionID)
	}
	if txn.PaymentStatus != models.PaymentStatusPending || txn.Status != models.TransactionInitiated {
		t.Fatalf("status = %s/%s", txn.PaymentStatus, txn.Status)
	}
	if txn.DonorName != "Anonymous" || txn.Currency != "usd" {
		t.Fatalf("donor = %q currency = %q", txn.DonorName, txn.Currency)
	}

	req := fake.Requests[0]
	if req.AmountCents != 2550 {
		t.Fatalf("cents = %d, want 2550", req.AmountCents)
	}
	if req.Metadata["user_id"] != "u1" || req.Metadata["brand_id"] != "b1" || req.Metadata["donor_name"] != "Anonymous" {
		t.Fatalf("metadata = %v", req.Metadata)
	}
	if req.SuccessURL != "https://grace.example/giving/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Fatalf("success url = %q", req.SuccessURL)
	}
}

func TestStatusSettlesOnce(t *testing.T) {
	svc, fake, bus, _ := newTestService(t)
	sub := bus.Subscribe(events.EventPaymentCompleted)
	ctx := context.Background()

	txn, _, err := svc.CreateCheckout(ctx, CheckoutInput{Amount: 10, BrandID: "b1"}, nil)
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	got, err := svc.Status(ctx, txn.SessionID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("status = %s, want pending", got.PaymentStatus)
	}

	fake.SetStatus(txn.SessionID, "complete", "paid")
	for i := 0; i < 2; i++ {
		got, err = svc.Status(ctx, txn.SessionID)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
	}
	if got.PaymentStatus != models.PaymentStatusPaid || got.Status != models.TransactionCompleted {
		t.Fatalf("status = %s/%s, want paid/completed", got.PaymentStatus, got.Status)
	}
	if len(sub) != 1 {
		t.Fatalf("payment.completed events = %d, want 1", len(sub))
	}
}

func TestWebhookCreditsFoundation(t *testing.T) {
	svc, _, _, db := newTestService(t)
	ctx := context.Background()
	db.Create(&models.Foundation{ID: "f1", BrandID: "b1", Title: "Building Fund", RaisedAmount: 100, IsActive: true})

	txn, _, err := svc.CreateCheckout(ctx, CheckoutInput{Amount: 40, BrandID: "b1", FoundationID: "f1", DonorName: "Ruth"}, nil)
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	body, _ := json.Marshal(WebhookEvent{
		ID:      "evt_1",
		Type:    "checkout.session.completed",
		Session: Session{ID: txn.SessionID, Status: "complete", PaymentStatus: "paid"},
	})
	if _, err := svc.HandleWebhook(ctx, body, "bad"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.HandleWebhook(ctx, body, "whsec_test"); err != nil {
			t.Fatalf("HandleWebhook: %v", err)
		}
	}

	var f models.Foundation
	db.First(&f, "id = ?", "f1")
	if f.RaisedAmount != 140 {
		t.Fatalf("raised = %v, want 140", f.RaisedAmount)
	}
	var donations int64
	db.Model(&models.FoundationDonation{}).Where("foundation_id = ?", "f1").Count(&donations)
	if donations != 1 {
		t.Fatalf("donations = %d, want 1", donations)
	}
}

func TestWebhookExpiredMarksFailed(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	txn, _, _ := svc.CreateCheckout(ctx, CheckoutInput{Amount: 10, BrandID: "b1"}, nil)

	body, _ := json.Marshal(WebhookEvent{Type: "checkout.session.expired", Session: Session{ID: txn.SessionID, Status: "expired", PaymentStatus: "unpaid"}})
	if _, err := svc.HandleWebhook(ctx, body, "whsec_test"); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	got, err := svc.Status(ctx, txn.SessionID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.Status != models.TransactionFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
}

func TestWebhookUnpaidMarksFailed(t *testing.T) {
	tests := []struct {
		name          string
		eventType     string
		status        string
		paymentStatus string
		want          string
	}{
		{"async payment failed", "checkout.session.async_payment_failed", "complete", "unpaid", models.PaymentStatusFailed},
		{"completed but unpaid", "checkout.session.completed", "complete", "unpaid", models.PaymentStatusFailed},
		{"expired", "checkout.session.expired", "expired", "unpaid", models.PaymentStatusExpired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, bus, _ := newTestService(t)
			failed := bus.Subscribe(events.EventPaymentFailed)
			ctx := context.Background()
			txn, _, err := svc.CreateCheckout(ctx, CheckoutInput{Amount: 25, BrandID: "b1"}, nil)
			if err != nil {
				t.Fatalf("CreateCheckout: %v", err)
			}

			body, _ := json.Marshal(WebhookEvent{Type: tc.eventType, Session: Session{ID: txn.SessionID, Status: tc.status, PaymentStatus: tc.paymentStatus}})
			for i := 0; i < 2; i++ {
				if _, err := svc.HandleWebhook(ctx, body, "whsec_test"); err != nil {
					t.Fatalf("HandleWebhook: %v", err)
				}
			}

			got, err := svc.Status(ctx, txn.SessionID)
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if got.PaymentStatus != tc.want || got.Status != models.TransactionFailed {
				t.Fatalf("status = %s/%s, want %s/failed", got.PaymentStatus, got.Status, tc.want)
			}
			if len(failed) != 1 {
				t.Fatalf("payment.failed events = %d, want 1", len(failed))
			}
			if p := <-failed; p["session_id"] != txn.SessionID {
				t.Fatalf("payload = %v", p)
			}
		})
	}
}

func TestWebhookPaidAfterFailure(t *testing.T) {
	svc, _, bus, _ := newTestService(t)
	paid := bus.Subscribe(events.EventPaymentCompleted)
	ctx := context.Background()
	txn, _, _ := svc.CreateCheckout(ctx, CheckoutInput{Amount: 25, BrandID: "b1"}, nil)

	failedBody, _ := json.Marshal(WebhookEvent{Type: "checkout.session.async_payment_failed", Session: Session{ID: txn.SessionID, Status: "complete", PaymentStatus: "unpaid"}})
	paidBody, _ := json.Marshal(WebhookEvent{Type: "checkout.session.async_payment_succeeded", Session: Session{ID: txn.SessionID, Status: "complete", PaymentStatus: "paid"}})
	for _, body := range [][]byte{failedBody, paidBody} {
		if _, err := svc.HandleWebhook(ctx, body, "whsec_test"); err != nil {
			t.Fatalf("HandleWebhook: %v", err)
		}
	}

	got, err := svc.Status(ctx, txn.SessionID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.Status != models.TransactionCompleted || len(paid) != 1 {
		t.Fatalf("status = %s, completed events = %d", got.Status, len(paid))
	}
}

func TestToCents(t *testing.T) {
	tests := map[float64]int64{10: 1000, 0.1: 10, 19.99: 1999, 0.5: 50}
	for in, want := range tests {
		if got := ToCents(in); got != want {
			t.Errorf("ToCents(%v) = %d, want %d", in, got, want)
		}
	}
}
