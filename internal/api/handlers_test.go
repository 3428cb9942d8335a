package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/ministry_platform/internal/countdown"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/media"
	"github.com/friendsincode/ministry_platform/internal/models"
	"github.com/friendsincode/ministry_platform/internal/payments"
	"github.com/friendsincode/ministry_platform/internal/youtube"
)

// sundayMorning is 09:00 UTC on a Sunday.
var sundayMorning = time.Date(2026, time.October, 11, 9, 0, 0, 0, time.UTC)

func TestScheduleNext(t *testing.T) {
	h := newHarness(t, nil)
	h.api.now = func() time.Time { return sundayMorning }

	rec := h.do(http.MethodGet, "/api/v1/schedule/next", "", nil)
	expectStatus(t, rec, http.StatusOK)
	got := decodeBody[nextServiceResponse](t, rec)
	if got.NextServiceName != "Main Service" {
		t.Fatalf("next = %q, want Main Service", got.NextServiceName)
	}
	if got.Days != 0 || got.Hours != 1 || got.Minutes != 0 || got.Seconds != 0 {
		t.Fatalf("countdown = %dd %dh %dm %ds, want 0d 1h 0m 0s", got.Days, got.Hours, got.Minutes, got.Seconds)
	}
	if got.TotalSeconds != 3600 {
		t.Fatalf("total_seconds = %d, want 3600", got.TotalSeconds)
	}
	if got.Schedule != countdown.DefaultScheduleName || got.Timezone != "UTC" {
		t.Fatalf("schedule = %q tz = %q", got.Schedule, got.Timezone)
	}
}

func TestScheduleBrandOverride(t *testing.T) {
	cat, err := countdown.ParseCatalog([]byte(`
brands:
  www.Grace.example:
    slots:
      - name: Sunday Worship
        start: "11:00"
        days: [sun]
`), time.UTC)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	h := newHarness(t, func(d *Deps) { d.Catalog = cat })
	h.api.now = func() time.Time { return sundayMorning }
	seedBrand(t, h.db, "b1", "grace.example")

	rec := h.do(http.MethodGet, "/api/v1/schedule/next?brand_id=b1", "", nil)
	expectStatus(t, rec, http.StatusOK)
	got := decodeBody[nextServiceResponse](t, rec)
	if got.NextServiceName != "Sunday Worship" || got.TotalSeconds != 7200 {
		t.Fatalf("next = %q in %ds, want Sunday Worship in 7200s", got.NextServiceName, got.TotalSeconds)
	}

	rec = h.do(http.MethodGet, "/api/v1/schedule/next?domain=other.example", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[nextServiceResponse](t, rec); got.NextServiceName != "Main Service" {
		t.Fatalf("fallback next = %q, want Main Service", got.NextServiceName)
	}

	rec = h.do(http.MethodGet, "/api/v1/schedule/next?brand_id=missing", "", nil)
	expectError(t, rec, http.StatusNotFound, "not_found")
}

func TestScheduleUpcoming(t *testing.T) {
	h := newHarness(t, nil)
	h.api.now = func() time.Time { return sundayMorning }

	rec := h.do(http.MethodGet, "/api/v1/schedule/upcoming?days=1", "", nil)
	expectStatus(t, rec, http.StatusOK)
	got := decodeBody[[]occurrenceResponse](t, rec)
	if len(got) == 0 || got[0].Name != "Main Service" {
		t.Fatalf("upcoming = %+v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].StartsAt.Before(got[i-1].StartsAt) {
			t.Fatalf("upcoming not sorted at %d: %+v", i, got)
		}
	}

	rec = h.do(http.MethodGet, "/api/v1/schedule/upcoming?days=0", "", nil)
	expectError(t, rec, http.StatusBadRequest, "invalid_days")

	rec = h.do(http.MethodGet, "/api/v1/schedule/recent", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("recent = %s, want []", rec.Body.String())
	}
}

func TestAnnouncementCRUD(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.adminToken()
	sub := h.bus.Subscribe(events.EventAuditContentCreate)
	defer h.bus.Unsubscribe(events.EventAuditContentCreate, sub)

	body := map[string]any{"brand_id": "b1", "title": "Picnic", "content": "Bring **food**"}
	expectError(t, h.do(http.MethodPost, "/api/v1/announcements", "", body), http.StatusUnauthorized, "unauthorized")

	rec := h.do(http.MethodPost, "/api/v1/announcements", admin, body)
	expectStatus(t, rec, http.StatusOK)
	an := decodeBody[models.Announcement](t, rec)
	if an.ID == "" || !strings.Contains(an.ContentHTML, "<strong>food</strong>") {
		t.Fatalf("created = %+v", an)
	}

	select {
	case p := <-sub:
		if p["resource_id"] != an.ID || p["actor_id"] != "admin-1" {
			t.Fatalf("audit payload = %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("no audit event")
	}

	rec = h.do(http.MethodPut, "/api/v1/announcements/"+an.ID, admin, map[string]any{"id": "other", "brand_id": "b2", "title": "Picnic moved"})
	expectStatus(t, rec, http.StatusOK)
	updated := decodeBody[models.Announcement](t, rec)
	if updated.ID != an.ID || updated.BrandID != "b1" || updated.Title != "Picnic moved" {
		t.Fatalf("updated = %+v", updated)
	}

	rec = h.do(http.MethodGet, "/api/v1/announcements?brand_id=b1", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeBody[[]models.Announcement](t, rec); len(list) != 1 {
		t.Fatalf("list = %d, want 1", len(list))
	}

	rec = h.do(http.MethodDelete, "/api/v1/announcements/"+an.ID, admin, nil)
	expectStatus(t, rec, http.StatusOK)
	if msg := decodeBody[map[string]string](t, rec)["message"]; msg != "Announcement deleted" {
		t.Fatalf("message = %q", msg)
	}
	expectError(t, h.do(http.MethodGet, "/api/v1/announcements/"+an.ID, "", nil), http.StatusNotFound, "not_found")
}

func TestAnnouncementValidation(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.adminToken()

	expectError(t, h.do(http.MethodPost, "/api/v1/announcements", admin, map[string]any{"title": "x"}), http.StatusBadRequest, "brand_id_required")
	expectError(t, h.do(http.MethodPost, "/api/v1/announcements", admin, map[string]any{"brand_id": "b1"}), http.StatusBadRequest, "title_required")

	start := sundayMorning
	end := start.Add(-time.Hour)
	rec := h.do(http.MethodPost, "/api/v1/announcements", admin, map[string]any{
		"brand_id": "b1", "title": "x", "scheduled_start": start, "scheduled_end": end,
	})
	expectError(t, rec, http.StatusBadRequest, "invalid_schedule_window")
}

func TestUrgentAnnouncementsRespectWindow(t *testing.T) {
	h := newHarness(t, nil)
	h.api.now = func() time.Time { return sundayMorning }
	past := sundayMorning.Add(-48 * time.Hour)
	expired := sundayMorning.Add(-24 * time.Hour)

	rows := []models.Announcement{
		{ID: "a1", BrandID: "b1", Title: "Now", IsUrgent: true},
		{ID: "a2", BrandID: "b1", Title: "Over", IsUrgent: true, ScheduledStart: &past, ScheduledEnd: &expired},
		{ID: "a3", BrandID: "b1", Title: "Calm", IsUrgent: false},
	}
	if err := h.db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := h.do(http.MethodGet, "/api/v1/announcements/urgent?brand_id=b1", "", nil)
	expectStatus(t, rec, http.StatusOK)
	got := decodeBody[[]models.Announcement](t, rec)
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("urgent = %+v, want only a1", got)
	}
}

func TestEventsKeepExplicitFalse(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.adminToken()

	rec := h.do(http.MethodPost, "/api/v1/events", admin, map[string]any{"brand_id": "b1", "title": "Gala", "date": "2026-12-01", "is_free": false})
	expectStatus(t, rec, http.StatusOK)
	if ev := decodeBody[models.Event](t, rec); ev.IsFree {
		t.Fatal("is_free = true, want false")
	}

	rec = h.do(http.MethodPost, "/api/v1/events", admin, map[string]any{"brand_id": "b1", "title": "Picnic", "date": "2026-11-01"})
	expectStatus(t, rec, http.StatusOK)
	ev := decodeBody[models.Event](t, rec)
	if !ev.IsFree {
		t.Fatal("is_free default = false, want true")
	}

	rec = h.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/register", "", map[string]any{"name": "Ruth", "email": "ruth@grace.example"})
	expectStatus(t, rec, http.StatusOK)
	if at := decodeBody[models.EventAttendee](t, rec); at.Guests != 1 || at.BrandID != "b1" {
		t.Fatalf("attendee = %+v", at)
	}

	rec = h.do(http.MethodGet, "/api/v1/events/"+ev.ID+"/attendees", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeBody[[]models.EventAttendee](t, rec); len(list) != 1 {
		t.Fatalf("attendees = %d, want 1", len(list))
	}

	rec = h.do(http.MethodGet, "/api/v1/events?brand_id=b1", "", nil)
	expectStatus(t, rec, http.StatusOK)
	list := decodeBody[[]models.Event](t, rec)
	if len(list) != 2 || list[0].Title != "Picnic" {
		t.Fatalf("events = %+v, want date ascending", list)
	}
}

func TestPrayerWallHidesPrivateFields(t *testing.T) {
	h := newHarness(t, nil)
	sub := h.bus.Subscribe(events.EventPrayerSubmitted)
	defer h.bus.Unsubscribe(events.EventPrayerSubmitted, sub)

	rec := h.do(http.MethodPost, "/api/v1/prayer-requests", "", map[string]any{
		"brand_id": "b1", "name": "Ana", "email": "ana@grace.example", "request": "Healing",
	})
	expectStatus(t, rec, http.StatusOK)
	select {
	case p := <-sub:
		if p["request"] != "Healing" {
			t.Fatalf("payload = %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("no prayer event")
	}

	rec = h.do(http.MethodPost, "/api/v1/prayer-requests", "", map[string]any{
		"brand_id": "b1", "name": "Hidden", "request": "Private", "is_anonymous": true,
	})
	expectStatus(t, rec, http.StatusOK)

	rec = h.do(http.MethodGet, "/api/v1/prayer-requests/public?brand_id=b1", "", nil)
	expectStatus(t, rec, http.StatusOK)
	wall := decodeBody[[]models.PrayerRequest](t, rec)
	if len(wall) != 1 || wall[0].Name != "Ana" || wall[0].Email != "" {
		t.Fatalf("wall = %+v", wall)
	}

	expectError(t, h.do(http.MethodGet, "/api/v1/prayer-requests", "", nil), http.StatusUnauthorized, "unauthorized")

	rec = h.do(http.MethodPut, "/api/v1/prayer-requests/"+wall[0].ID+"/status?status=bogus", h.adminToken(), nil)
	expectError(t, rec, http.StatusBadRequest, "invalid_status")

	rec = h.do(http.MethodPut, "/api/v1/prayer-requests/"+wall[0].ID+"/status?status=praying", h.adminToken(), nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestContactRequiresValidEmail(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodPost, "/api/v1/contact", "", map[string]any{"brand_id": "b1", "name": "Eli", "email": "nope", "message": "hi"})
	expectError(t, rec, http.StatusBadRequest, "invalid_email")

	rec = h.do(http.MethodPost, "/api/v1/subscribers", "", map[string]any{"brand_id": "b1", "name": "Eli"})
	expectError(t, rec, http.StatusBadRequest, "email_or_phone_required")
}

func TestUserLifecycle(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/v1/users/register", "", map[string]any{
		"email": "Member@Grace.example", "password": "longenough", "name": "Mara", "brand_id": "b1",
	})
	expectStatus(t, rec, http.StatusOK)
	reg := decodeBody[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](t, rec)
	if reg.User.Email != "member@grace.example" || !reg.User.IsActive {
		t.Fatalf("registered = %+v", reg.User)
	}

	rec = h.do(http.MethodPost, "/api/v1/users/register", "", map[string]any{
		"email": "member@grace.example", "password": "longenough", "name": "Again", "brand_id": "b1",
	})
	expectError(t, rec, http.StatusBadRequest, "user_exists")

	rec = h.do(http.MethodPut, "/api/v1/users/me", reg.Token, map[string]any{"phone": "555-0100"})
	expectStatus(t, rec, http.StatusOK)
	if u := decodeBody[models.User](t, rec); u.Phone != "555-0100" {
		t.Fatalf("phone = %q", u.Phone)
	}

	rec = h.do(http.MethodPut, "/api/v1/users/"+reg.User.ID+"/status?is_active=false", h.adminToken(), nil)
	expectStatus(t, rec, http.StatusOK)

	rec = h.do(http.MethodPost, "/api/v1/users/login", "", map[string]any{"email": "member@grace.example", "password": "longenough"})
	expectError(t, rec, http.StatusForbidden, "account_inactive")

	expectStatus(t, h.do(http.MethodGet, "/api/v1/users/me", reg.Token, nil), http.StatusUnauthorized)

	rec = h.do(http.MethodPut, "/api/v1/users/missing/status?is_active=true", h.adminToken(), nil)
	expectError(t, rec, http.StatusNotFound, "not_found")
}

func TestFoundationDonate(t *testing.T) {
	h := newHarness(t, nil)
	goal := 1000.0
	f := models.Foundation{ID: "f1", BrandID: "b1", Title: "Roof", GoalAmount: &goal, IsActive: true}
	if err := h.db.Create(&f).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	for i := 0; i < 2; i++ {
		rec := h.do(http.MethodPost, "/api/v1/foundations/donate", "", map[string]any{"foundation_id": "f1", "donor_name": "Job", "amount": 125.5})
		expectStatus(t, rec, http.StatusOK)
	}

	var got models.Foundation
	if err := h.db.First(&got, "id = ?", "f1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.RaisedAmount != 251 {
		t.Fatalf("raised = %v, want 251", got.RaisedAmount)
	}

	rec := h.do(http.MethodPost, "/api/v1/foundations/donate", "", map[string]any{"foundation_id": "nope", "donor_name": "Job", "amount": 5})
	expectError(t, rec, http.StatusNotFound, "not_found")

	rec = h.do(http.MethodPost, "/api/v1/foundations/donate", "", map[string]any{"foundation_id": "f1", "donor_name": "Job", "amount": 0})
	expectError(t, rec, http.StatusBadRequest, "invalid_amount")

	rec = h.do(http.MethodGet, "/api/v1/foundations/f1/donations", h.adminToken(), nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeBody[[]models.FoundationDonation](t, rec); len(list) != 2 {
		t.Fatalf("donations = %d, want 2", len(list))
	}
}

func TestDonationStats(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.adminToken()
	for _, d := range []map[string]any{
		{"brand_id": "b1", "donor_name": "A", "amount": 10, "category": "Tithe"},
		{"brand_id": "b1", "donor_name": "B", "amount": 15, "category": "Tithe"},
		{"brand_id": "b1", "donor_name": "C", "amount": 5},
		{"brand_id": "b2", "donor_name": "D", "amount": 100},
	} {
		expectStatus(t, h.do(http.MethodPost, "/api/v1/donations", admin, d), http.StatusOK)
	}

	rec := h.do(http.MethodGet, "/api/v1/donations/stats?brand_id=b1", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	stats := decodeBody[struct {
		Total      float64            `json:"total"`
		Count      int64              `json:"count"`
		ByCategory map[string]float64 `json:"by_category"`
		Donations  []models.Donation  `json:"donations"`
	}](t, rec)
	if stats.Total != 30 || stats.Count != 3 {
		t.Fatalf("total = %v count = %d, want 30 and 3", stats.Total, stats.Count)
	}
	if stats.ByCategory["Tithe"] != 25 || stats.ByCategory["General"] != 5 {
		t.Fatalf("by_category = %v", stats.ByCategory)
	}
	if len(stats.Donations) != 3 {
		t.Fatalf("recent = %d, want 3", len(stats.Donations))
	}
}

func TestCheckoutDisabled(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodPost, "/api/v1/payments/create-checkout", "", map[string]any{"amount": 10, "brand_id": "b1"})
	expectError(t, rec, http.StatusServiceUnavailable, "payments_disabled")

	rec = h.do(http.MethodPost, "/api/v1/webhook/stripe", "", map[string]any{})
	expectError(t, rec, http.StatusServiceUnavailable, "payments_disabled")
}

func TestCheckoutAndWebhookSettle(t *testing.T) {
	fake := payments.NewFake("whsec")
	h := newHarness(t, nil)
	h.api.payments = payments.NewService(h.db, fake, h.bus, "usd", "https://grace.example", zerolog.Nop())
	sub := h.bus.Subscribe(events.EventPaymentCompleted)
	defer h.bus.Unsubscribe(events.EventPaymentCompleted, sub)

	expectError(t, h.do(http.MethodPost, "/api/v1/payments/create-checkout", "", map[string]any{"amount": 0, "brand_id": "b1"}),
		http.StatusBadRequest, "invalid_amount")

	rec := h.do(http.MethodPost, "/api/v1/payments/create-checkout", "", map[string]any{"amount": 50, "brand_id": "b1", "category": "Missions"})
	expectStatus(t, rec, http.StatusOK)
	session := decodeBody[map[string]string](t, rec)
	if session["session_id"] != "cs_test_1" || session["url"] != "https://checkout.test/cs_test_1" {
		t.Fatalf("checkout = %v", session)
	}

	event, _ := json.Marshal(payments.WebhookEvent{
		ID:      "evt_1",
		Type:    "checkout.session.completed",
		Session: payments.Session{ID: "cs_test_1", Status: "complete", PaymentStatus: "paid"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/stripe", bytes.NewReader(event))
	req.Header.Set("Stripe-Signature", "wrong")
	out := httptest.NewRecorder()
	h.router.ServeHTTP(out, req)
	expectError(t, out, http.StatusBadRequest, "invalid_signature")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhook/stripe", bytes.NewReader(event))
	req.Header.Set("Stripe-Signature", "whsec")
	out = httptest.NewRecorder()
	h.router.ServeHTTP(out, req)
	expectStatus(t, out, http.StatusOK)

	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("no payment.completed event")
	}

	rec = h.do(http.MethodGet, "/api/v1/payments/status/cs_test_1", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if txn := decodeBody[models.PaymentTransaction](t, rec); txn.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("payment_status = %q, want paid", txn.PaymentStatus)
	}

	expectError(t, h.do(http.MethodGet, "/api/v1/payments/status/cs_missing", "", nil), http.StatusNotFound, "not_found")
}

func TestYouTubeChannel(t *testing.T) {
	catalog, err := youtube.Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	h := newHarness(t, func(d *Deps) { d.YouTube = youtube.NewService(catalog, nil) })
	rec := h.do(http.MethodGet, "/api/v1/youtube/channel/@nehemiahdavid", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if videos := decodeBody[[]youtube.Video](t, rec); len(videos) != 10 {
		t.Fatalf("videos = %d, want 10", len(videos))
	}

	rec = h.do(http.MethodGet, "/api/v1/youtube/channel/unknown", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if videos := decodeBody[[]youtube.Video](t, rec); len(videos) != 0 {
		t.Fatalf("videos = %d, want 0", len(videos))
	}
}

func TestGalleryUpload(t *testing.T) {
	root := t.TempDir()
	svc := media.NewServiceWithStorage(media.NewFilesystemStorage(root, "/media", zerolog.Nop()), 1<<20, zerolog.Nop())
	h := newHarness(t, func(d *Deps) { d.Media = svc })

	upload := func(field, name string, data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("brand_id", "b1")
		_ = mw.WriteField("title", "Baptism")
		fw, _ := mw.CreateFormFile(field, name)
		_, _ = fw.Write(data)
		_ = mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/gallery/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+h.adminToken())
		out := httptest.NewRecorder()
		h.router.ServeHTTP(out, req)
		return out
	}

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	rec := upload("file", "photo.png", png)
	expectStatus(t, rec, http.StatusOK)
	img := decodeBody[models.GalleryImage](t, rec)
	if img.StorageKey == "" || !strings.HasPrefix(img.ImageURL, "/media/") {
		t.Fatalf("image = %+v", img)
	}

	expectError(t, upload("file", "notes.txt", []byte("plain text here")), http.StatusUnsupportedMediaType, "unsupported_type")
	expectError(t, upload("other", "photo.png", png), http.StatusBadRequest, "file_required")

	rec = h.do(http.MethodDelete, "/api/v1/gallery/"+img.ID, h.adminToken(), nil)
	expectStatus(t, rec, http.StatusOK)
	if msg := decodeBody[map[string]string](t, rec)["message"]; msg != "Image deleted" {
		t.Fatalf("message = %q", msg)
	}
}

func TestGalleryUploadWithoutMedia(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gallery/upload", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+h.adminToken())
	out := httptest.NewRecorder()
	h.router.ServeHTTP(out, req)
	expectError(t, out, http.StatusServiceUnavailable, "media_unavailable")
}
