package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/ministry_platform/internal/auth"
	"github.com/friendsincode/ministry_platform/internal/countdown"
	database "github.com/friendsincode/ministry_platform/internal/db"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
)

var testSecret = []byte("test-secret")

type harness struct {
	t      *testing.T
	db     *gorm.DB
	bus    *events.Bus
	api    *API
	router chi.Router
}

func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	bus := events.NewBus()
	deps := Deps{
		DB:        gdb,
		JWTSecret: testSecret,
		Bus:       bus,
		Catalog:   countdown.ReferenceCatalog(time.UTC),
		Logger:    zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	a := New(deps)
	r := chi.NewRouter()
	a.Routes(r)
	return &harness{t: t, db: gdb, bus: bus, api: a, router: r}
}

func (h *harness) token(role models.RoleName, id string) string {
	h.t.Helper()
	tok, err := auth.Issue(testSecret, auth.Claims{UserID: id, Email: id + "@grace.example", Role: string(role)}, time.Hour)
	if err != nil {
		h.t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (h *harness) adminToken() string { return h.token(models.RoleAdmin, "admin-1") }

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d body=%s", rec.Code, want, rec.Body.String())
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	if got := decodeBody[map[string]string](t, rec)["error"]; got != code {
		t.Fatalf("error = %q, want %q", got, code)
	}
}

func seedBrand(t *testing.T, db *gorm.DB, id, domain string) models.Brand {
	t.Helper()
	b := models.Brand{ID: id, Name: "Brand " + id, Domain: domain}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("create brand: %v", err)
	}
	return b
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/v1/health", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[map[string]any](t, rec)["status"]; got != "ok" {
		t.Fatalf("status = %v, want ok", got)
	}
}

func TestBrandsCRUD(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.adminToken()

	rec := h.do(http.MethodPost, "/api/v1/brands", "", map[string]any{"name": "Grace", "domain": "grace.example"})
	expectError(t, rec, http.StatusUnauthorized, "unauthorized")

	rec = h.do(http.MethodPost, "/api/v1/brands", admin, map[string]any{"name": "Grace", "domain": "WWW.Grace.Example"})
	expectStatus(t, rec, http.StatusOK)
	brand := decodeBody[models.Brand](t, rec)
	if brand.Domain != "grace.example" || brand.PrimaryColor != models.DefaultPrimaryColor {
		t.Fatalf("brand = %+v", brand)
	}

	rec = h.do(http.MethodPost, "/api/v1/brands", admin, map[string]any{"name": "Again", "domain": "grace.example"})
	expectError(t, rec, http.StatusBadRequest, "domain_exists")

	rec = h.do(http.MethodGet, "/api/v1/brands", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeBody[[]models.Brand](t, rec); len(list) != 1 {
		t.Fatalf("brands = %d, want 1", len(list))
	}

	rec = h.do(http.MethodPut, "/api/v1/brands/"+brand.ID, admin, map[string]any{"name": "Grace Church", "domain": "grace.example"})
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[models.Brand](t, rec); got.Name != "Grace Church" || got.ID != brand.ID {
		t.Fatalf("updated = %+v", got)
	}

	rec = h.do(http.MethodGet, "/api/v1/brands/missing", "", nil)
	expectError(t, rec, http.StatusNotFound, "not_found")
}

func TestBrandUpdatePublishesInvalidation(t *testing.T) {
	h := newHarness(t, nil)
	seedBrand(t, h.db, "b1", "grace.example")
	sub := h.bus.Subscribe(events.EventBrandUpdated)
	defer h.bus.Unsubscribe(events.EventBrandUpdated, sub)

	rec := h.do(http.MethodPut, "/api/v1/brands/b1", h.adminToken(), map[string]any{"name": "New", "domain": "grace.example"})
	expectStatus(t, rec, http.StatusOK)

	select {
	case p := <-sub:
		if p["brand_id"] != "b1" {
			t.Fatalf("payload = %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("no brand_updated event")
	}
}

func TestAdminRegisterBootstrap(t *testing.T) {
	h := newHarness(t, nil)
	creds := map[string]string{"email": "Pastor@Grace.example", "password": "s3cret-pass"}

	rec := h.do(http.MethodPost, "/api/v1/auth/register", "", creds)
	expectStatus(t, rec, http.StatusOK)
	resp := decodeBody[struct {
		Token string       `json:"token"`
		Admin models.Admin `json:"admin"`
	}](t, rec)
	if resp.Token == "" || resp.Admin.Email != "pastor@grace.example" {
		t.Fatalf("register response = %+v", resp)
	}

	rec = h.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "other@grace.example", "password": "s3cret-pass"})
	expectError(t, rec, http.StatusForbidden, "forbidden")

	rec = h.do(http.MethodPost, "/api/v1/auth/register", resp.Token, creds)
	expectError(t, rec, http.StatusBadRequest, "admin_exists")

	rec = h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "pastor@grace.example", "password": "wrong-pass"})
	expectError(t, rec, http.StatusUnauthorized, "invalid_credentials")

	rec = h.do(http.MethodPost, "/api/v1/auth/login", "", creds)
	expectStatus(t, rec, http.StatusOK)
	login := decodeBody[map[string]any](t, rec)
	token, _ := login["token"].(string)

	rec = h.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[models.Admin](t, rec); got.ID != resp.Admin.ID {
		t.Fatalf("me = %+v", got)
	}
}

func TestAPIKeyGrantsAdminAccess(t *testing.T) {
	h := newHarness(t, nil)
	admin := models.Admin{ID: "admin-1", Email: "admin-1@grace.example", PasswordHash: "x", Role: models.RoleAdmin}
	if err := h.db.Create(&admin).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}

	rec := h.do(http.MethodPost, "/api/v1/auth/api-keys", h.adminToken(), map[string]any{"name": "sync"})
	expectStatus(t, rec, http.StatusOK)
	created := decodeBody[struct {
		Key    string        `json:"key"`
		APIKey models.APIKey `json:"api_key"`
	}](t, rec)
	if len(created.Key) < 11 || created.Key[:3] != auth.APIKeyPrefix {
		t.Fatalf("plaintext key = %q", created.Key)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/overview", nil)
	req.Header.Set("X-API-Key", created.Key)
	out := httptest.NewRecorder()
	h.router.ServeHTTP(out, req)
	expectStatus(t, out, http.StatusOK)

	rec = h.do(http.MethodDelete, "/api/v1/auth/api-keys/"+created.APIKey.ID, h.adminToken(), nil)
	expectStatus(t, rec, http.StatusOK)

	out = httptest.NewRecorder()
	h.router.ServeHTTP(out, req)
	expectStatus(t, out, http.StatusUnauthorized)
}

func TestMemberTokenCannotWriteContent(t *testing.T) {
	h := newHarness(t, nil)
	user := models.User{ID: "u1", Email: "u1@grace.example", PasswordHash: "x", Name: "U", Role: models.RoleMember, BrandID: "b1", IsActive: true}
	if err := h.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	rec := h.do(http.MethodPost, "/api/v1/ministries", h.token(models.RoleMember, "u1"), map[string]any{"brand_id": "b1", "title": "Choir"})
	expectError(t, rec, http.StatusForbidden, "forbidden")
}
