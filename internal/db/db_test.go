package db

import (
	"testing"

	"github.com/friendsincode/ministry_platform/internal/models"
	"github.com/friendsincode/ministry_platform/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return database
}

func TestMigrateCreatesTables(t *testing.T) {
	database := openTestDB(t)
	if err := Migrate(database); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	for _, m := range Models() {
		if !database.Migrator().HasTable(m) {
			t.Fatalf("missing table for %T", m)
		}
	}
	if !database.Migrator().HasTable("gallery") {
		t.Fatal("gallery table not created")
	}
}

func TestMigrateNormalizesBrandDomains(t *testing.T) {
	database := openTestDB(t)
	if err := database.AutoMigrate(&models.Brand{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := database.Create(&models.Brand{ID: "b1", Name: "Grace", Domain: "WWW.Grace.Example"}).Error; err != nil {
		t.Fatalf("create brand: %v", err)
	}
	if err := Migrate(database); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	var b models.Brand
	if err := database.First(&b, "id = ?", "b1").Error; err != nil {
		t.Fatalf("load brand: %v", err)
	}
	if b.Domain != "grace.example" {
		t.Fatalf("domain = %q, want grace.example", b.Domain)
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := map[string]string{
		"Grace.Example":          "grace.example",
		"www.grace.example":      "grace.example",
		" www.grace.example:443": "grace.example",
		"localhost:3000":         "localhost",
	}
	for in, want := range tests {
		if got := NormalizeDomain(in); got != want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCallbacksRecordQueries(t *testing.T) {
	database := openTestDB(t)
	if err := RegisterCallbacks(database); err != nil {
		t.Fatalf("RegisterCallbacks: %v", err)
	}
	if err := database.AutoMigrate(&models.Ministry{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	before := testutil.CollectAndCount(telemetry.DatabaseQueryDuration)
	if err := database.Create(&models.Ministry{ID: "m1", BrandID: "b1", Title: "Youth"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var got models.Ministry
	if err := database.First(&got, "id = ?", "m1").Error; err != nil {
		t.Fatalf("first: %v", err)
	}
	if after := testutil.CollectAndCount(telemetry.DatabaseQueryDuration); after <= before {
		t.Fatalf("histogram series = %d, want more than %d", after, before)
	}

	errBefore := testutil.ToFloat64(telemetry.DatabaseErrorsTotal.WithLabelValues("query", "query_error"))
	var missing models.Ministry
	_ = database.First(&missing, "id = ?", "nope").Error
	if errAfter := testutil.ToFloat64(telemetry.DatabaseErrorsTotal.WithLabelValues("query", "query_error")); errAfter != errBefore {
		t.Fatal("record-not-found counted as an error")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	database := openTestDB(t)
	if err := Migrate(database); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	first, err := Seed(database)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if first.Brands != 2 || first.Events != 3 || first.Ministries != 4 {
		t.Fatalf("first seed = %+v", first)
	}

	second, err := Seed(database)
	if err != nil {
		t.Fatalf("Seed again: %v", err)
	}
	if second != (SeedResult{}) {
		t.Fatalf("second seed inserted rows: %+v", second)
	}

	var brand models.Brand
	if err := database.Where("domain = ?", "nehemiahdavid.com").First(&brand).Error; err != nil {
		t.Fatalf("seeded brand missing: %v", err)
	}
	if brand.PrimaryColor != models.DefaultPrimaryColor {
		t.Fatalf("primary color = %q", brand.PrimaryColor)
	}
	var paid models.Event
	if err := database.Where("title = ?", "Leaders Conference").First(&paid).Error; err != nil {
		t.Fatalf("seeded event missing: %v", err)
	}
	if paid.IsFree {
		t.Fatal("Leaders Conference should not be free")
	}
}
