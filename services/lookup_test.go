package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"target-hand/config"
	"target-hand/models"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	schema := fmt.Sprintf("target_hand_test_%d", time.Now().UnixNano())
	admin, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := admin.Exec("CREATE SCHEMA " + schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	db, err := gorm.Open(postgres.Open(dsn+" search_path="+schema), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("connect with schema: %v", err)
	}
	if err := db.AutoMigrate(&models.Drug{}, &models.Target{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cleanup := func() {
		admin.Exec("DROP SCHEMA " + schema + " CASCADE")
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		if sqlDB, err := admin.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return db, cleanup
}

func newTestLookup(db *gorm.DB) *LookupService {
	cfg := &config.Config{PoolTimeout: 5 * time.Second}
	return NewLookupService(cfg, db, zap.NewNop())
}

func seedDrugWithTargets(t *testing.T, db *gorm.DB) {
	if err := db.Create(&models.Drug{ID: 7, ProvidedID: "DB00001", Name: "Lepirudin"}).Error; err != nil {
		t.Fatalf("seed drug: %v", err)
	}
	for _, target := range []string{"P12345", "Q67890"} {
		if err := db.Create(&models.Target{DrugID: 7, Target: target}).Error; err != nil {
			t.Fatalf("seed target %s: %v", target, err)
		}
	}
}

func TestTargetsForDrug(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedDrugWithTargets(t, db)

	targets, err := newTestLookup(db).TargetsForDrug(context.Background(), "DB00001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d: %v", len(targets), targets)
	}
	got := map[string]bool{}
	for _, target := range targets {
		got[target] = true
	}
	if !got["P12345"] || !got["Q67890"] {
		t.Fatalf("unexpected target set: %v", targets)
	}
}

func TestTargetsForUnknownDrugIsEmpty(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedDrugWithTargets(t, db)

	targets, err := newTestLookup(db).TargetsForDrug(context.Background(), "NOTREAL")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if targets == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(targets) != 0 {
		t.Fatalf("expected no targets, got %v", targets)
	}
}

func TestSQLMetacharactersAreTreatedAsLiteral(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedDrugWithTargets(t, db)

	targets, err := newTestLookup(db).TargetsForDrug(context.Background(), "' OR '1'='1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("injection attempt leaked rows: %v", targets)
	}
}

func TestRepeatedLookupsAreIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedDrugWithTargets(t, db)

	lookup := newTestLookup(db)
	first, err := lookup.TargetsForDrug(context.Background(), "DB00001")
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	second, err := lookup.TargetsForDrug(context.Background(), "DB00001")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("lookups differ: %v vs %v", first, second)
	}
}

func TestDrugByProvidedID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedDrugWithTargets(t, db)

	lookup := newTestLookup(db)
	drug, err := lookup.DrugByProvidedID(context.Background(), "DB00001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if drug.ID != 7 || drug.Name != "Lepirudin" {
		t.Fatalf("unexpected drug: %+v", drug)
	}

	_, err = lookup.DrugByProvidedID(context.Background(), "NOTREAL")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
