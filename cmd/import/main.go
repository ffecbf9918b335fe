package main

import (
	"context"
	"flag"
	"log"
	"os"

	"target-hand/config"
	"target-hand/models"
	"target-hand/services"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Lädt eine CSV-Datei mit Drug-Target-Paaren in die Datenbank.
// Erwartetes Format: Header mit "drugbank_id", "target" und optional "name".
func main() {
	file := flag.String("file", "", "Pfad zur CSV-Datei")
	flag.Parse()
	if *file == "" {
		log.Fatal("Aufruf: import -file <pfad.csv>")
	}

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to targets database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Drug{}, &models.Target{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	f, err := os.Open(*file)
	if err != nil {
		logging.Fatal("Failed to open CSV file", zap.String("file", *file), zap.Error(err))
	}
	defer f.Close()

	importService := services.NewImportService(db, logging)
	stats, err := importService.Run(context.Background(), f)
	if err != nil {
		logging.Fatal("Import failed", zap.Error(err))
	}
	logging.Info("Import finished",
		zap.String("file", *file),
		zap.Int("drugs", stats.Drugs),
		zap.Int("targets", stats.Targets),
		zap.Int("skipped", stats.Skipped))
}
