package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"target-hand/models"
)

// ImportStats fasst das Ergebnis eines CSV-Imports zusammen.
type ImportStats struct {
	Drugs   int // neu angelegte Wirkstoffe
	Targets int // neu angelegte Drug-Target-Paare
	Skipped int // Duplikate und unvollständige Zeilen
}

// ImportService lädt Drug-Target-Paare aus einer CSV-Datei in die Datenbank.
// Erwartet wird ein Header mit mindestens "drugbank_id" und "target";
// eine optionale "name"-Spalte wird als Anzeigename übernommen, alle
// übrigen Spalten landen als JSON in den Drug-Attributen.
type ImportService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewImportService erstellt eine neue Instanz des ImportService.
func NewImportService(db *gorm.DB, logger *zap.Logger) *ImportService {
	return &ImportService{DB: db, Logger: logger}
}

// Run liest alle Zeilen aus r und schreibt sie idempotent in die Datenbank:
// bereits vorhandene Wirkstoffe und Paare werden übersprungen, ein erneuter
// Import derselben Datei ändert nichts.
func (s *ImportService) Run(ctx context.Context, r io.Reader) (ImportStats, error) {
	var stats ImportStats

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return stats, fmt.Errorf("CSV-Header lesen: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	idCol, ok := cols["drugbank_id"]
	if !ok {
		return stats, fmt.Errorf("CSV-Spalte %q fehlt", "drugbank_id")
	}
	targetCol, ok := cols["target"]
	if !ok {
		return stats, fmt.Errorf("CSV-Spalte %q fehlt", "target")
	}
	nameCol := -1
	if i, ok := cols["name"]; ok {
		nameCol = i
	}

	// Cache der bereits aufgelösten internen Schlüssel pro Kennung.
	drugIDs := make(map[string]uint)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("CSV-Zeile lesen: %w", err)
		}

		providedID := record[idCol]
		target := record[targetCol]
		if providedID == "" || target == "" {
			stats.Skipped++
			continue
		}

		drugID, ok := drugIDs[providedID]
		if !ok {
			drugID, err = s.upsertDrug(ctx, header, record, idCol, nameCol, targetCol, &stats)
			if err != nil {
				return stats, err
			}
			drugIDs[providedID] = drugID
		}

		res := s.DB.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Target{DrugID: drugID, Target: target})
		if res.Error != nil {
			return stats, fmt.Errorf("Target %q anlegen: %w", target, res.Error)
		}
		if res.RowsAffected > 0 {
			stats.Targets++
		} else {
			stats.Skipped++
		}
	}

	s.Logger.Info("CSV-Import abgeschlossen",
		zap.Int("drugs", stats.Drugs),
		zap.Int("targets", stats.Targets),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// upsertDrug legt den Wirkstoff an, falls er noch nicht existiert, und gibt
// in jedem Fall den internen Schlüssel zurück.
func (s *ImportService) upsertDrug(ctx context.Context, header, record []string, idCol, nameCol, targetCol int, stats *ImportStats) (uint, error) {
	drug := models.Drug{ProvidedID: record[idCol]}
	if nameCol >= 0 {
		drug.Name = record[nameCol]
	}
	if extras := extraColumns(header, record, idCol, nameCol, targetCol); len(extras) > 0 {
		raw, err := json.Marshal(extras)
		if err != nil {
			return 0, fmt.Errorf("Zusatzspalten serialisieren: %w", err)
		}
		drug.Attributes = datatypes.JSON(raw)
	}

	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "drugbank_provided_id"}},
			DoNothing: true,
		}).
		Create(&drug)
	if res.Error != nil {
		return 0, fmt.Errorf("Wirkstoff %q anlegen: %w", drug.ProvidedID, res.Error)
	}
	if res.RowsAffected > 0 {
		stats.Drugs++
	}
	if drug.ID == 0 {
		// Konflikt: die Zeile existierte schon, Schlüssel nachladen.
		err := s.DB.WithContext(ctx).
			Select("id").
			Where("drugbank_provided_id = ?", drug.ProvidedID).
			First(&drug).Error
		if err != nil {
			return 0, fmt.Errorf("Wirkstoff %q auflösen: %w", drug.ProvidedID, err)
		}
	}
	return drug.ID, nil
}

func extraColumns(header, record []string, idCol, nameCol, targetCol int) map[string]string {
	extras := make(map[string]string)
	for i, name := range header {
		if i == idCol || i == nameCol || i == targetCol || i >= len(record) {
			continue
		}
		if record[i] != "" {
			extras[name] = record[i]
		}
	}
	return extras
}
