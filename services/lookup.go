package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"target-hand/config"
	"target-hand/models"
)

// LookupService beantwortet Drug-Target-Abfragen gegen die Postgres-Datenbank.
// Der Pool hinter dem *gorm.DB wird einmal beim Start aufgebaut und über alle
// Requests hinweg wiederverwendet.
type LookupService struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewLookupService erstellt eine neue Instanz des LookupService.
func NewLookupService(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *LookupService {
	return &LookupService{
		Config: cfg,
		DB:     db,
		Logger: logger,
	}
}

// TargetsForDrug löst die externe Kennung per Subquery auf den internen
// Schlüssel auf und liefert alle zugehörigen Target-Strings. Eine unbekannte
// Kennung ist kein Fehler, das Ergebnis ist dann einfach leer. Die Subquery
// ist bei großen Target-Tabellen günstiger als ein JOIN; semantisch sind
// beide gleichwertig.
//
// Der Kontext ist auf Config.PoolTimeout begrenzt: bekommt der Pool in
// dieser Zeit keine freie Verbindung, bricht die Abfrage mit
// context.DeadlineExceeded ab.
func (s *LookupService) TargetsForDrug(ctx context.Context, drugbankID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.PoolTimeout)
	defer cancel()

	// Immer ein leeres Slice statt nil, damit die JSON-Antwort [] enthält.
	targets := make([]string, 0)

	drugID := s.DB.Model(&models.Drug{}).
		Select("id").
		Where("drugbank_provided_id = ?", drugbankID)

	err := s.DB.WithContext(ctx).
		Model(&models.Target{}).
		Where("drugbank_drug = (?)", drugID).
		Pluck("drugbank_target", &targets).Error
	if err != nil {
		return nil, err
	}
	return targets, nil
}

// DrugByProvidedID liefert die Wirkstoff-Metadaten zu einer externen Kennung.
// Gibt gorm.ErrRecordNotFound zurück, wenn die Kennung unbekannt ist.
func (s *LookupService) DrugByProvidedID(ctx context.Context, drugbankID string) (*models.Drug, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.PoolTimeout)
	defer cancel()

	var drug models.Drug
	err := s.DB.WithContext(ctx).
		Where("drugbank_provided_id = ?", drugbankID).
		First(&drug).Error
	if err != nil {
		return nil, err
	}
	return &drug, nil
}

// Ping prüft, ob die Datenbank innerhalb des Pool-Timeouts erreichbar ist.
func (s *LookupService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.Config.PoolTimeout)
	defer cancel()

	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
