package models

// Target repräsentiert ein biologisches Target, das einem Wirkstoff
// zugeordnet ist. Pro Wirkstoff können beliebig viele Targets existieren.
type Target struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	DrugID uint   `json:"drug_id" gorm:"column:drugbank_drug;not null;uniqueIndex:idx_drug_target"`
	Target string `json:"target" gorm:"column:drugbank_target;not null;uniqueIndex:idx_drug_target"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Target) TableName() string {
	return "drugbank_targets"
}
