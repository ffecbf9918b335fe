package models

import (
	"gorm.io/datatypes"
)

// Drug repräsentiert einen Wirkstoff mit seiner externen DrugBank-Kennung.
// Der numerische Primärschlüssel ist rein intern; Clients kennen nur
// die ProvidedID.
type Drug struct {
	ID         uint           `json:"-" gorm:"primaryKey"`
	ProvidedID string         `json:"drugbank_id" gorm:"column:drugbank_provided_id;uniqueIndex;not null"`
	Name       string         `json:"name,omitempty"`
	Attributes datatypes.JSON `json:"attributes,omitempty" gorm:"type:jsonb"` // Zusatzspalten aus dem Import
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Drug) TableName() string {
	return "drugbank_drugs"
}
