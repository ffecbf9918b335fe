package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDrugJSONHidesSurrogateKey(t *testing.T) {
	raw, err := json.Marshal(Drug{ID: 7, ProvidedID: "DB00001", Name: "Lepirudin"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), `"id"`) {
		t.Fatalf("internal surrogate key leaked to clients: %s", raw)
	}
	if !strings.Contains(string(raw), `"drugbank_id":"DB00001"`) {
		t.Fatalf("external identifier missing: %s", raw)
	}
}
