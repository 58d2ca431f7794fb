// Package crossref maintains curated mappings from drug vocabulary codes to
// ANVISA regulatory codes. Mappings are persisted data, never derived from
// the vocabulary source and never expired by the cache janitor.
package crossref

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no mapping exists for a code.
var ErrNotFound = errors.New("mapping not found")

// Mapping links one vocabulary code to its ANVISA registration code. One
// mapping per vocabulary code; a re-save overwrites the previous values.
type Mapping struct {
	RxNormCode     string    `db:"rxnorm_code" json:"rxnorm_code"`
	AnvisaCode     string    `db:"anvisa_code" json:"anvisa_code"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
	MappingDate    time.Time `db:"mapping_date" json:"mapping_date"`
	IsVerified     bool      `db:"is_verified" json:"is_verified"`
}
