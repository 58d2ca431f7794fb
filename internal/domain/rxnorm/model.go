// Package rxnorm implements the medication reference cache: read-through
// lookups against the external drug vocabulary, per-kind cache tables,
// interaction checking, batch resynchronization, and retention sweeps.
package rxnorm

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a concept cannot be resolved from cache or
// from the vocabulary source.
var ErrNotFound = errors.New("medication concept not found")

// Term type tags assigned by the vocabulary source.
const (
	TTYIngredient            = "IN"
	TTYBrandName             = "BN"
	TTYDoseForm              = "DF"
	TTYClinicalDrugComponent = "SCDC"
	TTYClinicalDrug          = "SCD"
)

// SearchKindName is the cache kind for name-based drug searches.
const SearchKindName = "name"

// Concept is a drug vocabulary entry. Identity is Code; Name and TermType
// may be refreshed on re-fetch but Code never changes.
type Concept struct {
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	TermType    string    `db:"term_type" json:"term_type,omitempty"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}

// ConceptDetails is the structured expansion of a concept's relations.
type ConceptDetails struct {
	Code        string    `json:"code"`
	Ingredients []Concept `json:"ingredients"`
	BrandNames  []Concept `json:"brand_names"`
	DosageForms []Concept `json:"dosage_forms"`
	Strengths   []Concept `json:"strengths"`
}

// NDCEntry is one distribution code with its packaging metadata. A source
// entry without packaging or status data defaults Status to "ACTIVE"; that
// is a source-data gap, not an error.
type NDCEntry struct {
	NDC       string `json:"ndc"`
	Packaging string `json:"packaging,omitempty"`
	Status    string `json:"status"`
}

// InteractionWarning is one reported drug-drug interaction.
type InteractionWarning struct {
	Drug1       string `json:"drug1"`
	Drug1Code   string `json:"drug1_code"`
	Drug2       string `json:"drug2"`
	Drug2Code   string `json:"drug2_code"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description"`
}

// SyncType labels a sync run in the sync log.
type SyncType string

const (
	SyncTypeFrequentlyUsed SyncType = "frequently-used"
	SyncTypeSpecificList   SyncType = "specific-list"
)

// SyncItem is one medication to resynchronize. At least one of Code or Name
// must be set.
type SyncItem struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Total    int      `json:"total"`
	Success  int      `json:"success"`
	Failed   int      `json:"failed"`
	Messages []string `json:"messages,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// SyncLogEntry is an append-only audit record of a sync run.
type SyncLogEntry struct {
	ID          uuid.UUID `db:"id" json:"id"`
	SyncDate    time.Time `db:"sync_date" json:"sync_date"`
	ItemsSynced int       `db:"items_synced" json:"items_synced"`
	SyncType    SyncType  `db:"sync_type" json:"sync_type"`
	Errors      []string  `db:"errors" json:"errors,omitempty"`
}

// SweepResult reports one cache table's outcome from a retention sweep.
type SweepResult struct {
	Table       string `json:"table"`
	RowsDeleted int64  `json:"rows_deleted"`
	Error       string `json:"error,omitempty"`
}

// FrequentMedication is one row of the most-prescribed aggregate maintained
// by the surrounding EMR.
type FrequentMedication struct {
	Name              string `db:"medication_name" json:"name"`
	Code              string `db:"rxnorm_code" json:"code,omitempty"`
	PrescriptionCount int    `db:"prescription_count" json:"prescription_count"`
}

// InteractionKey canonicalizes a set of codes into a cache key: sorted
// ascending and joined by underscore, so {A,B} and {B,A} hit the same row.
func InteractionKey(codes []string) string {
	sorted := make([]string, len(codes))
	copy(sorted, codes)
	sort.Strings(sorted)
	return strings.Join(sorted, "_")
}

// NormalizeTerm lowercases a search term for use as a cache key.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
