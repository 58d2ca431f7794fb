package rxnorm

import (
	"context"
	"time"
)

// ConceptRepository stores resolved concepts. The concept table is durable:
// rows are inserted or updated, never swept by the janitor.
type ConceptRepository interface {
	GetByCode(ctx context.Context, code string) (*Concept, error)
	Upsert(ctx context.Context, concept *Concept) error
}

// AgeSweeper deletes cache rows created before the cutoff and reports how
// many were removed.
type AgeSweeper interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SearchCacheRepository caches name-search results keyed by
// (lowercased term, kind). Order of the stored sequence is significant.
type SearchCacheRepository interface {
	Get(ctx context.Context, term, kind string) ([]Concept, bool, error)
	Put(ctx context.Context, term, kind string, results []Concept) error
	AgeSweeper
}

// DetailsCacheRepository caches concept detail expansions keyed by code.
type DetailsCacheRepository interface {
	Get(ctx context.Context, code string) (*ConceptDetails, error)
	Put(ctx context.Context, details *ConceptDetails) error
	AgeSweeper
}

// NDCCacheRepository caches NDC lists keyed by code.
type NDCCacheRepository interface {
	Get(ctx context.Context, code string) ([]NDCEntry, bool, error)
	Put(ctx context.Context, code string, entries []NDCEntry) error
	AgeSweeper
}

// DisplayTermsCacheRepository caches autocomplete terms keyed by
// (lowercased term, maxResults).
type DisplayTermsCacheRepository interface {
	Get(ctx context.Context, term string, maxResults int) ([]string, bool, error)
	Put(ctx context.Context, term string, maxResults int, terms []string) error
	AgeSweeper
}

// InteractionCacheRepository caches interaction warnings keyed by the
// canonical interaction key. The original code set is stored alongside for
// audit.
type InteractionCacheRepository interface {
	Get(ctx context.Context, key string) ([]InteractionWarning, bool, error)
	Put(ctx context.Context, key string, codes []string, warnings []InteractionWarning) error
	AgeSweeper
}

// SyncLogRepository appends and lists sync audit records. Entries are never
// updated or deleted.
type SyncLogRepository interface {
	Append(ctx context.Context, entry *SyncLogEntry) error
	List(ctx context.Context, limit, offset int) ([]*SyncLogEntry, int, error)
	Latest(ctx context.Context) (*SyncLogEntry, error)
}

// FrequentMedicationSource reads the most-prescribed aggregate maintained by
// the surrounding EMR. Consumed read-only here.
type FrequentMedicationSource interface {
	MostPrescribed(ctx context.Context, limit int) ([]FrequentMedication, error)
}
