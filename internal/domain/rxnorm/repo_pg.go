package rxnorm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/db"
)

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Concept Repository ===========

type conceptRepoPG struct{ pool *pgxpool.Pool }

func NewConceptRepoPG(pool *pgxpool.Pool) ConceptRepository { return &conceptRepoPG{pool: pool} }

func (r *conceptRepoPG) GetByCode(ctx context.Context, code string) (*Concept, error) {
	var c Concept
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT code, name, COALESCE(term_type,''), last_updated
		 FROM rxnorm_concepts WHERE code = $1`, code).
		Scan(&c.Code, &c.Name, &c.TermType, &c.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("concept get: %w", err)
	}
	return &c, nil
}

func (r *conceptRepoPG) Upsert(ctx context.Context, concept *Concept) error {
	_, err := connFor(ctx, r.pool).Exec(ctx,
		`INSERT INTO rxnorm_concepts (code, name, term_type, last_updated)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (code) DO UPDATE SET
		   name = EXCLUDED.name,
		   term_type = EXCLUDED.term_type,
		   last_updated = EXCLUDED.last_updated`,
		concept.Code, concept.Name, concept.TermType, concept.LastUpdated)
	if err != nil {
		return fmt.Errorf("concept upsert: %w", err)
	}
	return nil
}

// =========== Search Cache ===========

type searchCacheRepoPG struct{ pool *pgxpool.Pool }

func NewSearchCacheRepoPG(pool *pgxpool.Pool) SearchCacheRepository {
	return &searchCacheRepoPG{pool: pool}
}

func (r *searchCacheRepoPG) Get(ctx context.Context, term, kind string) ([]Concept, bool, error) {
	var payload []byte
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT results FROM rxnorm_search_cache
		 WHERE search_term = $1 AND search_kind = $2`, term, kind).
		Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("search cache get: %w", err)
	}
	var results []Concept
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, false, fmt.Errorf("search cache decode: %w", err)
	}
	return results, true, nil
}

func (r *searchCacheRepoPG) Put(ctx context.Context, term, kind string, results []Concept) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("search cache encode: %w", err)
	}
	_, err = connFor(ctx, r.pool).Exec(ctx,
		`INSERT INTO rxnorm_search_cache (search_term, search_kind, results, created_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (search_term, search_kind) DO UPDATE SET
		   results = EXCLUDED.results,
		   created_at = now()`,
		term, kind, payload)
	if err != nil {
		return fmt.Errorf("search cache put: %w", err)
	}
	return nil
}

func (r *searchCacheRepoPG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`DELETE FROM rxnorm_search_cache WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("search cache sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

// =========== Details Cache ===========

type detailsCacheRepoPG struct{ pool *pgxpool.Pool }

func NewDetailsCacheRepoPG(pool *pgxpool.Pool) DetailsCacheRepository {
	return &detailsCacheRepoPG{pool: pool}
}

func (r *detailsCacheRepoPG) Get(ctx context.Context, code string) (*ConceptDetails, error) {
	var ingredients, brandNames, dosageForms, strengths []byte
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT ingredients, brand_names, dosage_forms, strengths
		 FROM rxnorm_details_cache WHERE code = $1`, code).
		Scan(&ingredients, &brandNames, &dosageForms, &strengths)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("details cache get: %w", err)
	}

	d := &ConceptDetails{Code: code}
	for _, col := range []struct {
		raw []byte
		dst *[]Concept
	}{
		{ingredients, &d.Ingredients},
		{brandNames, &d.BrandNames},
		{dosageForms, &d.DosageForms},
		{strengths, &d.Strengths},
	} {
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("details cache decode: %w", err)
		}
	}
	return d, nil
}

func (r *detailsCacheRepoPG) Put(ctx context.Context, details *ConceptDetails) error {
	ingredients, err := json.Marshal(emptyIfNil(details.Ingredients))
	if err != nil {
		return fmt.Errorf("details cache encode: %w", err)
	}
	brandNames, err := json.Marshal(emptyIfNil(details.BrandNames))
	if err != nil {
		return fmt.Errorf("details cache encode: %w", err)
	}
	dosageForms, err := json.Marshal(emptyIfNil(details.DosageForms))
	if err != nil {
		return fmt.Errorf("details cache encode: %w", err)
	}
	strengths, err := json.Marshal(emptyIfNil(details.Strengths))
	if err != nil {
		return fmt.Errorf("details cache encode: %w", err)
	}

	_, err = connFor(ctx, r.pool).Exec(ctx,
		`INSERT INTO rxnorm_details_cache (code, ingredients, brand_names, dosage_forms, strengths, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (code) DO UPDATE SET
		   ingredients = EXCLUDED.ingredients,
		   brand_names = EXCLUDED.brand_names,
		   dosage_forms = EXCLUDED.dosage_forms,
		   strengths = EXCLUDED.strengths,
		   created_at = now()`,
		details.Code, ingredients, brandNames, dosageForms, strengths)
	if err != nil {
		return fmt.Errorf("details cache put: %w", err)
	}
	return nil
}

func (r *detailsCacheRepoPG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`DELETE FROM rxnorm_details_cache WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("details cache sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

// =========== NDC Cache ===========

type ndcCacheRepoPG struct{ pool *pgxpool.Pool }

func NewNDCCacheRepoPG(pool *pgxpool.Pool) NDCCacheRepository {
	return &ndcCacheRepoPG{pool: pool}
}

func (r *ndcCacheRepoPG) Get(ctx context.Context, code string) ([]NDCEntry, bool, error) {
	var payload []byte
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT ndcs FROM rxnorm_ndc_cache WHERE code = $1`, code).
		Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ndc cache get: %w", err)
	}
	var entries []NDCEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, false, fmt.Errorf("ndc cache decode: %w", err)
	}
	return entries, true, nil
}

func (r *ndcCacheRepoPG) Put(ctx context.Context, code string, entries []NDCEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("ndc cache encode: %w", err)
	}
	_, err = connFor(ctx, r.pool).Exec(ctx,
		`INSERT INTO rxnorm_ndc_cache (code, ndcs, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (code) DO UPDATE SET
		   ndcs = EXCLUDED.ndcs,
		   created_at = now()`,
		code, payload)
	if err != nil {
		return fmt.Errorf("ndc cache put: %w", err)
	}
	return nil
}

func (r *ndcCacheRepoPG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`DELETE FROM rxnorm_ndc_cache WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ndc cache sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

// =========== Display Terms Cache ===========

type displayTermsCacheRepoPG struct{ pool *pgxpool.Pool }

func NewDisplayTermsCacheRepoPG(pool *pgxpool.Pool) DisplayTermsCacheRepository {
	return &displayTermsCacheRepoPG{pool: pool}
}

func (r *displayTermsCacheRepoPG) Get(ctx context.Context, term string, maxResults int) ([]string, bool, error) {
	var payload []byte
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT terms FROM rxnorm_displayterms_cache
		 WHERE term = $1 AND max_results = $2`, term, maxResults).
		Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("display terms cache get: %w", err)
	}
	var terms []string
	if err := json.Unmarshal(payload, &terms); err != nil {
		return nil, false, fmt.Errorf("display terms cache decode: %w", err)
	}
	return terms, true, nil
}

func (r *displayTermsCacheRepoPG) Put(ctx context.Context, term string, maxResults int, terms []string) error {
	payload, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("display terms cache encode: %w", err)
	}
	_, err = connFor(ctx, r.pool).Exec(ctx,
		`INSERT INTO rxnorm_displayterms_cache (term, max_results, terms, created_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (term, max_results) DO UPDATE SET
		   terms = EXCLUDED.terms,
		   created_at = now()`,
		term, maxResults, payload)
	if err != nil {
		return fmt.Errorf("display terms cache put: %w", err)
	}
	return nil
}

func (r *displayTermsCacheRepoPG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`DELETE FROM rxnorm_displayterms_cache WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("display terms cache sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

// =========== Interaction Cache ===========

type interactionCacheRepoPG struct{ pool *pgxpool.Pool }

func NewInteractionCacheRepoPG(pool *pgxpool.Pool) InteractionCacheRepository {
	return &interactionCacheRepoPG{pool: pool}
}

func (r *interactionCacheRepoPG) Get(ctx context.Context, key string) ([]InteractionWarning, bool, error) {
	var payload []byte
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT interactions FROM rxnorm_interactions_cache
		 WHERE interaction_key = $1`, key).
		Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("interaction cache get: %w", err)
	}
	var warnings []InteractionWarning
	if err := json.Unmarshal(payload, &warnings); err != nil {
		return nil, false, fmt.Errorf("interaction cache decode: %w", err)
	}
	return warnings, true, nil
}

func (r *interactionCacheRepoPG) Put(ctx context.Context, key string, codes []string, warnings []InteractionWarning) error {
	codesPayload, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("interaction cache encode: %w", err)
	}
	warningsPayload, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("interaction cache encode: %w", err)
	}
	_, err = connFor(ctx, r.pool).Exec(ctx,
		`INSERT INTO rxnorm_interactions_cache (interaction_key, codes, interactions, created_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (interaction_key) DO UPDATE SET
		   codes = EXCLUDED.codes,
		   interactions = EXCLUDED.interactions,
		   created_at = now()`,
		key, codesPayload, warningsPayload)
	if err != nil {
		return fmt.Errorf("interaction cache put: %w", err)
	}
	return nil
}

func (r *interactionCacheRepoPG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`DELETE FROM rxnorm_interactions_cache WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("interaction cache sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

// =========== Sync Log ===========

type syncLogRepoPG struct{ pool *pgxpool.Pool }

func NewSyncLogRepoPG(pool *pgxpool.Pool) SyncLogRepository { return &syncLogRepoPG{pool: pool} }

func (r *syncLogRepoPG) Append(ctx context.Context, entry *SyncLogEntry) error {
	errorsPayload, err := json.Marshal(entry.Errors)
	if err != nil {
		return fmt.Errorf("sync log encode: %w", err)
	}
	_, err = connFor(ctx, r.pool).Exec(ctx,
		`INSERT INTO rxnorm_sync_log (id, sync_date, items_synced, sync_type, errors)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.SyncDate, entry.ItemsSynced, string(entry.SyncType), errorsPayload)
	if err != nil {
		return fmt.Errorf("sync log append: %w", err)
	}
	return nil
}

func (r *syncLogRepoPG) List(ctx context.Context, limit, offset int) ([]*SyncLogEntry, int, error) {
	if limit <= 0 {
		limit = 20
	}
	var total int
	if err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM rxnorm_sync_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sync log count: %w", err)
	}

	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT id, sync_date, items_synced, sync_type, errors
		 FROM rxnorm_sync_log
		 ORDER BY sync_date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sync log list: %w", err)
	}
	defer rows.Close()

	var entries []*SyncLogEntry
	for rows.Next() {
		entry, err := scanSyncLogEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

func (r *syncLogRepoPG) Latest(ctx context.Context) (*SyncLogEntry, error) {
	row := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT id, sync_date, items_synced, sync_type, errors
		 FROM rxnorm_sync_log
		 ORDER BY sync_date DESC LIMIT 1`)
	entry, err := scanSyncLogEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func scanSyncLogEntry(row pgx.Row) (*SyncLogEntry, error) {
	var entry SyncLogEntry
	var syncType string
	var errorsPayload []byte
	if err := row.Scan(&entry.ID, &entry.SyncDate, &entry.ItemsSynced, &syncType, &errorsPayload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("sync log scan: %w", err)
	}
	entry.SyncType = SyncType(syncType)
	if len(errorsPayload) > 0 {
		if err := json.Unmarshal(errorsPayload, &entry.Errors); err != nil {
			return nil, fmt.Errorf("sync log decode: %w", err)
		}
	}
	return &entry, nil
}

// =========== Frequent Medication Source ===========

type frequentMedicationSourcePG struct{ pool *pgxpool.Pool }

func NewFrequentMedicationSourcePG(pool *pgxpool.Pool) FrequentMedicationSource {
	return &frequentMedicationSourcePG{pool: pool}
}

func (r *frequentMedicationSourcePG) MostPrescribed(ctx context.Context, limit int) ([]FrequentMedication, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT medication_name, COALESCE(rxnorm_code,''), prescription_count
		 FROM prescription_frequency
		 ORDER BY prescription_count DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("most prescribed query: %w", err)
	}
	defer rows.Close()

	var meds []FrequentMedication
	for rows.Next() {
		var m FrequentMedication
		if err := rows.Scan(&m.Name, &m.Code, &m.PrescriptionCount); err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

// emptyIfNil keeps list-valued JSONB payloads as [] instead of null.
func emptyIfNil(list []Concept) []Concept {
	if list == nil {
		return []Concept{}
	}
	return list
}

// connFor prefers a transaction or pinned connection from the context over
// the shared pool.
func connFor(ctx context.Context, pool *pgxpool.Pool) pgxQuerier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}
