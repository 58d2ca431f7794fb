package crossref

import (
	"context"
	"errors"
	"fmt"

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

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a PostgreSQL-backed mapping repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) GetByRxNormCode(ctx context.Context, rxnormCode string) (*Mapping, error) {
	var m Mapping
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT rxnorm_code, anvisa_code, medication_name, mapping_date, is_verified
		 FROM rxnorm_anvisa_mappings WHERE rxnorm_code = $1`, rxnormCode).
		Scan(&m.RxNormCode, &m.AnvisaCode, &m.MedicationName, &m.MappingDate, &m.IsVerified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mapping get: %w", err)
	}
	return &m, nil
}

func (r *repoPG) Upsert(ctx context.Context, mapping *Mapping) error {
	_, err := connFor(ctx, r.pool).Exec(ctx,
		`INSERT INTO rxnorm_anvisa_mappings (rxnorm_code, anvisa_code, medication_name, mapping_date, is_verified)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (rxnorm_code) DO UPDATE SET
		   anvisa_code = EXCLUDED.anvisa_code,
		   medication_name = EXCLUDED.medication_name,
		   mapping_date = EXCLUDED.mapping_date,
		   is_verified = EXCLUDED.is_verified`,
		mapping.RxNormCode, mapping.AnvisaCode, mapping.MedicationName, mapping.MappingDate, mapping.IsVerified)
	if err != nil {
		return fmt.Errorf("mapping upsert: %w", err)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Mapping, int, error) {
	conn := connFor(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM rxnorm_anvisa_mappings`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("mapping count: %w", err)
	}

	rows, err := conn.Query(ctx,
		`SELECT rxnorm_code, anvisa_code, medication_name, mapping_date, is_verified
		 FROM rxnorm_anvisa_mappings
		 ORDER BY medication_name ASC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("mapping list: %w", err)
	}
	defer rows.Close()

	mappings := []*Mapping{}
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.RxNormCode, &m.AnvisaCode, &m.MedicationName, &m.MappingDate, &m.IsVerified); err != nil {
			return nil, 0, fmt.Errorf("mapping scan: %w", err)
		}
		mappings = append(mappings, &m)
	}
	return mappings, total, rows.Err()
}

func (r *repoPG) SetVerified(ctx context.Context, rxnormCode string, verified bool) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`UPDATE rxnorm_anvisa_mappings SET is_verified = $2 WHERE rxnorm_code = $1`,
		rxnormCode, verified)
	if err != nil {
		return fmt.Errorf("mapping verify: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func connFor(ctx context.Context, pool *pgxpool.Pool) pgxQuerier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}
