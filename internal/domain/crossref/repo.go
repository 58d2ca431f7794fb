package crossref

import "context"

// Repository persists ANVISA mappings.
type Repository interface {
	GetByRxNormCode(ctx context.Context, rxnormCode string) (*Mapping, error)
	Upsert(ctx context.Context, mapping *Mapping) error
	List(ctx context.Context, limit, offset int) ([]*Mapping, int, error)
	SetVerified(ctx context.Context, rxnormCode string, verified bool) error
}
