package crossref

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Service exposes the mapping operations used by prescription screens and
// the admin curation surface.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new cross-reference service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "crossref").Logger(),
	}
}

// MapToAnvisa returns the ANVISA code for a vocabulary code, or empty when
// no mapping exists. A pure persisted read with no network fallback: the
// mapping is curated, not derivable from the vocabulary source.
func (s *Service) MapToAnvisa(ctx context.Context, rxnormCode string) (string, error) {
	mapping, err := s.repo.GetByRxNormCode(ctx, rxnormCode)
	if err != nil {
		return "", err
	}
	if mapping == nil {
		return "", nil
	}
	return mapping.AnvisaCode, nil
}

// GetMapping returns the full mapping record for a vocabulary code.
func (s *Service) GetMapping(ctx context.Context, rxnormCode string) (*Mapping, error) {
	mapping, err := s.repo.GetByRxNormCode(ctx, rxnormCode)
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, ErrNotFound
	}
	return mapping, nil
}

// SaveMapping upserts a mapping by vocabulary code, last write wins.
// Returns false on persistence failure instead of an error: prescription
// flows treat the mapping as best-effort enrichment.
func (s *Service) SaveMapping(ctx context.Context, rxnormCode, anvisaCode, medicationName string, isVerified bool) bool {
	mapping := &Mapping{
		RxNormCode:     rxnormCode,
		AnvisaCode:     anvisaCode,
		MedicationName: medicationName,
		MappingDate:    time.Now(),
		IsVerified:     isVerified,
	}
	if err := s.repo.Upsert(ctx, mapping); err != nil {
		s.logger.Error().Str("rxnorm_code", rxnormCode).Err(err).Msg("mapping save failed")
		return false
	}
	return true
}

// ListMappings returns a page of mappings ordered by medication name.
func (s *Service) ListMappings(ctx context.Context, limit, offset int) ([]*Mapping, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Verify sets the curator-reviewed flag on an existing mapping.
func (s *Service) Verify(ctx context.Context, rxnormCode string, verified bool) error {
	return s.repo.SetVerified(ctx, rxnormCode, verified)
}
