package rxnorm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/metrics"
	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/rxnav"
)

// VocabClient is the subset of the vocabulary API client the service needs.
type VocabClient interface {
	SearchDrugs(ctx context.Context, term string) (*rxnav.DrugGroup, error)
	AllProperties(ctx context.Context, code string) ([]rxnav.PropConcept, error)
	AllRelated(ctx context.Context, code string) (*rxnav.RelatedGroup, error)
	NDCs(ctx context.Context, code string) ([]string, error)
	DisplayTerms(ctx context.Context, term string, maxResults int) ([]string, error)
	InteractionList(ctx context.Context, codes []string) ([]rxnav.FullInteractionTypeGroup, error)
	SpellingSuggestions(ctx context.Context, term string) ([]string, error)
}

// Service provides read-through cached access to the drug vocabulary.
// Upstream failures degrade to ErrNotFound or empty results; cache write
// failures are logged and never fail the operation.
type Service struct {
	concepts     ConceptRepository
	searches     SearchCacheRepository
	details      DetailsCacheRepository
	ndcs         NDCCacheRepository
	displayTerms DisplayTermsCacheRepository
	interactions InteractionCacheRepository
	vocab        VocabClient
	logger       zerolog.Logger
}

// NewService creates the medication reference service.
func NewService(
	concepts ConceptRepository,
	searches SearchCacheRepository,
	details DetailsCacheRepository,
	ndcs NDCCacheRepository,
	displayTerms DisplayTermsCacheRepository,
	interactions InteractionCacheRepository,
	vocab VocabClient,
	logger zerolog.Logger,
) *Service {
	return &Service{
		concepts:     concepts,
		searches:     searches,
		details:      details,
		ndcs:         ndcs,
		displayTerms: displayTerms,
		interactions: interactions,
		vocab:        vocab,
		logger:       logger.With().Str("component", "rxnorm").Logger(),
	}
}

// ResolveByCode resolves a single concept, consulting the concept table
// before the network. A response without a usable name property is treated
// as not found and never cached.
func (s *Service) ResolveByCode(ctx context.Context, code string) (*Concept, error) {
	cached, err := s.concepts.GetByCode(ctx, code)
	if err != nil {
		// Treat a cache read failure as a miss.
		s.logger.Warn().Str("code", code).Err(err).Msg("concept cache read failed")
	}
	if cached != nil {
		metrics.CacheHits.WithLabelValues("concepts").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("concepts").Inc()

	props, err := s.vocab.AllProperties(ctx, code)
	if err != nil {
		s.logger.Warn().Str("code", code).Err(err).Msg("concept lookup degraded to not found")
		return nil, ErrNotFound
	}

	var name, termType string
	for _, p := range props {
		switch p.PropName {
		case "RxNorm Name":
			name = p.PropValue
		case "TTY":
			termType = p.PropValue
		}
	}
	if name == "" {
		return nil, ErrNotFound
	}

	concept := &Concept{
		Code:        code,
		Name:        name,
		TermType:    termType,
		LastUpdated: time.Now(),
	}
	if err := s.concepts.Upsert(ctx, concept); err != nil {
		s.logger.Error().Str("code", code).Err(err).Msg("concept cache write failed")
	}
	return concept, nil
}

// SearchByName resolves a term to an ordered list of candidate concepts.
// The stored and returned order is exactly the source's group-then-item
// order. Empty result sets are not cached.
func (s *Service) SearchByName(ctx context.Context, term string) ([]Concept, error) {
	key := NormalizeTerm(term)

	cached, found, err := s.searches.Get(ctx, key, SearchKindName)
	if err != nil {
		s.logger.Warn().Str("term", key).Err(err).Msg("search cache read failed")
	}
	if found {
		metrics.CacheHits.WithLabelValues("search").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("search").Inc()

	group, err := s.vocab.SearchDrugs(ctx, term)
	if err != nil {
		s.logger.Warn().Str("term", term).Err(err).Msg("drug search degraded to empty result")
		return []Concept{}, nil
	}

	now := time.Now()
	results := []Concept{}
	for _, cg := range group.ConceptGroup {
		for _, cp := range cg.ConceptProperties {
			tty := cp.TTY
			if tty == "" {
				tty = cg.TTY
			}
			results = append(results, Concept{
				Code:        cp.RxCUI,
				Name:        cp.Name,
				TermType:    tty,
				LastUpdated: now,
			})
		}
	}

	if len(results) > 0 {
		if err := s.searches.Put(ctx, key, SearchKindName, results); err != nil {
			s.logger.Error().Str("term", key).Err(err).Msg("search cache write failed")
		}
	}
	return results, nil
}

// GetDetails expands a concept into its ingredients, brand names, dosage
// forms, and strengths, consulting the details cache first.
func (s *Service) GetDetails(ctx context.Context, code string) (*ConceptDetails, error) {
	cached, err := s.details.Get(ctx, code)
	if err != nil {
		s.logger.Warn().Str("code", code).Err(err).Msg("details cache read failed")
	}
	if cached != nil {
		metrics.CacheHits.WithLabelValues("details").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("details").Inc()

	return s.RefreshDetails(ctx, code)
}

// RefreshDetails fetches a concept's relations from the vocabulary source
// and overwrites the details cache, bypassing any cached row. Used by the
// sync orchestrator to force-refresh already-resolved medications.
func (s *Service) RefreshDetails(ctx context.Context, code string) (*ConceptDetails, error) {
	related, err := s.vocab.AllRelated(ctx, code)
	if err != nil {
		s.logger.Warn().Str("code", code).Err(err).Msg("detail expansion degraded to not found")
		return nil, ErrNotFound
	}
	if len(related.ConceptGroup) == 0 {
		// Malformed or empty response: never cached as a valid answer.
		return nil, ErrNotFound
	}

	now := time.Now()
	d := &ConceptDetails{Code: code}
	for _, cg := range related.ConceptGroup {
		var dst *[]Concept
		switch cg.TTY {
		case TTYIngredient:
			dst = &d.Ingredients
		case TTYBrandName:
			dst = &d.BrandNames
		case TTYDoseForm:
			dst = &d.DosageForms
		case TTYClinicalDrugComponent:
			dst = &d.Strengths
		default:
			continue
		}
		for _, cp := range cg.ConceptProperties {
			*dst = append(*dst, Concept{
				Code:        cp.RxCUI,
				Name:        cp.Name,
				TermType:    cg.TTY,
				LastUpdated: now,
			})
		}
	}

	if err := s.details.Put(ctx, d); err != nil {
		s.logger.Error().Str("code", code).Err(err).Msg("details cache write failed")
	}
	return d, nil
}

// GetNDCs returns the distribution codes for a concept. Entries default to
// status "ACTIVE" when the source provides no packaging or status data.
func (s *Service) GetNDCs(ctx context.Context, code string) ([]NDCEntry, error) {
	cached, found, err := s.ndcs.Get(ctx, code)
	if err != nil {
		s.logger.Warn().Str("code", code).Err(err).Msg("ndc cache read failed")
	}
	if found {
		metrics.CacheHits.WithLabelValues("ndc").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("ndc").Inc()

	list, err := s.vocab.NDCs(ctx, code)
	if err != nil {
		s.logger.Warn().Str("code", code).Err(err).Msg("ndc lookup degraded to empty result")
		return []NDCEntry{}, nil
	}

	entries := make([]NDCEntry, 0, len(list))
	for _, ndc := range list {
		entries = append(entries, NDCEntry{NDC: ndc, Status: "ACTIVE"})
	}

	if len(entries) > 0 {
		if err := s.ndcs.Put(ctx, code, entries); err != nil {
			s.logger.Error().Str("code", code).Err(err).Msg("ndc cache write failed")
		}
	}
	return entries, nil
}

// GetDisplayTerms returns autocomplete terms for a prefix. The cache key
// includes maxResults so differently sized requests never collide.
func (s *Service) GetDisplayTerms(ctx context.Context, term string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = 20
	}
	key := NormalizeTerm(term)

	cached, found, err := s.displayTerms.Get(ctx, key, maxResults)
	if err != nil {
		s.logger.Warn().Str("term", key).Err(err).Msg("display terms cache read failed")
	}
	if found {
		metrics.CacheHits.WithLabelValues("displayterms").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("displayterms").Inc()

	terms, err := s.vocab.DisplayTerms(ctx, term, maxResults)
	if err != nil {
		s.logger.Warn().Str("term", term).Err(err).Msg("display terms degraded to empty result")
		return []string{}, nil
	}
	if terms == nil {
		terms = []string{}
	}

	if len(terms) > 0 {
		if err := s.displayTerms.Put(ctx, key, maxResults, terms); err != nil {
			s.logger.Error().Str("term", key).Err(err).Msg("display terms cache write failed")
		}
	}
	return terms, nil
}

// CheckInteractions returns pairwise interaction warnings for a set of
// codes. Fewer than two codes short-circuits to an empty result with no
// network call. Failures also yield an empty result: callers must treat
// empty as "no known interaction found", not as verified-safe.
func (s *Service) CheckInteractions(ctx context.Context, codes []string) ([]InteractionWarning, error) {
	if len(codes) < 2 {
		return []InteractionWarning{}, nil
	}
	key := InteractionKey(codes)

	cached, found, err := s.interactions.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Str("key", key).Err(err).Msg("interaction cache read failed")
	}
	if found {
		metrics.CacheHits.WithLabelValues("interactions").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("interactions").Inc()

	groups, err := s.vocab.InteractionList(ctx, codes)
	if err != nil {
		s.logger.Warn().Str("key", key).Err(err).Msg("interaction check degraded to empty result")
		return []InteractionWarning{}, nil
	}

	warnings := flattenInteractions(groups)
	if err := s.interactions.Put(ctx, key, codes, warnings); err != nil {
		s.logger.Error().Str("key", key).Err(err).Msg("interaction cache write failed")
	}
	return warnings, nil
}

// flattenInteractions extracts deduplicated warnings from the source's
// nested group structure. The source may report the same pair from multiple
// sources.
func flattenInteractions(groups []rxnav.FullInteractionTypeGroup) []InteractionWarning {
	warnings := []InteractionWarning{}
	seen := make(map[string]bool)

	for _, group := range groups {
		for _, it := range group.FullInteractionType {
			for _, pair := range it.InteractionPair {
				if len(pair.InteractionConcept) < 2 {
					continue
				}
				first := pair.InteractionConcept[0].MinConceptItem
				second := pair.InteractionConcept[1].MinConceptItem

				dedupeKey := InteractionKey([]string{first.RxCUI, second.RxCUI}) + "|" + pair.Description
				if seen[dedupeKey] {
					continue
				}
				seen[dedupeKey] = true

				warnings = append(warnings, InteractionWarning{
					Drug1:       first.Name,
					Drug1Code:   first.RxCUI,
					Drug2:       second.Name,
					Drug2Code:   second.RxCUI,
					Severity:    pair.Severity,
					Description: pair.Description,
				})
			}
		}
	}
	return warnings
}

// GetSpellingSuggestions returns alternate spellings for a term. Suggestions
// feed interactive typeahead and are never cached.
func (s *Service) GetSpellingSuggestions(ctx context.Context, term string) ([]string, error) {
	suggestions, err := s.vocab.SpellingSuggestions(ctx, term)
	if err != nil {
		s.logger.Warn().Str("term", term).Err(err).Msg("spelling suggestions degraded to empty result")
		return []string{}, nil
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	return suggestions, nil
}
