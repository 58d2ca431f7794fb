package rxnorm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/metrics"
)

// DefaultRetentionDays is the retention window applied when a sweep is
// triggered without an explicit value.
const DefaultRetentionDays = 7

type sweepTarget struct {
	name    string
	sweeper AgeSweeper
}

// Janitor deletes cache rows older than a retention window. Only the
// disposable caches are swept: the concept table, cross-reference mappings,
// and the sync log are never touched.
type Janitor struct {
	targets []sweepTarget
	logger  zerolog.Logger
}

// NewJanitor creates a janitor over the five disposable cache tables.
func NewJanitor(
	searches SearchCacheRepository,
	details DetailsCacheRepository,
	ndcs NDCCacheRepository,
	displayTerms DisplayTermsCacheRepository,
	interactions InteractionCacheRepository,
	logger zerolog.Logger,
) *Janitor {
	return &Janitor{
		targets: []sweepTarget{
			{"rxnorm_search_cache", searches},
			{"rxnorm_details_cache", details},
			{"rxnorm_ndc_cache", ndcs},
			{"rxnorm_displayterms_cache", displayTerms},
			{"rxnorm_interactions_cache", interactions},
		},
		logger: logger.With().Str("component", "rxnorm-janitor").Logger(),
	}
}

// ClearExpired sweeps each cache table and reports per-table results. One
// table's failure is recorded in its result and never aborts the remaining
// tables.
func (j *Janitor) ClearExpired(ctx context.Context, retentionDays int) []SweepResult {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	results := make([]SweepResult, 0, len(j.targets))
	for _, target := range j.targets {
		deleted, err := target.sweeper.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			j.logger.Error().Str("table", target.name).Err(err).Msg("cache sweep failed")
			results = append(results, SweepResult{Table: target.name, Error: err.Error()})
			continue
		}
		metrics.SweepDeletedRows.WithLabelValues(target.name).Add(float64(deleted))
		results = append(results, SweepResult{Table: target.name, RowsDeleted: deleted})
	}

	j.logger.Info().Int("retention_days", retentionDays).Msg("cache sweep completed")
	return results
}
