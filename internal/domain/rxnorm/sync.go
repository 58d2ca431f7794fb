package rxnorm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/metrics"
)

// Syncer resynchronizes medications against the vocabulary source in
// batches. Items are processed concurrently up to a bounded limit; one bad
// item never aborts its siblings.
type Syncer struct {
	service     *Service
	concepts    ConceptRepository
	frequent    FrequentMedicationSource
	syncLog     SyncLogRepository
	concurrency int
	logger      zerolog.Logger
}

// NewSyncer creates a sync orchestrator. Concurrency bounds simultaneous
// vocabulary calls to respect the source's rate limits.
func NewSyncer(
	service *Service,
	concepts ConceptRepository,
	frequent FrequentMedicationSource,
	syncLog SyncLogRepository,
	concurrency int,
	logger zerolog.Logger,
) *Syncer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Syncer{
		service:     service,
		concepts:    concepts,
		frequent:    frequent,
		syncLog:     syncLog,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "rxnorm-sync").Logger(),
	}
}

// SyncFrequentlyUsed re-resolves and re-caches the limit most-prescribed
// medications system-wide. An empty aggregate is success with count zero.
func (s *Syncer) SyncFrequentlyUsed(ctx context.Context, limit int) (*SyncResult, error) {
	if limit <= 0 {
		limit = 100
	}

	meds, err := s.frequent.MostPrescribed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("loading most-prescribed medications: %w", err)
	}
	if len(meds) == 0 {
		result := &SyncResult{}
		s.appendLog(ctx, result, SyncTypeFrequentlyUsed)
		return result, nil
	}

	items := make([]SyncItem, 0, len(meds))
	for _, m := range meds {
		items = append(items, SyncItem{Code: m.Code, Name: m.Name})
	}
	return s.run(ctx, items, SyncTypeFrequentlyUsed), nil
}

// SyncSpecific resynchronizes an explicit medication list. Each item must
// carry at least one of code or name; invalid items are recorded as
// per-item failures.
func (s *Syncer) SyncSpecific(ctx context.Context, items []SyncItem) (*SyncResult, error) {
	return s.run(ctx, items, SyncTypeSpecificList), nil
}

// run processes items with bounded concurrency and appends one sync log
// entry for the whole batch. Tallies accumulate through a mutex-guarded
// collector so concurrent completions stay correct.
func (s *Syncer) run(ctx context.Context, items []SyncItem, syncType SyncType) *SyncResult {
	result := &SyncResult{Total: len(items)}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, s.concurrency)
	)

	for _, item := range items {
		wg.Add(1)
		go func(item SyncItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			msg, err := s.syncOne(ctx, item)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, err.Error())
				metrics.SyncItems.WithLabelValues("failed").Inc()
				return
			}
			result.Success++
			if msg != "" {
				result.Messages = append(result.Messages, msg)
			}
			metrics.SyncItems.WithLabelValues("success").Inc()
		}(item)
	}
	wg.Wait()

	s.appendLog(ctx, result, syncType)
	return result
}

// syncOne resolves one sync item. Items with a code get their concept and
// details refreshed; items with only a name get a code resolved through the
// search best-match heuristic first.
func (s *Syncer) syncOne(ctx context.Context, item SyncItem) (string, error) {
	if item.Code == "" && item.Name == "" {
		return "", fmt.Errorf("sync item missing both code and name")
	}

	code := item.Code
	if code == "" {
		match, err := s.resolveBestMatch(ctx, item.Name)
		if err != nil {
			return "", err
		}
		code = match.Code
		if err := s.concepts.Upsert(ctx, match); err != nil {
			return "", fmt.Errorf("storing concept %s: %w", code, err)
		}
		return fmt.Sprintf("resolved %q to code %s", item.Name, code), nil
	}

	if _, err := s.service.ResolveByCode(ctx, code); err != nil {
		return "", fmt.Errorf("resolving code %s: %w", code, err)
	}
	if _, err := s.service.RefreshDetails(ctx, code); err != nil {
		return "", fmt.Errorf("refreshing details for %s: %w", code, err)
	}
	return fmt.Sprintf("refreshed code %s", code), nil
}

// resolveBestMatch picks a concept for a free-text name: prefer an exact
// clinical-drug (SCD) match, else take the first result of any category.
// This is a known precision limitation on generic names, not a correctness
// guarantee.
func (s *Syncer) resolveBestMatch(ctx context.Context, name string) (*Concept, error) {
	results, err := s.service.SearchByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("searching for %q: %w", name, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no vocabulary match for %q", name)
	}

	for i := range results {
		if results[i].TermType == TTYClinicalDrug {
			return &results[i], nil
		}
	}
	return &results[0], nil
}

// appendLog records the run in the sync log. A log write failure is logged
// but does not fail the sync.
func (s *Syncer) appendLog(ctx context.Context, result *SyncResult, syncType SyncType) {
	entry := &SyncLogEntry{
		ID:          uuid.New(),
		SyncDate:    time.Now(),
		ItemsSynced: result.Success,
		SyncType:    syncType,
		Errors:      result.Errors,
	}
	if err := s.syncLog.Append(ctx, entry); err != nil {
		s.logger.Error().Str("sync_type", string(syncType)).Err(err).Msg("sync log append failed")
	}
	s.logger.Info().
		Str("sync_type", string(syncType)).
		Int("total", result.Total).
		Int("success", result.Success).
		Int("failed", result.Failed).
		Msg("sync run completed")
}
