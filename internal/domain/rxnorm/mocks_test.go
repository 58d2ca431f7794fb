package rxnorm

import (
	"context"
	"fmt"
	"time"

	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/rxnav"
)

// =========== Mock Repositories ===========

type mockConceptRepo struct {
	store       map[string]*Concept
	upsertCalls int
	upsertErr   error
}

func newMockConceptRepo() *mockConceptRepo {
	return &mockConceptRepo{store: make(map[string]*Concept)}
}

func (m *mockConceptRepo) GetByCode(_ context.Context, code string) (*Concept, error) {
	return m.store[code], nil
}

func (m *mockConceptRepo) Upsert(_ context.Context, concept *Concept) error {
	m.upsertCalls++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	cp := *concept
	m.store[concept.Code] = &cp
	return nil
}

type mockSweep struct {
	deleted    int64
	err        error
	lastCutoff time.Time
	calls      int
}

func (m *mockSweep) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.calls++
	m.lastCutoff = cutoff
	if m.err != nil {
		return 0, m.err
	}
	return m.deleted, nil
}

type mockSearchCache struct {
	mockSweep
	store    map[string][]Concept
	putCalls int
	putErr   error
}

func newMockSearchCache() *mockSearchCache {
	return &mockSearchCache{store: make(map[string][]Concept)}
}

func (m *mockSearchCache) Get(_ context.Context, term, kind string) ([]Concept, bool, error) {
	results, ok := m.store[term+"|"+kind]
	return results, ok, nil
}

func (m *mockSearchCache) Put(_ context.Context, term, kind string, results []Concept) error {
	m.putCalls++
	if m.putErr != nil {
		return m.putErr
	}
	m.store[term+"|"+kind] = results
	return nil
}

type mockDetailsCache struct {
	mockSweep
	store    map[string]*ConceptDetails
	putCalls int
}

func newMockDetailsCache() *mockDetailsCache {
	return &mockDetailsCache{store: make(map[string]*ConceptDetails)}
}

func (m *mockDetailsCache) Get(_ context.Context, code string) (*ConceptDetails, error) {
	return m.store[code], nil
}

func (m *mockDetailsCache) Put(_ context.Context, details *ConceptDetails) error {
	m.putCalls++
	m.store[details.Code] = details
	return nil
}

type mockNDCCache struct {
	mockSweep
	store    map[string][]NDCEntry
	putCalls int
}

func newMockNDCCache() *mockNDCCache {
	return &mockNDCCache{store: make(map[string][]NDCEntry)}
}

func (m *mockNDCCache) Get(_ context.Context, code string) ([]NDCEntry, bool, error) {
	entries, ok := m.store[code]
	return entries, ok, nil
}

func (m *mockNDCCache) Put(_ context.Context, code string, entries []NDCEntry) error {
	m.putCalls++
	m.store[code] = entries
	return nil
}

type mockDisplayTermsCache struct {
	mockSweep
	store    map[string][]string
	putCalls int
}

func newMockDisplayTermsCache() *mockDisplayTermsCache {
	return &mockDisplayTermsCache{store: make(map[string][]string)}
}

func displayTermsKey(term string, maxResults int) string {
	return fmt.Sprintf("%s|%d", term, maxResults)
}

func (m *mockDisplayTermsCache) Get(_ context.Context, term string, maxResults int) ([]string, bool, error) {
	terms, ok := m.store[displayTermsKey(term, maxResults)]
	return terms, ok, nil
}

func (m *mockDisplayTermsCache) Put(_ context.Context, term string, maxResults int, terms []string) error {
	m.putCalls++
	m.store[displayTermsKey(term, maxResults)] = terms
	return nil
}

type mockInteractionCache struct {
	mockSweep
	store     map[string][]InteractionWarning
	lastCodes []string
	putCalls  int
}

func newMockInteractionCache() *mockInteractionCache {
	return &mockInteractionCache{store: make(map[string][]InteractionWarning)}
}

func (m *mockInteractionCache) Get(_ context.Context, key string) ([]InteractionWarning, bool, error) {
	warnings, ok := m.store[key]
	return warnings, ok, nil
}

func (m *mockInteractionCache) Put(_ context.Context, key string, codes []string, warnings []InteractionWarning) error {
	m.putCalls++
	m.lastCodes = codes
	m.store[key] = warnings
	return nil
}

type mockSyncLog struct {
	entries   []*SyncLogEntry
	appendErr error
}

func (m *mockSyncLog) Append(_ context.Context, entry *SyncLogEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockSyncLog) List(_ context.Context, limit, offset int) ([]*SyncLogEntry, int, error) {
	total := len(m.entries)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return m.entries[offset:end], total, nil
}

func (m *mockSyncLog) Latest(_ context.Context) (*SyncLogEntry, error) {
	if len(m.entries) == 0 {
		return nil, nil
	}
	return m.entries[len(m.entries)-1], nil
}

type mockFrequentSource struct {
	meds []FrequentMedication
	err  error
}

func (m *mockFrequentSource) MostPrescribed(_ context.Context, limit int) ([]FrequentMedication, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.meds) {
		return m.meds[:limit], nil
	}
	return m.meds, nil
}

// =========== Mock Vocabulary Client ===========

type mockVocab struct {
	searchCalls      int
	propsCalls       int
	relatedCalls     int
	ndcCalls         int
	displayCalls     int
	interactionCalls int
	suggestCalls     int

	searchFn      func(term string) (*rxnav.DrugGroup, error)
	propsFn       func(code string) ([]rxnav.PropConcept, error)
	relatedFn     func(code string) (*rxnav.RelatedGroup, error)
	ndcFn         func(code string) ([]string, error)
	displayFn     func(term string, maxResults int) ([]string, error)
	interactionFn func(codes []string) ([]rxnav.FullInteractionTypeGroup, error)
	suggestFn     func(term string) ([]string, error)
}

func (m *mockVocab) SearchDrugs(_ context.Context, term string) (*rxnav.DrugGroup, error) {
	m.searchCalls++
	if m.searchFn == nil {
		return nil, fmt.Errorf("unexpected SearchDrugs call")
	}
	return m.searchFn(term)
}

func (m *mockVocab) AllProperties(_ context.Context, code string) ([]rxnav.PropConcept, error) {
	m.propsCalls++
	if m.propsFn == nil {
		return nil, fmt.Errorf("unexpected AllProperties call")
	}
	return m.propsFn(code)
}

func (m *mockVocab) AllRelated(_ context.Context, code string) (*rxnav.RelatedGroup, error) {
	m.relatedCalls++
	if m.relatedFn == nil {
		return nil, fmt.Errorf("unexpected AllRelated call")
	}
	return m.relatedFn(code)
}

func (m *mockVocab) NDCs(_ context.Context, code string) ([]string, error) {
	m.ndcCalls++
	if m.ndcFn == nil {
		return nil, fmt.Errorf("unexpected NDCs call")
	}
	return m.ndcFn(code)
}

func (m *mockVocab) DisplayTerms(_ context.Context, term string, maxResults int) ([]string, error) {
	m.displayCalls++
	if m.displayFn == nil {
		return nil, fmt.Errorf("unexpected DisplayTerms call")
	}
	return m.displayFn(term, maxResults)
}

func (m *mockVocab) InteractionList(_ context.Context, codes []string) ([]rxnav.FullInteractionTypeGroup, error) {
	m.interactionCalls++
	if m.interactionFn == nil {
		return nil, fmt.Errorf("unexpected InteractionList call")
	}
	return m.interactionFn(codes)
}

func (m *mockVocab) SpellingSuggestions(_ context.Context, term string) ([]string, error) {
	m.suggestCalls++
	if m.suggestFn == nil {
		return nil, fmt.Errorf("unexpected SpellingSuggestions call")
	}
	return m.suggestFn(term)
}
