package crossref

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/rs/zerolog"
)

type mockRepo struct {
	store       map[string]*Mapping
	upsertCalls int
	upsertErr   error
	verifyErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[string]*Mapping)}
}

func (m *mockRepo) GetByRxNormCode(_ context.Context, rxnormCode string) (*Mapping, error) {
	return m.store[rxnormCode], nil
}

func (m *mockRepo) Upsert(_ context.Context, mapping *Mapping) error {
	m.upsertCalls++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	cp := *mapping
	m.store[mapping.RxNormCode] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Mapping, int, error) {
	codes := make([]string, 0, len(m.store))
	for code := range m.store {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		return m.store[codes[i]].MedicationName < m.store[codes[j]].MedicationName
	})

	total := len(codes)
	if offset >= total {
		return []*Mapping{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := []*Mapping{}
	for _, code := range codes[offset:end] {
		page = append(page, m.store[code])
	}
	return page, total, nil
}

func (m *mockRepo) SetVerified(_ context.Context, rxnormCode string, verified bool) error {
	if m.verifyErr != nil {
		return m.verifyErr
	}
	mapping, ok := m.store[rxnormCode]
	if !ok {
		return ErrNotFound
	}
	mapping.IsVerified = verified
	return nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func TestMapToAnvisa_UnknownCodeIsEmptyNotError(t *testing.T) {
	svc, _ := newTestService()

	code, err := svc.MapToAnvisa(context.Background(), "999999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "" {
		t.Errorf("expected empty code for unknown mapping, got %q", code)
	}
}

func TestMapToAnvisa_KnownCode(t *testing.T) {
	svc, repo := newTestService()
	repo.store["207106"] = &Mapping{RxNormCode: "207106", AnvisaCode: "12345ANVISA"}

	code, err := svc.MapToAnvisa(context.Background(), "207106")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "12345ANVISA" {
		t.Errorf("expected 12345ANVISA, got %q", code)
	}
}

func TestSaveMapping_UpsertIdempotence(t *testing.T) {
	svc, repo := newTestService()

	if ok := svc.SaveMapping(context.Background(), "207106", "12345ANVISA", "Amoxicillin", false); !ok {
		t.Fatal("expected first save to succeed")
	}
	if ok := svc.SaveMapping(context.Background(), "207106", "67890ANVISA", "Amoxicillin BR", true); !ok {
		t.Fatal("expected second save to succeed")
	}

	if len(repo.store) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(repo.store))
	}
	mapping := repo.store["207106"]
	if mapping.AnvisaCode != "67890ANVISA" || !mapping.IsVerified {
		t.Errorf("expected second call's values to win, got %+v", mapping)
	}
}

func TestSaveMapping_FailureReturnsFalse(t *testing.T) {
	svc, repo := newTestService()
	repo.upsertErr = errors.New("connection refused")

	if ok := svc.SaveMapping(context.Background(), "207106", "12345ANVISA", "Amoxicillin", false); ok {
		t.Error("expected false on persistence failure")
	}
}

func TestVerify_RoundTrips(t *testing.T) {
	svc, repo := newTestService()
	svc.SaveMapping(context.Background(), "207106", "12345ANVISA", "Amoxicillin", false)

	if err := svc.Verify(context.Background(), "207106", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.store["207106"].IsVerified {
		t.Error("expected mapping to be verified")
	}

	if err := svc.Verify(context.Background(), "207106", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.store["207106"].IsVerified {
		t.Error("expected mapping to be unverified again")
	}
}

func TestVerify_UnknownCode(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Verify(context.Background(), "999999", true)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetMapping_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.GetMapping(context.Background(), "999999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListMappings_Paginated(t *testing.T) {
	svc, _ := newTestService()
	svc.SaveMapping(context.Background(), "1", "A1", "amoxicillin", false)
	svc.SaveMapping(context.Background(), "2", "A2", "fluconazole", false)
	svc.SaveMapping(context.Background(), "3", "A3", "warfarin", false)

	page, total, err := svc.ListMappings(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(page) != 2 || page[0].MedicationName != "amoxicillin" {
		t.Errorf("unexpected page %v", page)
	}
}
