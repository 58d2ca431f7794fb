// Package rxnav is a typed HTTP client for the external drug vocabulary
// service (an RxNav-style REST API). Every method is context-aware and
// returns *UpstreamError on transport failures, non-2xx responses, or
// undecodable payloads so callers can classify and degrade instead of
// propagating hard failures.
package rxnav

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/metrics"
)

// UpstreamError describes a failed call to the vocabulary service.
// Status is zero when the request never produced an HTTP response.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("rxnav %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("rxnav %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Client talks to the vocabulary REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient builds a client for the given base URL (e.g.
// https://rxnav.nlm.nih.gov/REST). The timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "rxnav").Logger(),
	}
}

// getJSON performs a GET against path with the given query and decodes the
// JSON body into out.
func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		c.logger.Warn().Str("op", op).Err(err).Msg("vocabulary request failed")
		return &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	metrics.UpstreamRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("op", op).Int("status", resp.StatusCode).Msg("vocabulary request returned non-200")
		return &UpstreamError{Op: op, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// SearchDrugs queries the drug-search endpoint for the given term and returns
// the concept groups exactly as the source ordered them.
func (c *Client) SearchDrugs(ctx context.Context, term string) (*DrugGroup, error) {
	q := url.Values{}
	q.Set("name", term)

	var resp drugsResponse
	if err := c.getJSON(ctx, "drugs", "/drugs.json", q, &resp); err != nil {
		return nil, err
	}
	return &resp.DrugGroup, nil
}

// AllProperties fetches the property list for a concept code. The property
// named "RxNorm Name" supplies the display name.
func (c *Client) AllProperties(ctx context.Context, code string) ([]PropConcept, error) {
	q := url.Values{}
	q.Set("prop", "names")

	var resp allPropertiesResponse
	path := fmt.Sprintf("/rxcui/%s/allProperties.json", url.PathEscape(code))
	if err := c.getJSON(ctx, "allProperties", path, q, &resp); err != nil {
		return nil, err
	}
	return resp.PropConceptGroup.PropConcept, nil
}

// AllRelated fetches the related concept groups for a code (ingredients,
// brand names, dose forms, clinical drug components, ...).
func (c *Client) AllRelated(ctx context.Context, code string) (*RelatedGroup, error) {
	var resp allRelatedResponse
	path := fmt.Sprintf("/rxcui/%s/allrelated.json", url.PathEscape(code))
	if err := c.getJSON(ctx, "allrelated", path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.AllRelatedGroup, nil
}

// NDCs fetches the flat list of NDC strings associated with a code.
func (c *Client) NDCs(ctx context.Context, code string) ([]string, error) {
	var resp ndcsResponse
	path := fmt.Sprintf("/rxcui/%s/ndcs.json", url.PathEscape(code))
	if err := c.getJSON(ctx, "ndcs", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.NDCGroup.NDCList.NDC, nil
}

// DisplayTerms queries the autocomplete endpoint for terms matching the
// given prefix, capped at maxResults by the source.
func (c *Client) DisplayTerms(ctx context.Context, term string, maxResults int) ([]string, error) {
	q := url.Values{}
	q.Set("name", term)
	q.Set("maxResults", strconv.Itoa(maxResults))

	var resp displayTermsResponse
	if err := c.getJSON(ctx, "displaynames", "/displaynames.json", q, &resp); err != nil {
		return nil, err
	}
	return resp.DisplayTermsList.Term, nil
}

// InteractionList checks pairwise interactions between the given codes.
// The source expects the codes as a single space-separated list.
func (c *Client) InteractionList(ctx context.Context, codes []string) ([]FullInteractionTypeGroup, error) {
	q := url.Values{}
	q.Set("rxcuis", strings.Join(codes, " "))

	var resp interactionListResponse
	if err := c.getJSON(ctx, "interactionList", "/interaction/list.json", q, &resp); err != nil {
		return nil, err
	}
	return resp.FullInteractionTypeGroup, nil
}

// SpellingSuggestions returns alternate spellings for a term the source
// could not match.
func (c *Client) SpellingSuggestions(ctx context.Context, term string) ([]string, error) {
	q := url.Values{}
	q.Set("name", term)

	var resp suggestionsResponse
	if err := c.getJSON(ctx, "spellingsuggestions", "/spellingsuggestions.json", q, &resp); err != nil {
		return nil, err
	}
	return resp.SuggestionGroup.SuggestionList.Suggestion, nil
}
