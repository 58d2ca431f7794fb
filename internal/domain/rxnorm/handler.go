package rxnorm

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/auth"
	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/pkg/pagination"
)

// Handler provides REST endpoints for the medication reference cache.
type Handler struct {
	svc     *Service
	syncer  *Syncer
	janitor *Janitor
	syncLog SyncLogRepository
}

// NewHandler creates a new medication reference handler.
func NewHandler(svc *Service, syncer *Syncer, janitor *Janitor, syncLog SyncLogRepository) *Handler {
	return &Handler{svc: svc, syncer: syncer, janitor: janitor, syncLog: syncLog}
}

// RegisterRoutes registers medication routes on the API group. Sync and
// cache-clear triggers are gated behind admin/physician/pharmacist roles.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	meds := api.Group("/medications", auth.RequireRole("admin", "physician", "nurse", "pharmacist"))
	meds.GET("/search", h.Search)
	meds.GET("/autocomplete", h.Autocomplete)
	meds.GET("/suggestions", h.SpellingSuggestions)
	meds.POST("/interactions", h.CheckInteractions)
	meds.GET("/:code", h.Resolve)
	meds.GET("/:code/details", h.Details)
	meds.GET("/:code/ndcs", h.NDCs)

	admin := api.Group("/medications", auth.RequireRole("admin", "physician", "pharmacist"))
	admin.POST("/sync/popular", h.SyncPopular)
	admin.POST("/sync/specific", h.SyncSpecific)
	admin.GET("/sync/log", h.SyncLog)
	admin.GET("/sync/latest", h.SyncLatest)
	admin.POST("/cache/clear", h.ClearCache)
}

// Search handles GET /api/v1/medications/search?q=...
func (h *Handler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	results, err := h.svc.SearchByName(c.Request().Context(), query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

// Autocomplete handles GET /api/v1/medications/autocomplete?q=...&max_results=...
func (h *Handler) Autocomplete(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	maxResults, _ := strconv.Atoi(c.QueryParam("max_results"))
	terms, err := h.svc.GetDisplayTerms(c.Request().Context(), query, maxResults)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, terms)
}

// SpellingSuggestions handles GET /api/v1/medications/suggestions?q=...
func (h *Handler) SpellingSuggestions(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	suggestions, err := h.svc.GetSpellingSuggestions(c.Request().Context(), query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, suggestions)
}

// Resolve handles GET /api/v1/medications/:code
func (h *Handler) Resolve(c echo.Context) error {
	code := c.Param("code")
	concept, err := h.svc.ResolveByCode(c.Request().Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "medication not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, concept)
}

// Details handles GET /api/v1/medications/:code/details
func (h *Handler) Details(c echo.Context) error {
	code := c.Param("code")
	details, err := h.svc.GetDetails(c.Request().Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "medication details not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, details)
}

// NDCs handles GET /api/v1/medications/:code/ndcs
func (h *Handler) NDCs(c echo.Context) error {
	code := c.Param("code")
	entries, err := h.svc.GetNDCs(c.Request().Context(), code)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

type interactionRequest struct {
	Codes []string `json:"codes"`
}

// CheckInteractions handles POST /api/v1/medications/interactions.
// An empty result means "no known interaction found", not verified-safe.
func (h *Handler) CheckInteractions(c echo.Context) error {
	var req interactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	warnings, err := h.svc.CheckInteractions(c.Request().Context(), req.Codes)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, warnings)
}

type syncPopularRequest struct {
	Limit int `json:"limit"`
}

// SyncPopular handles POST /api/v1/medications/sync/popular
func (h *Handler) SyncPopular(c echo.Context) error {
	var req syncPopularRequest
	if err := c.Bind(&req); err != nil && c.Request().ContentLength > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Limit <= 0 {
		req.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	}
	result, err := h.syncer.SyncFrequentlyUsed(c.Request().Context(), req.Limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

type syncSpecificRequest struct {
	Items []SyncItem `json:"items"`
}

// SyncSpecific handles POST /api/v1/medications/sync/specific
func (h *Handler) SyncSpecific(c echo.Context) error {
	var req syncSpecificRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "items list is required")
	}
	result, err := h.syncer.SyncSpecific(c.Request().Context(), req.Items)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// SyncLog handles GET /api/v1/medications/sync/log
func (h *Handler) SyncLog(c echo.Context) error {
	params := pagination.FromContext(c)
	entries, total, err := h.syncLog.List(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if entries == nil {
		entries = []*SyncLogEntry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, params.Limit, params.Offset))
}

// SyncLatest handles GET /api/v1/medications/sync/latest
func (h *Handler) SyncLatest(c echo.Context) error {
	entry, err := h.syncLog.Latest(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if entry == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no sync has run yet")
	}
	return c.JSON(http.StatusOK, entry)
}

type clearCacheRequest struct {
	RetentionDays int `json:"retention_days"`
}

// ClearCache handles POST /api/v1/medications/cache/clear
func (h *Handler) ClearCache(c echo.Context) error {
	var req clearCacheRequest
	if err := c.Bind(&req); err != nil && c.Request().ContentLength > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RetentionDays <= 0 {
		req.RetentionDays, _ = strconv.Atoi(c.QueryParam("retention_days"))
	}
	results := h.janitor.ClearExpired(c.Request().Context(), req.RetentionDays)
	return c.JSON(http.StatusOK, results)
}
