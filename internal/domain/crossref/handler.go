package crossref

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/auth"
	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/pkg/pagination"
)

// Handler provides REST endpoints for the ANVISA mapping curation surface.
type Handler struct {
	svc *Service
}

// NewHandler creates a new cross-reference handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers mapping routes on the API group. Writes are
// gated behind admin/pharmacist roles.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/mappings", auth.RequireRole("admin", "physician", "nurse", "pharmacist"))
	read.GET("", h.List)
	read.GET("/:code", h.Get)

	write := api.Group("/mappings", auth.RequireRole("admin", "pharmacist"))
	write.PUT("/:code", h.Save)
	write.POST("/:code/verify", h.Verify)
}

// List handles GET /api/v1/mappings
func (h *Handler) List(c echo.Context) error {
	params := pagination.FromContext(c)
	mappings, total, err := h.svc.ListMappings(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(mappings, total, params.Limit, params.Offset))
}

// Get handles GET /api/v1/mappings/:code
func (h *Handler) Get(c echo.Context) error {
	mapping, err := h.svc.GetMapping(c.Request().Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "mapping not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, mapping)
}

type saveMappingRequest struct {
	AnvisaCode     string `json:"anvisa_code"`
	MedicationName string `json:"medication_name"`
	IsVerified     bool   `json:"is_verified"`
}

// Save handles PUT /api/v1/mappings/:code
func (h *Handler) Save(c echo.Context) error {
	var req saveMappingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AnvisaCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "anvisa_code is required")
	}

	code := c.Param("code")
	if ok := h.svc.SaveMapping(c.Request().Context(), code, req.AnvisaCode, req.MedicationName, req.IsVerified); !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "mapping save failed")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"saved": true, "rxnorm_code": code})
}

type verifyRequest struct {
	Verified *bool `json:"verified"`
}

// Verify handles POST /api/v1/mappings/:code/verify
func (h *Handler) Verify(c echo.Context) error {
	verified := true
	var req verifyRequest
	if err := c.Bind(&req); err == nil && req.Verified != nil {
		verified = *req.Verified
	}

	code := c.Param("code")
	if err := h.svc.Verify(c.Request().Context(), code, verified); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "mapping not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"rxnorm_code": code, "is_verified": verified})
}
