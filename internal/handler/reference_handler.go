package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gstaudit/internal/domain"
	"gstaudit/internal/service"
)

// ReferenceHandler exposes the reference datasets.
type ReferenceHandler struct {
	refs service.ReferenceService
}

// NewReferenceHandler creates a new ReferenceHandler.
func NewReferenceHandler(refs service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{refs: refs}
}

// Stats handles GET /api/v1/reference
// @Summary Current reference snapshot
// @Tags reference
// @Produce json
// @Success 200 {object} Response{data=refdata.Stats}
// @Failure 503 {object} ErrorResponseBody "Reference data not loaded"
// @Security BearerAuth
// @Router /reference [get]
func (h *ReferenceHandler) Stats(c *gin.Context) {
	snap := h.refs.Current()
	if snap == nil {
		HandleError(c, domain.ErrReferenceUnavailable)
		return
	}
	RespondOK(c, snap.Stats())
}

// Reload handles POST /api/v1/reference/reload
// @Summary Reload reference data
// @Description Rebuild the snapshot from its source. The previous snapshot stays live on failure.
// @Tags reference
// @Produce json
// @Success 200 {object} Response{data=refdata.Stats}
// @Failure 503 {object} ErrorResponseBody "Reload failed"
// @Security BearerAuth
// @Router /reference/reload [post]
func (h *ReferenceHandler) Reload(c *gin.Context) {
	stats, err := h.refs.Reload(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, stats)
}

// LookupRate handles GET /api/v1/reference/rates/:code
// @Summary Look up a GST rate
// @Description Rate in force for an HSN/SAC code on a date (default today)
// @Tags reference
// @Produce json
// @Param code path string true "HSN/SAC code"
// @Param date query string false "As-of date (YYYY-MM-DD)"
// @Success 200 {object} Response{data=RateResponse}
// @Failure 400 {object} ErrorResponseBody "Bad date"
// @Failure 404 {object} ErrorResponseBody "Unknown code"
// @Security BearerAuth
// @Router /reference/rates/{code} [get]
func (h *ReferenceHandler) LookupRate(c *gin.Context) {
	asOf := time.Now().UTC()
	if s := c.Query("date"); s != "" {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_QUERY", "date must be YYYY-MM-DD")
			return
		}
		asOf = d
	}
	lookup, err := h.refs.LookupRate(c.Param("code"), asOf)
	if err != nil {
		HandleError(c, err)
		return
	}
	rec := lookup.Record
	resp := RateResponse{
		Code:          rec.Code,
		Description:   rec.Description,
		AsOf:          asOf.Format(time.DateOnly),
		CGST:          rec.CGST,
		SGST:          rec.SGST,
		IGST:          rec.IGST,
		Total:         rec.Total(),
		EffectiveFrom: rec.EffectiveFrom.Format(time.DateOnly),
		Historical:    lookup.Historical,
	}
	if rec.EffectiveTo != nil {
		resp.EffectiveTo = rec.EffectiveTo.Format(time.DateOnly)
	}
	RespondOK(c, resp)
}
