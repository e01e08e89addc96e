package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"gstaudit/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db   *sqlx.DB
	refs service.ReferenceService
}

// NewHealthHandler creates a new HealthHandler. db may be nil when no database is wired.
func NewHealthHandler(db *sqlx.DB, refs service.ReferenceService) *HealthHandler {
	return &HealthHandler{db: db, refs: refs}
}

// Liveness handles GET /healthz
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
// @Summary Readiness probe
// @Description Ready once a reference snapshot is published and the database (if any) answers
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	snap := h.refs.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "reference data not loaded"})
		return
	}
	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database not reachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "reference_version": snap.Version})
}
