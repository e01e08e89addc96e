package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gstaudit/internal/csvexport"
	"gstaudit/internal/domain"
	"gstaudit/internal/middleware"
	"gstaudit/internal/service"
	"gstaudit/internal/validator/invoice"
)

// DefaultMaxBatch caps the number of invoices in one batch request.
const DefaultMaxBatch = 200

// ValidationHandler handles invoice validation endpoints.
type ValidationHandler struct {
	svc      service.ValidationService
	maxBatch int
	now      func() time.Time
}

// NewValidationHandler creates a new ValidationHandler.
func NewValidationHandler(svc service.ValidationService, maxBatch int) *ValidationHandler {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &ValidationHandler{svc: svc, maxBatch: maxBatch, now: time.Now}
}

// Validate handles POST /api/v1/validations
// @Summary Validate an invoice
// @Description Run the full compliance battery against one normalized invoice
// @Tags validations
// @Accept json
// @Produce json
// @Param request body invoice.Invoice true "Normalized invoice"
// @Success 200 {object} Response{data=domain.Report} "Validation report"
// @Failure 400 {object} ErrorResponseBody "Malformed invoice JSON"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 503 {object} ErrorResponseBody "Reference data not loaded"
// @Security BearerAuth
// @Router /validations [post]
func (h *ValidationHandler) Validate(c *gin.Context) {
	var inv invoice.Invoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid invoice JSON: "+err.Error())
		return
	}
	report, err := h.svc.Validate(c.Request.Context(), &inv)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, report)
}

// ValidateBatch handles POST /api/v1/validations/batch
// @Summary Validate a batch of invoices
// @Description Validate invoices concurrently; one outcome per invoice plus a summary
// @Tags validations
// @Accept json
// @Produce json
// @Param request body BatchRequest true "Invoices"
// @Success 200 {object} Response{data=service.BatchReport} "Batch report"
// @Failure 400 {object} ErrorResponseBody "Empty or oversized batch"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /validations/batch [post]
func (h *ValidationHandler) ValidateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid batch JSON: "+err.Error())
		return
	}
	if len(req.Invoices) > h.maxBatch {
		RespondError(c, http.StatusBadRequest, "BATCH_TOO_LARGE",
			fmt.Sprintf("batch has %d invoices; at most %d allowed", len(req.Invoices), h.maxBatch))
		return
	}
	batch, err := h.svc.ValidateBatch(c.Request.Context(), req.Invoices)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, batch)
}

// Get handles GET /api/v1/validations/:run_id
// @Summary Get a validation report
// @Tags validations
// @Produce json
// @Param run_id path string true "Run ID (UUID)"
// @Success 200 {object} Response{data=domain.Report}
// @Failure 400 {object} ErrorResponseBody "Invalid run ID"
// @Failure 404 {object} ErrorResponseBody "Report not found"
// @Security BearerAuth
// @Router /validations/{run_id} [get]
func (h *ValidationHandler) Get(c *gin.Context) {
	report, ok := h.lookup(c)
	if !ok {
		return
	}
	RespondOK(c, report)
}

// ExportRun handles GET /api/v1/validations/:run_id/export
// @Summary Export one report's checks as CSV
// @Tags validations
// @Produce text/csv
// @Param run_id path string true "Run ID (UUID)"
// @Success 200 {file} file "CSV with one row per check"
// @Failure 404 {object} ErrorResponseBody "Report not found"
// @Security BearerAuth
// @Router /validations/{run_id}/export [get]
func (h *ValidationHandler) ExportRun(c *gin.Context) {
	report, ok := h.lookup(c)
	if !ok {
		return
	}
	name := report.Result.InvoiceID + "_checks"
	h.writeCSV(c, csvexport.BuildFilename(name, h.now()), []*domain.Report{report}, true)
}

func (h *ValidationHandler) lookup(c *gin.Context) (*domain.Report, bool) {
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "run_id must be a valid UUID")
		return nil, false
	}
	report, err := h.svc.Get(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return nil, false
	}
	return report, true
}

// ListByInvoice handles GET /api/v1/reports
// @Summary List reports for an invoice
// @Description Reports for an invoice number, newest first
// @Tags reports
// @Produce json
// @Param invoice_number query string true "Invoice number"
// @Param limit query int false "Max results" default(50)
// @Success 200 {object} Response{data=[]domain.Report,meta=PagMeta}
// @Failure 400 {object} ErrorResponseBody "Missing invoice number"
// @Security BearerAuth
// @Router /reports [get]
func (h *ValidationHandler) ListByInvoice(c *gin.Context) {
	invoiceNumber, limit, ok := listParams(c)
	if !ok {
		return
	}
	reports, err := h.svc.ListByInvoice(c.Request.Context(), invoiceNumber, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	if reports == nil {
		reports = []*domain.Report{}
	}
	RespondPaginated(c, reports, PagMeta{Total: len(reports), Limit: limit})
}

// ExportByInvoice handles GET /api/v1/reports/export
// @Summary Export an invoice's reports as CSV
// @Description One row per report, or one row per check with detail=checks
// @Tags reports
// @Produce text/csv
// @Param invoice_number query string true "Invoice number"
// @Param detail query string false "summary or checks" default(summary)
// @Param limit query int false "Max reports" default(50)
// @Success 200 {file} file "CSV export"
// @Failure 400 {object} ErrorResponseBody "Bad query"
// @Security BearerAuth
// @Router /reports/export [get]
func (h *ValidationHandler) ExportByInvoice(c *gin.Context) {
	invoiceNumber, limit, ok := listParams(c)
	if !ok {
		return
	}
	var checks bool
	switch c.DefaultQuery("detail", "summary") {
	case "summary":
	case "checks":
		checks = true
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_QUERY", "detail must be summary or checks")
		return
	}
	reports, err := h.svc.ListByInvoice(c.Request.Context(), invoiceNumber, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	h.writeCSV(c, csvexport.BuildFilename(invoiceNumber, h.now()), reports, checks)
}

func listParams(c *gin.Context) (string, int, bool) {
	invoiceNumber := c.Query("invoice_number")
	if invoiceNumber == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_QUERY", "invoice_number is required")
		return "", 0, false
	}
	limit := service.DefaultListLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_QUERY", "limit must be a positive integer")
			return "", 0, false
		}
		limit = n
	}
	return invoiceNumber, limit, true
}

func (h *ValidationHandler) writeCSV(c *gin.Context, filename string, reports []*domain.Report, checks bool) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write(csvexport.BOM); err != nil {
		return
	}
	w := csvexport.NewWriter(c.Writer)
	var err error
	if checks {
		if err = w.WriteCheckHeader(); err == nil {
			err = w.WriteChecks(reports)
		}
	} else {
		if err = w.WriteSummaryHeader(); err == nil {
			err = w.WriteReports(reports)
		}
	}
	w.Flush()
	if err == nil {
		err = w.Error()
	}
	if err != nil {
		middleware.LoggerFrom(c).Error("handler: csv export failed", zap.Error(err))
	}
}
