package handler

import (
	"gstaudit/internal/validator/invoice"
)

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// BatchRequest represents the batch validation request body.
type BatchRequest struct {
	Invoices []*invoice.Invoice `json:"invoices" binding:"required"`
}

// --- Response Types ---

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status           string `json:"status" example:"ok"`
	ReferenceVersion string `json:"reference_version,omitempty" example:"3f9a1c0be27d4410"`
	Error            string `json:"error,omitempty"`
}

// RateResponse is the answer of a rate lookup.
type RateResponse struct {
	Code          string  `json:"code" example:"995411"`
	Description   string  `json:"description" example:"Construction services of buildings"`
	AsOf          string  `json:"as_of" example:"2024-11-15"`
	CGST          float64 `json:"cgst" example:"6"`
	SGST          float64 `json:"sgst" example:"6"`
	IGST          float64 `json:"igst" example:"12"`
	Total         float64 `json:"total" example:"12"`
	EffectiveFrom string  `json:"effective_from" example:"2019-04-01"`
	EffectiveTo   string  `json:"effective_to,omitempty"`
	Historical    bool    `json:"historical"`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
