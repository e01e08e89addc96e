package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("resource not found")
	ErrInvalidInvoice       = errors.New("invoice is structurally invalid")
	ErrReferenceUnavailable = errors.New("reference data not loaded")
	ErrReasoningUnavailable = errors.New("reasoning service unavailable")
	ErrMalformedReasoning   = errors.New("reasoning service returned a malformed response")
	ErrResultNotFound       = errors.New("validation result not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrEmptyBatch           = errors.New("batch contains no invoices")
)

// ContractViolation signals a bug in the rule engine itself, such as a check
// producing a confidence outside [0,1]. It is raised with panic and is never
// converted into a data-quality result.
type ContractViolation struct {
	CheckID string
	Reason  string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation in check %s: %s", e.CheckID, e.Reason)
}
