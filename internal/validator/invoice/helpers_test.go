package invoice_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gstaudit/internal/domain"
	"gstaudit/internal/port"
	"gstaudit/internal/refdata"
	"gstaudit/internal/validator/invoice"
)

const referenceDir = "../../../testdata/reference"

var (
	snapOnce sync.Once
	snap     *refdata.Snapshot
	snapErr  error
)

// runDate is the run date every test evaluates against.
var runDate = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

func testSnapshot(t *testing.T) *refdata.Snapshot {
	t.Helper()
	snapOnce.Do(func() {
		l := refdata.NewLoader(refdata.FSSource{FS: os.DirFS(referenceDir), Name: referenceDir}, nil)
		snap, snapErr = l.Load(context.Background())
	})
	require.NoError(t, snapErr)
	return snap
}

func ptr(v float64) *float64 { return &v }

// validInvoice is an intrastate IT consulting invoice from a known professional
// vendor to the company. Every check passes on it as of runDate.
func validInvoice() *invoice.Invoice {
	return &invoice.Invoice{
		InvoiceNumber: "TS/2024/118",
		InvoiceDate:   "2024-11-15",
		DocumentType:  domain.DocumentTypeTaxInvoice,
		Seller: invoice.Party{
			Name:  "TechServ Solutions Pvt. Ltd.",
			GSTIN: "27AABCT1234C1Z2",
			PAN:   "AABCT1234C",
			State: "Maharashtra",
		},
		Buyer: invoice.Party{
			Name:  "Acme Industries Private Limited",
			GSTIN: "27AAACA1234B1Z5",
			State: "Maharashtra",
		},
		LineItems: []invoice.LineItem{
			{
				Description: "IT consulting services",
				HSNSAC:      "998314",
				Quantity:    10,
				Unit:        "DAY",
				Rate:        5000,
				Amount:      50000,
				TaxRate:     ptr(18),
				CGST:        4500,
				SGST:        4500,
			},
		},
		Subtotal:      50000,
		CGSTAmount:    4500,
		SGSTAmount:    4500,
		TotalAmount:   59000,
		PlaceOfSupply: "Maharashtra",
		TDSApplicable: true,
		TDSSection:    "194J",
		TDSRate:       10,
		TDSAmount:     5000,
		TAN:           "PNEA12345B",
		POReference:   "PO-2024-118",
		PODate:        "2024-11-01",
		POAmount:      59000,
		PaymentTerms:  "Net 30",
		DueDate:       "2024-12-15",
		CostCenter:    "CC-IT",
		Bank: invoice.BankDetails{
			BankName:      "HDFC Bank",
			AccountNumber: "50200012345678",
			IFSCCode:      "HDFC0001234",
		},
	}
}

type evalOption func(*invoice.EvalContext)

func withHistory(h invoice.History) evalOption {
	return func(ec *invoice.EvalContext) { ec.History = h }
}

func withAsOf(d time.Time) evalOption {
	return func(ec *invoice.EvalContext) { ec.AsOf = d }
}

func withAugmenter(a invoice.Augmenter) evalOption {
	return func(ec *invoice.EvalContext) {
		ec.Complex = true
		ec.Augmenter = a
	}
}

func complexWithoutAugmenter() evalOption {
	return func(ec *invoice.EvalContext) { ec.Complex = true }
}

func newEvalContext(t *testing.T, inv *invoice.Invoice, opts ...evalOption) *invoice.EvalContext {
	t.Helper()
	ec, err := invoice.NewEvalContext(inv, testSnapshot(t), invoice.History{}, runDate)
	require.NoError(t, err)
	for _, o := range opts {
		o(ec)
	}
	return ec
}

func findCheck(t *testing.T, id invoice.CheckID) *invoice.Check {
	t.Helper()
	for _, c := range invoice.AllChecks() {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("check %s not found", id)
	return nil
}

func evaluate(t *testing.T, id invoice.CheckID, inv *invoice.Invoice, opts ...evalOption) domain.CheckResult {
	t.Helper()
	return findCheck(t, id).Evaluate(context.Background(), newEvalContext(t, inv, opts...))
}

// stubAugmenter returns a fixed response or error and records requests.
type stubAugmenter struct {
	mu   sync.Mutex
	resp *port.ReasoningResponse
	err  error
	reqs []port.ReasoningRequest
}

func (s *stubAugmenter) Augment(_ context.Context, req port.ReasoningRequest) (*port.ReasoningResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	r := *s.resp
	return &r, nil
}
