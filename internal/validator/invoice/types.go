package invoice

import (
	"strings"
	"time"

	"gstaudit/internal/domain"
)

// Invoice is the normalized invoice record handed to the engine by an
// extraction collaborator. Checks never mutate it.
type Invoice struct {
	InvoiceNumber string              `json:"invoice_number"`
	InvoiceDate   string              `json:"invoice_date"`
	DocumentType  domain.DocumentType `json:"document_type"`

	Seller Party `json:"seller"`
	Buyer  Party `json:"buyer"`

	LineItems    []LineItem `json:"line_items"`
	Subtotal     float64    `json:"subtotal"`
	Discount     float64    `json:"discount"`
	TaxableValue *float64   `json:"taxable_value,omitempty"`
	CGSTAmount   float64    `json:"cgst_amount"`
	SGSTAmount   float64    `json:"sgst_amount"`
	IGSTAmount   float64    `json:"igst_amount"`
	Cess         float64    `json:"cess"`
	TotalTax     *float64   `json:"total_tax,omitempty"`
	TotalAmount  float64    `json:"total_amount"`

	PlaceOfSupply string `json:"place_of_supply"`
	IRN           string `json:"irn"`
	IRNDate       string `json:"irn_date"`
	QRCodePresent bool   `json:"qr_code_present"`
	ReverseCharge bool   `json:"reverse_charge"`
	EInvoice      bool   `json:"e_invoice"`

	TDSApplicable bool    `json:"tds_applicable"`
	TDSSection    string  `json:"tds_section"`
	TDSRate       float64 `json:"tds_rate"`
	TDSAmount     float64 `json:"tds_amount"`
	TAN           string  `json:"tan"`

	POReference  string  `json:"po_reference"`
	PODate       string  `json:"po_date"`
	POAmount     float64 `json:"po_amount"`
	PaymentTerms string  `json:"payment_terms"`
	PaymentDays  int     `json:"payment_days"`
	DueDate      string  `json:"due_date"`
	CostCenter   string  `json:"cost_center"`
	Notes        string  `json:"notes"`

	Bank BankDetails `json:"bank"`
}

// Party represents a seller or buyer.
type Party struct {
	Name      string `json:"name"`
	GSTIN     string `json:"gstin"`
	PAN       string `json:"pan"`
	Address   string `json:"address"`
	State     string `json:"state"`
	StateCode string `json:"state_code"`
}

// LineItem is a single invoice line. Quantity x Rate should equal Amount.
type LineItem struct {
	Description  string   `json:"description"`
	HSNSAC       string   `json:"hsn_sac"`
	Quantity     float64  `json:"quantity"`
	Unit         string   `json:"unit"`
	Rate         float64  `json:"rate"`
	Amount       float64  `json:"amount"`
	Discount     float64  `json:"discount"`
	TaxableValue *float64 `json:"taxable_value,omitempty"`
	TaxRate      *float64 `json:"tax_rate,omitempty"`
	CGST         float64  `json:"cgst"`
	SGST         float64  `json:"sgst"`
	IGST         float64  `json:"igst"`
}

// BankDetails holds optional remittance details.
type BankDetails struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	IFSCCode      string `json:"ifsc_code"`
}

// Taxable returns the line's taxable value, deriving it from amount and discount.
func (li *LineItem) Taxable() float64 {
	if li.TaxableValue != nil {
		return *li.TaxableValue
	}
	return li.Amount - li.Discount
}

// TaxTotal is the sum of the line's GST components.
func (li *LineItem) TaxTotal() float64 {
	return li.CGST + li.SGST + li.IGST
}

// DeclaredRate returns the declared GST rate in percent. When no explicit rate
// is present it is derived from the tax amounts.
func (li *LineItem) DeclaredRate() float64 {
	if li.TaxRate != nil {
		return *li.TaxRate
	}
	base := li.Taxable()
	if base == 0 {
		return 0
	}
	return li.TaxTotal() / base * 100
}

// Taxable returns the invoice taxable value, deriving it from subtotal and discount.
func (inv *Invoice) Taxable() float64 {
	if inv.TaxableValue != nil {
		return *inv.TaxableValue
	}
	return inv.Subtotal - inv.Discount
}

// Tax returns the declared total tax, or the sum of components when absent.
func (inv *Invoice) Tax() float64 {
	if inv.TotalTax != nil {
		return *inv.TotalTax
	}
	return inv.TaxComponents()
}

// TaxComponents is cgst + sgst + igst + cess.
func (inv *Invoice) TaxComponents() float64 {
	return inv.CGSTAmount + inv.SGSTAmount + inv.IGSTAmount + inv.Cess
}

// Date parses InvoiceDate.
func (inv *Invoice) Date() (time.Time, error) {
	return ParseDate(inv.InvoiceDate)
}

// IsInterstate compares the seller and buyer state codes taken from the GSTINs,
// falling back to the declared states.
func (inv *Invoice) IsInterstate() bool {
	s, b := StateCodeOf(inv.Seller), StateCodeOf(inv.Buyer)
	if s != "" && b != "" {
		return s != b
	}
	if inv.Seller.State != "" && inv.Buyer.State != "" {
		return !strings.EqualFold(inv.Seller.State, inv.Buyer.State)
	}
	return false
}

// Descriptions returns the lower-cased line descriptions.
func (inv *Invoice) Descriptions() []string {
	out := make([]string, 0, len(inv.LineItems))
	for i := range inv.LineItems {
		out = append(out, strings.ToLower(inv.LineItems[i].Description))
	}
	return out
}

// ContainsAny reports whether any line description or the notes contain one of
// the keywords.
func (inv *Invoice) ContainsAny(keywords []string) (string, bool) {
	texts := append(inv.Descriptions(), strings.ToLower(inv.Notes))
	for _, t := range texts {
		for _, k := range keywords {
			if k != "" && strings.Contains(t, strings.ToLower(k)) {
				return k, true
			}
		}
	}
	return "", false
}

// StructuralErrors lists the problems that make the invoice unusable as a
// whole. An empty result means the checks can run.
func (inv *Invoice) StructuralErrors() []string {
	var errs []string
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		errs = append(errs, "invoice_number is missing")
	}
	if strings.TrimSpace(inv.InvoiceDate) == "" {
		errs = append(errs, "invoice_date is missing")
	} else if _, err := inv.Date(); err != nil {
		errs = append(errs, "invoice_date is not a valid date")
	}
	if len(inv.LineItems) == 0 {
		errs = append(errs, "invoice has no line items")
	}
	return errs
}
