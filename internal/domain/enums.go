package domain

// CheckStatus is the outcome of a single compliance check.
type CheckStatus string

const (
	CheckStatusPass    CheckStatus = "PASS"
	CheckStatusFail    CheckStatus = "FAIL"
	CheckStatusWarning CheckStatus = "WARNING"
	CheckStatusSkipped CheckStatus = "SKIPPED"
)

// Valid reports whether s is one of the known statuses.
func (s CheckStatus) Valid() bool {
	switch s {
	case CheckStatusPass, CheckStatusFail, CheckStatusWarning, CheckStatusSkipped:
		return true
	}
	return false
}

// Severity ranks how serious a failed check is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IsCritical is true for HIGH and CRITICAL.
func (s Severity) IsCritical() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Category identifies one of the five check families. The letter is the
// prefix of every check ID in the category.
type Category string

const (
	CategoryVendor     Category = "A"
	CategoryGST        Category = "B"
	CategoryArithmetic Category = "C"
	CategoryTDS        Category = "D"
	CategoryPolicy     Category = "E"
)

// AllCategories lists categories in report order.
var AllCategories = []Category{
	CategoryVendor,
	CategoryGST,
	CategoryArithmetic,
	CategoryTDS,
	CategoryPolicy,
}

// Name returns the human-readable category name.
func (c Category) Name() string {
	switch c {
	case CategoryVendor:
		return "Vendor & Document"
	case CategoryGST:
		return "GST Compliance"
	case CategoryArithmetic:
		return "Arithmetic"
	case CategoryTDS:
		return "TDS Compliance"
	case CategoryPolicy:
		return "Company Policy"
	}
	return string(c)
}

// Key is the lower-case config key used for per-category enable flags.
func (c Category) Key() string {
	switch c {
	case CategoryVendor:
		return "vendor"
	case CategoryGST:
		return "gst"
	case CategoryArithmetic:
		return "arithmetic"
	case CategoryTDS:
		return "tds"
	case CategoryPolicy:
		return "policy"
	}
	return string(c)
}

// OverallStatus is the aggregate verdict for an invoice.
type OverallStatus string

const (
	OverallStatusPass         OverallStatus = "PASS"
	OverallStatusFail         OverallStatus = "FAIL"
	OverallStatusInvalidInput OverallStatus = "INVALID_INPUT"
)

// VendorStatus is the registration state of a vendor in the registry.
type VendorStatus string

const (
	VendorStatusActive    VendorStatus = "ACTIVE"
	VendorStatusSuspended VendorStatus = "SUSPENDED"
	VendorStatusCancelled VendorStatus = "CANCELLED"
)

// VendorType drives TDS section selection.
type VendorType string

const (
	VendorTypeContractor      VendorType = "CONTRACTOR"
	VendorTypeProfessional    VendorType = "PROFESSIONAL"
	VendorTypeConsultant      VendorType = "CONSULTANT"
	VendorTypeCommissionAgent VendorType = "COMMISSION_AGENT"
	VendorTypeLandlord        VendorType = "LANDLORD"
	VendorTypeSupplier        VendorType = "SUPPLIER"
	VendorTypeOthers          VendorType = "OTHERS"
)

// EntityType distinguishes companies from individuals for TDS rates.
type EntityType string

const (
	EntityTypeCompany     EntityType = "COMPANY"
	EntityTypeIndividual  EntityType = "INDIVIDUAL"
	EntityTypeHUF         EntityType = "HUF"
	EntityTypeFirm        EntityType = "FIRM"
	EntityTypeUnspecified EntityType = ""
)

// ResidentStatus is the tax residency of a vendor.
type ResidentStatus string

const (
	ResidentStatusResident    ResidentStatus = "RESIDENT"
	ResidentStatusNonResident ResidentStatus = "NON_RESIDENT"
)

// DocumentType is the GST document kind.
type DocumentType string

const (
	DocumentTypeTaxInvoice   DocumentType = "TAX_INVOICE"
	DocumentTypeBillOfSupply DocumentType = "BILL_OF_SUPPLY"
	DocumentTypeCreditNote   DocumentType = "CREDIT_NOTE"
	DocumentTypeDebitNote    DocumentType = "DEBIT_NOTE"
)
