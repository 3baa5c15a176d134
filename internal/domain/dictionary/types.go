// Package dictionary provides the reference-data domain: typed dictionary
// items, per-type capabilities, and the orchestrating Service used by the
// admin console (Справочники платёжного контура).
package dictionary

import (
	"fmt"
)

// Type identifies a dictionary (reference data set).
type Type string

const (
	TypeExpenseArticles Type = "expense-articles"
	TypeCounterparties  Type = "counterparties"
	TypeContracts       Type = "contracts"
	TypeNormatives      Type = "normatives"
	TypePriorities      Type = "priorities"
	TypeUsers           Type = "users"
	TypeCurrencies      Type = "currencies"
	TypeVatRates        Type = "vat-rates"
)

// AllTypes lists every dictionary type the service manages.
var AllTypes = []Type{
	TypeExpenseArticles,
	TypeCounterparties,
	TypeContracts,
	TypeNormatives,
	TypePriorities,
	TypeUsers,
	TypeCurrencies,
	TypeVatRates,
}

// ParseType validates a dictionary type string.
func ParseType(s string) (Type, error) {
	t := Type(s)
	for _, known := range AllTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown dictionary type: %q", s)
}

// String implements fmt.Stringer.
func (t Type) String() string { return string(t) }

// HasEndpoint reports whether the backend implements REST endpoints for the
// type. The production backend only serves counterparties, expense articles,
// VAT rates and currencies; the rest resolve to empty reads and rejected
// writes. This is a deliberate capability boundary, not an omission.
func (t Type) HasEndpoint() bool {
	switch t {
	case TypeExpenseArticles, TypeCounterparties, TypeCurrencies, TypeVatRates:
		return true
	}
	return false
}

// ReadOnly reports whether the dictionary forbids mutation after creation.
func (t Type) ReadOnly() bool {
	return t == TypeCurrencies
}

// Tag returns the cache tag for the type.
func (t Type) Tag() string { return string(t) }

// --- Roles ---

// Role is a workflow role in the payment-request approval process.
type Role string

const (
	RoleExecutor     Role = "executor"
	RoleRegistrar    Role = "registrar"
	RoleSubRegistrar Role = "sub_registrar"
	RoleDistributor  Role = "distributor"
	RoleTreasurer    Role = "treasurer"
	RoleAdmin        Role = "admin"
)

// OwnerRoles are the roles an expense article may be owned by.
var OwnerRoles = []Role{RoleExecutor, RoleRegistrar, RoleDistributor, RoleTreasurer, RoleAdmin}

// --- Counterparty categories ---

// Counterparty categories as maintained in production (labels are the
// Russian strings used across the whole contour, including the backend).
const (
	CategorySupplierAgro    = "Поставщик СХ"
	CategoryElevator        = "Элеватор"
	CategoryServiceProvider = "Поставщик Услуг"
	CategoryBuyer           = "Покупатель"
	CategoryPartnerBank     = "Партнер/БВУ"
)

// CounterpartyCategories lists the valid counterparty categories.
var CounterpartyCategories = []string{
	CategorySupplierAgro,
	CategoryElevator,
	CategoryServiceProvider,
	CategoryBuyer,
	CategoryPartnerBank,
}

// --- Bulk operation results ---

// BulkError records a single failed item inside a bulk operation.
type BulkError struct {
	ID    string `json:"id,omitempty"`
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BulkResult aggregates the outcome of a bulk operation. A bulk operation
// never aborts on a single item failure: it records the error and continues.
type BulkResult struct {
	SuccessCount int         `json:"success_count"`
	ErrorCount   int         `json:"error_count"`
	Errors       []BulkError `json:"errors"`
	Items        []Item      `json:"items,omitempty"`
}

// BulkUpdateEntry pairs a record id with its replacement payload.
type BulkUpdateEntry struct {
	ID   string
	Item Item
}

// --- Import / export ---

// ExportFormat is a supported export serialization.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatJSON ExportFormat = "json"
)

// ExportOptions controls an export request.
type ExportOptions struct {
	Format     ExportFormat
	ActiveOnly bool
}

// ExportResult is a produced export document.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ImportResult aggregates the outcome of an import.
type ImportResult struct {
	SuccessCount int         `json:"success_count"`
	ErrorCount   int         `json:"error_count"`
	Errors       []BulkError `json:"errors"`
	Items        []Item      `json:"items,omitempty"`
}
