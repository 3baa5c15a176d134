package dictionary

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Base carries the fields every dictionary item shares. Version starts at 1
// on create and increments on every update.
type Base struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code,omitempty"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	UpdatedBy   string    `json:"updatedBy,omitempty"`
	Version     int       `json:"version,omitempty"`
}

// Item is a dictionary record of any type. Concrete variants embed Base and
// report their own Type, so callers can switch on Kind without reflection.
type Item interface {
	Kind() Type
	Meta() *Base
}

// ExpenseArticle is a budget expense article.
type ExpenseArticle struct {
	Base
	OwnerRole Role   `json:"ownerRole,omitempty"`
	Category  string `json:"category,omitempty"`
}

func (i *ExpenseArticle) Kind() Type  { return TypeExpenseArticles }
func (i *ExpenseArticle) Meta() *Base { return &i.Base }

// BankDetails holds a counterparty's bank requisites.
type BankDetails struct {
	BankName string `json:"bankName,omitempty"`
	BankBik  string `json:"bankBik,omitempty"`
	IBAN     string `json:"iban,omitempty"`
}

// ContactInfo holds a counterparty's contact requisites.
type ContactInfo struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// Counterparty is an organization the contour pays or is paid by.
// BinIin is the state registration number (БИН/ИИН), exactly 12 digits.
type Counterparty struct {
	Base
	BinIin      string       `json:"binIin"`
	Category    string       `json:"category"`
	BankDetails *BankDetails `json:"bankDetails,omitempty"`
	ContactInfo *ContactInfo `json:"contactInfo,omitempty"`
}

func (i *Counterparty) Kind() Type  { return TypeCounterparties }
func (i *Counterparty) Meta() *Base { return &i.Base }

// Contract binds a counterparty to a payment agreement.
type Contract struct {
	Base
	CounterpartyID string          `json:"counterpartyId"`
	ContractNumber string          `json:"contractNumber"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        time.Time       `json:"endDate"`
	Amount         decimal.Decimal `json:"amount,omitempty"`
	Currency       string          `json:"currency,omitempty"`
}

func (i *Contract) Kind() Type  { return TypeContracts }
func (i *Contract) Meta() *Base { return &i.Base }

// Normative is a spending limit attached to an expense article.
type Normative struct {
	Base
	ExpenseArticleID string          `json:"expenseArticleId"`
	MaxAmount        decimal.Decimal `json:"maxAmount,omitempty"`
	Period           string          `json:"period,omitempty"`
	Rules            string          `json:"rules,omitempty"`
}

func (i *Normative) Kind() Type  { return TypeNormatives }
func (i *Normative) Meta() *Base { return &i.Base }

// Priority is a payment urgency level. Color is a hex value like #ff8800
// used by the console to paint the badge.
type Priority struct {
	Base
	Level int    `json:"level"`
	Color string `json:"color,omitempty"`
}

func (i *Priority) Kind() Type  { return TypePriorities }
func (i *Priority) Meta() *Base { return &i.Base }

// User is a contour account with workflow roles.
type User struct {
	Base
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Roles    []Role `json:"roles,omitempty"`
}

func (i *User) Kind() Type  { return TypeUsers }
func (i *User) Meta() *Base { return &i.Base }

// Currency is an ISO currency entry. Currencies are read-only reference data.
type Currency struct {
	Base
	Symbol string `json:"symbol,omitempty"`
	Scale  int    `json:"scale,omitempty"`
}

func (i *Currency) Kind() Type  { return TypeCurrencies }
func (i *Currency) Meta() *Base { return &i.Base }

// VatRate is a value-added-tax rate in percent.
type VatRate struct {
	Base
	Rate decimal.Decimal `json:"rate"`
}

func (i *VatRate) Kind() Type  { return TypeVatRates }
func (i *VatRate) Meta() *Base { return &i.Base }

// NewItem returns a zero-valued item of the given type.
func NewItem(t Type) (Item, error) {
	switch t {
	case TypeExpenseArticles:
		return &ExpenseArticle{}, nil
	case TypeCounterparties:
		return &Counterparty{}, nil
	case TypeContracts:
		return &Contract{}, nil
	case TypeNormatives:
		return &Normative{}, nil
	case TypePriorities:
		return &Priority{}, nil
	case TypeUsers:
		return &User{}, nil
	case TypeCurrencies:
		return &Currency{}, nil
	case TypeVatRates:
		return &VatRate{}, nil
	}
	return nil, fmt.Errorf("unknown dictionary type: %q", t)
}

// DecodeItem unmarshals one item of the given type.
func DecodeItem(t Type, data []byte) (Item, error) {
	item, err := NewItem(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, item); err != nil {
		return nil, fmt.Errorf("decode %s item: %w", t, err)
	}
	return item, nil
}

// DecodeItems unmarshals a JSON array of items of the given type.
func DecodeItems(t Type, data []byte) ([]Item, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode %s items: %w", t, err)
	}
	items := make([]Item, 0, len(raws))
	for _, raw := range raws {
		item, err := DecodeItem(t, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// CloneItem deep-copies an item through its JSON form. Used when the same
// record is handed to both the cache and the caller.
func CloneItem(item Item) (Item, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	return DecodeItem(item.Kind(), data)
}
