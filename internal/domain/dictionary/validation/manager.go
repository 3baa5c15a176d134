package validation

import (
	"sync"

	"refbook/internal/domain/dictionary"
)

// Manager maps dictionary types to their validators. Types without a
// registered validator fail with a single NO_VALIDATOR error so a write can
// never slip through unchecked.
type Manager struct {
	mu         sync.RWMutex
	validators map[dictionary.Type]dictionary.Validator
}

// NewManager builds a registry with the production validators in place.
// Currencies and normatives intentionally have none: currencies are
// read-only and normatives have no write endpoint yet.
func NewManager() *Manager {
	m := &Manager{validators: make(map[dictionary.Type]dictionary.Validator)}
	m.Register(dictionary.TypeExpenseArticles, ExpenseArticleValidator{})
	m.Register(dictionary.TypeCounterparties, CounterpartyValidator{})
	m.Register(dictionary.TypeContracts, ContractValidator{})
	m.Register(dictionary.TypePriorities, PriorityValidator{})
	m.Register(dictionary.TypeUsers, UserValidator{})
	m.Register(dictionary.TypeVatRates, VatRateValidator{})
	return m
}

// Register installs or replaces the validator for a type.
func (m *Manager) Register(t dictionary.Type, v dictionary.Validator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validators[t] = v
}

func (m *Manager) lookup(t dictionary.Type) (dictionary.Validator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.validators[t]
	return v, ok
}

// Validate runs the full rule set for the type against the item.
func (m *Manager) Validate(t dictionary.Type, item dictionary.Item) dictionary.ValidationResult {
	v, ok := m.lookup(t)
	if !ok {
		return noValidator(t)
	}
	return v.Validate(item)
}

// ValidateField checks a single field value against the type's rules.
func (m *Manager) ValidateField(t dictionary.Type, field string, value any) []dictionary.FieldError {
	v, ok := m.lookup(t)
	if !ok {
		return noValidator(t).Errors
	}
	return v.ValidateField(field, value)
}

func noValidator(t dictionary.Type) dictionary.ValidationResult {
	return dictionary.ValidationResult{
		Valid: false,
		Errors: []dictionary.FieldError{
			fieldErr("type", dictionary.VNoValidator, "no validator registered for dictionary type %s", t),
		},
	}
}
