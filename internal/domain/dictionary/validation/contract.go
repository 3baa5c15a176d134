package validation

import "refbook/internal/domain/dictionary"

// ContractValidator checks contract records.
type ContractValidator struct{}

func (ContractValidator) Validate(item dictionary.Item) dictionary.ValidationResult {
	c, ok := item.(*dictionary.Contract)
	if !ok {
		return wrongType(dictionary.TypeContracts)
	}
	var errs []dictionary.FieldError
	errs = append(errs, requireStr("name", c.Name)...)
	errs = append(errs, requireStr("contractNumber", c.ContractNumber)...)
	errs = append(errs, requireStr("counterpartyId", c.CounterpartyID)...)
	if c.StartDate.IsZero() {
		errs = append(errs, fieldErr("startDate", dictionary.VRequired, "startDate is required"))
	}
	if c.EndDate.IsZero() {
		errs = append(errs, fieldErr("endDate", dictionary.VRequired, "endDate is required"))
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && !c.EndDate.After(c.StartDate) {
		errs = append(errs, fieldErr("endDate", dictionary.VInvalidDateRange, "endDate must be after startDate"))
	}
	if c.Amount.IsNegative() {
		errs = append(errs, fieldErr("amount", dictionary.VMinValue, "amount must not be negative"))
	}
	return result(errs)
}

func (ContractValidator) ValidateField(field string, value any) []dictionary.FieldError {
	switch field {
	case "name", "contractNumber", "counterpartyId":
		s, isStr := asString(value)
		if !isStr {
			return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidType, "%s must be a string", field)}
		}
		return requireStr(field, s)
	}
	return nil
}
