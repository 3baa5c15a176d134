package validation

import (
	"github.com/shopspring/decimal"

	"refbook/internal/domain/dictionary"
)

var vatRateMax = decimal.NewFromInt(100)

// VatRateValidator checks VAT rate entries. Rates are percentages and must
// stay within [0, 100].
type VatRateValidator struct{}

func (VatRateValidator) Validate(item dictionary.Item) dictionary.ValidationResult {
	r, ok := item.(*dictionary.VatRate)
	if !ok {
		return wrongType(dictionary.TypeVatRates)
	}
	var errs []dictionary.FieldError
	errs = append(errs, requireStr("name", r.Name)...)
	errs = append(errs, rateRange("rate", r.Rate)...)
	return result(errs)
}

func (VatRateValidator) ValidateField(field string, value any) []dictionary.FieldError {
	switch field {
	case "name":
		s, isStr := asString(value)
		if !isStr {
			return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidType, "%s must be a string", field)}
		}
		return requireStr(field, s)
	case "rate":
		switch v := value.(type) {
		case decimal.Decimal:
			return rateRange(field, v)
		case float64:
			return rateRange(field, decimal.NewFromFloat(v))
		case int:
			return rateRange(field, decimal.NewFromInt(int64(v)))
		default:
			return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidType, "%s must be a number", field)}
		}
	}
	return nil
}

func rateRange(field string, rate decimal.Decimal) []dictionary.FieldError {
	if rate.IsNegative() {
		return []dictionary.FieldError{fieldErr(field, dictionary.VMinValue, "%s must be at least 0", field)}
	}
	if rate.GreaterThan(vatRateMax) {
		return []dictionary.FieldError{fieldErr(field, dictionary.VMaxValue, "%s must be at most 100", field)}
	}
	return nil
}
