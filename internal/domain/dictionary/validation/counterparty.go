package validation

import "refbook/internal/domain/dictionary"

// CounterpartyValidator checks counterparty records. The БИН/ИИН is the
// hard rule here: exactly twelve digits, no exceptions.
type CounterpartyValidator struct{}

func (CounterpartyValidator) Validate(item dictionary.Item) dictionary.ValidationResult {
	c, ok := item.(*dictionary.Counterparty)
	if !ok {
		return wrongType(dictionary.TypeCounterparties)
	}
	var errs []dictionary.FieldError
	errs = append(errs, requireStr("name", c.Name)...)
	errs = append(errs, minLen("name", c.Name, 2)...)
	errs = append(errs, maxLen("name", c.Name, 200)...)
	errs = append(errs, requireStr("binIin", c.BinIin)...)
	errs = append(errs, format("binIin", c.BinIin, binIinRe, "12 digits")...)
	errs = append(errs, requireStr("category", c.Category)...)
	errs = append(errs, enum("category", c.Category, dictionary.CounterpartyCategories)...)
	var mail string
	if c.ContactInfo != nil {
		mail = c.ContactInfo.Email
	}
	errs = append(errs, requireStr("contactInfo.email", mail)...)
	errs = append(errs, email("contactInfo.email", mail)...)
	return result(errs)
}

func (CounterpartyValidator) ValidateField(field string, value any) []dictionary.FieldError {
	s, isStr := asString(value)
	if !isStr {
		return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidType, "%s must be a string", field)}
	}
	switch field {
	case "name":
		var errs []dictionary.FieldError
		errs = append(errs, requireStr(field, s)...)
		errs = append(errs, minLen(field, s, 2)...)
		errs = append(errs, maxLen(field, s, 200)...)
		return errs
	case "binIin":
		var errs []dictionary.FieldError
		errs = append(errs, requireStr(field, s)...)
		errs = append(errs, format(field, s, binIinRe, "12 digits")...)
		return errs
	case "category":
		var errs []dictionary.FieldError
		errs = append(errs, requireStr(field, s)...)
		errs = append(errs, enum(field, s, dictionary.CounterpartyCategories)...)
		return errs
	case "contactInfo.email":
		var errs []dictionary.FieldError
		errs = append(errs, requireStr(field, s)...)
		errs = append(errs, email(field, s)...)
		return errs
	}
	return nil
}
