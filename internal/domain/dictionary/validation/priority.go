package validation

import "refbook/internal/domain/dictionary"

// PriorityValidator checks payment priority levels.
type PriorityValidator struct{}

func (PriorityValidator) Validate(item dictionary.Item) dictionary.ValidationResult {
	p, ok := item.(*dictionary.Priority)
	if !ok {
		return wrongType(dictionary.TypePriorities)
	}
	var errs []dictionary.FieldError
	errs = append(errs, requireStr("name", p.Name)...)
	errs = append(errs, minInt("level", p.Level, 1)...)
	errs = append(errs, maxInt("level", p.Level, 10)...)
	errs = append(errs, hexColor("color", p.Color)...)
	return result(errs)
}

func (PriorityValidator) ValidateField(field string, value any) []dictionary.FieldError {
	switch field {
	case "name":
		s, isStr := asString(value)
		if !isStr {
			return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidType, "%s must be a string", field)}
		}
		return requireStr(field, s)
	case "level":
		n, isInt := asInt(value)
		if !isInt {
			return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidType, "%s must be a number", field)}
		}
		var errs []dictionary.FieldError
		errs = append(errs, minInt(field, n, 1)...)
		errs = append(errs, maxInt(field, n, 10)...)
		return errs
	case "color":
		if s, isStr := asString(value); isStr {
			return hexColor(field, s)
		}
	}
	return nil
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
