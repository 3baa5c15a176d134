// Package validation holds the per-dictionary validators and the registry
// the service consults before any write.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"refbook/internal/domain/dictionary"
)

var (
	emailRe       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	binIinRe      = regexp.MustCompile(`^\d{12}$`)
	expenseCodeRe = regexp.MustCompile(`^\d{3}$`)
	hexColorRe    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

func fieldErr(field, code, format string, args ...any) dictionary.FieldError {
	return dictionary.FieldError{
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func requireStr(field, value string) []dictionary.FieldError {
	if strings.TrimSpace(value) == "" {
		return []dictionary.FieldError{fieldErr(field, dictionary.VRequired, "%s is required", field)}
	}
	return nil
}

func minLen(field, value string, n int) []dictionary.FieldError {
	if value != "" && len([]rune(value)) < n {
		return []dictionary.FieldError{fieldErr(field, dictionary.VMinLength, "%s must be at least %d characters", field, n)}
	}
	return nil
}

func maxLen(field, value string, n int) []dictionary.FieldError {
	if len([]rune(value)) > n {
		return []dictionary.FieldError{fieldErr(field, dictionary.VMaxLength, "%s must be at most %d characters", field, n)}
	}
	return nil
}

func email(field, value string) []dictionary.FieldError {
	if value != "" && !emailRe.MatchString(value) {
		return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidEmail, "%s must be a valid email address", field)}
	}
	return nil
}

func format(field, value string, re *regexp.Regexp, hint string) []dictionary.FieldError {
	if value != "" && !re.MatchString(value) {
		return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidFormat, "%s must match format: %s", field, hint)}
	}
	return nil
}

func enum[T ~string](field string, value T, allowed []T) []dictionary.FieldError {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidEnum, "%s has an unexpected value: %s", field, value)}
}

func minInt(field string, value, n int) []dictionary.FieldError {
	if value < n {
		return []dictionary.FieldError{fieldErr(field, dictionary.VMinValue, "%s must be at least %d", field, n)}
	}
	return nil
}

func maxInt(field string, value, n int) []dictionary.FieldError {
	if value > n {
		return []dictionary.FieldError{fieldErr(field, dictionary.VMaxValue, "%s must be at most %d", field, n)}
	}
	return nil
}

func hexColor(field, value string) []dictionary.FieldError {
	if value != "" && !hexColorRe.MatchString(value) {
		return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidColor, "%s must be a hex color like #1a2b3c", field)}
	}
	return nil
}

func wrongType(t dictionary.Type) dictionary.ValidationResult {
	return dictionary.ValidationResult{
		Valid: false,
		Errors: []dictionary.FieldError{
			fieldErr("type", dictionary.VInvalidType, "item is not a %s record", t),
		},
	}
}

func result(errs []dictionary.FieldError) dictionary.ValidationResult {
	return dictionary.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	}
	return "", false
}
