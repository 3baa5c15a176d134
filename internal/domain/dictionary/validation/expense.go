package validation

import "refbook/internal/domain/dictionary"

// ExpenseArticleValidator checks budget expense articles.
type ExpenseArticleValidator struct{}

func (ExpenseArticleValidator) Validate(item dictionary.Item) dictionary.ValidationResult {
	a, ok := item.(*dictionary.ExpenseArticle)
	if !ok {
		return wrongType(dictionary.TypeExpenseArticles)
	}
	var errs []dictionary.FieldError
	errs = append(errs, requireStr("name", a.Name)...)
	errs = append(errs, minLen("name", a.Name, 2)...)
	errs = append(errs, maxLen("name", a.Name, 100)...)
	errs = append(errs, requireStr("code", a.Code)...)
	errs = append(errs, format("code", a.Code, expenseCodeRe, "exactly 3 digits")...)
	errs = append(errs, maxLen("description", a.Description, 500)...)
	errs = append(errs, requireStr("ownerRole", string(a.OwnerRole))...)
	errs = append(errs, enum("ownerRole", a.OwnerRole, dictionary.OwnerRoles)...)
	return result(errs)
}

func (ExpenseArticleValidator) ValidateField(field string, value any) []dictionary.FieldError {
	s, isStr := asString(value)
	switch field {
	case "name":
		if !isStr {
			return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidType, "%s must be a string", field)}
		}
		var errs []dictionary.FieldError
		errs = append(errs, requireStr(field, s)...)
		errs = append(errs, minLen(field, s, 2)...)
		errs = append(errs, maxLen(field, s, 100)...)
		return errs
	case "code":
		if !isStr {
			return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidType, "%s must be a string", field)}
		}
		var errs []dictionary.FieldError
		errs = append(errs, requireStr(field, s)...)
		errs = append(errs, format(field, s, expenseCodeRe, "exactly 3 digits")...)
		return errs
	case "description":
		if isStr {
			return maxLen(field, s, 500)
		}
	case "ownerRole":
		if isStr {
			var errs []dictionary.FieldError
			errs = append(errs, requireStr(field, s)...)
			errs = append(errs, enum(field, dictionary.Role(s), dictionary.OwnerRoles)...)
			return errs
		}
	}
	return nil
}
