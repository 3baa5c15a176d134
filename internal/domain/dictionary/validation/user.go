package validation

import "refbook/internal/domain/dictionary"

var allRoles = []dictionary.Role{
	dictionary.RoleExecutor,
	dictionary.RoleRegistrar,
	dictionary.RoleSubRegistrar,
	dictionary.RoleDistributor,
	dictionary.RoleTreasurer,
	dictionary.RoleAdmin,
}

// UserValidator checks contour user accounts.
type UserValidator struct{}

func (UserValidator) Validate(item dictionary.Item) dictionary.ValidationResult {
	u, ok := item.(*dictionary.User)
	if !ok {
		return wrongType(dictionary.TypeUsers)
	}
	var errs []dictionary.FieldError
	errs = append(errs, requireStr("email", u.Email)...)
	errs = append(errs, email("email", u.Email)...)
	errs = append(errs, requireStr("fullName", u.FullName)...)
	errs = append(errs, minLen("fullName", u.FullName, 2)...)
	for _, role := range u.Roles {
		errs = append(errs, enum("roles", role, allRoles)...)
	}
	return result(errs)
}

func (UserValidator) ValidateField(field string, value any) []dictionary.FieldError {
	s, isStr := asString(value)
	switch field {
	case "email":
		if !isStr {
			return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidType, "%s must be a string", field)}
		}
		var errs []dictionary.FieldError
		errs = append(errs, requireStr(field, s)...)
		errs = append(errs, email(field, s)...)
		return errs
	case "fullName":
		if !isStr {
			return []dictionary.FieldError{fieldErr(field, dictionary.VInvalidType, "%s must be a string", field)}
		}
		var errs []dictionary.FieldError
		errs = append(errs, requireStr(field, s)...)
		errs = append(errs, minLen(field, s, 2)...)
		return errs
	case "roles":
		if isStr {
			return enum(field, dictionary.Role(s), allRoles)
		}
	}
	return nil
}
