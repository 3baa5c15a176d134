package dictionary

// Validation error codes. A result may carry several errors per field;
// validation never stops at the first failure.
const (
	VRequired         = "REQUIRED"
	VInvalidType      = "INVALID_TYPE"
	VMinLength        = "MIN_LENGTH"
	VMaxLength        = "MAX_LENGTH"
	VInvalidEmail     = "INVALID_EMAIL"
	VMinValue         = "MIN_VALUE"
	VMaxValue         = "MAX_VALUE"
	VInvalidEnum      = "INVALID_ENUM"
	VInvalidFormat    = "INVALID_FORMAT"
	VInvalidDateRange = "INVALID_DATE_RANGE"
	VInvalidColor     = "INVALID_COLOR"
	VNoValidator      = "NO_VALIDATOR"
)

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult is the accumulated outcome of validating one item.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors"`
}

// Validator checks items of one dictionary type.
type Validator interface {
	Validate(item Item) ValidationResult
	ValidateField(field string, value any) []FieldError
}

// ValidatorRegistry resolves validators by dictionary type. Validating a
// type with no registered validator yields a single NO_VALIDATOR error.
type ValidatorRegistry interface {
	Register(t Type, v Validator)
	Validate(t Type, item Item) ValidationResult
	ValidateField(t Type, field string, value any) []FieldError
}
