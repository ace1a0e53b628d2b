package utils

import (
	stderrors "errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationDetails turns a binding/validation error into a field -> message map.
// Errors that are not validator.ValidationErrors (malformed JSON, wrong types) are
// reported under the "body" key.
func ValidationDetails(err error) map[string]string {
	details := make(map[string]string)
	if err == nil {
		return details
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		details["body"] = err.Error()
		return details
	}

	for _, fe := range validationErrors {
		details[fe.Field()] = formatValidationError(fe)
	}
	return details
}

// formatValidationError creates a user-friendly error message for a validation error.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte", "min":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte", "max":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

//Personal.AI order the ending
