package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct validates a struct based on its validation tags
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatFieldError(e))
		}
		return fmt.Errorf("%s", strings.Join(messages, "; "))
	}
	return err
}

// formatFieldError formats a single field validation error
func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", e.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", e.Field(), e.Param())
	case "url":
		return fmt.Sprintf("field '%s' must be a valid URL", e.Field())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of [%s]", e.Field(), e.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation '%s'", e.Field(), e.Tag())
	}
}
