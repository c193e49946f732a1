// Package validators wires go-playground/validator into echo and the repositories.
package validators

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CustomValidator implements echo.Validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validate}
}

// Validate implements echo.Validator
func (cv *CustomValidator) Validate(i any) error {
	return Struct(i)
}

// Struct validates s against its validate tags and reports every failing field
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewInternal("validation failed", err)
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, describe(fe))
	}
	return apperrors.NewValidation("invalid input", details...)
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "datetime":
		return field + " must be a date formatted YYYY-MM-DD"
	case "email":
		return field + " must be a valid email"
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
