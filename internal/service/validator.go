// Package service implements the application operations on remarks and
// bottom-up quantifications: workflow transitions, preparation against
// reference data, auditing and report generation.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/openlmis/buq/pkg/utils"
)

// Validator checks domain entities against their struct constraints and
// reports every violation at once, keyed by the JSON field name.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &Validator{validate: validate}
}

func (v *Validator) ValidateStruct(subject interface{}) error {
	err := v.validate.Struct(subject)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return utils.WrapError(err, "validation failed")
	}

	violations := make(map[string]string, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		violations[fieldError.Field()] = describeViolation(fieldError)
	}
	return utils.NewValidationError("entity validation failed", violations)
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be blank"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s constraint", fe.Tag())
	}
}
