package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their JSON names so messages match request bodies
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidateStruct validates a struct using its validate tags
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// ValidationError carries one message per invalid field
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for _, msg := range e.Fields {
			return msg
		}
	}
	return e.Message
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string, len(errs))
	for _, err := range errs {
		// Namespace keeps nested paths such as approvers[0].role distinct
		key := err.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		fields[key] = fieldMessage(err)
	}
	return &ValidationError{Message: "Validation failed", Fields: fields}
}

func fieldMessage(err validator.FieldError) string {
	field, param := err.Field(), err.Param()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, param)
	case "alpha":
		return fmt.Sprintf("%s must contain letters only", field)
	case "min":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		switch err.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		case reflect.Slice:
			return fmt.Sprintf("%s must have at most %s entries", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		return fmt.Sprintf("%s failed the %q check", field, err.Tag())
	}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// GetValidationFields extracts field errors from a ValidationError
func GetValidationFields(err error) map[string]string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields
	}
	return nil
}
