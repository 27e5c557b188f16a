package shared

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their json name so error maps match the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateStruct runs tag validation and converts failures into a
// ValidationError with one message per field.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := NewValidationError()
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), messageFor(fe))
	}
	return out
}

// ValidateVar validates a single value against a tag expression, e.g. "email".
func ValidateVar(field string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		out := NewValidationError()
		out.Add(field, "is invalid")
		return out
	}
	return nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must have at least " + fe.Param() + " items"
	default:
		return "is invalid"
	}
}
