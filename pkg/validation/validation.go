// Package validation runs go-playground struct tag validation and renders
// failures using each field's yaml name.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var defaultValidator = New()

// New returns a validator that names fields by their yaml tag and registers
// the notblank and absuri tags.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("absuri", func(fl validator.FieldLevel) bool {
		return IsAbsoluteURI(fl.Field().String())
	})
	return v
}

// IsAbsoluteURI reports whether raw parses with both a scheme and a host.
func IsAbsoluteURI(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Struct validates s with the default validator.
func Struct(s any) error {
	return Errors(defaultValidator.Struct(s))
}

// Errors converts validator failures into a single joined error with one
// message per failing field. Other errors are returned unchanged.
func Errors(err error) error {
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	errs := make([]error, len(validationErrs))
	for i, fe := range validationErrs {
		errs[i] = errors.New(Message(fe))
	}
	return errors.Join(errs...)
}

// Message renders one field failure, e.g. "services[0].default_uri is required".
func Message(fe validator.FieldError) string {
	field := fieldPath(fe)

	switch fe.Tag() {
	case "required", "required_unless", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", field, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s %q is not one of [%s]", field, fmt.Sprint(fe.Value()), fe.Param())
	case "unique":
		return fmt.Sprintf("%s has a duplicate %s", field, strings.ToLower(fe.Param()))
	case "absuri":
		return fmt.Sprintf("%s %q must be an absolute URI with scheme and host", field, fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
