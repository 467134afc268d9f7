// Package validation provides mode-controlled struct validation built on
// go-playground/validator, plus helpers for reading request tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var mediaTypePattern = regexp.MustCompile(`^[\w.+-]+/[\w.+-]+$`)

// Validator wraps go-playground/validator with custom rules and error formatting.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages match what goes over the wire.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("media_type", validateMediaType); err != nil {
		panic(fmt.Sprintf("validation: registering media_type: %v", err))
	}

	return &Validator{validate: v}
}

// Engine returns the underlying validator instance for registering more rules.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Check validates value under mode. It returns nil when the mode skips
// validation or the value is valid. Only values holding structs, pointers to
// structs or slices of them are checked; anything else passes.
//
// The returned error is fatal in ModeHard; in ModeSoft callers report it and continue.
func (v *Validator) Check(mode Mode, value any) error {
	if mode == ModeNone || value == nil {
		return nil
	}
	return v.check(reflect.ValueOf(value))
}

func (v *Validator) check(rv reflect.Value) error {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		return v.structErr(rv.Interface())
	case reflect.Slice, reflect.Array:
		var fieldErrors []FieldError
		for i := 0; i < rv.Len(); i++ {
			err := v.check(rv.Index(i))
			if err == nil {
				continue
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				return err
			}
			for _, fe := range ve.Errors {
				fe.Field = fmt.Sprintf("[%d].%s", i, fe.Field)
				fieldErrors = append(fieldErrors, fe)
			}
		}
		if len(fieldErrors) > 0 {
			return &ValidationError{Errors: fieldErrors}
		}
		return nil
	default:
		return nil
	}
}

func (v *Validator) structErr(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// ValidationError carries the field errors of a failed validation.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// NewValidationError converts go-playground/validator errors into a ValidationError.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fieldErrors := make([]FieldError, 0, len(errs))

	for _, err := range errs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   err.Field(),
			Message: getErrorMessage(err),
			Value:   fmt.Sprintf("%v", err.Value()),
		})
	}

	return &ValidationError{Errors: fieldErrors}
}

func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}

	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s", ve.Errors[0].Message)
	}

	msgs := make([]string, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		msgs = append(msgs, fe.Message)
	}
	return fmt.Sprintf("validation failed: %d errors: %s", len(ve.Errors), strings.Join(msgs, "; "))
}

func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "media_type":
		return fmt.Sprintf("%s must be a media type like application/json", fe.Field())
	default:
		return fmt.Sprintf("%s failed validation", fe.Field())
	}
}

func validateMediaType(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	base := strings.TrimSpace(strings.SplitN(s, ";", 2)[0])
	return mediaTypePattern.MatchString(base)
}
