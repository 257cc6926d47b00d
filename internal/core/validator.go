package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"wardwatch/internal/types"
)

// Validator wraps go-playground/validator with the domain tags:
//
//	is_disease   value is one of types.AllDiseases
//
// and maps failures onto validation_* error codes.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// ValidationError describes one failed field rule.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult collects every failure rather than stopping at the first.
type ValidationResult struct {
	Errors []ValidationError `json:"errors,omitempty"`
}

// IsValid reports whether no rule failed.
func (r ValidationResult) IsValid() bool { return len(r.Errors) == 0 }

// NewValidator creates a Validator with the custom tags registered. Field
// names in errors use the json tag.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("is_disease", validateDisease); err != nil {
		logger.Error("failed to register is_disease", "error", err)
	}
	return &Validator{validate: v, logger: logger}
}

func validateDisease(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return types.Disease(field.String()).Valid()
}

// ValidateStruct returns nil or an AppError whose code is taken from the
// first failed rule. Every failure is listed under details.validation_errors.
func (v *Validator) ValidateStruct(s any) error {
	result := v.check(s)
	if result.IsValid() {
		return nil
	}
	first := result.Errors[0]
	return types.NewAppErrorWithDetails(types.ErrorCode(first.Code), first.Message, nil,
		map[string]any{"validation_errors": result.Errors})
}

// ValidateStructWithWarnings returns the full result without converting it
// to an error.
func (v *Validator) ValidateStructWithWarnings(s any) ValidationResult {
	return v.check(s)
}

func (v *Validator) check(s any) ValidationResult {
	err := v.validate.Struct(s)
	if err == nil {
		return ValidationResult{}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.logger.Error("validator misuse", "error", err, "type", fmt.Sprintf("%T", s))
		return ValidationResult{Errors: []ValidationError{{
			Code:    string(types.ErrCodeValidationInvalidRequest),
			Message: "request could not be validated",
		}}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Code:    tagToErrorCode(fe.Tag()),
			Message: describe(fe),
		})
	}
	return ValidationResult{Errors: out}
}

func tagToErrorCode(tag string) string {
	switch tag {
	case "required", "required_if", "required_with":
		return string(types.ErrCodeValidationMissingField)
	case "latitude":
		return string(types.ErrCodeValidationInvalidLat)
	case "longitude":
		return string(types.ErrCodeValidationInvalidLon)
	case "is_disease":
		return string(types.ErrCodeValidationUnknownDisease)
	default:
		return string(types.ErrCodeValidationInvalidRequest)
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "latitude":
		return fmt.Sprintf("%s must be a latitude in [-90, 90]", fe.Field())
	case "longitude":
		return fmt.Sprintf("%s must be a longitude in [-180, 180]", fe.Field())
	case "is_disease":
		return fmt.Sprintf("%s %v is not a tracked disease", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min", "max", "gte", "lte", "gt", "lt":
		return fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}
