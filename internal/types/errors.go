package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All handlers MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationInvalidLat        ErrorCode = "validation_invalid_latitude"
	ErrCodeValidationInvalidLon        ErrorCode = "validation_invalid_longitude"
	ErrCodeValidationMissingField      ErrorCode = "validation_missing_required_field"
	ErrCodeValidationUnknownWard       ErrorCode = "validation_unknown_ward"
	ErrCodeValidationUnknownDisease    ErrorCode = "validation_unknown_disease"
	ErrCodeValidationInvalidSeverity   ErrorCode = "validation_invalid_severity"
	ErrCodeValidationInvalidStatus     ErrorCode = "validation_invalid_status"
	ErrCodeValidationInvalidPopulation ErrorCode = "validation_invalid_population"
	ErrCodeValidationInvalidBoundary   ErrorCode = "validation_invalid_boundary"
	ErrCodeValidationInvalidThreshold  ErrorCode = "validation_invalid_threshold"
	ErrCodeValidationDuplicateID       ErrorCode = "validation_duplicate_id"
	ErrCodeValidationInvalidRequest    ErrorCode = "validation_invalid_request"

	// Not Found (404)
	ErrCodeNotFoundCase     ErrorCode = "not_found_case"
	ErrCodeNotFoundWard     ErrorCode = "not_found_ward"
	ErrCodeNotFoundFacility ErrorCode = "not_found_facility"
	ErrCodeNoFacility       ErrorCode = "no_facility_available"

	// Location (recoverable; surfaced as 503 when reported over HTTP)
	ErrCodeLocationPermissionDenied ErrorCode = "location_permission_denied"
	ErrCodeLocationUnavailable      ErrorCode = "location_position_unavailable"
	ErrCodeLocationTimeout          ErrorCode = "location_timeout"

	// Conflict (409)
	ErrCodeConflictTrackerState ErrorCode = "conflict_tracker_state"

	// Internal/Upstream (500/502)
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamRouting     ErrorCode = "upstream_routing_unavailable"
	ErrCodeUpstreamFacilities  ErrorCode = "upstream_facility_search_unavailable"
	ErrCodeUpstreamNotifier    ErrorCode = "upstream_notifier_unavailable"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "not_found_"), s == string(ErrCodeNoFacility):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict // 409
	case strings.HasPrefix(s, "location_"):
		return http.StatusServiceUnavailable // 503
	case s == string(ErrCodeUpstreamRateLimited):
		return http.StatusTooManyRequests // 429
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError carrying the same code. This lets
// callers match against sentinels such as ErrNoFacilityAvailable.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// ErrNoFacilityAvailable is returned when a proximity query has no candidates.
var ErrNoFacilityAvailable = NewAppError(ErrCodeNoFacility, "no facility available", nil)

// CodeOf extracts the ErrorCode from an error chain. Returns the empty code
// when err does not wrap an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "validation_")
}

// IsLocation reports whether err is a recoverable location acquisition failure.
func IsLocation(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "location_")
}
