package dto

import "net/http"

// Error code constants exposed by the API. Domain errors already carry
// these codes; the handler layer only maps them to HTTP statuses.

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeValidation is used when request fields fail validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
)

// Import error codes
const (
	// ErrCodeImportInProgress is returned when the global import lock is held
	ErrCodeImportInProgress = "CONCURRENT_IMPORT_IN_PROGRESS"
	// ErrCodeDependencyNotMet is returned when a catalog-dependent import is
	// requested against an empty catalog
	ErrCodeDependencyNotMet = "DEPENDENCY_NOT_MET"
	// ErrCodeInvalidImportType is returned for unknown import type tokens
	ErrCodeInvalidImportType = "INVALID_IMPORT_TYPE"
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "INVALID_STATE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeInvalidJSON:       http.StatusBadRequest,
	ErrCodeInvalidImportType: http.StatusBadRequest,
	"INVALID_INPUT":          http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,

	// Import rejections: lock contention -> 409, missing catalog -> 422
	ErrCodeImportInProgress: http.StatusConflict,
	ErrCodeDependencyNotMet: http.StatusUnprocessableEntity,
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
