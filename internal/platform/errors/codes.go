// Package errors provides structured error handling with stable machine codes.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeMissingFields   Code = "MISSING_FIELDS"
	CodeMissingPlayerID Code = "MISSING_PLAYER_ID"

	// Session state errors
	CodeCapacityExceeded Code = "CAPACITY_EXCEEDED"
	CodeSessionInactive  Code = "SESSION_INACTIVE"
	CodeAlreadyOpened    Code = "ALREADY_OPENED"

	// Allocation errors
	CodeAllocationNoEnvelopes Code = "ALLOCATION_NO_ENVELOPES"
	CodeAllocationUnderfunded Code = "ALLOCATION_UNDERFUNDED"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// BadRequest - validation failures, bad input
	case CodeMissingFields,
		CodeMissingPlayerID:
		return http.StatusBadRequest

	// Internal - configuration invariants the caller cannot fix
	case CodeAllocationNoEnvelopes,
		CodeAllocationUnderfunded:
		return http.StatusInternalServerError

	// Conflict - state doesn't allow operation
	case CodeCapacityExceeded,
		CodeSessionInactive,
		CodeAlreadyOpened:
		return http.StatusConflict

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return http.StatusNotFound

	// ServiceUnavailable - transient infrastructure failure, retryable
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
