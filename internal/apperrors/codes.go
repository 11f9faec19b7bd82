package apperrors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Equip and placement errors
	CodeInfeasibleRequest   Code = "INFEASIBLE_REQUEST"
	CodeSearchExhausted     Code = "SEARCH_EXHAUSTED"
	CodeSearchAborted       Code = "SEARCH_ABORTED"
	CodeConstraintViolation Code = "CONSTRAINT_VIOLATION"

	// Command stack errors
	CodeNothingToUndo Code = "NOTHING_TO_UNDO"
	CodeNothingToRedo Code = "NOTHING_TO_REDO"

	// Lookup and input errors
	CodeNotFound        Code = "NOT_FOUND"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnavailable     Code = "UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound

	// Conflict - the loadout state does not allow the operation
	case CodeInfeasibleRequest,
		CodeSearchExhausted,
		CodeConstraintViolation,
		CodeNothingToUndo,
		CodeNothingToRedo:
		return http.StatusConflict

	case CodeSearchAborted:
		return http.StatusUnprocessableEntity
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
