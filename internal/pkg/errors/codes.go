package errors

import "net/http"

// Error code constants for the OpenADR VEN error taxonomy (spec §7).
// Each constructor below sets the code, a fixed message (with the offending
// id or detail appended), and the numeric status used as the response code.

const (
	CodeMalformedPayload      = "MALFORMED_PAYLOAD"
	CodeUnknownVtn            = "UNKNOWN_VTN"
	CodeStaleModification     = "STALE_MODIFICATION"
	CodeTargetingMismatch     = "TARGETING_MISMATCH"
	CodeNoUsableSignal        = "NO_USABLE_SIGNAL"
	CodeMarketContextMismatch = "MARKET_CONTEXT_MISMATCH"
	CodeTransportError        = "TRANSPORT_ERROR"
	CodeStoreError            = "STORE_ERROR"
)

// ErrMalformedPayload creates the error for a payload that cannot be parsed or
// is missing required fields. No reply is sent for this condition.
func ErrMalformedPayload(detail string) *AppError {
	return &AppError{
		Code:       CodeMalformedPayload,
		Message:    "payload could not be parsed: " + detail,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ErrUnknownVtn creates the reply-worthy error for a vtnID outside the accepted set.
func ErrUnknownVtn(vtnID string) *AppError {
	return &AppError{
		Code:       CodeUnknownVtn,
		Message:    "vtnID not in accepted set: " + vtnID,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ErrStaleModification creates the error for a modification number that regressed.
func ErrStaleModification(eventID string) *AppError {
	return &AppError{
		Code:       CodeStaleModification,
		Message:    "modification number lower than stored value for event " + eventID,
		HTTPStatus: http.StatusForbidden,
	}
}

// ErrTargetingMismatch creates the error for an event whose targeting excludes this VEN.
func ErrTargetingMismatch(eventID string) *AppError {
	return &AppError{
		Code:       CodeTargetingMismatch,
		Message:    "event does not target this VEN: " + eventID,
		HTTPStatus: http.StatusForbidden,
	}
}

// ErrNoUsableSignal creates the error for an event with no recognizable simple signal.
func ErrNoUsableSignal(eventID string) *AppError {
	return &AppError{
		Code:       CodeNoUsableSignal,
		Message:    "event has no usable simple signal: " + eventID,
		HTTPStatus: http.StatusForbidden,
	}
}

// ErrMarketContextMismatch creates the error for an event outside the accepted market contexts.
func ErrMarketContextMismatch(eventID string) *AppError {
	return &AppError{
		Code:       CodeMarketContextMismatch,
		Message:    "market context not accepted for event " + eventID,
		HTTPStatus: 405,
	}
}

// ErrTransportError wraps a network/TLS failure encountered by a transport adapter.
func ErrTransportError(err error) *AppError {
	return &AppError{
		Code:       CodeTransportError,
		Message:    "transport failure",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// ErrStoreError wraps a durable-store I/O failure.
func ErrStoreError(err error) *AppError {
	return &AppError{
		Code:       CodeStoreError,
		Message:    "event store failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
