package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrNotHolder        = errors.New("not_holder")
	ErrDuplicateOrder   = errors.New("duplicate_order")
	ErrOrderNotFound    = errors.New("order_not_found")
	ErrNotAuthorized    = errors.New("not_authorized")
	ErrTransferDenied   = errors.New("transfer_denied")
	ErrSeatNotFound     = errors.New("seat_not_found")
	ErrWebhookNotFound  = errors.New("webhook_not_found")
	ErrUnknownAlgorithm = errors.New("unknown_algorithm")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
