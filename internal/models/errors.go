package models

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrForbidden             = errors.New("order does not belong to caller")
	ErrOrderNotFound         = errors.New("order not found")
	ErrAmountMismatch        = errors.New("amount mismatch")
	ErrOrderNotPayable       = errors.New("order is not awaiting payment")
	ErrUnsupportedMethod     = errors.New("unsupported payment method")
	ErrProvider              = errors.New("payment provider error")
	ErrPaymentRecordNotFound = errors.New("payment record not found")
	ErrPaymentRecordWrite    = errors.New("payment record could not be persisted")
	ErrInvalidOrder          = errors.New("invalid order")

	// Webhook side.
	ErrSignatureInvalid  = errors.New("invalid callback signature")
	ErrReferenceConflict = errors.New("provider reference does not match payment record")
	ErrMalformedCallback = errors.New("malformed callback")

	// Client side.
	ErrTimeout = errors.New("payment result not available yet")
)

// ProviderError passes an upstream failure through with the provider's own message.
type ProviderError struct {
	Provider   PaymentMethod
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }
