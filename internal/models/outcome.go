package models

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Outcome is the provider-agnostic result carried by a verified callback.
type Outcome int

const (
	OutcomeUnrecognized Outcome = iota
	OutcomePaid
	OutcomeFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomePaid:
		return "paid"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unrecognized"
	}
}

// RecordStatus maps the outcome to the payment record status it settles on.
func (o Outcome) RecordStatus() (RecordStatus, bool) {
	switch o {
	case OutcomePaid:
		return RecordPaid, true
	case OutcomeFailed:
		return RecordFailed, true
	case OutcomeCancelled:
		return RecordCancelled, true
	}
	return "", false
}

// OutcomeFromStatus folds a provider status word into an Outcome using the given
// vocabularies. Matching is case-insensitive.
func OutcomeFromStatus(raw string, paid, failed, cancelled []string) Outcome {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case slices.Contains(paid, s):
		return OutcomePaid
	case slices.Contains(failed, s):
		return OutcomeFailed
	case slices.Contains(cancelled, s):
		return OutcomeCancelled
	}
	return OutcomeUnrecognized
}

// ProviderOutcome is a verified provider callback reduced to what reconciliation
// needs. Every provider's webhook payload is converted into one of these at the
// boundary.
type ProviderOutcome struct {
	Method    PaymentMethod
	OrderID   string
	Reference string
	Outcome   Outcome
	RawStatus string
	Amount    decimal.NullDecimal
}
