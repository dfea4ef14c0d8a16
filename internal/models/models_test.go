package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAmountsMatch(t *testing.T) {
	assert.True(t, AmountsMatch(d("299.99"), d("299.99")))
	assert.True(t, AmountsMatch(d("299.99"), d("299.994")))
	assert.False(t, AmountsMatch(d("100.00"), d("99.00")))
	assert.False(t, AmountsMatch(d("100.00"), d("100.01")))
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(29999), ToCents(d("299.99")))
	assert.Equal(t, int64(1001), ToCents(d("10.005")))
	assert.Equal(t, "299.99", FromCents(29999).StringFixed(2))
}

func TestLineTotals(t *testing.T) {
	total, commission := LineTotals(d("99.99"), 3)
	assert.Equal(t, "299.97", total.StringFixed(2))
	assert.Equal(t, "24.00", commission.StringFixed(2))
}

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		name       string
		transition OrderTransition
		payment    PaymentStatus
		status     OrderStatus
		allowed    bool
	}{
		{"await from new", TransitionAwaitPayment, PaymentUnpaid, OrderPending, true},
		{"await again while pending", TransitionAwaitPayment, PaymentPending, OrderPendingPayment, true},
		{"await after failure", TransitionAwaitPayment, PaymentFailed, OrderFailed, true},
		{"await on paid", TransitionAwaitPayment, PaymentPaid, OrderProcessing, false},
		{"await on cancelled", TransitionAwaitPayment, PaymentUnpaid, OrderCancelled, false},
		{"paid from pending", TransitionPaid, PaymentPending, OrderPendingPayment, true},
		{"paid over failure", TransitionPaid, PaymentFailed, OrderFailed, true},
		{"paid twice", TransitionPaid, PaymentPaid, OrderProcessing, false},
		{"fail from pending", TransitionPaymentFailed, PaymentPending, OrderPendingPayment, true},
		{"fail after paid", TransitionPaymentFailed, PaymentPaid, OrderProcessing, false},
		{"fail twice", TransitionPaymentFailed, PaymentFailed, OrderFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{ID: "o", PaymentStatus: tt.payment, Status: tt.status}
			assert.Equal(t, tt.allowed, tt.transition.Apply(o))
			if tt.allowed {
				assert.Equal(t, tt.transition.ToPayment, o.PaymentStatus)
				assert.Equal(t, tt.transition.ToStatus, o.Status)
			} else {
				assert.Equal(t, tt.payment, o.PaymentStatus)
			}
			assert.NoError(t, o.CheckInvariants())
		})
	}
}

func TestStatusViewSettled(t *testing.T) {
	tests := []struct {
		payment PaymentStatus
		status  OrderStatus
		settled bool
	}{
		{PaymentUnpaid, OrderPending, false},
		{PaymentPending, OrderPendingPayment, false},
		{PaymentFailed, OrderFailed, false},
		{PaymentPaid, OrderProcessing, true},
		{PaymentPaid, OrderCompleted, true},
		{PaymentUnpaid, OrderCancelled, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.payment, tt.status), func(t *testing.T) {
			o := &Order{ID: "o", PaymentStatus: tt.payment, Status: tt.status}
			assert.Equal(t, tt.settled, o.StatusView().Settled())
		})
	}
}

func TestCheckInvariants(t *testing.T) {
	assert.Error(t, (&Order{PaymentStatus: PaymentPaid, Status: OrderPendingPayment}).CheckInvariants())
	assert.Error(t, (&Order{PaymentStatus: PaymentPending, Status: OrderCancelled}).CheckInvariants())
	assert.NoError(t, (&Order{PaymentStatus: PaymentPaid, Status: OrderCompleted}).CheckInvariants())
}

func TestRecordTransitions(t *testing.T) {
	assert.True(t, RecordPending.CanTransition(RecordPaid))
	assert.True(t, RecordFailed.CanTransition(RecordPaid))
	assert.True(t, RecordPending.CanTransition(RecordCancelled))
	assert.False(t, RecordPaid.CanTransition(RecordFailed))
	assert.False(t, RecordPaid.CanTransition(RecordPaid))
	assert.False(t, RecordFailed.CanTransition(RecordCancelled))
}

func TestOutcomeFromStatus(t *testing.T) {
	paid, failed, cancelled := []string{"complete"}, []string{"failed"}, []string{"cancelled"}
	assert.Equal(t, OutcomePaid, OutcomeFromStatus(" COMPLETE ", paid, failed, cancelled))
	assert.Equal(t, OutcomeFailed, OutcomeFromStatus("Failed", paid, failed, cancelled))
	assert.Equal(t, OutcomeCancelled, OutcomeFromStatus("cancelled", paid, failed, cancelled))
	assert.Equal(t, OutcomeUnrecognized, OutcomeFromStatus("pending", paid, failed, cancelled))

	_, ok := OutcomeUnrecognized.RecordStatus()
	assert.False(t, ok)
	s, ok := OutcomeCancelled.RecordStatus()
	assert.True(t, ok)
	assert.Equal(t, RecordCancelled, s)
}

func TestProviderErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("initiate: %w", &ProviderError{Provider: MethodCardLink, StatusCode: 422, Message: "amount too small"})
	assert.True(t, errors.Is(err, ErrProvider))
	assert.Contains(t, err.Error(), "amount too small")

	var perr *ProviderError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, 422, perr.StatusCode)
}
