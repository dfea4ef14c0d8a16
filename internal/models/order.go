package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderProcessing     OrderStatus = "processing"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
	OrderFailed         OrderStatus = "failed"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Order struct {
	ID              string          `db:"id" json:"id"`
	BuyerID         string          `db:"buyer_id" json:"buyer_id"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	TotalCommission decimal.Decimal `db:"total_commission" json:"total_commission"`
	Status          OrderStatus     `db:"status" json:"status"`
	PaymentStatus   PaymentStatus   `db:"payment_status" json:"payment_status"`
	PaymentMethod   PaymentMethod   `db:"payment_method" json:"payment_method,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

type OrderItem struct {
	ID               string          `db:"id" json:"id"`
	OrderID          string          `db:"order_id" json:"order_id"`
	ProductID        string          `db:"product_id" json:"product_id"`
	SellerStoreID    string          `db:"seller_store_id" json:"seller_store_id"`
	Quantity         int             `db:"qty" json:"qty"`
	UnitPrice        decimal.Decimal `db:"unit_price" json:"unit_price"`
	ItemTotal        decimal.Decimal `db:"item_total" json:"item_total"`
	CommissionAmount decimal.Decimal `db:"commission_amount" json:"commission_amount"`
}

// Product is the slice of the catalog that checkout needs to price a line.
type Product struct {
	ID            string          `db:"id"`
	SellerStoreID string          `db:"seller_store_id"`
	Title         string          `db:"title"`
	Price         decimal.Decimal `db:"price"`
}

// CheckInvariants reports the first status combination the order must never be in.
func (o *Order) CheckInvariants() error {
	if o.PaymentStatus == PaymentPaid && o.Status != OrderProcessing && o.Status != OrderCompleted {
		return fmt.Errorf("order %s: paid order has status %s", o.ID, o.Status)
	}
	if o.Status == OrderCancelled && o.PaymentStatus != PaymentFailed && o.PaymentStatus != PaymentUnpaid {
		return fmt.Errorf("order %s: cancelled order has payment status %s", o.ID, o.PaymentStatus)
	}
	return nil
}

// Payable reports whether a new payment attempt may be started against the order.
func (o *Order) Payable() bool {
	return TransitionAwaitPayment.Allows(o)
}

// OrderTransition is a conditional update of an order's status pair. It applies only
// while the order is in one of the listed source states, which is what makes
// replays of the same provider outcome a no-op.
type OrderTransition struct {
	Name        string
	FromPayment []PaymentStatus
	FromStatus  []OrderStatus
	ToPayment   PaymentStatus
	ToStatus    OrderStatus
}

var (
	TransitionAwaitPayment = OrderTransition{
		Name:        "await_payment",
		FromPayment: []PaymentStatus{PaymentUnpaid, PaymentPending, PaymentFailed},
		FromStatus:  []OrderStatus{OrderPending, OrderPendingPayment, OrderFailed},
		ToPayment:   PaymentPending,
		ToStatus:    OrderPendingPayment,
	}
	TransitionPaid = OrderTransition{
		Name:        "paid",
		FromPayment: []PaymentStatus{PaymentUnpaid, PaymentPending, PaymentFailed},
		FromStatus:  []OrderStatus{OrderPending, OrderPendingPayment, OrderFailed},
		ToPayment:   PaymentPaid,
		ToStatus:    OrderProcessing,
	}
	// A failed attempt leaves the order retryable; cancelled is kept for explicit
	// buyer or admin cancellation.
	TransitionPaymentFailed = OrderTransition{
		Name:        "payment_failed",
		FromPayment: []PaymentStatus{PaymentUnpaid, PaymentPending},
		FromStatus:  []OrderStatus{OrderPending, OrderPendingPayment},
		ToPayment:   PaymentFailed,
		ToStatus:    OrderFailed,
	}
)

func (t OrderTransition) Allows(o *Order) bool {
	return slices.Contains(t.FromPayment, o.PaymentStatus) && slices.Contains(t.FromStatus, o.Status)
}

// Apply mutates o when the transition is allowed and reports whether it did.
func (t OrderTransition) Apply(o *Order) bool {
	if !t.Allows(o) {
		return false
	}
	o.PaymentStatus = t.ToPayment
	o.Status = t.ToStatus
	return true
}

func (t OrderTransition) FromPaymentStrings() []string {
	out := make([]string, len(t.FromPayment))
	for i, s := range t.FromPayment {
		out[i] = string(s)
	}
	return out
}

func (t OrderTransition) FromStatusStrings() []string {
	out := make([]string, len(t.FromStatus))
	for i, s := range t.FromStatus {
		out[i] = string(s)
	}
	return out
}

// OrderStatusView is what the checkout poller reads.
type OrderStatusView struct {
	OrderID       string          `json:"order_id"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	BuyerID       string          `json:"buyer_id"`
}

// Settled reports whether the view can no longer change under a poller. Only settled
// views may be cached: a webhook can land between a store read and the cache fill.
func (v *OrderStatusView) Settled() bool {
	return v.PaymentStatus == PaymentPaid || v.Status == OrderCancelled
}

func (o *Order) StatusView() *OrderStatusView {
	return &OrderStatusView{
		OrderID:       o.ID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		TotalAmount:   o.TotalAmount,
		BuyerID:       o.BuyerID,
	}
}
