// Package events fans applied payment transitions out to Kafka and tells sellers
// about paid orders over NATS.
package events

import (
	"encoding/json"
	"time"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

const (
	TopicPaymentStateChanged = "payment.state.changed"

	// marketplace.seller.{seller_store_id}.order_paid
	SubjectSellerOrderPaid = "marketplace.seller.%s.order_paid"

	EventPaymentInitiated = "PaymentInitiated"
	EventPaymentSucceeded = "PaymentSucceeded"
	EventPaymentFailed    = "PaymentFailed"
	EventPaymentCancelled = "PaymentCancelled"

	envelopeVersion = 1
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

func eventType(s models.RecordStatus) string {
	switch s {
	case models.RecordPaid:
		return EventPaymentSucceeded
	case models.RecordFailed:
		return EventPaymentFailed
	case models.RecordCancelled:
		return EventPaymentCancelled
	default:
		return EventPaymentInitiated
	}
}

type SellerItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	ItemTotal string `json:"item_total"`
}

// SellerOrderPaid is the part of a paid order that belongs to one seller store.
type SellerOrderPaid struct {
	OrderID       string       `json:"order_id"`
	SellerStoreID string       `json:"seller_store_id"`
	Items         []SellerItem `json:"items"`
	Subtotal      string       `json:"subtotal"`
	Commission    string       `json:"commission"`
	Currency      string       `json:"currency"`
}
