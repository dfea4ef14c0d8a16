package models

import (
	"slices"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCardLink   PaymentMethod = "cardlink"
	MethodQRPay      PaymentMethod = "qrpay"
	MethodHostedForm PaymentMethod = "hostedform"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCardLink, MethodQRPay, MethodHostedForm:
		return true
	}
	return false
}

// RecordStatus is the status of a single payment attempt.
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"
	RecordPaid      RecordStatus = "paid"
	RecordFailed    RecordStatus = "failed"
	RecordCancelled RecordStatus = "cancelled"
)

// recordFrom lists the statuses a record may be in for a move to the key status.
// A paid record is never moved again.
var recordFrom = map[RecordStatus][]RecordStatus{
	RecordPending:   {RecordPending, RecordFailed, RecordCancelled},
	RecordPaid:      {RecordPending, RecordFailed, RecordCancelled},
	RecordFailed:    {RecordPending},
	RecordCancelled: {RecordPending},
}

// RecordSourceStatuses returns the statuses from which a record may move to s.
func RecordSourceStatuses(s RecordStatus) []RecordStatus {
	return recordFrom[s]
}

func (s RecordStatus) CanTransition(to RecordStatus) bool {
	return s != to && slices.Contains(recordFrom[to], s)
}

const (
	CreatedByInitiator = "initiator"
	CreatedByWebhook   = "webhook"
)

// PaymentRecord correlates one order with the provider attempt currently paying it.
type PaymentRecord struct {
	ID                string          `db:"id" json:"id"`
	OrderID           string          `db:"order_id" json:"order_id"`
	PaymentMethod     PaymentMethod   `db:"payment_method" json:"payment_method"`
	ProviderReference string          `db:"provider_reference" json:"provider_reference"`
	Status            RecordStatus    `db:"status" json:"status"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	CreatedBy         string          `db:"created_by" json:"created_by"`
	Metadata          types.JSONText  `db:"metadata" json:"metadata"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentRequest is what a gateway needs to mint a payment handle.
type PaymentRequest struct {
	OrderID     string
	Amount      decimal.Decimal
	Description string
	BuyerEmail  string
	BuyerName   string
	Metadata    map[string]any
}

func (r PaymentRequest) AmountCents() int64 {
	return ToCents(r.Amount)
}

// PaymentHandle is the client-actionable result of minting a payment with a provider.
type PaymentHandle struct {
	Reference   string
	RedirectURL string
	QRPayload   string
	FormFields  map[string]string
	Metadata    map[string]any
}

// PaymentEvent is published whenever a payment or order transition is applied.
type PaymentEvent struct {
	OrderID       string        `json:"order_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Reference     string        `json:"provider_reference"`
	RecordStatus  RecordStatus  `json:"record_status"`
	OrderStatus   OrderStatus   `json:"order_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Amount        string        `json:"amount"`
	Source        string        `json:"source"`
	OccurredAt    time.Time     `json:"occurred_at"`
}
