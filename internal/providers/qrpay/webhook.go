package qrpay

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

var (
	paidStatuses      = []string{"completed", "complete", "paid", "success", "successful"}
	failedStatuses    = []string{"failed", "declined", "error"}
	cancelledStatuses = []string{"cancelled", "canceled", "expired"}
)

// Callback is the webhook body.
type Callback struct {
	Reference     string `json:"reference"`
	MerchantID    string `json:"merchantId"`
	Amount        *int64 `json:"amount"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	TransactionID string `json:"transactionId"`
}

func ParseCallback(body []byte) (*Callback, error) {
	var cb Callback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedCallback, err)
	}
	if cb.Reference == "" {
		return nil, fmt.Errorf("%w: missing reference", models.ErrMalformedCallback)
	}
	if cb.Amount == nil {
		return nil, fmt.Errorf("%w: missing amount", models.ErrMalformedCallback)
	}
	return &cb, nil
}

type Verifier struct {
	merchantID string
	orders     interfaces.OrderReader
}

func NewVerifier(merchantID string, orders interfaces.OrderReader) *Verifier {
	return &Verifier{merchantID: merchantID, orders: orders}
}

func (v *Verifier) Method() models.PaymentMethod { return models.MethodQRPay }

// Verify stands in for a signature with structural cross-checks: our merchant id,
// a reference we minted, an order that exists, and the order's exact amount.
func (v *Verifier) Verify(ctx context.Context, req interfaces.WebhookRequest) (*models.ProviderOutcome, error) {
	cb, err := ParseCallback(req.Body)
	if err != nil {
		return nil, err
	}
	if v.merchantID == "" || subtle.ConstantTimeCompare([]byte(cb.MerchantID), []byte(v.merchantID)) != 1 {
		return nil, fmt.Errorf("%w: merchant id mismatch", models.ErrSignatureInvalid)
	}

	orderID, _, err := ParseReference(cb.Reference)
	if err != nil {
		return nil, err
	}
	order, err := v.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if *cb.Amount != models.ToCents(order.TotalAmount) {
		return nil, fmt.Errorf("%w: callback %d cents, order %s", models.ErrAmountMismatch, *cb.Amount, order.TotalAmount)
	}

	return &models.ProviderOutcome{
		Method:    models.MethodQRPay,
		OrderID:   orderID,
		Reference: cb.Reference,
		RawStatus: cb.Status,
		Outcome:   models.OutcomeFromStatus(cb.Status, paidStatuses, failedStatuses, cancelledStatuses),
		Amount:    decimal.NewNullDecimal(models.FromCents(*cb.Amount)),
	}, nil
}
