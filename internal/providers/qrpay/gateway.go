// Package qrpay integrates the scan-to-pay provider: the shopper scans a QR code
// that encodes a self-describing transaction reference and the provider reports the
// result to a webhook. The provider offers no callback signature.
package qrpay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

type Config struct {
	MerchantID string
	APIKey     string
	Now        func() time.Time
}

type Gateway struct {
	cfg Config
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gateway{cfg: cfg}
}

func (g *Gateway) Method() models.PaymentMethod { return models.MethodQRPay }

func (g *Gateway) CreatePayment(_ context.Context, req models.PaymentRequest) (*models.PaymentHandle, error) {
	if g.cfg.MerchantID == "" || g.cfg.APIKey == "" {
		return nil, &models.ProviderError{Provider: models.MethodQRPay, Message: "qrpay merchant is not configured"}
	}

	reference := NewReference(req.OrderID, g.cfg.Now())
	cents := req.AmountCents()
	return &models.PaymentHandle{
		Reference: reference,
		QRPayload: QRPayload(g.cfg.MerchantID, cents, reference, req.Description),
		Metadata: map[string]any{
			"merchantId":      g.cfg.MerchantID,
			"transactionId":   reference,
			"amountCents":     cents,
			"requiresPolling": true,
		},
	}, nil
}

// QRPayload is the string the storefront renders as a QR code:
// merchant|amount_cents|reference|description.
func QRPayload(merchantID string, cents int64, reference, description string) string {
	description = strings.ReplaceAll(description, "|", " ")
	return fmt.Sprintf("%s|%d|%s|%s", merchantID, cents, reference, description)
}
