// Package hostedform integrates the hosted payment form provider: the browser is
// sent to the provider's page with a signed field set and the result arrives as a
// form-encoded instant transaction notification (ITN).
package hostedform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/providers"
)

const (
	liveBaseURL    = "https://www.hostedform.co.za"
	sandboxBaseURL = "https://sandbox.hostedform.co.za"
	processPath    = "/eng/process"

	// ReferenceField carries our per-attempt reference through to the ITN.
	ReferenceField  = "custom_str1"
	referencePrefix = "HF"
)

type Config struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	Sandbox     bool
	NotifyURL   string
	SiteURL     string
	Now         func() time.Time
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

func (g *Gateway) Method() models.PaymentMethod { return models.MethodHostedForm }

func (g *Gateway) baseURL() string {
	if g.cfg.Sandbox {
		return sandboxBaseURL
	}
	return liveBaseURL
}

func (g *Gateway) CreatePayment(_ context.Context, req models.PaymentRequest) (*models.PaymentHandle, error) {
	if g.cfg.MerchantID == "" || g.cfg.MerchantKey == "" {
		return nil, &models.ProviderError{Provider: models.MethodHostedForm, Message: "hostedform merchant is not configured"}
	}
	if g.cfg.NotifyURL == "" {
		return nil, &models.ProviderError{Provider: models.MethodHostedForm, Message: "hostedform notify url is not configured"}
	}

	reference := fmt.Sprintf("%s-%s-%d", referencePrefix, req.OrderID, g.cfg.Now().UnixMilli())
	itemName := req.Description
	if itemName == "" {
		itemName = "Order #" + req.OrderID
	}

	fields := map[string]string{
		"merchant_id":   g.cfg.MerchantID,
		"merchant_key":  g.cfg.MerchantKey,
		"return_url":    providers.ReturnURL(g.cfg.SiteURL, req.OrderID, providers.ReturnSuccess),
		"cancel_url":    providers.ReturnURL(g.cfg.SiteURL, req.OrderID, providers.ReturnCancelled),
		"notify_url":    g.cfg.NotifyURL,
		"m_payment_id":  req.OrderID,
		"amount":        req.Amount.StringFixed(2),
		"item_name":     providers.Truncate(itemName, 100),
		ReferenceField:  reference,
		"email_address": req.BuyerEmail,
	}
	if req.BuyerEmail == "" {
		delete(fields, "email_address")
	}
	if first, last, ok := strings.Cut(strings.TrimSpace(req.BuyerName), " "); ok {
		fields["name_first"], fields["name_last"] = first, strings.TrimSpace(last)
	} else if first != "" {
		fields["name_first"] = first
	}
	fields[SignatureField] = Sign(fields, g.cfg.Passphrase)

	q := url.Values{}
	for k, v := range fields {
		q.Set(k, v)
	}
	return &models.PaymentHandle{
		Reference:   reference,
		RedirectURL: g.baseURL() + processPath + "?" + q.Encode(),
		FormFields:  fields,
		Metadata: map[string]any{
			"formAction": g.baseURL() + processPath,
		},
	}, nil
}
