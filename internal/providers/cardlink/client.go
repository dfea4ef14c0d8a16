// Package cardlink integrates the redirect-link card provider: payment links are
// minted over its REST API and results arrive as HMAC-signed webhooks.
package cardlink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/providers"
)

const (
	liveBaseURL    = "https://api.cardlink.co.za/v1"
	sandboxBaseURL = "https://api.sandbox.cardlink.co.za/v1"
)

type Config struct {
	SecretKey string
	BaseURL   string
	SiteURL   string
	Timeout   time.Duration
}

// baseURL picks the sandbox for test keys unless an explicit base is configured.
func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.SecretKey == "" || strings.Contains(c.SecretKey, "test") {
		return sandboxBaseURL
	}
	return liveBaseURL
}

type Gateway struct {
	cfg        Config
	httpClient *http.Client
}

func NewGateway(cfg Config) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

func (g *Gateway) Method() models.PaymentMethod { return models.MethodCardLink }

type customer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type redirectURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Cancel  string `json:"cancel"`
}

type linkRequest struct {
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Customer    customer       `json:"customer"`
	Description string         `json:"description"`
	ExternalID  string         `json:"externalId"`
	RedirectURL redirectURLs   `json:"redirectUrl"`
	Metadata    map[string]any `json:"metadata"`
}

type linkResponse struct {
	ID          string `json:"id"`
	Reference   string `json:"reference"`
	URL         string `json:"url"`
	RedirectURL string `json:"redirectUrl"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

func (g *Gateway) CreatePayment(ctx context.Context, req models.PaymentRequest) (*models.PaymentHandle, error) {
	metadata := map[string]any{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["orderId"] = req.OrderID

	body := linkRequest{
		Amount:      req.AmountCents(),
		Currency:    models.Currency,
		Customer:    customer{Email: firstNonEmpty(req.BuyerEmail, "customer@example.com"), Name: firstNonEmpty(req.BuyerName, "Customer")},
		Description: req.Description,
		ExternalID:  req.OrderID,
		RedirectURL: redirectURLs{
			Success: providers.ReturnURL(g.cfg.SiteURL, req.OrderID, providers.ReturnSuccess),
			Failure: providers.ReturnURL(g.cfg.SiteURL, req.OrderID, providers.ReturnFailed),
			Cancel:  providers.ReturnURL(g.cfg.SiteURL, req.OrderID, providers.ReturnCancelled),
		},
		Metadata: metadata,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode link request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.baseURL()+"/links", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build link request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, &models.ProviderError{Provider: models.MethodCardLink, Message: "payment link request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &models.ProviderError{Provider: models.MethodCardLink, StatusCode: resp.StatusCode, Message: "read payment link response", Err: err}
	}

	var link linkResponse
	_ = json.Unmarshal(raw, &link)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.ProviderError{
			Provider:   models.MethodCardLink,
			StatusCode: resp.StatusCode,
			Message:    firstNonEmpty(link.Message, "payment link rejected"),
		}
	}

	reference := firstNonEmpty(link.ID, link.Reference)
	checkoutURL := firstNonEmpty(link.RedirectURL, link.URL)
	if reference == "" || checkoutURL == "" {
		return nil, &models.ProviderError{
			Provider:   models.MethodCardLink,
			StatusCode: resp.StatusCode,
			Message:    "payment link response missing id or checkout url",
		}
	}

	return &models.PaymentHandle{
		Reference:   reference,
		RedirectURL: checkoutURL,
		Metadata: map[string]any{
			"linkId":     link.ID,
			"linkStatus": link.Status,
			"reference":  link.Reference,
		},
	}, nil
}
