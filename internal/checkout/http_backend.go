package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

// HTTPBackend talks to the marketplace payments API with the buyer's bearer token.
type HTTPBackend struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPBackend(baseURL, token string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBackend) CreateOrder(ctx context.Context, items []CartItem) (*models.Order, error) {
	var resp struct {
		Order models.Order `json:"order"`
	}
	if err := b.do(ctx, http.MethodPost, "/orders", map[string]any{"items": items}, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

func (b *HTTPBackend) InitiatePayment(ctx context.Context, method models.PaymentMethod, p InitiateParams) (*PaymentHandle, error) {
	body := map[string]any{
		"orderId":     p.OrderID,
		"amount":      p.AmountCents,
		"description": p.Description,
		"buyerEmail":  p.BuyerEmail,
		"buyerName":   p.BuyerName,
	}
	var handle PaymentHandle
	path := "/payments/" + url.PathEscape(string(method)) + "/initiate"
	if err := b.do(ctx, http.MethodPost, path, body, &handle); err != nil {
		return nil, err
	}
	return &handle, nil
}

func (b *HTTPBackend) OrderStatus(ctx context.Context, orderID string) (*models.OrderStatusView, error) {
	var view models.OrderStatusView
	if err := b.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/payment", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, raw)
	}
	return json.Unmarshal(raw, out)
}

// apiError turns an error response back into the sentinel the server started from.
func apiError(status int, raw []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(status)
	}

	var sentinel error
	switch status {
	case http.StatusUnauthorized:
		sentinel = models.ErrUnauthenticated
	case http.StatusForbidden:
		sentinel = models.ErrForbidden
	case http.StatusNotFound:
		sentinel = models.ErrOrderNotFound
	case http.StatusConflict:
		sentinel = models.ErrOrderNotPayable
	case http.StatusBadGateway:
		sentinel = models.ErrProvider
	case http.StatusBadRequest:
		sentinel = models.ErrInvalidOrder
		if strings.Contains(msg, models.ErrAmountMismatch.Error()) {
			sentinel = models.ErrAmountMismatch
		}
	default:
		return fmt.Errorf("api: status %d: %s", status, msg)
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
