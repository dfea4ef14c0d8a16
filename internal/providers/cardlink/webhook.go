package cardlink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

const (
	HeaderSignature = "X-CardLink-Signature"
	HeaderTimestamp = "X-CardLink-Timestamp"
)

var (
	paidStatuses      = []string{"completed", "succeeded", "success", "paid"}
	failedStatuses    = []string{"failed"}
	cancelledStatuses = []string{"cancelled", "canceled"}
)

// Event is the webhook body. Some deliveries wrap the checkout in "data", others
// send it flat.
type Event struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Data      *Checkout `json:"data"`
	CreatedAt string    `json:"createdAt"`
}

type Checkout struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	ExternalID string `json:"externalId"`
	Amount     *int64 `json:"amount"`
	Metadata   struct {
		CheckoutID string `json:"checkoutId"`
		OrderID    string `json:"orderId"`
	} `json:"metadata"`
}

// ParseEvent decodes a webhook body into the checkout it describes.
func ParseEvent(body []byte) (*Event, *Checkout, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrMalformedCallback, err)
	}
	if evt.Data != nil {
		return &evt, evt.Data, nil
	}
	var flat Checkout
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrMalformedCallback, err)
	}
	return &evt, &flat, nil
}

// Outcome reduces the checkout to a ProviderOutcome. The event type stands in for a
// missing status, e.g. "links.paid".
func (c *Checkout) Outcome(eventType string) (*models.ProviderOutcome, error) {
	orderID := firstNonEmpty(c.ExternalID, c.Metadata.OrderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: missing external id", models.ErrMalformedCallback)
	}
	reference := firstNonEmpty(c.ID, c.Metadata.CheckoutID)
	if reference == "" {
		return nil, fmt.Errorf("%w: missing checkout id", models.ErrMalformedCallback)
	}

	status := c.Status
	if status == "" {
		if i := strings.LastIndexByte(eventType, '.'); i >= 0 {
			status = eventType[i+1:]
		}
	}

	out := &models.ProviderOutcome{
		Method:    models.MethodCardLink,
		OrderID:   orderID,
		Reference: reference,
		RawStatus: status,
		Outcome:   models.OutcomeFromStatus(status, paidStatuses, failedStatuses, cancelledStatuses),
	}
	if c.Amount != nil {
		out.Amount = decimal.NewNullDecimal(models.FromCents(*c.Amount))
	}
	return out, nil
}

type VerifierConfig struct {
	WebhookSecret string
	// Tolerance bounds the age of the timestamp header. Zero disables the check.
	Tolerance time.Duration
	Now       func() time.Time
}

type Verifier struct {
	cfg VerifierConfig
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}
}

func (v *Verifier) Method() models.PaymentMethod { return models.MethodCardLink }

func (v *Verifier) Verify(_ context.Context, req interfaces.WebhookRequest) (*models.ProviderOutcome, error) {
	signature := req.Header.Get(HeaderSignature)
	timestamp := req.Header.Get(HeaderTimestamp)
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature header", models.ErrSignatureInvalid)
	}
	if timestamp == "" {
		return nil, fmt.Errorf("%w: missing timestamp header", models.ErrSignatureInvalid)
	}
	if v.cfg.Tolerance > 0 {
		if err := v.checkTimestamp(timestamp); err != nil {
			return nil, err
		}
	}
	if !ValidSignature(v.cfg.WebhookSecret, timestamp, req.Body, signature) {
		return nil, models.ErrSignatureInvalid
	}

	evt, checkout, err := ParseEvent(req.Body)
	if err != nil {
		return nil, err
	}
	return checkout.Outcome(evt.Type)
}

func (v *Verifier) checkTimestamp(timestamp string) error {
	secs, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: unreadable timestamp", models.ErrSignatureInvalid)
	}
	age := v.cfg.Now().Sub(time.Unix(secs, 0))
	if age < 0 {
		age = -age
	}
	if age > v.cfg.Tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", models.ErrSignatureInvalid)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
