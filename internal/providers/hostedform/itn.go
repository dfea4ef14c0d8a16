package hostedform

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

var (
	paidStatuses      = []string{"complete"}
	failedStatuses    = []string{"failed"}
	cancelledStatuses = []string{"cancelled"}
)

// itnAmountTolerance is how far amount_gross may drift from the order total.
var itnAmountTolerance = decimal.New(1, -2)

// ParseITN flattens the form-encoded notification, keeping the first value per key.
func ParseITN(body []byte) (map[string]string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedCallback, err)
	}
	fields := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields, nil
}

type VerifierConfig struct {
	MerchantID string
	Passphrase string
}

type Verifier struct {
	cfg    VerifierConfig
	orders interfaces.OrderReader
}

func NewVerifier(cfg VerifierConfig, orders interfaces.OrderReader) *Verifier {
	return &Verifier{cfg: cfg, orders: orders}
}

func (v *Verifier) Method() models.PaymentMethod { return models.MethodHostedForm }

func (v *Verifier) Verify(ctx context.Context, req interfaces.WebhookRequest) (*models.ProviderOutcome, error) {
	fields, err := ParseITN(req.Body)
	if err != nil {
		return nil, err
	}
	if v.cfg.MerchantID == "" || subtle.ConstantTimeCompare([]byte(fields["merchant_id"]), []byte(v.cfg.MerchantID)) != 1 {
		return nil, fmt.Errorf("%w: merchant id mismatch", models.ErrSignatureInvalid)
	}
	if !ValidSignature(fields, v.cfg.Passphrase) {
		return nil, models.ErrSignatureInvalid
	}

	orderID := fields["m_payment_id"]
	reference := fields[ReferenceField]
	if orderID == "" || reference == "" {
		return nil, fmt.Errorf("%w: missing m_payment_id or %s", models.ErrMalformedCallback, ReferenceField)
	}
	gross, err := decimal.NewFromString(fields["amount_gross"])
	if err != nil {
		return nil, fmt.Errorf("%w: amount_gross %q", models.ErrMalformedCallback, fields["amount_gross"])
	}

	order, err := v.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.TotalAmount.Sub(gross).Abs().GreaterThan(itnAmountTolerance) {
		return nil, fmt.Errorf("%w: amount_gross %s, order %s", models.ErrAmountMismatch, gross, order.TotalAmount)
	}

	return &models.ProviderOutcome{
		Method:    models.MethodHostedForm,
		OrderID:   orderID,
		Reference: reference,
		RawStatus: fields["payment_status"],
		Outcome:   models.OutcomeFromStatus(fields["payment_status"], paidStatuses, failedStatuses, cancelledStatuses),
		// The order total is what gets reconciled; gross was checked above.
		Amount: decimal.NullDecimal{},
	}, nil
}
