package interfaces

import (
	"context"
	"net/http"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

// Gateway mints a payment handle with one provider.
type Gateway interface {
	Method() models.PaymentMethod
	CreatePayment(ctx context.Context, req models.PaymentRequest) (*models.PaymentHandle, error)
}

// WebhookRequest is an inbound provider callback as received on the wire.
type WebhookRequest struct {
	Header http.Header
	Body   []byte
}

// Verifier authenticates one provider's callback and reduces it to a ProviderOutcome.
type Verifier interface {
	Method() models.PaymentMethod
	Verify(ctx context.Context, req WebhookRequest) (*models.ProviderOutcome, error)
}

// OrderReader is the read side verifiers use for structural cross-checks.
type OrderReader interface {
	GetByID(ctx context.Context, orderID string) (*models.Order, error)
}

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Principal, error)
}
