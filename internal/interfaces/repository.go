package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

// OrderRepository defines the contract for order data access. Transition methods
// return the number of rows the conditional update touched; zero means the order
// was not in a source state of the transition.
type OrderRepository interface {
	GetByID(ctx context.Context, orderID string) (*models.Order, error)
	Items(ctx context.Context, orderID string) ([]models.OrderItem, error)
	CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
	AwaitPayment(ctx context.Context, orderID string, method models.PaymentMethod) (int64, error)
	Transition(ctx context.Context, orderID string, t models.OrderTransition) (int64, error)
}

// PaymentRepository defines the contract for payment record data access.
type PaymentRepository interface {
	GetByOrderID(ctx context.Context, orderID string) (*models.PaymentRecord, error)
	// Upsert replaces the live attempt for an order unless that attempt is already paid.
	Upsert(ctx context.Context, rec *models.PaymentRecord) (int64, error)
	// InsertIfAbsent creates the record only when the order has none and reports
	// whether it did.
	InsertIfAbsent(ctx context.Context, rec *models.PaymentRecord) (bool, error)
	// TransitionStatus moves the record pinned to reference into status to.
	TransitionStatus(ctx context.Context, orderID, reference string, to models.RecordStatus) (int64, error)
}

// ProductRepository resolves catalog prices at checkout.
type ProductRepository interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]models.Product, error)
}
