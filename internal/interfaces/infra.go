package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

// StatusCache holds the polled order status view.
type StatusCache interface {
	GetOrderStatus(ctx context.Context, orderID string) (*models.OrderStatusView, bool)
	SetOrderStatus(ctx context.Context, view *models.OrderStatusView) error
	InvalidateOrderStatus(ctx context.Context, orderID string) error
}

// DedupStore remembers callbacks whose effect has already been applied.
type DedupStore interface {
	Seen(ctx context.Context, key string) bool
	MarkSeen(ctx context.Context, key string) error
}

// EventPublisher fans applied transitions out to downstream consumers.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, evt models.PaymentEvent) error
	NotifySellers(ctx context.Context, order *models.Order, items []models.OrderItem) error
}
