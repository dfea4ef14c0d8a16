package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/telemetry"
)

// Infra carries the side-channel collaborators shared by the payment services.
// Every field is optional.
type Infra struct {
	Cache  interfaces.StatusCache
	Dedup  interfaces.DedupStore
	Events interfaces.EventPublisher
	Logger *zap.Logger
}

func (i Infra) withDefaults() Infra {
	if i.Cache == nil {
		i.Cache = noopCache{}
	}
	if i.Dedup == nil {
		i.Dedup = noopDedup{}
	}
	if i.Events == nil {
		i.Events = noopEvents{}
	}
	if i.Logger == nil {
		i.Logger = telemetry.Logger
	}
	return i
}

type noopCache struct{}

func (noopCache) GetOrderStatus(context.Context, string) (*models.OrderStatusView, bool) {
	return nil, false
}
func (noopCache) SetOrderStatus(context.Context, *models.OrderStatusView) error { return nil }
func (noopCache) InvalidateOrderStatus(context.Context, string) error { return nil }

type noopDedup struct{}

func (noopDedup) Seen(context.Context, string) bool { return false }
func (noopDedup) MarkSeen(context.Context, string) error { return nil }

type noopEvents struct{}

func (noopEvents) PublishPaymentEvent(context.Context, models.PaymentEvent) error { return nil }
func (noopEvents) NotifySellers(context.Context, *models.Order, []models.OrderItem) error {
	return nil
}
