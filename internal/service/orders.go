package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/telemetry"
)

type OrderLine struct {
	ProductID string
	Quantity  int
}

// OrderService creates checkout orders and serves their payment status to pollers.
type OrderService struct {
	orders   interfaces.OrderRepository
	products interfaces.ProductRepository
	infra    Infra
}

func NewOrderService(orders interfaces.OrderRepository, products interfaces.ProductRepository, infra Infra) *OrderService {
	return &OrderService{orders: orders, products: products, infra: infra.withDefaults()}
}

// CreateOrder prices every line from the catalog and stores the order with its
// items atomically. Client-side prices are never consulted.
func (s *OrderService) CreateOrder(ctx context.Context, principal *models.Principal, lines []OrderLine) (*models.Order, []models.OrderItem, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	if principal == nil || principal.UserID == "" {
		return nil, nil, models.ErrUnauthenticated
	}
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("%w: no items", models.ErrInvalidOrder)
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, err := uuid.Parse(l.ProductID); err != nil {
			return nil, nil, fmt.Errorf("%w: product id %q", models.ErrInvalidOrder, l.ProductID)
		}
		if l.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: quantity %d for product %s", models.ErrInvalidOrder, l.Quantity, l.ProductID)
		}
		ids = append(ids, l.ProductID)
	}

	catalog, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	order := &models.Order{
		ID:            uuid.NewString(),
		BuyerID:       principal.UserID,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentUnpaid,
	}
	total, commission := decimal.Zero, decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		product, ok := catalog[l.ProductID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: unknown product %s", models.ErrInvalidOrder, l.ProductID)
		}
		itemTotal, itemCommission := models.LineTotals(product.Price, l.Quantity)
		items = append(items, models.OrderItem{
			ID:               uuid.NewString(),
			OrderID:          order.ID,
			ProductID:        product.ID,
			SellerStoreID:    product.SellerStoreID,
			Quantity:         l.Quantity,
			UnitPrice:        product.Price,
			ItemTotal:        itemTotal,
			CommissionAmount: itemCommission,
		})
		total = total.Add(itemTotal)
		commission = commission.Add(itemCommission)
	}
	order.TotalAmount = total
	order.TotalCommission = commission

	if err := s.orders.CreateWithItems(ctx, order, items); err != nil {
		s.infra.Logger.Error("Failed to create order", zap.String("buyer_id", principal.UserID), zap.Error(err))
		return nil, nil, err
	}

	s.infra.Logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("buyer_id", order.BuyerID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(items)),
	)
	return order, items, nil
}

// PaymentStatus returns the order's status pair to its owner, from cache when warm.
// Views still in flight are always read from the store.
func (s *OrderService) PaymentStatus(ctx context.Context, principal *models.Principal, orderID string) (*models.OrderStatusView, error) {
	if principal == nil || principal.UserID == "" {
		return nil, models.ErrUnauthenticated
	}

	view, ok := s.infra.Cache.GetOrderStatus(ctx, orderID)
	if !ok {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		view = order.StatusView()
		if view.Settled() {
			if err := s.infra.Cache.SetOrderStatus(ctx, view); err != nil {
				s.infra.Logger.Warn("Failed to cache order status", zap.String("order_id", orderID), zap.Error(err))
			}
		}
	}

	if view.BuyerID != principal.UserID {
		return nil, models.ErrForbidden
	}
	return view, nil
}
