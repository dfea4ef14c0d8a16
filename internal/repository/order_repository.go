package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*models.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, models.ErrOrderNotFound
	}

	var order models.Order
	err := r.db.GetContext(ctx, &order, `
		SELECT id, buyer_id, total_amount, total_commission, status, payment_status,
		       payment_method, created_at, updated_at
		FROM orders WHERE id = $1
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", orderID)
	}
	return &order, nil
}

func (r *OrderRepository) Items(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT id, order_id, product_id, seller_store_id, qty, unit_price, item_total, commission_amount
		FROM order_items WHERE order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "list items of order %s", orderID)
	}
	return items, nil
}

// CreateWithItems inserts the order and all of its lines in one transaction.
func (r *OrderRepository) CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin order tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, total_amount, total_commission, status, payment_status, payment_method)
		VALUES (:id, :buyer_id, :total_amount, :total_commission, :status, :payment_status, :payment_method)
	`, order)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}

	for i := range items {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, seller_store_id, qty, unit_price, item_total, commission_amount)
			VALUES (:id, :order_id, :product_id, :seller_store_id, :qty, :unit_price, :item_total, :commission_amount)
		`, &items[i])
		if err != nil {
			return errors.Wrapf(err, "insert item %s", items[i].ProductID)
		}
	}

	return errors.Wrap(tx.Commit(), "commit order tx")
}

func (r *OrderRepository) AwaitPayment(ctx context.Context, orderID string, method models.PaymentMethod) (int64, error) {
	t := models.TransitionAwaitPayment
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1, status = $2, payment_method = $3, updated_at = NOW()
		WHERE id = $4 AND payment_status = ANY($5) AND status = ANY($6)
	`, t.ToPayment, t.ToStatus, method, orderID, pq.Array(t.FromPaymentStrings()), pq.Array(t.FromStatusStrings()))
	if err != nil {
		return 0, errors.Wrapf(err, "await payment on order %s", orderID)
	}
	return result.RowsAffected()
}

func (r *OrderRepository) Transition(ctx context.Context, orderID string, t models.OrderTransition) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1, status = $2, updated_at = NOW()
		WHERE id = $3 AND payment_status = ANY($4) AND status = ANY($5)
	`, t.ToPayment, t.ToStatus, orderID, pq.Array(t.FromPaymentStrings()), pq.Array(t.FromStatusStrings()))
	if err != nil {
		return 0, errors.Wrapf(err, "%s on order %s", t.Name, orderID)
	}
	return result.RowsAffected()
}
