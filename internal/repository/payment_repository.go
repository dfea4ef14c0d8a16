package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT id, order_id, payment_method, provider_reference, status, amount,
		       created_by, metadata, created_at, updated_at
		FROM payments WHERE order_id = $1
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrPaymentRecordNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get payment of order %s", orderID)
	}
	return &rec, nil
}

// Upsert never touches a record that has already settled as paid.
func (r *PaymentRepository) Upsert(ctx context.Context, rec *models.PaymentRecord) (int64, error) {
	prepare(rec)
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO payments (id, order_id, payment_method, provider_reference, status, amount, created_by, metadata)
		VALUES (:id, :order_id, :payment_method, :provider_reference, :status, :amount, :created_by, :metadata)
		ON CONFLICT (order_id) DO UPDATE SET
			payment_method     = EXCLUDED.payment_method,
			provider_reference = EXCLUDED.provider_reference,
			status             = EXCLUDED.status,
			amount             = EXCLUDED.amount,
			created_by         = EXCLUDED.created_by,
			metadata           = EXCLUDED.metadata,
			updated_at         = NOW()
		WHERE payments.status <> 'paid'
	`, rec)
	if err != nil {
		return 0, errors.Wrapf(err, "upsert payment of order %s", rec.OrderID)
	}
	return result.RowsAffected()
}

func (r *PaymentRepository) InsertIfAbsent(ctx context.Context, rec *models.PaymentRecord) (bool, error) {
	prepare(rec)
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO payments (id, order_id, payment_method, provider_reference, status, amount, created_by, metadata)
		VALUES (:id, :order_id, :payment_method, :provider_reference, :status, :amount, :created_by, :metadata)
		ON CONFLICT (order_id) DO NOTHING
	`, rec)
	if err != nil {
		return false, errors.Wrapf(err, "insert payment of order %s", rec.OrderID)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PaymentRepository) TransitionStatus(ctx context.Context, orderID, reference string, to models.RecordStatus) (int64, error) {
	from := models.RecordSourceStatuses(to)
	fromStrings := make([]string, len(from))
	for i, s := range from {
		fromStrings[i] = string(s)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE order_id = $2 AND provider_reference = $3 AND status = ANY($4)
	`, to, orderID, reference, pq.Array(fromStrings))
	if err != nil {
		return 0, errors.Wrapf(err, "move payment of order %s to %s", orderID, to)
	}
	return result.RowsAffected()
}

func prepare(rec *models.PaymentRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if len(rec.Metadata) == 0 {
		rec.Metadata = types.JSONText("{}")
	}
}
