package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

type ProductRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.Product, error) {
	var products []models.Product
	err := r.db.SelectContext(ctx, &products, `
		SELECT id, seller_store_id, title, price FROM products WHERE id = ANY($1::uuid[])
	`, pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}

	out := make(map[string]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}
