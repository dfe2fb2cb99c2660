package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"upgrade-service/internal/models"
)

const productColumns = `id, sku, name, kind, ram, storage, processor, memory_class, price, price_overrides, created_at`

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves all products
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT "+productColumns+" FROM products ORDER BY id")
	return products, err
}

// SetPriceOverrides replaces the upgrade price overrides of a product
func (s *Store) SetPriceOverrides(ctx context.Context, productID int64, overrides models.PriceOverrides) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET price_overrides = $1 WHERE id = $2",
		overrides, productID)
	if err != nil {
		return fmt.Errorf("failed to update price overrides: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	return nil
}
