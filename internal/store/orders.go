package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"upgrade-service/internal/models"
)

// CreateOrderWithItem creates an order and its configured line atomically
func (s *Store) CreateOrderWithItem(ctx context.Context, order *models.Order, item *models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (user_id, total_amount, status, idempotency_key, session_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, total_amount, status, idempotency_key, session_id, created_at, updated_at`,
		order.UserID, order.TotalAmount, order.Status, order.IdempotencyKey, order.SessionID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	item.OrderID = order.ID
	err = tx.GetContext(ctx, &item.ID, `
		INSERT INTO order_items (order_id, product_id, quantity, base_price, additional_cost, unit_price,
			ram_option_key, storage_option_key, ram_label, storage_label)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		item.OrderID, item.ProductID, item.Quantity, item.BasePrice, item.AdditionalCost, item.UnitPrice,
		item.RAMOptionKey, item.StorageOptionKey, item.RAMLabel, item.StorageLabel)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderBySessionID returns the order a session was finalized into, or
// nil when it has none.
func (s *Store) GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE session_id = $1", sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}
