package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Product is a storefront product row. RAM, Storage and Processor hold the
// free-text hardware description shown to customers.
type Product struct {
	ID             int64          `db:"id" json:"id"`
	SKU            string         `db:"sku" json:"sku"`
	Name           string         `db:"name" json:"name"`
	Kind           string         `db:"kind" json:"kind"`
	RAM            string         `db:"ram" json:"ram"`
	Storage        string         `db:"storage" json:"storage"`
	Processor      string         `db:"processor" json:"processor"`
	MemoryClass    string         `db:"memory_class" json:"memory_class,omitempty"`
	Price          int64          `db:"price" json:"price"`
	PriceOverrides PriceOverrides `db:"price_overrides" json:"price_overrides,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// PriceOverrides maps "{kind}-{option id}" to a per-product upgrade price.
// It is stored as a JSONB column.
type PriceOverrides map[string]int64

// Value implements driver.Valuer. The JSON is returned as a string so lib/pq
// does not send it as bytea.
func (p PriceOverrides) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (p *PriceOverrides) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = PriceOverrides{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported price_overrides type %T", src)
	}

	out := PriceOverrides{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("failed to decode price_overrides: %w", err)
		}
	}
	*p = out
	return nil
}

// UpgradeOption is an upgrade_options row. Size is the raw capacity text;
// the engine parses and validates it.
type UpgradeOption struct {
	ID            int64     `db:"id" json:"id" csv:"id"`
	Kind          string    `db:"kind" json:"kind" csv:"kind"`
	Size          string    `db:"size" json:"size" csv:"size"`
	Label         string    `db:"label" json:"label" csv:"label"`
	Price         int64     `db:"price" json:"price" csv:"price"`
	Applicability string    `db:"applicability" json:"applicability" csv:"applicability"`
	GenMin        *int      `db:"gen_min" json:"gen_min,omitempty" csv:"gen_min,omitempty"`
	GenMax        *int      `db:"gen_max" json:"gen_max,omitempty" csv:"gen_max,omitempty"`
	Active        bool      `db:"active" json:"active" csv:"active"`
	DisplayOrder  *int      `db:"display_order" json:"display_order,omitempty" csv:"display_order,omitempty"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at" csv:"-"`
}

// Order represents a customer order
type Order struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	TotalAmount    int64     `db:"total_amount" json:"total_amount"`
	Status         string    `db:"status" json:"status"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	SessionID      string    `db:"session_id" json:"session_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is a configured product line. It captures the chosen upgrades
// and the prices in effect when the order was placed.
type OrderItem struct {
	ID               int64  `db:"id" json:"id"`
	OrderID          int64  `db:"order_id" json:"order_id"`
	ProductID        int64  `db:"product_id" json:"product_id"`
	Quantity         int    `db:"quantity" json:"quantity"`
	BasePrice        int64  `db:"base_price" json:"base_price"`
	AdditionalCost   int64  `db:"additional_cost" json:"additional_cost"`
	UnitPrice        int64  `db:"unit_price" json:"unit_price"`
	RAMOptionKey     string `db:"ram_option_key" json:"ram_option_key,omitempty"`
	StorageOptionKey string `db:"storage_option_key" json:"storage_option_key,omitempty"`
	RAMLabel         string `db:"ram_label" json:"ram_label"`
	StorageLabel     string `db:"storage_label" json:"storage_label"`
}

// OrderStatusCreated is the status of a freshly placed order.
const OrderStatusCreated = "CREATED"

// ConfigurationSession is the persisted selection of a customization
// session. Only option ids are stored; prices are always recomputed.
type ConfigurationSession struct {
	ID              string    `json:"id"`
	ProductID       int64     `json:"product_id"`
	RAMOptionID     *int64    `json:"ram_option_id,omitempty"`
	StorageOptionID *int64    `json:"storage_option_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
