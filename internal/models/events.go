package models

import "time"

// Event types
const (
	EventTypeCatalogUpdated         = "CATALOG_UPDATED"
	EventTypeConfigurationFinalized = "CONFIGURATION_FINALIZED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type carried in the message header.
func (e BaseEvent) Type() string {
	return e.EventType
}

// CatalogUpdatedEvent published after an upgrade catalog import
type CatalogUpdatedEvent struct {
	BaseEvent
	Imported int `json:"imported"`
	Rejected int `json:"rejected"`
}

// ConfigurationFinalizedEvent published when a configuration becomes an order line
type ConfigurationFinalizedEvent struct {
	BaseEvent
	OrderID        int64    `json:"order_id"`
	UserID         int64    `json:"user_id"`
	ProductID      int64    `json:"product_id"`
	SessionID      string   `json:"session_id"`
	OptionKeys     []string `json:"option_keys"`
	Quantity       int      `json:"quantity"`
	AdditionalCost int64    `json:"additional_cost"`
	UnitPrice      int64    `json:"unit_price"`
	TotalAmount    int64    `json:"total_amount"`
}
