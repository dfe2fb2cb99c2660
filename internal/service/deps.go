package service

import (
	"context"
	"errors"
	"time"

	"upgrade-service/internal/models"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrSessionNotFound    = errors.New("configuration session not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOptionNotFound     = errors.New("upgrade option not found")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInvalidOverrides   = errors.New("invalid price overrides")
	ErrInvalidImport      = errors.New("invalid catalog import")
	ErrFinalizeInProgress = errors.New("finalization already in progress")
)

// CatalogStore persists upgrade option rows.
type CatalogStore interface {
	ListUpgradeOptions(ctx context.Context) ([]models.UpgradeOption, error)
	UpsertUpgradeOptions(ctx context.Context, options []models.UpgradeOption) error
	DeactivateUpgradeOption(ctx context.Context, id int64) error
}

// CatalogCache caches raw upgrade option rows. SetCatalog stores rows only
// while version is still the current catalog version.
type CatalogCache interface {
	GetCatalog(ctx context.Context) ([]models.UpgradeOption, bool, error)
	CatalogVersion(ctx context.Context) (int64, error)
	SetCatalog(ctx context.Context, version int64, rows []models.UpgradeOption) (bool, error)
	InvalidateCatalog(ctx context.Context) error
}

// ProductStore reads products and their price overrides.
type ProductStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	SetPriceOverrides(ctx context.Context, productID int64, overrides models.PriceOverrides) error
}

// OrderStore persists finalized configurations.
type OrderStore interface {
	CreateOrderWithItem(ctx context.Context, order *models.Order, item *models.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
}

// SessionStore keeps configuration sessions between requests.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.ConfigurationSession) error
	GetSession(ctx context.Context, id string) (*models.ConfigurationSession, error)
	DeleteSession(ctx context.Context, id string) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	PublishCatalogUpdated(ctx context.Context, event *models.CatalogUpdatedEvent) error
	PublishConfigurationFinalized(ctx context.Context, event *models.ConfigurationFinalizedEvent) error
}
