package worker

import (
	"context"

	"upgrade-service/internal/broker"
	"upgrade-service/internal/models"
	"upgrade-service/internal/util"

	"go.uber.org/zap"
)

// CatalogInvalidator reacts to catalog changes made by any replica
type CatalogInvalidator interface {
	HandleCatalogUpdated(ctx context.Context, event *models.CatalogUpdatedEvent) error
}

// CatalogWorker consumes catalog events and keeps the local cache coherent
type CatalogWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewCatalogWorker creates a new catalog worker
func NewCatalogWorker(consumer *broker.Consumer, catalog CatalogInvalidator) *CatalogWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnCatalogUpdated(catalog.HandleCatalogUpdated)

	return &CatalogWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start starts the worker
func (w *CatalogWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogWorker) Stop() error {
	w.logger.Info("Stopping catalog worker")
	return w.consumer.Close()
}
