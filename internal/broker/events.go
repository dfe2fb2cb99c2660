package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"upgrade-service/internal/models"
	"upgrade-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	catalog *Producer
	orders  *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(catalog, orders *Producer) *EventPublisher {
	return &EventPublisher{catalog: catalog, orders: orders}
}

// PublishCatalogUpdated publishes CatalogUpdated event
func (ep *EventPublisher) PublishCatalogUpdated(ctx context.Context, event *models.CatalogUpdatedEvent) error {
	return ep.catalog.PublishEvent(ctx, "catalog", event)
}

// PublishConfigurationFinalized publishes ConfigurationFinalized event
func (ep *EventPublisher) PublishConfigurationFinalized(ctx context.Context, event *models.ConfigurationFinalizedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.orders.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onCatalogUpdated func(context.Context, *models.CatalogUpdatedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnCatalogUpdated registers a handler for CatalogUpdated events
func (eh *EventHandler) OnCatalogUpdated(handler func(context.Context, *models.CatalogUpdatedEvent) error) {
	eh.onCatalogUpdated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	if t := eventType(msg); t != "" && !eh.handles(t) {
		return nil
	}

	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeCatalogUpdated:
		if eh.onCatalogUpdated != nil {
			var event models.CatalogUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CatalogUpdated event: %w", err)
			}
			return eh.onCatalogUpdated(ctx, &event)
		}

	default:
		logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}

func (eh *EventHandler) handles(eventType string) bool {
	switch eventType {
	case models.EventTypeCatalogUpdated:
		return eh.onCatalogUpdated != nil
	}
	return false
}
