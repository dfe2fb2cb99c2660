package worker

import (
	"context"
	"encoding/json"
	"testing"

	"upgrade-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	events []*models.CatalogUpdatedEvent
}

func (r *recordingInvalidator) HandleCatalogUpdated(ctx context.Context, event *models.CatalogUpdatedEvent) error {
	r.events = append(r.events, event)
	return nil
}

func TestCatalogWorkerDispatchesCatalogUpdated(t *testing.T) {
	inv := &recordingInvalidator{}
	w := NewCatalogWorker(nil, inv)

	data, err := json.Marshal(models.CatalogUpdatedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-7", EventType: models.EventTypeCatalogUpdated},
		Imported:  3,
	})
	require.NoError(t, err)

	require.NoError(t, w.eventHandler.HandleMessage(context.Background(), kafka.Message{Value: data}))

	require.Len(t, inv.events, 1)
	assert.Equal(t, "evt-7", inv.events[0].EventID)
	assert.Equal(t, 3, inv.events[0].Imported)
}

func TestCatalogWorkerIgnoresOrderEvents(t *testing.T) {
	inv := &recordingInvalidator{}
	w := NewCatalogWorker(nil, inv)

	data, err := json.Marshal(models.BaseEvent{EventID: "evt-8", EventType: models.EventTypeConfigurationFinalized})
	require.NoError(t, err)

	require.NoError(t, w.eventHandler.HandleMessage(context.Background(), kafka.Message{Value: data}))
	assert.Empty(t, inv.events)
}
