package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageRoutesSaleCompleted(t *testing.T) {
	variantID := int64(7)
	event := models.SaleCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeSaleCompleted,
			Timestamp: time.Now(),
		},
		SaleID:        42,
		ReceiptNumber: "REC-20261017-000001",
		FinalAmount:   "95.00",
		Items:         []models.SoldItemData{{ProductID: 1, VariantID: &variantID, Quantity: 2}},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var got *models.SaleCompletedEvent
	h := NewEventHandler()
	h.OnSaleCompleted(func(_ context.Context, e *models.SaleCompletedEvent) error {
		got = e
		return nil
	})

	require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: payload}))
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.SaleID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, variantID, *got.Items[0].VariantID)
}

func TestHandleMessageIgnoresOtherEvents(t *testing.T) {
	payload, err := json.Marshal(models.ProductChangedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-2", EventType: models.EventTypeProductChanged},
		ProductID: 3,
		Action:    models.ChangeActionUpdated,
	})
	require.NoError(t, err)

	called := false
	h := NewEventHandler()
	h.OnSaleCompleted(func(context.Context, *models.SaleCompletedEvent) error {
		called = true
		return nil
	})

	assert.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: payload}))
	assert.False(t, called)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	err := NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: []byte("{")})
	assert.Error(t, err)
}

func TestPublisherWithoutProducerDropsEvents(t *testing.T) {
	ep := NewEventPublisher(nil)
	err := ep.PublishSaleCompleted(context.Background(), &models.SaleCompletedEvent{SaleID: 1})
	assert.NoError(t, err)
}
