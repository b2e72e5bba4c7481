package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// Os nomes dos campos fazem parte do contrato com os consumidores
func TestOrderCreatedPayloadShape(t *testing.T) {
	payload := OrderCreated{
		OrderID:     "order-1",
		OrderNumber: "ORD-20250829-ABCD1234",
		UserID:      "user-1",
		TotalAmount: decimal.RequireFromString("35.00"),
	}

	data, err := json.Marshal(payload)
	assert.NoError(t, err)

	var decoded map[string]any
	assert.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"order_id", "order_number", "user_id", "total_amount"} {
		assert.Contains(t, decoded, key)
	}
}

func TestOrderStatusUpdatedPayloadShape(t *testing.T) {
	data, err := json.Marshal(OrderStatusUpdated{
		OrderID:        "order-1",
		OrderNumber:    "ORD-20250829-ABCD1234",
		PreviousStatus: "Pending",
		NewStatus:      "Confirmed",
	})
	assert.NoError(t, err)

	var decoded map[string]any
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Pending", decoded["previous_status"])
	assert.Equal(t, "Confirmed", decoded["new_status"])
}

func TestNoopPublisher(t *testing.T) {
	p := NoopPublisher{}

	assert.NoError(t, p.Publish(context.Background(), TopicOrderCreated, "key", struct{}{}))
	assert.NoError(t, p.Close())
}

func TestKafkaPublisher_UnknownTopic(t *testing.T) {
	p := NewKafkaPublisher("localhost:9092")
	defer p.Close()

	err := p.Publish(context.Background(), "orders.unknown", "key", struct{}{})
	assert.ErrorContains(t, err, "unknown topic")
}
