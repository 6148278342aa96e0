package event

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/inventory-service/internal/model"
	"github.com/tuanvumaihuynh/inventory-service/internal/storage/mq"
)

type fakeConsumer struct {
	handlers map[string]mq.HandlerFunc
	runErr   error
	stopped  bool
}

func (c *fakeConsumer) RegisterHandler(topic string, handler mq.HandlerFunc) error {
	if c.handlers == nil {
		c.handlers = make(map[string]mq.HandlerFunc)
	}
	c.handlers[topic] = handler
	return nil
}

func (c *fakeConsumer) Run(context.Context) (mq.CleanupFunc, error) {
	if c.runErr != nil {
		return nil, c.runErr
	}
	return func() { c.stopped = true }, nil
}

func TestService_Run(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	consumer := &fakeConsumer{}

	cleanup, err := New(logger, consumer).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, consumer.handlers, len(ProductTopics))
	for _, topic := range ProductTopics {
		assert.Contains(t, consumer.handlers, topic)
	}

	t.Run("decodes and handles stock adjustment", func(t *testing.T) {
		ev := NewProductEvent(model.Product{ID: "p1", Name: "Lamp", Category: model.CategoryHome, Stock: 3, IsActive: true})
		delta := -2
		ev.StockDelta = &delta
		payload, err := json.Marshal(ev)
		require.NoError(t, err)

		err = consumer.handlers[TopicProductStockAdjusted](context.Background(), TopicProductStockAdjusted, payload)
		require.NoError(t, err)

		assert.Contains(t, buf.String(), `"product_id":"p1"`)
		assert.Contains(t, buf.String(), `"stock_delta":-2`)
		assert.Contains(t, buf.String(), `"service":"event"`)
	})

	t.Run("malformed payload", func(t *testing.T) {
		err := consumer.handlers[TopicProductCreated](context.Background(), TopicProductCreated, []byte("{"))
		assert.ErrorContains(t, err, "unmarshal product.created event")
	})

	cleanup()
	assert.True(t, consumer.stopped)
}

func TestService_Run_ConsumerError(t *testing.T) {
	consumer := &fakeConsumer{runErr: errors.New("broker down")}

	_, err := New(slog.New(slog.DiscardHandler), consumer).Run(context.Background())
	assert.ErrorContains(t, err, "broker down")
}
