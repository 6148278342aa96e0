package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/codes"

	"github.com/tuanvumaihuynh/inventory-service/internal/config"
	"github.com/tuanvumaihuynh/inventory-service/pkg/outbox"
)

// HandlerFunc processes one record value. A returned error is logged and
// the offset is still committed: events are informational and a poison
// record must not stall the partition.
type HandlerFunc func(ctx context.Context, topic string, payload []byte) error

type CleanupFunc func()

// Consumer dispatches records to the handler registered for their topic.
// Handlers must be registered before Run.
type Consumer interface {
	RegisterHandler(topic string, handler HandlerFunc) error
	Run(ctx context.Context) (CleanupFunc, error)
}

var _ Consumer = (*KafkaConsumer)(nil)

type KafkaConsumer struct {
	cl       *kgo.Client
	handlers map[string]HandlerFunc
	log      *slog.Logger
}

// NewKafkaConsumer joins cfg.Group. Offsets are committed after each
// polled batch has been handled.
func NewKafkaConsumer(ctx context.Context, cfg config.Kafka, logger *slog.Logger) (*KafkaConsumer, error) {
	cl, err := newClient(ctx, cfg,
		kgo.ConsumerGroup(cfg.Group),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}

	return &KafkaConsumer{
		cl:       cl,
		handlers: make(map[string]HandlerFunc),
		log:      logger.With(slog.String("component", "kafka_consumer"), slog.String("group", cfg.Group)),
	}, nil
}

func (c *KafkaConsumer) RegisterHandler(topic string, handler HandlerFunc) error {
	if _, dup := c.handlers[topic]; dup {
		return fmt.Errorf("topic %s already has a handler", topic)
	}

	c.handlers[topic] = handler
	c.cl.AddConsumeTopics(topic)
	return nil
}

func (c *KafkaConsumer) Run(ctx context.Context) (CleanupFunc, error) {
	if len(c.handlers) == 0 {
		return nil, errors.New("no handlers registered")
	}

	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		for ctx.Err() == nil {
			c.poll(ctx)
		}
	}()

	return func() {
		cancel()
		<-stopped
		c.cl.Close()
	}, nil
}

func (c *KafkaConsumer) poll(ctx context.Context) {
	fetches := c.cl.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return
	}

	fetches.EachError(func(topic string, partition int32, err error) {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.log.ErrorContext(ctx, "error fetching records",
			slog.String("topic", topic),
			slog.Int("partition", int(partition)),
			slog.Any("error", err),
		)
	})

	if fetches.NumRecords() == 0 {
		return
	}

	fetches.EachRecord(c.handleRecord)

	if err := c.cl.CommitUncommittedOffsets(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.log.ErrorContext(ctx, "error committing offsets", slog.Any("error", err))
	}
}

func (c *KafkaConsumer) handleRecord(rec *kgo.Record) {
	ctx, span := kTracer.WithProcessSpan(rec)
	defer span.End()
	ctx = outbox.InjectCorrelationIDFromRecord(ctx, rec)

	attrs := []any{
		slog.String("topic", rec.Topic),
		slog.Int("partition", int(rec.Partition)),
		slog.Int64("offset", rec.Offset),
		slog.String("key", string(rec.Key)),
	}

	defer func() {
		if rvr := recover(); rvr != nil {
			span.RecordError(fmt.Errorf("panic: %v", rvr))
			span.SetStatus(codes.Error, "handler panicked")
			c.log.ErrorContext(ctx, "recovered from panic in record handler",
				append(attrs, slog.Any("panic", rvr), slog.String("stack", string(debug.Stack())))...)
		}
	}()

	handler, ok := c.handlers[rec.Topic]
	if !ok {
		c.log.WarnContext(ctx, "no handler for topic", attrs...)
		return
	}

	if err := handler(ctx, rec.Topic, rec.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")
		c.log.ErrorContext(ctx, "error handling record", append(attrs, slog.Any("error", err))...)
	}
}
