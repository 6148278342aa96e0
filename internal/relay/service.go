package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tuanvumaihuynh/inventory-service/internal/config"
	"github.com/tuanvumaihuynh/inventory-service/internal/repository"
	"github.com/tuanvumaihuynh/inventory-service/internal/storage/mq"
	"github.com/tuanvumaihuynh/inventory-service/pkg/outbox"
	"github.com/tuanvumaihuynh/inventory-service/pkg/ptr"
)

// Service moves product events from the outbox to the broker. Produce
// calls go through a circuit breaker; while it is open the remaining
// messages of the batch stay unprocessed and are retried next tick.
type Service struct {
	cfg        config.Relay
	logger     *slog.Logger
	store      repository.Store
	mqProducer mq.Producer
	breaker    *gobreaker.CircuitBreaker[struct{}]

	stopChan chan struct{}
}

func NewService(
	cfg config.Relay,
	logger *slog.Logger,
	store repository.Store,
	mqProducer mq.Producer,
) *Service {
	logger = logger.With(slog.String("service", "relay"))

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "relay-produce",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Service{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		mqProducer: mqProducer,
		breaker:    breaker,
		stopChan:   make(chan struct{}),
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) CleanupFunc {
	ctx, cancel := context.WithCancel(ctx)

	stoppedChan := make(chan struct{})
	go func() {
		defer close(stoppedChan)
		s.run(ctx)
	}()

	return func() {
		close(s.stopChan)
		select {
		case <-stoppedChan:
		case <-time.After(5 * time.Second):
			cancel()
			<-stoppedChan
		}
		cancel()
	}
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.RelayBatch(ctx); err != nil {
				s.logger.ErrorContext(ctx, "error relaying outbox msgs", slog.Any("error", err))
			}
		}
	}
}

// RelayBatch publishes one batch of unprocessed messages and marks the
// attempted ones as processed, recording produce errors. It returns the
// number of messages marked.
func (s *Service) RelayBatch(ctx context.Context) (int, error) {
	var marked int

	err := s.store.WithTx(ctx, func(ctx context.Context, store repository.Store) error {
		outboxMsgs, err := store.OutboxMsgs().
			ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{
				//nolint:gosec
				BatchSize: int32(s.cfg.BatchSize),
			})
		if err != nil {
			return fmt.Errorf("list unprocessed outbox msgs: %w", err)
		}

		if len(outboxMsgs) == 0 {
			return nil
		}

		s.logger.InfoContext(ctx, "relaying outbox msgs", slog.Int("count", len(outboxMsgs)))

		items := make([]repository.BulkUpdateOutboxMsgsItem, 0, len(outboxMsgs))
		var mu sync.Mutex
		g := new(errgroup.Group)
		if s.cfg.Concurrency > 0 {
			g.SetLimit(s.cfg.Concurrency)
		}

		for _, msg := range outboxMsgs {
			g.Go(func() error {
				err := s.produce(ctx, msg)
				if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
					return nil
				}

				item := repository.BulkUpdateOutboxMsgsItem{ID: msg.ID}
				if err != nil {
					s.logger.ErrorContext(ctx,
						"error producing message",
						slog.String("outbox_msg_id", msg.ID.String()),
						slog.String("topic", msg.Topic),
						slog.Any("error", err),
					)
					item.Error = ptr.New(err.Error())
				}

				mu.Lock()
				items = append(items, item)
				mu.Unlock()
				return nil
			})
		}

		_ = g.Wait()

		if len(items) < len(outboxMsgs) {
			s.logger.WarnContext(ctx, "circuit breaker open, deferring outbox msgs",
				slog.Int("deferred", len(outboxMsgs)-len(items)),
			)
		}

		if err := store.OutboxMsgs().
			BulkUpdateOutboxMsgs(ctx, repository.BulkUpdateOutboxMsgsParams{
				Items: items,
			}); err != nil {
			return fmt.Errorf("bulk update outbox msgs: %w", err)
		}

		marked = len(items)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return marked, nil
}

func (s *Service) produce(ctx context.Context, msg repository.ListUnprocessedOutboxMsgsResult) error {
	// Continue the trace of the request that wrote the message.
	msgCtx := outbox.ExtractContextFromHeaders(ctx, msg.Headers)

	_, err := s.breaker.Execute(func() (struct{}, error) {
		if err := s.mqProducer.Produce(msgCtx, mq.ProduceMsg{
			Topic:        msg.Topic,
			Headers:      msg.Headers,
			Payload:      msg.Payload,
			PartitionKey: msg.PartitionKey,
		}); err != nil {
			return struct{}{}, fmt.Errorf("produce message: %w", err)
		}
		return struct{}{}, nil
	})

	return err
}
