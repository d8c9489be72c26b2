package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
	"github.com/jwalitptl/medicare-api/pkg/logger"
	"github.com/jwalitptl/medicare-api/pkg/messaging"
	"github.com/jwalitptl/medicare-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// RetryAttempts is the number of polls an event may fail before it is
	// marked failed for good.
	RetryAttempts int
	// RetryDelay is the base delay before a failed event is picked up again.
	// It doubles with every retry.
	RetryDelay time.Duration
	// PublishTries bounds the in-poll attempts against the broker.
	PublishTries uint64
}

func (c *OutboxProcessorConfig) withDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.PublishTries == 0 {
		c.PublishTries = 3
	}
}

// OutboxProcessor relays committed domain events to the broker. Each batch
// is claimed with row locks inside one transaction, so several processors
// can run side by side without publishing the same event twice.
type OutboxProcessor struct {
	tx      repository.Transactor
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	tx repository.Transactor,
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	config.withDefaults()
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &OutboxProcessor{
		tx:      tx,
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

// Start polls until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("outbox processor started", "batch_size", p.config.BatchSize)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox processor stopped")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "failed to process outbox batch")
			}
		}
	}
}

// ProcessBatch publishes one batch and returns how many events were
// delivered.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	delivered := 0
	err := p.tx.WithTx(ctx, func(ctx context.Context) error {
		events, err := p.repo.GetPendingEventsWithLock(ctx, p.config.BatchSize)
		if err != nil {
			p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
			return fmt.Errorf("failed to get pending events: %w", err)
		}
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

		for _, event := range events {
			ok, err := p.processEvent(ctx, event)
			if err != nil {
				return err
			}
			if ok {
				delivered++
			}
		}
		return nil
	})
	return delivered, err
}

// processEvent reports whether the event was published. Only status update
// failures are returned, since they abort the batch transaction.
func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) (bool, error) {
	msg := messaging.Message{
		ID:      event.ID.String(),
		Type:    event.EventType,
		Payload: event.Payload,
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 100 * time.Millisecond
	exp.MaxInterval = time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, p.config.PublishTries-1), ctx)
	attempt := 0
	pubErr := backoff.Retry(func() error {
		if attempt > 0 {
			p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		}
		attempt++
		return p.broker.Publish(ctx, event.EventType, msg)
	}, policy)

	if pubErr == nil {
		if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
			return false, fmt.Errorf("failed to mark event %s processed: %w", event.ID, err)
		}
		p.metrics.OutboxEventsProcessed.Inc()
		return true, nil
	}

	p.metrics.OutboxEventsFailed.Inc()
	errMsg := pubErr.Error()

	if event.RetryCount+1 >= p.config.RetryAttempts {
		p.logger.Error(pubErr, "outbox event failed permanently",
			"event_id", event.ID.String(), "event_type", event.EventType, "retries", event.RetryCount)
		if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errMsg, nil); err != nil {
			return false, fmt.Errorf("failed to mark event %s failed: %w", event.ID, err)
		}
		return false, nil
	}

	retryAt := p.now().Add(p.config.RetryDelay << event.RetryCount)
	p.logger.Warn("outbox event publish failed, will retry",
		"event_id", event.ID.String(), "event_type", event.EventType, "retry_at", retryAt)
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusRetry, &errMsg, &retryAt); err != nil {
		return false, fmt.Errorf("failed to schedule retry for event %s: %w", event.ID, err)
	}
	return false, nil
}
