package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jwalitptl/medicare-api/internal/email"
	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/push"
	"github.com/jwalitptl/medicare-api/internal/repository"
	"github.com/jwalitptl/medicare-api/pkg/logger"
	"github.com/jwalitptl/medicare-api/pkg/metrics"
)

var tracer = otel.Tracer("medicare-api/notification")

// ErrDispatcherClosed is returned by Close when called twice.
var ErrDispatcherClosed = errors.New("notification dispatcher closed")

// Notifier accepts notifications without waiting for delivery.
type Notifier interface {
	Enqueue(p *model.Patient, e Event) bool
}

type Options struct {
	Workers         int
	QueueSize       int
	DeliveryTimeout time.Duration
}

type task struct {
	patient model.Patient
	event   Event
}

// Dispatcher renders notifications and delivers them over push and email
// from a fixed pool of workers. Every task ends with exactly one
// NotificationLog row.
type Dispatcher struct {
	logs    repository.NotificationLogRepository
	push    push.Sender
	email   email.Sender
	log     *logger.Logger
	metrics *metrics.Metrics
	opts    Options

	queue chan task
	wg    sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	started bool
}

func NewDispatcher(
	logs repository.NotificationLogRepository,
	pushSender push.Sender,
	emailSender email.Sender,
	opts Options,
	log *logger.Logger,
	m *metrics.Metrics,
) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 100
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Dispatcher{
		logs:    logs,
		push:    pushSender,
		email:   emailSender,
		log:     log,
		metrics: m,
		opts:    opts,
		queue:   make(chan task, opts.QueueSize),
	}
}

// Start launches the worker pool. It is safe to call more than once.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		d.Notify(context.Background(), &t.patient, t.event)
	}
}

// Enqueue hands a notification to the worker pool and returns immediately.
// When the queue is full or the dispatcher is closed the notification is
// dropped and Enqueue returns false.
func (d *Dispatcher) Enqueue(p *model.Patient, e Event) bool {
	if p == nil || e == nil {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(p, e, "dispatcher closed")
		return false
	}

	select {
	case d.queue <- task{patient: *p, event: e}:
		d.metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		return true
	default:
		d.drop(p, e, "queue full")
		return false
	}
}

func (d *Dispatcher) drop(p *model.Patient, e Event, reason string) {
	d.metrics.NotificationsDropped.Inc()
	d.log.Warn("notification dropped",
		"reason", reason,
		"patient_id", p.ID.String(),
		"type", Render(p, e).Type,
	)
}

// Notify delivers one notification synchronously and records the outcome.
// Delivery errors are never returned; they only show up in the log row's
// status.
func (d *Dispatcher) Notify(ctx context.Context, p *model.Patient, e Event) *model.NotificationLog {
	ctx, span := tracer.Start(ctx, "notification.Notify")
	defer span.End()

	content := Render(p, e)
	span.SetAttributes(
		attribute.String("patient.id", p.ID.String()),
		attribute.String("notification.type", content.Type),
	)

	status := model.NotificationStatusPending

	if token := p.PushToken(); token != "" && d.push != nil {
		status = model.NotificationStatusSent
		if err := d.sendPush(ctx, token, content); err != nil {
			status = model.NotificationStatusFailed
			d.log.Error(err, "push delivery failed", "patient_id", p.ID.String(), "type", content.Type)
		}
	}

	if addr := p.EmailAddress(); addr != "" && d.email != nil {
		if err := d.sendEmail(ctx, addr, p.Name, content); err != nil {
			d.log.Error(err, "email delivery failed", "patient_id", p.ID.String(), "type", content.Type)
		}
	}

	entry := &model.NotificationLog{
		PatientID: p.ID,
		Type:      content.Type,
		Title:     content.Title,
		Message:   content.Body,
		Status:    status,
	}

	// The row is written even when the caller's context is already done.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.DeliveryTimeout)
	defer cancel()
	if err := d.logs.Create(logCtx, entry); err != nil {
		d.log.Error(err, "failed to write notification log", "patient_id", p.ID.String(), "type", content.Type)
	}

	d.metrics.NotificationsDispatched.WithLabelValues(content.Type, string(status)).Inc()
	span.SetAttributes(attribute.String("notification.status", string(status)))
	return entry
}

func (d *Dispatcher) sendPush(ctx context.Context, token string, c Content) error {
	ctx, cancel := context.WithTimeout(ctx, d.opts.DeliveryTimeout)
	defer cancel()

	err := d.push.Send(ctx, push.Notification{
		Token: token,
		Title: c.Title,
		Body:  c.Body,
		Data:  map[string]string{"type": c.Type},
	})
	d.metrics.DeliveryAttempts.WithLabelValues("push", resultLabel(err)).Inc()
	return err
}

func (d *Dispatcher) sendEmail(ctx context.Context, to, name string, c Content) error {
	html, err := renderEmail(name, c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.DeliveryTimeout)
	defer cancel()

	err = d.email.Send(ctx, email.Message{
		To:      to,
		ToName:  name,
		Subject: c.Title,
		Text:    c.Body,
		HTML:    html,
	})
	d.metrics.DeliveryAttempts.WithLabelValues("email", resultLabel(err)).Inc()
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, push.ErrPushNotConfigured), errors.Is(err, email.ErrNotConfigured):
		return "not_configured"
	default:
		return "error"
	}
}

// Close stops accepting work and waits for queued notifications to finish,
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		for t := range d.queue {
			d.Notify(ctx, &t.patient, t.event)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("notification dispatcher drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Notifier = (*Dispatcher)(nil)
