package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/sitegen-supportchat/internal/knowledge"
	"github.com/wolfman30/sitegen-supportchat/internal/observability/metrics"
	"github.com/wolfman30/sitegen-supportchat/pkg/logging"
)

// DefaultDeliveryTimeout bounds one delivery attempt across all channels.
const DefaultDeliveryTimeout = 30 * time.Second

// Dispatcher hands contact requests to lead channels in the background. The
// chat never waits for delivery and never sees its errors.
type Dispatcher struct {
	kb      *knowledge.KnowledgeBase
	channel Channel
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.ChatMetrics
	tracer  trace.Tracer
	now     func() time.Time

	wg sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

func WithLogger(logger *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(m *metrics.ChatMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(kb *knowledge.KnowledgeBase, channel Channel, opts ...DispatcherOption) *Dispatcher {
	if kb == nil || channel == nil {
		panic("leads: dispatcher requires a knowledge base and a channel")
	}
	d := &Dispatcher{
		kb:      kb,
		channel: channel,
		timeout: DefaultDeliveryTimeout,
		logger:  logging.Default(),
		tracer:  otel.Tracer("sitegen.internal.leads"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch formats req and delivers it asynchronously. The delivery outlives
// ctx's cancellation but keeps its values (session ID, trace).
func (d *Dispatcher) Dispatch(ctx context.Context, req ContactRequest, lang knowledge.Language) {
	req = req.Trimmed()
	lead := Lead{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Contact:   req.Contact,
		Message:   req.Message,
		Language:  string(lang),
		CreatedAt: d.now().UTC(),
	}
	if sessionID, ok := SessionIDFromContext(ctx); ok {
		lead.SessionID = sessionID
	}
	n := FormatNotification(d.kb, lead)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		deliverCtx, span := d.tracer.Start(deliverCtx, "leads.deliver", trace.WithAttributes(
			attribute.String("lead.id", lead.ID),
			attribute.String("lead.language", lead.Language),
		))
		defer span.End()

		if err := d.channel.Deliver(deliverCtx, n); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "delivery failed")
			d.metrics.ObserveLead("failed")
			d.logger.Error("lead delivery failed", "lead_id", lead.ID, "error", err)
			return
		}
		d.metrics.ObserveLead("sent")
		d.logger.Info("lead delivered", "lead_id", lead.ID, "language", lead.Language)
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
