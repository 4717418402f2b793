package responder

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/sitegen-supportchat/internal/observability/metrics"
)

// Instrumented records call outcomes and latency for a named provider and
// bounds every call with a timeout.
type Instrumented struct {
	next     Responder
	provider string
	timeout  time.Duration
	metrics  *metrics.ChatMetrics
}

// Instrument wraps next. A zero timeout leaves the deadline to the caller.
func Instrument(next Responder, provider string, timeout time.Duration, m *metrics.ChatMetrics) *Instrumented {
	return &Instrumented{next: next, provider: provider, timeout: timeout, metrics: m}
}

func (i *Instrumented) Complete(ctx context.Context, req Request) (string, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	start := time.Now()
	reply, err := i.next.Complete(ctx, req)
	i.metrics.ObserveResponder(i.provider, outcome(err), time.Since(start))
	return reply, err
}

func outcome(err error) string {
	var status *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNoUsableReply):
		return "empty"
	case errors.Is(err, ErrDisabled):
		return "disabled"
	case errors.As(err, &status):
		return "status"
	default:
		return "error"
	}
}
