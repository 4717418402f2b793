package responder

import (
	"context"
	"log/slog"
	"time"
)

// Fallback tries the primary responder and, when it fails, the secondary.
type Fallback struct {
	primary   Responder
	secondary Responder
	logger    *slog.Logger
	timeout   time.Duration
}

// FallbackOption configures a Fallback.
type FallbackOption func(*Fallback)

// WithOverallTimeout bounds the whole chain, so the secondary only gets what
// the primary left of d.
func WithOverallTimeout(d time.Duration) FallbackOption {
	return func(f *Fallback) {
		f.timeout = d
	}
}

// NewFallback chains primary and secondary. A nil secondary makes Fallback a
// pass-through.
func NewFallback(primary, secondary Responder, logger *slog.Logger, opts ...FallbackOption) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fallback{primary: primary, secondary: secondary, logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fallback) Complete(ctx context.Context, req Request) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	reply, err := f.primary.Complete(ctx, req)
	if err == nil {
		return reply, nil
	}
	if f.secondary == nil || ctx.Err() != nil {
		return "", err
	}

	f.logger.Warn("primary responder failed, trying secondary", "error", err)
	reply, secondaryErr := f.secondary.Complete(ctx, req)
	if secondaryErr != nil {
		f.logger.Error("secondary responder also failed",
			"primary_error", err.Error(),
			"secondary_error", secondaryErr.Error(),
		)
		return "", secondaryErr
	}
	return reply, nil
}
