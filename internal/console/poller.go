package console

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// PollOption configures Poll.
type PollOption func(*pollOptions)

type pollOptions struct {
	clock clockwork.Clock
}

// WithClock sets the clock driving the poll interval.
func WithClock(clock clockwork.Clock) PollOption {
	return func(o *pollOptions) {
		o.clock = clock
	}
}

// Poll runs fn immediately and then every interval until ctx is done.
// Errors from fn are logged and polling continues. It always returns ctx.Err().
func Poll(ctx context.Context, interval time.Duration, fn func(context.Context) error, opts ...PollOption) error {
	if interval <= 0 {
		return errors.New("poll interval must be positive")
	}

	o := pollOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}

	ticker := o.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			slog.WarnContext(ctx, "poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
		}
	}
}
