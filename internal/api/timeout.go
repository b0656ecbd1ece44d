package api

import (
	"context"
	"time"
)

// WithTimeout derives a context bounded by d. A non-positive d only adds a
// cancel func, so callers can defer cancel unconditionally.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
