package services

import (
	"context"
	"time"

	"github.com/dskvich/pmc-assistant/pkg/metrics"
)

// withDeadline bounds a single external call. A zero timeout keeps the parent deadline.
func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func observe(operation string, start time.Time, err error) {
	metrics.UpstreamDuration.WithLabelValues(operation, metrics.Outcome(err)).Observe(time.Since(start).Seconds())
}
