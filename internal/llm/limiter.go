package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter meters collaborator calls. A nil Limiter never waits.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter allows requestsPerMinute calls per minute with a burst of
// burst. A non-positive rate returns nil (unlimited).
func NewLimiter(requestsPerMinute, burst int) *Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{lim: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), burst)}
}

// Wait blocks until a call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.lim.Wait(ctx)
}
