package main

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// throttle enforces a fixed pause between article requests, counted from
// the end of the previous article. The first request goes out immediately.
type throttle struct {
	limit   rate.Limit
	limiter *rate.Limiter
}

func newThrottle(delay time.Duration) *throttle {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &throttle{limit: limit, limiter: rate.NewLimiter(limit, 1)}
}

// wait blocks until the next request may start or ctx is done.
func (t *throttle) wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// done marks the end of an article. The next wait blocks for a full
// interval from now however long the article took.
func (t *throttle) done() {
	t.limiter = rate.NewLimiter(t.limit, 1)
	t.limiter.Allow()
}
