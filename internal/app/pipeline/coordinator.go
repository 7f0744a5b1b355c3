package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Coordinator runs at most one computation per key at a time. Callers that
// arrive while one is running wait for and share its result.
type Coordinator struct {
	group    singleflight.Group
	budget   time.Duration
	inFlight atomic.Int64
}

// NewCoordinator creates a coordinator whose shared computations are bounded
// by budget regardless of the callers' own deadlines.
func NewCoordinator(budget time.Duration) *Coordinator {
	return &Coordinator{budget: budget}
}

// RunExclusive executes factory for key unless a computation for key is
// already running. The factory context is detached from ctx, so a caller
// giving up returns ctx.Err() while the others still get the result.
// The key is released once the factory returns, success or not.
func (c *Coordinator) RunExclusive(ctx context.Context, key string, factory func(ctx context.Context) (interface{}, error)) (interface{}, bool, error) {
	detached := context.WithoutCancel(ctx)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		c.inFlight.Add(1)
		defer c.inFlight.Add(-1)

		runCtx := detached
		if c.budget > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(detached, c.budget)
			defer cancel()
		}
		return factory(runCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// InFlight is the number of computations currently running.
func (c *Coordinator) InFlight() int64 {
	return c.inFlight.Load()
}
