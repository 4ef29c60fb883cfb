package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrBudgetInvariant signals inconsistent budget bookkeeping.
// It is raised as a panic value, never returned.
var ErrBudgetInvariant = errors.New("element budget invariant violated")

// Config holds resource limits.
type Config struct {
	// BudgetElements is the number of elements all rows may hold in memory
	// together. If 0, no limit is enforced (only tracking).
	BudgetElements int64

	// IOLimitBytesPerSec throttles spill IO. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller owns the shared element budget.
type Controller struct {
	cfg Config

	budget *semaphore.Weighted // nil if unlimited
	used   atomic.Int64
	peak   atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.BudgetElements > 0 {
		c.budget = semaphore.NewWeighted(cfg.BudgetElements)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// TryAcquire reserves exactly n elements or nothing.
func (c *Controller) TryAcquire(n int64) bool {
	if c == nil || n <= 0 {
		return true
	}

	if c.budget != nil && !c.budget.TryAcquire(n) {
		return false
	}

	c.track(n)
	return true
}

// AcquireUpTo reserves as many elements as are available, at most want,
// and returns the amount granted.
func (c *Controller) AcquireUpTo(want int64) int64 {
	if want <= 0 {
		return 0
	}
	if c == nil {
		return want
	}
	if c.budget == nil {
		c.track(want)
		return want
	}

	for {
		avail := c.Available()
		if avail <= 0 {
			return 0
		}
		n := min(want, avail)
		if c.budget.TryAcquire(n) {
			c.track(n)
			return n
		}
		// A concurrent holder took part of the budget; re-read it.
	}
}

// Release returns n elements to the budget.
func (c *Controller) Release(n int64) {
	if c == nil || n <= 0 {
		return
	}

	if c.used.Add(-n) < 0 {
		panic(fmt.Errorf("%w: released %d more than held", ErrBudgetInvariant, n))
	}

	if c.budget != nil {
		c.budget.Release(n)
	}
}

func (c *Controller) track(n int64) {
	used := c.used.Add(n)
	for {
		peak := c.peak.Load()
		if used <= peak || c.peak.CompareAndSwap(peak, used) {
			return
		}
	}
}

// Used returns the number of elements currently reserved.
func (c *Controller) Used() int64 {
	if c == nil {
		return 0
	}
	return c.used.Load()
}

// Peak returns the highest number of elements reserved at once.
func (c *Controller) Peak() int64 {
	if c == nil {
		return 0
	}
	return c.peak.Load()
}

// Limit returns the configured budget (0 if unlimited).
func (c *Controller) Limit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.BudgetElements
}

// Available returns the unreserved part of the budget.
// An unlimited controller reports the largest int64.
func (c *Controller) Available() int64 {
	if c == nil || c.budget == nil {
		return int64(^uint64(0) >> 1)
	}
	return c.cfg.BudgetElements - c.used.Load()
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	// WaitN rejects requests larger than the burst; split them.
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
