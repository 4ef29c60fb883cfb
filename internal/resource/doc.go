// Package resource implements the shared budget used while a matrix is built.
//
// A Controller governs two resources:
//
//   - Elements: a fixed number of buffered correlation values shared by every
//     row of the row store (non-blocking, fail-fast)
//   - IO: an optional token bucket that throttles spill writes and loads
//
// # Element Budget
//
// The budget is counted in elements, not bytes. Rows grow by reserving
// elements and give them back when they are destroyed:
//
//	rc := resource.NewController(resource.Config{
//	    BudgetElements: 64 << 20,
//	})
//
//	granted := rc.AcquireUpTo(want) // 0 when the budget is exhausted
//	defer rc.Release(granted)
//
// Releasing more than was acquired is a bookkeeping bug and panics with
// ErrBudgetInvariant.
//
// # IO Rate Limiting
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 64 * 1024 * 1024,
//	})
//
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller: it behaves as an unlimited budget
// without tracking.
package resource
