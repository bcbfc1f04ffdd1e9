package search

import (
	"sync/atomic"

	"github.com/BaSui01/truffle/types"
)

// ErrBudgetExceeded matches the error returned when a search runs out of
// oracle calls.
var ErrBudgetExceeded = types.Sentinel(types.ErrBudgetExceeded)

// budget is a per-search oracle call counter.
type budget struct {
	max  int64
	used atomic.Int64
}

// take reserves one call. It fails once max calls have been reserved.
func (b *budget) take() error {
	for {
		cur := b.used.Load()
		if cur >= b.max {
			return types.Errorf(types.ErrBudgetExceeded, "oracle call budget of %d exhausted", b.max)
		}
		if b.used.CompareAndSwap(cur, cur+1) {
			return nil
		}
	}
}

func (b *budget) calls() int64 { return b.used.Load() }
