package oracle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

type limited struct {
	next    Oracle
	limiter *rate.Limiter
}

// WithRateLimit bounds o to rps calls per second with the given burst. A
// non-positive rps returns o unchanged.
func WithRateLimit(o Oracle, rps float64, burst int) Oracle {
	if rps <= 0 {
		return o
	}
	if burst < 1 {
		burst = 1
	}
	return &limited{next: o, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *limited) Judge(ctx context.Context, content, prompt string) (Verdict, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("oracle rate limit: %w", err)
	}
	return l.next.Judge(ctx, content, prompt)
}

// Counting records how often the wrapped oracle was called and what it said.
type Counting struct {
	next  Oracle
	calls atomic.Int64

	mu       sync.Mutex
	verdicts map[Verdict]int
	errors   int
}

// NewCounting wraps o.
func NewCounting(o Oracle) *Counting {
	return &Counting{next: o, verdicts: make(map[Verdict]int)}
}

// Judge implements Oracle.
func (c *Counting) Judge(ctx context.Context, content, prompt string) (Verdict, error) {
	c.calls.Add(1)
	v, err := c.next.Judge(ctx, content, prompt)

	c.mu.Lock()
	if err != nil {
		c.errors++
	} else {
		c.verdicts[v]++
	}
	c.mu.Unlock()
	return v, err
}

// Calls returns the number of Judge invocations.
func (c *Counting) Calls() int64 { return c.calls.Load() }

// Tally returns a copy of the per-verdict counts and the error count.
func (c *Counting) Tally() (map[Verdict]int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Verdict]int, len(c.verdicts))
	for k, v := range c.verdicts {
		out[k] = v
	}
	return out, c.errors
}
