package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("page pool is closed")

// PooledPage is a reusable tab.
type PooledPage interface {
	Page
	Navigate(ctx context.Context, url string) error
	Close() error
}

// Factory creates a fresh tab.
type Factory func(ctx context.Context) (PooledPage, error)

// PagePool bounds the number of concurrently open tabs.
type PagePool struct {
	factory   Factory
	pool      chan PooledPage
	active    map[PooledPage]bool
	maxSize   int
	logger    *zap.Logger
	mu        sync.Mutex
	closeOnce sync.Once
	closed    bool
}

// NewPagePool creates a pool of at most maxSize tabs.
func NewPagePool(factory Factory, maxSize int, logger *zap.Logger) *PagePool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSize <= 0 {
		maxSize = DefaultBrowserConfig().PoolSize
	}
	return &PagePool{
		factory: factory,
		pool:    make(chan PooledPage, maxSize),
		active:  make(map[PooledPage]bool),
		maxSize: maxSize,
		logger:  logger.With(zap.String("component", "page_pool")),
	}
}

// Acquire returns an idle tab, creates one, or waits until one is released.
func (p *PagePool) Acquire(ctx context.Context) (PooledPage, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	select {
	case page := <-p.pool:
		p.active[page] = true
		p.mu.Unlock()
		return page, nil
	default:
	}

	if len(p.active) >= p.maxSize {
		p.mu.Unlock()
		p.logger.Debug("pool exhausted, waiting for a tab")
		select {
		case page, ok := <-p.pool:
			if !ok {
				return nil, ErrPoolClosed
			}
			p.mu.Lock()
			p.active[page] = true
			p.mu.Unlock()
			return page, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	// Reserve the slot before creating outside the lock.
	var reserved PooledPage = &placeholder{}
	p.active[reserved] = true
	p.mu.Unlock()

	page, err := p.factory(ctx)

	p.mu.Lock()
	delete(p.active, reserved)
	if err != nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("create tab: %w", err)
	}
	if p.closed {
		p.mu.Unlock()
		_ = page.Close()
		return nil, ErrPoolClosed
	}
	p.active[page] = true
	p.mu.Unlock()
	return page, nil
}

// Release returns page to the pool.
func (p *PagePool) Release(page PooledPage) {
	p.mu.Lock()
	delete(p.active, page)

	if p.closed {
		p.mu.Unlock()
		_ = page.Close()
		return
	}

	// Sending under the lock keeps Close from closing the channel mid-send.
	select {
	case p.pool <- page:
		p.mu.Unlock()
	default:
		p.mu.Unlock()
		_ = page.Close()
		p.logger.Debug("pool full, closing excess tab")
	}
}

// With acquires a tab, runs fn, and releases it.
func (p *PagePool) With(ctx context.Context, fn func(PooledPage) error) error {
	page, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(page)
	return fn(page)
}

// Close closes every tab. Tabs released later are closed on release.
func (p *PagePool) Close() error {
	p.mu.Lock()
	p.closed = true
	var errs []error
	for page := range p.active {
		if _, ok := page.(*placeholder); ok {
			continue
		}
		errs = append(errs, page.Close())
	}
	p.active = make(map[PooledPage]bool)
	p.closeOnce.Do(func() { close(p.pool) })
	p.mu.Unlock()

	for page := range p.pool {
		errs = append(errs, page.Close())
	}
	p.logger.Info("page pool closed")
	return errors.Join(errs...)
}

// Stats reports idle and active tab counts.
func (p *PagePool) Stats() (idle, active, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idle = len(p.pool)
	active = len(p.active)
	total = idle + active
	return
}

// placeholder holds a pool slot while a tab is being created.
type placeholder struct{ PooledPage }
