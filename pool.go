package clubsite

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one browser is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances (~200MB each) on a small host.
	MaxPoolSize = 4

	// cpuDivisor leaves headroom for Chrome child processes and the server.
	cpuDivisor = 2
)

// ExporterPool shares a bounded number of browser-backed exporters between
// requests. Exporters are created lazily on first use.
type ExporterPool struct {
	size      int
	newExport func() Exporter
	exporters []Exporter
	sem       chan Exporter
	mu        sync.Mutex
	created   int
	closed    bool
}

// NewExporterPool creates a pool of up to n headless Chrome exporters, each
// bounded by timeout per page load.
func NewExporterPool(n int, timeout time.Duration) *ExporterPool {
	return newExporterPool(n, func() Exporter { return newRodExporter(timeout) })
}

func newExporterPool(n int, factory func() Exporter) *ExporterPool {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &ExporterPool{
		size:      n,
		newExport: factory,
		exporters: make([]Exporter, 0, n),
		sem:       make(chan Exporter, n),
	}
}

// Acquire gets an idle exporter, creating one while below capacity, and
// otherwise waits until one is released or ctx is done.
func (p *ExporterPool) Acquire(ctx context.Context) (Exporter, error) {
	select {
	case e, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return e, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		e := p.newExport()

		p.mu.Lock()
		p.exporters = append(p.exporters, e)
		p.mu.Unlock()
		return e, nil
	}
	p.mu.Unlock()

	select {
	case e, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns an exporter to the pool. Releasing after Close is a no-op.
func (p *ExporterPool) Release(e Exporter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sem <- e
}

// Export acquires an exporter, prints htmlDoc and releases it.
func (p *ExporterPool) Export(ctx context.Context, htmlDoc string) ([]byte, error) {
	e, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(e)
	return e.Export(ctx, htmlDoc)
}

// Close releases all browsers. Returns the joined close errors.
func (p *ExporterPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	exporters := p.exporters
	p.mu.Unlock()

	var errs []error
	for _, e := range exporters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *ExporterPool) Size() int {
	return p.size
}

// ResolvePoolSize picks the pool size: explicit workers win, otherwise
// GOMAXPROCS/2 clamped to [MinPoolSize, MaxPoolSize].
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}
	n := runtime.GOMAXPROCS(0) / cpuDivisor
	return max(MinPoolSize, min(n, MaxPoolSize))
}
