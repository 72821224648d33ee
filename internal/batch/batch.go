// Package batch translates many inputs concurrently over a pool of
// reusable translator instances. Instances are acquired with a timeout
// and released on every path, so one stuck request cannot strand the
// pool.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"nl2code/internal/config"
	"nl2code/internal/logging"
	"nl2code/internal/model"
	"nl2code/internal/telemetry"
	"nl2code/internal/translator"
)

// Options tunes the processor pool.
type Options struct {
	// Size is the number of pooled translator instances. Zero means 2.
	Size int

	// AcquireTimeout bounds how long one job waits for a free instance.
	// Zero means 30s.
	AcquireTimeout time.Duration
}

// Request is one batch item.
type Request struct {
	ID    string
	Input string
}

// Response pairs a request with its translation outcome.
type Response struct {
	ID     string
	Result *translator.Result
}

// Processor runs batches against pooled translator services.
type Processor struct {
	pool           chan *translator.Service
	size           int
	acquireTimeout time.Duration
}

// New builds the pool. All instances share the capability and sink.
func New(cfg *config.Config, cap model.Capability, sink telemetry.Sink, opts Options) *Processor {
	if opts.Size <= 0 {
		opts.Size = 2
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = 30 * time.Second
	}

	p := &Processor{
		pool:           make(chan *translator.Service, opts.Size),
		size:           opts.Size,
		acquireTimeout: opts.AcquireTimeout,
	}
	for i := 0; i < opts.Size; i++ {
		p.pool <- translator.NewService(cfg, cap, sink)
	}
	return p
}

// Run translates all requests, at most one per pooled instance at a
// time. The returned slice is ordered like the input. The first acquire
// failure or context cancellation aborts the remaining jobs.
func (p *Processor) Run(ctx context.Context, reqs []Request) ([]Response, error) {
	out := make([]Response, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			svc, err := p.acquire(gctx)
			if err != nil {
				return fmt.Errorf("job %s: %w", req.ID, err)
			}
			defer p.release(svc)

			out[i] = Response{ID: req.ID, Result: svc.Translate(gctx, req.Input)}
			return nil
		})
	}

	err := g.Wait()
	logging.Translator("batch of %d finished (err=%v)", len(reqs), err)
	return out, err
}

func (p *Processor) acquire(ctx context.Context) (*translator.Service, error) {
	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()
	select {
	case svc := <-p.pool:
		return svc, nil
	case <-timer.C:
		return nil, fmt.Errorf("no translator instance free within %s", p.acquireTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Processor) release(svc *translator.Service) {
	p.pool <- svc
}

// Close tears down every pooled instance. Run must not be in flight.
func (p *Processor) Close() {
	for i := 0; i < p.size; i++ {
		svc := <-p.pool
		svc.Close()
	}
	close(p.pool)
}
