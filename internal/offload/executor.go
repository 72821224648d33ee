// Package offload runs parse and validate work on a bounded worker pool
// so CPU-heavy tasks never stall the translation goroutine. Payload goes
// in, a result comes out; no other state crosses the pool boundary. Every
// degradation to a local in-goroutine run emits a telemetry event naming
// the reason.
package offload

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"nl2code/internal/config"
	"nl2code/internal/logging"
	"nl2code/internal/telemetry"
)

// TaskKind selects the registered handler for a task.
type TaskKind string

const (
	KindParse    TaskKind = "parse"
	KindValidate TaskKind = "validate"
)

// Task is one unit of offloadable work.
type Task struct {
	Kind      TaskKind
	Payload   string
	RequestID string
}

// Handler executes one task payload. Handlers must be safe for concurrent
// use; they run on pool workers and, after a fallback, on the caller's
// goroutine.
type Handler func(ctx context.Context, payload string) (any, error)

// Stats is a point-in-time snapshot of executor counters.
type Stats struct {
	Submitted  int
	Completed  int
	Timeouts   int
	BrokenPool int
	Oversized  int
	LocalRuns  int
}

type outcome struct {
	value any
	err   error
}

type job struct {
	ctx    context.Context
	task   Task
	result chan outcome
}

// Executor is the bounded pool. Create with New, stop with Close.
type Executor struct {
	timeout time.Duration
	sizeCap int
	sink    telemetry.Sink

	handlersMu sync.RWMutex
	handlers   map[TaskKind]Handler

	tasks  chan job
	quit   chan struct{}
	wg     sync.WaitGroup
	broken atomic.Bool

	statsMu sync.Mutex
	stats   Stats
}

// New starts the pool. A zero MaxWorkers sizes it to the available CPUs.
// sink may be nil, in which case fallback events are dropped.
func New(cfg config.OffloadConfig, sink telemetry.Sink) *Executor {
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = workers
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}

	e := &Executor{
		timeout:  cfg.TaskTimeoutDuration(),
		sizeCap:  cfg.JobSizeCap,
		sink:     sink,
		handlers: make(map[TaskKind]Handler),
		tasks:    make(chan job, queue),
		quit:     make(chan struct{}),
	}
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	logging.Offload("pool started with %d workers, timeout %s", workers, e.timeout)
	return e
}

// Register installs the handler for a task kind, replacing any previous
// one.
func (e *Executor) Register(kind TaskKind, h Handler) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers[kind] = h
}

func (e *Executor) handler(kind TaskKind) (Handler, error) {
	e.handlersMu.RLock()
	defer e.handlersMu.RUnlock()
	h, ok := e.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("offload: no handler registered for kind %q", kind)
	}
	return h, nil
}

// Execute runs one task, preferring the pool. Oversized payloads run
// locally without being submitted. A timed-out submission falls back to
// exactly one local run; the caller is never blocked longer than the
// task timeout plus that one retry.
func (e *Executor) Execute(ctx context.Context, task Task) (any, error) {
	h, err := e.handler(task.Kind)
	if err != nil {
		return nil, err
	}

	if e.sizeCap > 0 && len(task.Payload) > e.sizeCap {
		e.fallback(task, telemetry.ReasonJobTooLarge)
		return e.runLocal(ctx, h, task)
	}
	if e.broken.Load() {
		e.fallback(task, telemetry.ReasonBrokenPool)
		return e.runLocal(ctx, h, task)
	}

	e.statsMu.Lock()
	e.stats.Submitted++
	e.statsMu.Unlock()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	j := job{ctx: ctx, task: task, result: make(chan outcome, 1)}
	select {
	case e.tasks <- j:
	case <-e.quit:
		e.fallback(task, telemetry.ReasonBrokenPool)
		return e.runLocal(ctx, h, task)
	case <-timer.C:
		e.fallback(task, telemetry.ReasonTimeout)
		return e.runLocal(ctx, h, task)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case out := <-j.result:
		e.statsMu.Lock()
		e.stats.Completed++
		e.statsMu.Unlock()
		return out.value, out.err
	case <-timer.C:
		e.fallback(task, telemetry.ReasonTimeout)
		return e.runLocal(ctx, h, task)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runLocal executes the handler on the caller's goroutine.
func (e *Executor) runLocal(ctx context.Context, h Handler, task Task) (out any, err error) {
	e.statsMu.Lock()
	e.stats.LocalRuns++
	e.statsMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("offload: local %s run panicked: %v", task.Kind, r)
		}
	}()
	return h(ctx, task.Payload)
}

// fallback records one degradation and emits its event.
func (e *Executor) fallback(task Task, reason telemetry.FallbackReason) {
	e.statsMu.Lock()
	switch reason {
	case telemetry.ReasonTimeout:
		e.stats.Timeouts++
	case telemetry.ReasonBrokenPool:
		e.stats.BrokenPool++
	case telemetry.ReasonJobTooLarge:
		e.stats.Oversized++
	}
	e.statsMu.Unlock()

	logging.Offload("task %s fell back to local run: %s", task.Kind, reason)
	e.sink.Emit(telemetry.OffloadFallback(task.RequestID, string(task.Kind), reason))
}

// Stats returns a snapshot of the counters.
func (e *Executor) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// Close stops the workers. Tasks submitted after Close run locally with a
// broken_pool fallback; a task already picked up by a worker finishes.
func (e *Executor) Close() {
	if e.broken.Swap(true) {
		return
	}
	close(e.quit)
	e.wg.Wait()
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for {
		select {
		case j := <-e.tasks:
			j.result <- e.run(j)
		case <-e.quit:
			return
		}
	}
}

func (e *Executor) run(j job) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: fmt.Errorf("offload: %s task panicked: %v", j.task.Kind, r)}
		}
	}()
	h, err := e.handler(j.task.Kind)
	if err != nil {
		return outcome{err: err}
	}
	v, err := h(j.ctx, j.task.Payload)
	return outcome{value: v, err: err}
}
