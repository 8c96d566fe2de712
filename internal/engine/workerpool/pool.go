// Package workerpool provides a bounded pool of named workers that run task closures
// and record per-task outcome and timing.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	defaultQueueSize    = 1024
	defaultPollInterval = 10 * time.Millisecond
)

// Func is the unit of work executed by a worker.
type Func[R any] func(ctx context.Context) (R, error)

// Record is the outcome of one submitted task.
type Record[R any] struct {
	TaskID   string
	WorkerID string
	Success  bool
	Result   R
	Err      error
	Start    time.Time
	End      time.Time
}

// Duration is the time the task spent running.
func (r Record[R]) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Future is a handle on a submitted task.
type Future[R any] struct {
	taskID string
	done   chan struct{}
	record Record[R]
}

// TaskID returns the ID the task was submitted with.
func (f *Future[R]) TaskID() string { return f.taskID }

// Done is closed once the task has a record.
func (f *Future[R]) Done() <-chan struct{} { return f.done }

// Wait blocks until the task finishes or ctx is done.
func (f *Future[R]) Wait(ctx context.Context) (Record[R], error) {
	select {
	case <-f.done:
		return f.record, nil
	case <-ctx.Done():
		return Record[R]{}, ctx.Err()
	}
}

// Record blocks until the task finishes and returns its record.
func (f *Future[R]) Record() Record[R] {
	<-f.done
	return f.record
}

type job[R any] struct {
	fn     Func[R]
	future *Future[R]
	gen    *generation[R]
}

// generation is the state of one Start to Shutdown cycle. Jobs point at the
// generation they were submitted to, so tasks that outlive a restart never touch
// the counters of the next one.
type generation[R any] struct {
	queue  chan job[R]
	ctx    context.Context //nolint:containedctx // workers outlive Start
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sends  sync.WaitGroup

	resultsMu sync.Mutex
	results   []Record[R]

	submitted atomic.Int64
	completed atomic.Int64
	pending   atomic.Int64
}

func (g *generation[R]) snapshot() []Record[R] {
	g.resultsMu.Lock()
	defer g.resultsMu.Unlock()

	out := make([]Record[R], len(g.results))
	copy(out, g.results)
	return out
}

// Pool runs submitted tasks on a fixed set of named workers.
// A Pool can be started again after Shutdown; Start resets its counters and records.
// Tasks still running from before the restart only resolve their own futures.
type Pool[R any] struct {
	workers      int
	queueSize    int
	pollInterval time.Duration
	metrics      *Metrics

	lifecycleMu sync.Mutex
	running     bool
	gen         atomic.Pointer[generation[R]]
}

// New creates a pool with the given number of workers.
func New[R any](workers int, opts ...Option) (*Pool[R], error) {
	if workers < 1 {
		return nil, zerr.With(domain.ErrPoolConstructionFailed, "workers", workers)
	}

	o := options{
		queueSize:    defaultQueueSize,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pool[R]{
		workers:      workers,
		queueSize:    o.queueSize,
		pollInterval: o.pollInterval,
		metrics:      o.metrics,
	}
	p.gen.Store(&generation[R]{})
	return p, nil
}

// Workers returns the number of workers.
func (p *Pool[R]) Workers() int { return p.workers }

// Start launches the workers and resets counters and records.
func (p *Pool[R]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.running {
		return domain.ErrPoolAlreadyRunning
	}

	g := &generation[R]{queue: make(chan job[R], p.queueSize)}
	g.ctx, g.cancel = context.WithCancel(ctx)
	p.gen.Store(g)
	p.metrics.setPending(0)

	for i := range p.workers {
		name := fmt.Sprintf("worker-%d", i)
		g.wg.Go(func() {
			p.worker(g, name)
		})
	}

	p.running = true
	return nil
}

// Submit queues fn under taskID. It blocks while the queue is full and fails with
// ErrPoolShutdown if the pool is stopped or its Start context ends in the meantime.
func (p *Pool[R]) Submit(fn Func[R], taskID string) (*Future[R], error) {
	p.lifecycleMu.Lock()
	if !p.running {
		p.lifecycleMu.Unlock()
		return nil, zerr.With(domain.ErrPoolNotRunning, "task_id", taskID)
	}
	g := p.gen.Load()
	g.sends.Add(1)
	p.lifecycleMu.Unlock()
	defer g.sends.Done()

	f := &Future[R]{taskID: taskID, done: make(chan struct{})}
	g.submitted.Add(1)
	p.metrics.setPending(g.pending.Add(1))

	select {
	case g.queue <- job[R]{fn: fn, future: f, gen: g}:
		return f, nil
	case <-g.ctx.Done():
		g.submitted.Add(-1)
		p.metrics.setPending(g.pending.Add(-1))
		return nil, zerr.With(domain.ErrPoolShutdown, "task_id", taskID)
	}
}

// Shutdown stops accepting tasks.
//
// With wait set it blocks until every queued task has run, or until timeout elapses
// when timeout is positive. Without wait, or once the timeout fires, queued tasks
// that have not started are resolved with ErrPoolShutdown and running tasks are left
// to finish on their own.
func (p *Pool[R]) Shutdown(wait bool, timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.running {
		return nil
	}
	p.running = false
	g := p.gen.Load()

	if !wait {
		g.cancel()
		g.sends.Wait()
		close(g.queue)
		p.drain(g)
		return nil
	}

	closed := make(chan struct{})
	done := make(chan struct{})
	go func() {
		g.sends.Wait()
		close(g.queue)
		close(closed)
		g.wg.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		p.stop(g)
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		p.stop(g)
		return nil
	case <-timer.C:
		g.cancel()
		<-closed
		p.drain(g)
		return zerr.With(domain.ErrPoolShutdownTimeout, "timeout", timeout.String())
	}
}

// stop cancels the worker context once every worker has exited and resolves jobs
// left behind by workers that stopped on cancellation of the Start context.
func (p *Pool[R]) stop(g *generation[R]) {
	g.cancel()
	p.drain(g)
}

// drain abandons every job left in the closed queue of g.
func (p *Pool[R]) drain(g *generation[R]) {
	for j := range g.queue {
		p.abandon(j)
	}
}

// WaitForCompletion polls until no submitted task is pending.
// It returns false if timeout elapses first; a non-positive timeout waits indefinitely.
func (p *Pool[R]) WaitForCompletion(timeout time.Duration) bool {
	g := p.gen.Load()
	if g.pending.Load() == 0 {
		return true
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return g.pending.Load() == 0
		case <-ticker.C:
			if g.pending.Load() == 0 {
				return true
			}
		}
	}
}

// Pending returns the number of submitted tasks without a record.
func (p *Pool[R]) Pending() int {
	return int(p.gen.Load().pending.Load())
}

// Results returns a snapshot of the records collected since Start, in completion order.
func (p *Pool[R]) Results() []Record[R] {
	return p.gen.Load().snapshot()
}

func (p *Pool[R]) worker(g *generation[R], name string) {
	for {
		select {
		case <-g.ctx.Done():
			return
		case j, ok := <-g.queue:
			if !ok {
				return
			}
			if g.ctx.Err() != nil {
				p.abandon(j)
				return
			}
			p.run(g.ctx, name, j)
		}
	}
}

func (p *Pool[R]) run(ctx context.Context, worker string, j job[R]) {
	start := time.Now()
	result, err := invoke(ctx, j.fn)
	end := time.Now()

	status := statusSuccess
	if err != nil {
		status = statusFailure
	}

	p.finish(j, status, Record[R]{
		TaskID:   j.future.taskID,
		WorkerID: worker,
		Success:  err == nil,
		Result:   result,
		Err:      err,
		Start:    start,
		End:      end,
	})
}

// invoke runs fn, converting a panic into ErrTaskPanicked.
func invoke[R any](ctx context.Context, fn Func[R]) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			result = zero
			err = zerr.With(domain.ErrTaskPanicked, "panic", fmt.Sprint(r))
		}
	}()
	return fn(ctx)
}

func (p *Pool[R]) abandon(j job[R]) {
	now := time.Now()
	p.finish(j, statusAbandoned, Record[R]{
		TaskID: j.future.taskID,
		Err:    zerr.With(domain.ErrPoolShutdown, "task_id", j.future.taskID),
		Start:  now,
		End:    now,
	})
}

func (p *Pool[R]) finish(j job[R], status string, rec Record[R]) {
	g := j.gen
	g.resultsMu.Lock()
	g.results = append(g.results, rec)
	g.resultsMu.Unlock()

	g.completed.Add(1)
	pending := g.pending.Add(-1)
	p.metrics.observe(status, rec.Duration())
	if p.gen.Load() == g {
		p.metrics.setPending(pending)
	}

	j.future.record = rec
	close(j.future.done)
}
