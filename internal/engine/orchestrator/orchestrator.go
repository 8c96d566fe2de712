// Package orchestrator processes batches of units sequentially or in parallel,
// short-circuiting units whose results are already cached.
package orchestrator

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/core/ports"
	"go.trai.ch/stratum/internal/engine/artifactcache"
	"go.trai.ch/stratum/internal/engine/workerpool"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// maxDerivedWorkers caps the worker count derived from the CPU count.
const maxDerivedWorkers = 8

// ProcessFunc processes one task. A returned error marks the unit as failed.
type ProcessFunc func(ctx context.Context, task domain.Task) (domain.Payload, error)

// TaskDataFunc builds the payload handed to ProcessFunc for the unit at index.
type TaskDataFunc func(unit domain.Unit, index int) (domain.Payload, error)

// Stats are running counters across every batch processed by an Orchestrator.
type Stats struct {
	Batches    uint64
	Sequential uint64
	Parallel   uint64
	Fallbacks  uint64
	Operations uint64
	Cleanups   uint64
}

// Orchestrator decides how each batch is executed and reassembles ordered results.
type Orchestrator struct {
	cfg             domain.ParallelConfig
	cache           *artifactcache.Cache[domain.Payload]
	cleanupInterval int
	probe           ports.MemoryProbe
	logger          ports.Logger
	tracer          ports.Tracer
	metrics         *Metrics

	newPool   PoolFactory
	cpuCount  func() int
	gc        func()
	newTaskID func() string

	mu    sync.Mutex
	stats Stats
}

// New creates an Orchestrator for the given parallel configuration.
func New(cfg domain.ParallelConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg}
	defaults(o)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stats returns a snapshot of the running counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// planned is a task together with a failure detected while building it.
type planned struct {
	task domain.Task
	err  error
}

// ProcessBatch processes units and returns one result per unit, ordered by unit index.
// A failing unit never aborts the batch; it is reported as an unsuccessful result.
func (o *Orchestrator) ProcessBatch(
	ctx context.Context,
	units []domain.Unit,
	process ProcessFunc,
	taskData TaskDataFunc,
) ([]domain.UnitResult, domain.BatchReport) {
	start := time.Now()
	report := domain.BatchReport{Units: len(units)}
	if len(units) == 0 {
		return nil, report
	}

	strategy, reason := o.selectStrategy(units)
	report.Strategy = strategy

	ctx, span := o.tracer.Start(ctx, "batch",
		ports.WithAttribute("stratum.units", len(units)),
		ports.WithAttribute("stratum.strategy", string(strategy)),
	)
	defer span.End()

	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.UnitName()
	}
	o.tracer.EmitPlan(ctx, string(strategy), names)

	tasks := o.buildTasks(units, taskData)

	var results []domain.UnitResult
	switch strategy {
	case domain.StrategyParallel:
		workers := o.workerCount(len(units))
		var err error
		results, err = o.runParallel(ctx, tasks, process, workers)
		if err != nil {
			o.logger.Warn(fmt.Sprintf("parallel processing unavailable, falling back to sequential: %v", err))
			span.RecordError(err)
			report.Strategy = domain.StrategySequential
			report.FellBack = true
			report.Workers = 1
			results = o.runSequential(ctx, tasks, process)
		} else {
			report.Workers = workers
		}
	default:
		o.logger.Info(fmt.Sprintf("processing %d units sequentially: %s", len(units), reason))
		report.Workers = 1
		results = o.runSequential(ctx, tasks, process)
	}

	slices.SortStableFunc(results, func(a, b domain.UnitResult) int {
		return cmp.Compare(a.UnitIndex, b.UnitIndex)
	})

	for _, r := range results {
		switch {
		case !r.Success:
			report.Failed++
		case r.Cached:
			report.Cached++
			report.Succeeded++
		default:
			report.Succeeded++
		}
	}
	report.DurationSeconds = time.Since(start).Seconds()

	span.SetAttribute("stratum.failed", report.Failed)
	span.SetAttribute("stratum.cached", report.Cached)

	o.postProcess(report)
	o.metrics.observeBatch(report)

	return results, report
}

func (o *Orchestrator) buildTasks(units []domain.Unit, taskData TaskDataFunc) []planned {
	tasks := make([]planned, len(units))
	for i, u := range units {
		task := domain.Task{
			UnitIndex: i,
			UnitName:  u.UnitName(),
			TaskID:    o.newTaskID(),
		}

		payload, err := buildPayload(taskData, u, i)
		if err != nil {
			tasks[i] = planned{
				task: task,
				err:  zerr.With(zerr.Wrap(err, domain.ErrTaskDataFailed.Error()), "unit", task.UnitName),
			}
			continue
		}

		task.Payload = payload
		if key, ok := CacheKey(task.UnitName, payload); ok {
			task.CacheKey = key
		}
		tasks[i] = planned{task: task}
	}
	return tasks
}

func buildPayload(taskData TaskDataFunc, unit domain.Unit, index int) (payload domain.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = zerr.With(domain.ErrTaskPanicked, "panic", fmt.Sprint(r))
		}
	}()
	return taskData(unit, index)
}

// runSequential processes tasks in order on the calling goroutine, checking memory
// pressure every MemoryCheckInterval units.
func (o *Orchestrator) runSequential(ctx context.Context, tasks []planned, process ProcessFunc) []domain.UnitResult {
	results := make([]domain.UnitResult, 0, len(tasks))
	for i, p := range tasks {
		if n := o.cfg.MemoryCheckInterval; n > 0 && i > 0 && i%n == 0 {
			o.relieveMemoryPressure()
		}
		results = append(results, o.runTask(ctx, p, process))
	}
	return results
}

// runParallel dispatches tasks to the configured backend. Results are returned in
// completion order. An error means the backend could not be constructed and no task ran.
func (o *Orchestrator) runParallel(
	ctx context.Context,
	tasks []planned,
	process ProcessFunc,
	workers int,
) ([]domain.UnitResult, error) {
	if o.cfg.Backend == domain.BackendGroup {
		return o.runGroup(ctx, tasks, process, workers)
	}
	return o.runPool(ctx, tasks, process, workers)
}

func (o *Orchestrator) runPool(
	ctx context.Context,
	tasks []planned,
	process ProcessFunc,
	workers int,
) ([]domain.UnitResult, error) {
	pool, err := o.newPool(workers)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrPoolConstructionFailed.Error())
	}
	if err := pool.Start(ctx); err != nil {
		return nil, zerr.Wrap(err, domain.ErrPoolConstructionFailed.Error())
	}
	defer func() {
		if err := pool.Shutdown(true, 0); err != nil {
			o.logger.Warn(fmt.Sprintf("worker pool shutdown: %v", err))
			return
		}
		stats := pool.Statistics()
		o.logger.Info(fmt.Sprintf("worker pool: %d of %d tasks succeeded on %d workers, average %s",
			stats.Succeeded, stats.Completed, stats.Workers, stats.AverageDuration))
	}()

	results := make([]domain.UnitResult, 0, len(tasks))
	futures := make([]*workerpool.Future[domain.UnitResult], len(tasks))
	for i, p := range tasks {
		f, err := pool.Submit(func(ctx context.Context) (domain.UnitResult, error) {
			return o.runTask(ctx, p, process), nil
		}, p.task.TaskID)
		if err != nil {
			results = append(results, failed(p.task, err, 0))
			continue
		}
		futures[i] = f
	}

	completed := make(chan int, len(futures))
	waiting := make(map[int]struct{}, len(futures))
	for i, f := range futures {
		if f == nil {
			continue
		}
		waiting[i] = struct{}{}
		go func() {
			<-f.Done()
			completed <- i
		}()
	}

	for len(waiting) > 0 {
		select {
		case i := <-completed:
			delete(waiting, i)
			rec := futures[i].Record()
			if !rec.Success {
				results = append(results, failed(tasks[i].task, rec.Err, rec.Duration().Seconds()))
				continue
			}
			results = append(results, rec.Result)
		case <-ctx.Done():
			for i := range waiting {
				results = append(results, failed(tasks[i].task, ctx.Err(), 0))
			}
			return results, nil
		}
	}

	return results, nil
}

func (o *Orchestrator) runGroup(
	ctx context.Context,
	tasks []planned,
	process ProcessFunc,
	workers int,
) ([]domain.UnitResult, error) {
	if workers < 1 {
		return nil, zerr.With(domain.ErrPoolConstructionFailed, "workers", workers)
	}

	var (
		mu      sync.Mutex
		results = make([]domain.UnitResult, 0, len(tasks))
		g       errgroup.Group
	)
	g.SetLimit(workers)

	for _, p := range tasks {
		g.Go(func() error {
			r := o.runTask(ctx, p, process)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// runTask produces the result of one task: the cached result when one exists for the
// current fingerprint, otherwise the outcome of process.
func (o *Orchestrator) runTask(ctx context.Context, p planned, process ProcessFunc) domain.UnitResult {
	task := p.task
	if p.err != nil {
		return failed(task, p.err, 0)
	}

	if o.cache != nil && task.CacheKey != "" {
		if payload, ok := o.cache.Get(task.CacheKey); ok {
			return domain.UnitResult{
				TaskID:        task.TaskID,
				UnitIndex:     task.UnitIndex,
				UnitName:      task.UnitName,
				Success:       true,
				Cached:        true,
				ResultPayload: payload,
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return failed(task, err, 0)
	}

	ctx, span := o.tracer.Start(ctx, task.UnitName, ports.WithAttribute("stratum.unit_index", task.UnitIndex))
	defer span.End()

	start := time.Now()
	payload, err := invoke(ctx, process, task)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		return failed(task, err, elapsed)
	}

	if o.cache != nil && task.CacheKey != "" {
		o.cache.Put(task.CacheKey, payload)
	}

	return domain.UnitResult{
		TaskID:          task.TaskID,
		UnitIndex:       task.UnitIndex,
		UnitName:        task.UnitName,
		Success:         true,
		ResultPayload:   payload,
		DurationSeconds: elapsed,
	}
}

func invoke(ctx context.Context, process ProcessFunc, task domain.Task) (payload domain.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = zerr.With(domain.ErrTaskPanicked, "panic", fmt.Sprint(r))
		}
	}()

	return process(ctx, task)
}

func failed(task domain.Task, err error, seconds float64) domain.UnitResult {
	return domain.UnitResult{
		TaskID:          task.TaskID,
		UnitIndex:       task.UnitIndex,
		UnitName:        task.UnitName,
		ErrorMessage:    err.Error(),
		DurationSeconds: seconds,
	}
}

// selectStrategy picks the parallel path only when every precondition holds.
// The returned reason explains a sequential choice.
func (o *Orchestrator) selectStrategy(units []domain.Unit) (domain.Strategy, string) {
	if !o.cfg.MultiprocessingEnabled {
		return domain.StrategySequential, "parallel processing disabled"
	}
	if len(units) <= 1 {
		return domain.StrategySequential, "single unit"
	}
	if high, why := o.memoryHigh(); high {
		return domain.StrategySequential, why
	}

	total := 0
	for _, u := range units {
		total += u.Workload()
	}
	avg := float64(total) / float64(len(units))
	if avg <= o.cfg.MinElementsPerUnit {
		return domain.StrategySequential, fmt.Sprintf("average workload %.1f elements per unit is too small", avg)
	}

	return domain.StrategyParallel, ""
}

// memoryHigh reports whether system memory use is at or above the threshold.
// A probe failure counts as high.
func (o *Orchestrator) memoryHigh() (bool, string) {
	if o.probe == nil {
		return false, ""
	}
	used, err := o.probe.UsedPercent()
	if err != nil {
		return true, fmt.Sprintf("memory probe failed: %v", err)
	}
	if used >= o.cfg.MemoryThresholdPercent {
		return true, fmt.Sprintf("memory usage %.1f%% is at or above %.1f%%", used, o.cfg.MemoryThresholdPercent)
	}
	return false, ""
}

// workerCount sizes the worker set: MaxWorkers when configured, otherwise three
// quarters of the CPUs capped at maxDerivedWorkers. It never exceeds the unit count.
func (o *Orchestrator) workerCount(units int) int {
	workers := o.cfg.MaxWorkers
	if workers <= 0 {
		workers = min(max(1, int(math.Floor(float64(o.cpuCount())*0.75))), maxDerivedWorkers)
	}
	return max(1, min(workers, units))
}

func (o *Orchestrator) relieveMemoryPressure() {
	high, why := o.memoryHigh()
	if !high {
		return
	}
	removed := 0
	if o.cache != nil {
		removed = o.cache.CleanupExpired()
	}
	o.gc()
	o.logger.Info(fmt.Sprintf("%s: removed %d expired cache entries", why, removed))
}

// postProcess updates running counters and performs periodic cache maintenance.
func (o *Orchestrator) postProcess(report domain.BatchReport) {
	o.mu.Lock()
	before := o.stats.Operations
	o.stats.Batches++
	o.stats.Operations += uint64(report.Units)
	switch report.Strategy {
	case domain.StrategyParallel:
		o.stats.Parallel++
	default:
		o.stats.Sequential++
	}
	if report.FellBack {
		o.stats.Fallbacks++
	}

	cleanup := false
	if n := uint64(o.cleanupInterval); n > 0 && o.stats.Operations/n > before/n {
		cleanup = true
		o.stats.Cleanups++
	}
	o.mu.Unlock()

	if cleanup && o.cache != nil {
		if removed := o.cache.CleanupExpired(); removed > 0 {
			o.logger.Info(fmt.Sprintf("periodic cleanup removed %d expired cache entries", removed))
		}
	}

	o.relieveMemoryPressure()
}
