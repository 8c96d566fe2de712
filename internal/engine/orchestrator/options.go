package orchestrator

import (
	"context"
	"runtime"

	"github.com/oklog/ulid/v2"
	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/core/ports"
	"go.trai.ch/stratum/internal/engine/artifactcache"
	"go.trai.ch/stratum/internal/engine/workerpool"
)

// PoolFactory constructs the worker pool for one parallel batch.
type PoolFactory func(workers int) (*workerpool.Pool[domain.UnitResult], error)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache enables result caching and cached short-circuiting.
// Payloads promoted from a persistent tier come back JSON-decoded: numbers are
// float64 and nested values are map[string]any or []any. They encode to the same
// JSON as the fresh payload they were stored from.
func WithCache(c *artifactcache.Cache[domain.Payload]) Option {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithCleanupInterval runs cache cleanup every n processed units.
func WithCleanupInterval(n int) Option {
	return func(o *Orchestrator) {
		o.cleanupInterval = n
	}
}

// WithMemoryProbe sets the source of system memory pressure.
func WithMemoryProbe(p ports.MemoryProbe) Option {
	return func(o *Orchestrator) {
		o.probe = p
	}
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer sets the tracer used for batch and unit spans.
func WithTracer(t ports.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithMetrics exports batch activity to the given collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithPoolFactory replaces the worker pool constructor of the pool backend.
func WithPoolFactory(f PoolFactory) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.newPool = f
		}
	}
}

// WithCPUCount overrides the CPU count used to size the worker set.
func WithCPUCount(n int) Option {
	return func(o *Orchestrator) {
		o.cpuCount = func() int { return n }
	}
}

// WithGC replaces the garbage collection request issued under memory pressure.
func WithGC(gc func()) Option {
	return func(o *Orchestrator) {
		if gc != nil {
			o.gc = gc
		}
	}
}

func defaults(o *Orchestrator) {
	o.logger = nopLogger{}
	o.tracer = nopTracer{}
	o.newPool = func(workers int) (*workerpool.Pool[domain.UnitResult], error) {
		return workerpool.New[domain.UnitResult](workers)
	}
	o.cpuCount = runtime.NumCPU
	o.gc = runtime.GC
	o.newTaskID = func() string { return ulid.Make().String() }
}

type nopLogger struct{}

func (nopLogger) Info(string) {}
func (nopLogger) Warn(string) {}
func (nopLogger) Error(error) {}

type nopTracer struct{}

func (nopTracer) Start(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
	return ctx, nopSpan{}
}

func (nopTracer) EmitPlan(context.Context, string, []string) {}

type nopSpan struct{}

func (nopSpan) Write(p []byte) (int, error) { return len(p), nil }
func (nopSpan) End()                        {}
func (nopSpan) RecordError(error)           {}
func (nopSpan) SetAttribute(string, any)    {}
