package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/stratum/internal/core/ports"
)

// Bridge implements sdktrace.SpanProcessor by reporting finished spans to a Logger.
// It is silent until enabled.
type Bridge struct {
	logger  ports.Logger
	enabled atomic.Bool
}

// NewBridge returns a disabled Bridge.
func NewBridge(logger ports.Logger) *Bridge {
	return &Bridge{logger: logger}
}

// SetEnabled turns reporting on or off.
func (b *Bridge) SetEnabled(enable bool) {
	b.enabled.Store(enable)
}

// OnStart does nothing.
func (b *Bridge) OnStart(_ context.Context, _ sdktrace.ReadWriteSpan) {}

// OnEnd logs the span name and duration, as a warning when the span failed.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if b.logger == nil || !b.enabled.Load() || !s.SpanContext().IsValid() {
		return
	}

	elapsed := s.EndTime().Sub(s.StartTime()).Round(time.Millisecond)
	label := s.Name()

	if s.Status().Code == codes.Error {
		b.logger.Warn(fmt.Sprintf("span %s failed after %s: %s", label, elapsed, s.Status().Description))
		return
	}
	b.logger.Info(fmt.Sprintf("span %s finished in %s", label, elapsed))
}

// ForceFlush does nothing.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}
