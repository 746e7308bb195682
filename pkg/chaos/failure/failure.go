// Package failure injects request-level latency and errors, scoped by an
// operation label so injected faults stay attributable in traces and
// metrics.
package failure

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/joseaugf/cop320-cw/pkg/cerrors"
	"github.com/joseaugf/cop320-cw/pkg/flags"
	"github.com/joseaugf/cop320-cw/pkg/log"
	"github.com/joseaugf/cop320-cw/pkg/math"
	"github.com/joseaugf/cop320-cw/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	suffixHighLatency = "_high_latency"
	suffixErrorRate   = "_error_rate"
	suffixFailure     = "_failure"

	defaultLatencyMs      = 1000
	defaultErrorRate      = 30
	defaultFailureRate    = 50
	defaultSlowQueryDelay = 500
)

// Simulator evaluates the operation-scoped failure flags on every request it
// is handed.
type Simulator struct {
	flags flags.Source
}

func NewSimulator(src flags.Source) *Simulator {
	return &Simulator{flags: src}
}

// CheckAndApplyFailures applies the request-level fault checks for the given
// operation, in order: additive latency, error-rate draw, operation-failure
// draw, slow-query delay. Latency always applies before the error draws, so
// a request that is going to fail is delayed too. A non-nil return is always
// a cerrors.Simulated.
func (s *Simulator) CheckAndApplyFailures(ctx context.Context, operation string) error {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("operation", operation))

	s.simulateHighLatency(ctx, operation, span)
	if err := s.simulateErrorRate(ctx, operation, span); err != nil {
		return err
	}
	if err := s.simulateFailure(ctx, operation, span); err != nil {
		return err
	}
	s.simulateSlowQueries(ctx, span)
	return nil
}

func (s *Simulator) simulateHighLatency(ctx context.Context, operation string, span trace.Span) {
	flagName := operation + suffixHighLatency
	if !s.flags.IsFlagEnabled(ctx, flagName) {
		return
	}
	cfg := s.flags.GetFlagConfig(ctx, flagName)
	latencyMs := cfg.Number(flags.KeyLatencyMs, defaultLatencyMs)

	log.Warnf("simulating high latency for %v: %vms", operation, latencyMs)
	span.AddEvent("high_latency_simulation", trace.WithAttributes(
		attribute.Float64("latency_ms", latencyMs),
	))
	sleepCtx(ctx, time.Duration(latencyMs*float64(time.Millisecond)))
}

func (s *Simulator) simulateErrorRate(ctx context.Context, operation string, span trace.Span) error {
	flagName := operation + suffixErrorRate
	if !s.flags.IsFlagEnabled(ctx, flagName) {
		return nil
	}
	cfg := s.flags.GetFlagConfig(ctx, flagName)
	errorRate := math.Clamp(int(cfg.Number(flags.KeyErrorRate, defaultErrorRate)), 0, 100)

	if rand.Intn(100) >= errorRate {
		return nil
	}

	log.Errorf("simulating error for %v (rate: %v%%)", operation, errorRate)
	span.SetAttributes(
		attribute.Bool("simulated.error", true),
		attribute.Int("simulated.error_rate", errorRate),
	)
	span.AddEvent("error_simulation", trace.WithAttributes(
		attribute.Int("error_rate", errorRate),
	))
	metrics.SimulatedErrors.WithLabelValues(operation).Inc()
	return cerrors.Simulated{Reason: fmt.Sprintf("simulated error for observability demo (error rate: %d%%)", errorRate)}
}

func (s *Simulator) simulateFailure(ctx context.Context, operation string, span trace.Span) error {
	flagName := operation + suffixFailure
	if !s.flags.IsFlagEnabled(ctx, flagName) {
		return nil
	}
	cfg := s.flags.GetFlagConfig(ctx, flagName)
	failureRate := math.Clamp(int(cfg.Number(flags.KeyFailureRate, defaultFailureRate)), 0, 100)

	if rand.Intn(100) >= failureRate {
		return nil
	}

	log.Errorf("simulating %v failure (rate: %v%%)", operation, failureRate)
	span.SetAttributes(
		attribute.Bool("simulated.failure", true),
		attribute.Int("simulated.failure_rate", failureRate),
	)
	span.AddEvent("failure_simulation", trace.WithAttributes(
		attribute.Int("failure_rate", failureRate),
	))
	metrics.SimulatedErrors.WithLabelValues(operation).Inc()
	return cerrors.Simulated{Reason: fmt.Sprintf("simulated %s failure for observability demo (failure rate: %d%%)", operation, failureRate)}
}

func (s *Simulator) simulateSlowQueries(ctx context.Context, span trace.Span) {
	if !s.flags.IsFlagEnabled(ctx, flags.FlagDatabaseSlowQueries) {
		return
	}
	cfg := s.flags.GetFlagConfig(ctx, flags.FlagDatabaseSlowQueries)
	delayMs := cfg.Number(flags.KeyDelayMs, defaultSlowQueryDelay)

	log.Warnf("simulating slow query: %vms", delayMs)
	span.AddEvent("slow_query_simulation", trace.WithAttributes(
		attribute.Float64("delay_ms", delayMs),
	))
	sleepCtx(ctx, time.Duration(delayMs*float64(time.Millisecond)))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
