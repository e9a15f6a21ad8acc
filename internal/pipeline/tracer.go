package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"aadhaarcli/internal/infrastructure"
	"aadhaarcli/pkg/contracts/domain"
)

const TracerName = "aadhaarcli.pipeline"

// StageTracer provides OpenTelemetry instrumentation for runs and stages
type StageTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.Metrics
}

// NewStageTracer creates a tracer on the given providers. Nil providers
// yield the global tracer and no-op metrics.
func NewStageTracer(providers *infrastructure.OTelProviders) (*StageTracer, error) {
	if providers == nil {
		metrics, err := infrastructure.NewMetrics(noop.NewMeterProvider().Meter(TracerName))
		if err != nil {
			return nil, err
		}
		return &StageTracer{tracer: otel.Tracer(TracerName), metrics: metrics}, nil
	}

	metrics, err := infrastructure.NewMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	return &StageTracer{
		tracer:  providers.Tracer,
		metrics: metrics,
	}, nil
}

// Metrics exposes the instruments shared with the HTTP layer
func (t *StageTracer) Metrics() *infrastructure.Metrics {
	return t.metrics
}

// TraceRun creates a span for the entire run
func (t *StageTracer) TraceRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
}

// TraceStage creates a span for one stage
func (t *StageTracer) TraceStage(ctx context.Context, runID, stageID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.stage."+stageID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage.id", stageID),
		),
	)
}

// RecordStageCompletion closes out a stage span and records its metrics
func (t *StageTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stageID string, duration time.Duration, records int, err error) {
	status := string(StepStatusCompleted)
	if err != nil {
		status = string(StepStatusFailed)
	}

	span.SetAttributes(
		attribute.String("stage.status", status),
		attribute.Float64("stage.duration_seconds", duration.Seconds()),
		attribute.Int("stage.records", records),
	)
	t.metrics.RecordStage(ctx, stageID, status, duration)

	if err != nil {
		infrastructure.RecordError(ctx, err, trace.WithAttributes(
			attribute.String("stage.id", stageID),
			attribute.String("error.type", "stage_execution_error"),
		))
		return
	}

	infrastructure.AddSpanEvent(ctx, "stage.completed", map[string]interface{}{
		"stage_id": stageID,
		"records":  records,
	})
	span.SetStatus(codes.Ok, "stage completed")
}

// RecordRunCompletion closes out the run span and records the run outcome
func (t *StageTracer) RecordRunCompletion(ctx context.Context, span trace.Span, state *RunState) {
	run := state.Run()

	span.SetAttributes(
		attribute.String("run.status", string(run.Status)),
		attribute.Float64("run.duration_seconds", run.Duration.Seconds()),
		attribute.Int("run.anomalies", run.Anomalies),
		attribute.Int("run.integrity_hits", run.IntegrityHits),
	)
	t.metrics.RecordRun(ctx, string(run.Status))

	if run.Status == domain.RunStatusCompleted {
		for kind, n := range map[domain.RecordKind]int{
			domain.KindEnrollment:  run.Enrollments,
			domain.KindDemographic: run.Demographic,
			domain.KindBiometric:   run.Biometric,
		} {
			t.metrics.RecordRecords(ctx, string(kind), n)
		}
		t.metrics.RecordAnomalies(ctx, run.Anomalies)
		span.SetStatus(codes.Ok, "run completed")
		return
	}

	span.SetStatus(codes.Error, fmt.Sprintf("run finished with status %s", run.Status))
}
