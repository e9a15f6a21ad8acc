package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aadhaarcli/internal/infrastructure"
	"aadhaarcli/pkg/contracts/events"
)

// Manager runs the registered stages of a run in order
type Manager struct {
	registry  *Registry
	tracer    *StageTracer
	publisher events.Publisher
	logger    *slog.Logger
}

// NewManager creates a manager. A nil tracer falls back to no-op instrumentation.
func NewManager(registry *Registry, tracer *StageTracer, logger *slog.Logger) (*Manager, error) {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		var err error
		if tracer, err = NewStageTracer(nil); err != nil {
			return nil, err
		}
	}
	return &Manager{
		registry: registry,
		tracer:   tracer,
		logger:   logger.With(slog.String("component", "pipeline")),
	}, nil
}

// SetPublisher sends run progress events to p. A nil p disables them.
func (m *Manager) SetPublisher(p events.Publisher) {
	m.publisher = p
}

func (m *Manager) publish(event events.RunEvent) {
	if m.publisher == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	m.publisher.Publish(event)
}

// Registry returns the stage registry
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Execute runs every stage against state. The first failing stage aborts the
// run; later stages are marked skipped. The context is checked between stages.
func (m *Manager) Execute(ctx context.Context, state *RunState) error {
	ctx = infrastructure.WithTraceID(ctx, state.ID)
	ctx, span := m.tracer.TraceRun(ctx, state.ID)
	defer span.End()

	stages := m.registry.List()
	steps := make([]*StepState, len(stages))
	for i, stage := range stages {
		steps[i] = NewStepState(stage.ID(), stage.Name())
		state.AddStep(steps[i])
	}

	state.Start()
	m.publish(events.RunEvent{Type: events.TypeRunStarted, RunID: state.ID, Status: string(state.Status)})
	m.logger.InfoContext(ctx, "Run started",
		slog.String("run_id", state.ID),
		slog.Int("stage_count", len(stages)))

	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			runErr := NewCancellationError(stage.ID(), err)
			m.skipFrom(steps, i, "run cancelled")
			state.Cancel(runErr)
			m.logger.WarnContext(ctx, "Run cancelled",
				slog.String("run_id", state.ID),
				slog.String("stage", stage.ID()))
			m.tracer.RecordRunCompletion(ctx, span, state)
			m.publishFinished(state, runErr)
			return runErr
		}

		if err := m.executeStage(ctx, state, stage, steps[i]); err != nil {
			m.skipFrom(steps, i+1, fmt.Sprintf("stage %s failed", stage.ID()))
			if IsCancellation(err) {
				state.Cancel(err)
			} else {
				state.Fail(err)
			}
			m.tracer.RecordRunCompletion(ctx, span, state)
			m.publishFinished(state, err)
			return err
		}
	}

	state.Complete()
	m.tracer.RecordRunCompletion(ctx, span, state)
	m.publishFinished(state, nil)
	m.logger.InfoContext(ctx, "Run completed",
		slog.String("run_id", state.ID),
		slog.Duration("duration", state.Duration()),
		slog.Int("anomalies", state.Anomalies()),
		slog.Int("integrity_hits", len(state.Integrity.Flagged())))
	return nil
}

func (m *Manager) executeStage(ctx context.Context, state *RunState, stage Stage, step *StepState) error {
	ctx, span := m.tracer.TraceStage(ctx, state.ID, stage.ID())
	defer span.End()

	step.Start()
	m.publish(events.RunEvent{Type: events.TypeStageStarted, RunID: state.ID, Stage: stage.ID(), StageName: stage.Name()})
	m.logger.InfoContext(ctx, "Stage started",
		slog.String("run_id", state.ID),
		slog.String("stage", stage.ID()))

	start := time.Now()
	err := stage.Execute(ctx, state)
	duration := time.Since(start)

	records := 0
	if err == nil {
		if p, ok := stage.(producer); ok {
			records = p.Produced(state)
		}
	}
	m.tracer.RecordStageCompletion(ctx, span, stage.ID(), duration, records, err)

	if err != nil {
		stageErr := NewExecutionError(stage.ID(), err)
		step.Fail(stageErr)
		m.publish(events.RunEvent{
			Type:       events.TypeStageFailed,
			RunID:      state.ID,
			Stage:      stage.ID(),
			StageName:  stage.Name(),
			Status:     string(StepStatusFailed),
			DurationMS: duration.Milliseconds(),
			Error:      err.Error(),
		})
		m.logger.ErrorContext(ctx, "Stage failed",
			slog.String("run_id", state.ID),
			slog.String("stage", stage.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return stageErr
	}

	step.Complete(records)
	m.publish(events.RunEvent{
		Type:       events.TypeStageCompleted,
		RunID:      state.ID,
		Stage:      stage.ID(),
		StageName:  stage.Name(),
		Status:     string(StepStatusCompleted),
		Records:    records,
		DurationMS: duration.Milliseconds(),
	})
	m.logger.InfoContext(ctx, "Stage completed",
		slog.String("run_id", state.ID),
		slog.String("stage", stage.ID()),
		slog.Duration("duration", duration),
		slog.Int("records", records))
	return nil
}

func (m *Manager) publishFinished(state *RunState, err error) {
	event := events.RunEvent{
		Type:       events.TypeRunFinished,
		RunID:      state.ID,
		Status:     string(state.Status),
		DurationMS: state.Duration().Milliseconds(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	m.publish(event)
}

func (m *Manager) skipFrom(steps []*StepState, from int, reason string) {
	for _, step := range steps[from:] {
		step.Skip(reason)
	}
}
