// Package services implements the business logic layer between the pipeline
// and its callers.
//
// AnalysisService runs the pipeline against the configured input directories,
// exports the reports, persists the run and caches the latest result for the
// HTTP API and the CLI. Only one run executes at a time.
//
// HealthService reports liveness, readiness and runtime statistics.
//
// Services take a *slog.Logger in their constructor and fall back to
// slog.Default when it is nil.
package services
