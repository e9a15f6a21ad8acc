// Package pipeline runs an analysis as an ordered list of stages over an
// explicit RunState: ingest, clean, derive, score, integrity, summarize.
//
// The Manager records a StepState per stage, opens an OpenTelemetry span per
// stage and aborts the run at the first failing stage with a StageError
// naming it.
package pipeline
