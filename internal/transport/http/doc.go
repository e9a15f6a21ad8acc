// Package http implements the JSON API handlers for aadhaarcli.
//
// Handlers are a thin layer over the analysis service: they parse and
// validate the request, call the service, and render the response with
// go-chi/render. Service errors are translated into APIError values and
// written as RFC 7807 problem details by the shared ErrorHandler.
//
// # Routes
//
//	GET  /healthz                   health with runtime statistics
//	GET  /healthz/ready             readiness (inputs, store, analysis)
//	GET  /healthz/live              liveness
//	POST /api/v1/runs               execute the pipeline
//	GET  /api/v1/runs               list stored runs
//	GET  /api/v1/runs/{id}          one run
//	GET  /api/v1/runs/{id}/anomalies flagged records of one run
//	DELETE /api/v1/runs/{id}        remove a run from the history
//	GET  /api/v1/states             state aggregates of the latest run
//	GET  /api/v1/anomalies          flagged records, ?state=&limit=
//	GET  /api/v1/integrity          integrity flags, ?fraud_type=
//	GET  /api/v1/summary            summary tables of the latest run
//	GET  /api/v1/version            build information
//
// Queries over the latest run answer 503 until a run has completed. Run
// progress is pushed over GET /ws/runs, served by package websocket.
package http
