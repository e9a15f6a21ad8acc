package config

// Application constants
const (
	AppName = "aadhaarcli"

	APIBasePath     = "/api/v1"
	HealthEndpoint  = "/healthz"
	MetricsEndpoint = "/metrics"

	// WebSocketEndpoint streams run progress events
	WebSocketEndpoint = "/ws/runs"

	// Export file names written under PathsConfig.OutputDir
	AnomaliesCSV  = "enrollment_anomalies.csv"
	IntegrityCSV  = "integrity_flags.csv"
	ReportXLSX    = "aadhaar_report.xlsx"
	SummaryJSON   = "summary.json"
	DefaultLogDir = "logs"
)
