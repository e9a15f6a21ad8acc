// Package config loads the application configuration.
//
// # Configuration Sources
//
// Values are resolved in the following order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values from struct tags (lowest priority)
//
// # Environment Variables
//
// Every variable is namespaced with the AADHAAR prefix followed by the
// section and field names:
//
//	AADHAAR_SERVER_PORT=8080
//	AADHAAR_LOGGING_LEVEL=debug
//	AADHAAR_PATHS_ENROLLMENT_DIR=/data/enrolment
//	AADHAAR_ANOMALY_CONTAMINATION=0.01
//	AADHAAR_STORE_DB_PATH=/var/lib/aadhaarcli/runs.db
//
// # Validation
//
// The loaded configuration is validated with go-playground/validator struct
// tags plus the anomaly model's own range checks.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dirs := cfg.Paths.InputDirs()
package config
