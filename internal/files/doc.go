// Package files discovers input tables on disk.
//
// Enrollment, demographic and biometric datasets are published as several
// CSV or Excel extracts per kind. Discovery resolves a directory relative to
// a base path and returns every supported table in it, ordered by name so that
// concatenation is reproducible between runs.
//
// Example usage:
//
//	discovery := files.NewDiscovery("/data")
//	tables, err := discovery.FindTableFiles("enrolment")
package files
