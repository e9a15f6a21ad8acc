// Package shared holds helpers used by more than one package that do not
// belong to any single stage of the analysis pipeline.
//
// testutil provides a capturing slog handler and record fixtures for tests.
// It must never be imported from non-test code.
package shared
