package http

import (
	"context"

	"aadhaarcli/internal/services"
	"aadhaarcli/pkg/contracts/domain"
)

// AnalysisServiceInterface defines the analysis operations served over HTTP
type AnalysisServiceInterface interface {
	Run(ctx context.Context) (*services.Result, error)
	Latest() (*services.Result, error)
	States() ([]domain.GeoAggregate, error)
	Summary() (domain.Summary, error)
	Anomalies(filter services.AnomalyFilter) ([]domain.ScoredRecord, error)
	Integrity(fraudType string) ([]domain.IntegrityRow, error)
	IntegrityOverview() (domain.IntegrityOverview, error)

	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	RunAnomalies(ctx context.Context, id string) ([]domain.ScoredRecord, error)
	RunIntegrity(ctx context.Context, id string) ([]domain.IntegrityRow, error)
	DeleteRun(ctx context.Context, id string) error
}

// HealthServiceInterface defines the health checks served over HTTP
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}
