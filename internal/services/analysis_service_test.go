package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aadhaarcli/internal/anomaly"
	"aadhaarcli/internal/config"
	"aadhaarcli/internal/pipeline"
	"aadhaarcli/internal/shared/testutil"
	"aadhaarcli/internal/store"
	"aadhaarcli/internal/summary"
	"aadhaarcli/pkg/contracts/domain"
)

func datasetPaths(t *testing.T) config.PathsConfig {
	t.Helper()
	base := t.TempDir()
	testutil.WriteDataset(t, base)
	return config.PathsConfig{
		BaseDir:        base,
		EnrollmentDir:  string(domain.KindEnrollment),
		DemographicDir: string(domain.KindDemographic),
		BiometricDir:   string(domain.KindBiometric),
		OutputDir:      "output",
	}
}

func newTestManager(t *testing.T) *pipeline.Manager {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	cfg := anomaly.DefaultConfig()
	cfg.Contamination = 0.1
	cfg.Trees = 50

	registry, _, err := pipeline.NewDefaultRegistry(pipeline.Options{
		Anomaly: cfg,
		Summary: summary.DefaultConfig(),
	}, logger)
	require.NoError(t, err)

	m, err := pipeline.NewManager(registry, nil, logger)
	require.NoError(t, err)
	return m
}

func newTestService(t *testing.T, export bool, runStore RunStore) (*AnalysisService, config.PathsConfig) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	paths := datasetPaths(t)
	svc := NewAnalysisService(newTestManager(t), AnalysisOptions{Paths: paths, Export: export}, runStore, logger)
	return svc, paths
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestAnalysisService_BeforeFirstRun tests queries made before any run
func TestAnalysisService_BeforeFirstRun(t *testing.T) {
	svc, _ := newTestService(t, false, nil)

	_, err := svc.Latest()
	assert.ErrorIs(t, err, ErrNoResult)
	_, err = svc.States()
	assert.ErrorIs(t, err, ErrNoResult)
	_, err = svc.Summary()
	assert.ErrorIs(t, err, ErrNoResult)
	_, err = svc.Anomalies(AnomalyFilter{})
	assert.ErrorIs(t, err, ErrNoResult)
	_, err = svc.Integrity("")
	assert.ErrorIs(t, err, ErrNoResult)
	_, err = svc.IntegrityOverview()
	assert.ErrorIs(t, err, ErrNoResult)

	runs, err := svc.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = svc.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.False(t, svc.Running())
}

// TestAnalysisService_Run tests a complete run with exports and history
func TestAnalysisService_Run(t *testing.T) {
	ctx := context.Background()
	runStore := openStore(t)
	svc, paths := newTestService(t, true, runStore)

	result, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCompleted, result.Run.Status)
	assert.Equal(t, testutil.DatasetEnrollments, result.Run.Enrollments)
	assert.Equal(t, 1, result.Run.IntegrityHits)
	assert.Len(t, result.Steps, len(pipeline.StageOrder))
	assert.Len(t, result.States, 4)

	require.Len(t, result.Exports, 4)
	for _, name := range []string{config.AnomaliesCSV, config.IntegrityCSV, config.ReportXLSX, config.SummaryJSON} {
		_, err := os.Stat(paths.Output(name))
		assert.NoError(t, err, name)
	}

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Equal(t, result.Run.ID, latest.Run.ID)

	stored, err := runStore.GetRun(ctx, result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Run.Anomalies, stored.Anomalies)

	runs, err := svc.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.Run.ID, runs[0].ID)

	fromHistory, err := svc.RunAnomalies(ctx, result.Run.ID)
	require.NoError(t, err)
	assert.Len(t, fromHistory, result.Run.Anomalies)

	flags, err := svc.RunIntegrity(ctx, result.Run.ID)
	require.NoError(t, err)
	require.Len(t, flags, result.Run.IntegrityHits)

	storedFlags, err := runStore.RunIntegrity(ctx, result.Run.ID)
	require.NoError(t, err)
	require.Len(t, storedFlags, len(flags))
	for i := range flags {
		assert.Equal(t, flags[i].Key, storedFlags[i].Key)
		assert.Equal(t, flags[i].Dead, storedFlags[i].Dead)
		assert.Equal(t, flags[i].FraudTypes, storedFlags[i].FraudTypes)
	}

	_, err = svc.RunIntegrity(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

// TestAnalysisService_Queries tests filtering over the latest result
func TestAnalysisService_Queries(t *testing.T) {
	svc, _ := newTestService(t, false, nil)
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	t.Run("anomalies sorted by score", func(t *testing.T) {
		got, err := svc.Anomalies(AnomalyFilter{})
		require.NoError(t, err)
		assert.Len(t, got, result.Run.Anomalies)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].Label.Score, got[i].Label.Score)
		}
	})

	t.Run("anomalies limit", func(t *testing.T) {
		got, err := svc.Anomalies(AnomalyFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("anomalies unknown state", func(t *testing.T) {
		got, err := svc.Anomalies(AnomalyFilter{State: "Atlantis"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	tests := []struct {
		name      string
		fraudType string
		wantRows  int
		wantErr   error
	}{
		{name: "all flagged", fraudType: "", wantRows: 1},
		{name: "alias", fraudType: "ghost", wantRows: 1},
		{name: "full name any case", fraudType: "biometric-demographic mismatch", wantRows: 1},
		{name: "no match", fraudType: "phantom", wantRows: 0},
		{name: "unknown", fraudType: "bogus", wantErr: ErrUnknownFraudType},
	}
	for _, tt := range tests {
		t.Run("integrity "+tt.name, func(t *testing.T) {
			rows, err := svc.Integrity(tt.fraudType)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.wantRows)
			for _, row := range rows {
				assert.Equal(t, "Bihar", row.Key.State)
			}
		})
	}

	t.Run("integrity overview", func(t *testing.T) {
		overview, err := svc.IntegrityOverview()
		require.NoError(t, err)
		assert.Equal(t, result.Run.IntegrityHits, overview.Flagged)
		assert.Equal(t, len(result.States), overview.Stats.Units)
		assert.Len(t, overview.GhostDistricts, len(result.Integrity.GhostDistricts))
		assert.Len(t, overview.DeadDistricts, len(result.Integrity.Dead))
		require.NotEmpty(t, overview.Patterns)
		assert.Equal(t, domain.FraudGhostEnrollments, overview.Patterns[0].Type)
	})

	run, err := svc.GetRun(context.Background(), result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Run.ID, run.ID)

	runs, err := svc.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

// TestAnalysisService_FailedRun tests that a failed run is stored but not cached
func TestAnalysisService_FailedRun(t *testing.T) {
	ctx := context.Background()
	runStore := openStore(t)
	svc, paths := newTestService(t, false, runStore)
	require.NoError(t, os.Remove(filepath.Join(paths.Resolve(paths.BiometricDir), "biometric.csv")))

	result, err := svc.Run(ctx)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.RunStatusFailed, result.Run.Status)

	stage, ok := pipeline.FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, pipeline.StageIngest, stage)

	_, err = svc.Latest()
	assert.ErrorIs(t, err, ErrNoResult)

	stored, err := runStore.GetRun(ctx, result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
}

// TestAnalysisService_DeleteRun tests history deletion with and without a store
func TestAnalysisService_DeleteRun(t *testing.T) {
	ctx := context.Background()

	noHistory, _ := newTestService(t, false, nil)
	assert.ErrorIs(t, noHistory.DeleteRun(ctx, "any"), ErrHistoryDisabled)

	runStore := openStore(t)
	svc, _ := newTestService(t, false, runStore)
	result, err := svc.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRun(ctx, result.Run.ID))
	_, err = runStore.GetRun(ctx, result.Run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, svc.DeleteRun(ctx, result.Run.ID), ErrRunNotFound)

	_, err = svc.Latest()
	assert.NoError(t, err)
}

// TestAnalysisService_SingleRun tests that concurrent runs are rejected
func TestAnalysisService_SingleRun(t *testing.T) {
	svc, _ := newTestService(t, false, nil)
	svc.running.Store(true)

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	svc.running.Store(false)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Run(context.Background())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrRunInProgress)
	}
	assert.GreaterOrEqual(t, succeeded, 1)
}

// TestParseFraudType tests alias and name resolution
func TestParseFraudType(t *testing.T) {
	tests := []struct {
		in   string
		want domain.FraudType
	}{
		{"ghost", domain.FraudGhostEnrollments},
		{" Phantom ", domain.FraudPhantomUpdates},
		{"MISMATCH", domain.FraudBioMismatch},
		{"complete system disconnect", domain.FraudDisconnect},
	}
	for _, tt := range tests {
		got, err := ParseFraudType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFraudType("")
	assert.ErrorIs(t, err, ErrUnknownFraudType)
}

// TestHealthService tests readiness transitions
func TestHealthService(t *testing.T) {
	ctx := context.Background()
	runStore := openStore(t)
	svc, paths := newTestService(t, false, runStore)
	hs := NewHealthService("1.0.0", paths, svc, runStore, nil)

	health := hs.HealthCheck(ctx)
	assert.Equal(t, StatusOK, health.Status)
	require.NotNil(t, health.Runtime)
	assert.Positive(t, health.Runtime.Goroutines)

	ready := hs.ReadinessCheck(ctx)
	assert.Equal(t, StatusNotReady, ready.Status)
	assert.Equal(t, StatusReady, ready.Services["inputs"].Status)
	assert.Equal(t, StatusReady, ready.Services["store"].Status)
	assert.Equal(t, StatusNotReady, ready.Services["analysis"].Status)

	_, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, hs.ReadinessCheck(ctx).Status)

	assert.Equal(t, StatusAlive, hs.LivenessCheck(ctx).Status)
	assert.Equal(t, "1.0.0", hs.Version()["version"])
}

// TestFraudTypeNames tests that every listed filter resolves
func TestFraudTypeNames(t *testing.T) {
	names := FraudTypeNames()
	require.Len(t, names, 8)
	assert.Equal(t, "disconnect", names[0])
	for _, name := range names {
		_, err := ParseFraudType(name)
		assert.NoError(t, err, name)
	}
}
