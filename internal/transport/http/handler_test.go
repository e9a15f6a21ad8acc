package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "aadhaarcli/internal/errors"
	"aadhaarcli/internal/ingest"
	"aadhaarcli/internal/pipeline"
	"aadhaarcli/internal/services"
	"aadhaarcli/pkg/contracts/domain"
)

// MockAnalysisService is a mock implementation of AnalysisServiceInterface
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Run(ctx context.Context) (*services.Result, error) {
	args := m.Called()
	result, _ := args.Get(0).(*services.Result)
	return result, args.Error(1)
}

func (m *MockAnalysisService) Latest() (*services.Result, error) {
	args := m.Called()
	result, _ := args.Get(0).(*services.Result)
	return result, args.Error(1)
}

func (m *MockAnalysisService) States() ([]domain.GeoAggregate, error) {
	args := m.Called()
	states, _ := args.Get(0).([]domain.GeoAggregate)
	return states, args.Error(1)
}

func (m *MockAnalysisService) Summary() (domain.Summary, error) {
	args := m.Called()
	summary, _ := args.Get(0).(domain.Summary)
	return summary, args.Error(1)
}

func (m *MockAnalysisService) Anomalies(filter services.AnomalyFilter) ([]domain.ScoredRecord, error) {
	args := m.Called(filter)
	records, _ := args.Get(0).([]domain.ScoredRecord)
	return records, args.Error(1)
}

func (m *MockAnalysisService) Integrity(fraudType string) ([]domain.IntegrityRow, error) {
	args := m.Called(fraudType)
	rows, _ := args.Get(0).([]domain.IntegrityRow)
	return rows, args.Error(1)
}

func (m *MockAnalysisService) IntegrityOverview() (domain.IntegrityOverview, error) {
	args := m.Called()
	overview, _ := args.Get(0).(domain.IntegrityOverview)
	return overview, args.Error(1)
}

func (m *MockAnalysisService) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	args := m.Called(limit)
	runs, _ := args.Get(0).([]domain.Run)
	return runs, args.Error(1)
}

func (m *MockAnalysisService) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	args := m.Called(id)
	run, _ := args.Get(0).(*domain.Run)
	return run, args.Error(1)
}

func (m *MockAnalysisService) RunAnomalies(ctx context.Context, id string) ([]domain.ScoredRecord, error) {
	args := m.Called(id)
	records, _ := args.Get(0).([]domain.ScoredRecord)
	return records, args.Error(1)
}

func (m *MockAnalysisService) RunIntegrity(ctx context.Context, id string) ([]domain.IntegrityRow, error) {
	args := m.Called(id)
	rows, _ := args.Get(0).([]domain.IntegrityRow)
	return rows, args.Error(1)
}

func (m *MockAnalysisService) DeleteRun(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func newTestRouter(svc AnalysisServiceInterface) *chi.Mux {
	eh := apierrors.NewErrorHandler(nil, false)
	runs := NewRunHandler(svc, nil, eh)
	analysis := NewAnalysisHandler(svc, nil, eh)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", runs.StartRun)
		runs.RegisterHistoryRoutes(r)
		analysis.RegisterRoutes(r)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))

	var body map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w, body
}

func testRun(id string) domain.Run {
	return domain.Run{
		ID:        id,
		Status:    domain.RunStatusCompleted,
		StartedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Anomalies: 2,
	}
}

func TestRunHandler_StartRun(t *testing.T) {
	tests := []struct {
		name       string
		setupMock  func(*MockAnalysisService)
		wantStatus int
		wantType   string
	}{
		{
			name: "completed run",
			setupMock: func(m *MockAnalysisService) {
				m.On("Run").Return(&services.Result{Run: testRun("run-1")}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "run already in progress",
			setupMock: func(m *MockAnalysisService) {
				m.On("Run").Return(nil, services.ErrRunInProgress)
			},
			wantStatus: http.StatusConflict,
			wantType:   apierrors.TypeRunInProgress,
		},
		{
			name: "stage failure",
			setupMock: func(m *MockAnalysisService) {
				failed := testRun("run-2")
				failed.Status = domain.RunStatusFailed
				m.On("Run").Return(&services.Result{Run: failed},
					pipeline.NewExecutionError(pipeline.StageIngest, errors.New("no input files")))
			},
			wantStatus: http.StatusInternalServerError,
			wantType:   apierrors.TypeRunFailed,
		},
		{
			name: "cancelled run",
			setupMock: func(m *MockAnalysisService) {
				m.On("Run").Return(&services.Result{Run: testRun("run-3")},
					pipeline.NewCancellationError(pipeline.StageIngest, context.DeadlineExceeded))
			},
			wantStatus: http.StatusGatewayTimeout,
			wantType:   apierrors.TypeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)

			w, body := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/v1/runs")
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, body["type"])
			} else {
				run := body["run"].(map[string]interface{})
				assert.Equal(t, "run-1", run["id"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRunHandler_StartRun_FailureDetails(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Run").Return(&services.Result{Run: testRun("run-9")},
		pipeline.NewExecutionError(pipeline.StageIngest, errors.New("boom")))

	_, body := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/v1/runs")
	details := body["details"].(map[string]interface{})
	assert.Equal(t, "run-9", details["run_id"])
	assert.Equal(t, pipeline.StageIngest, details["stage"])
	assert.Equal(t, apierrors.CodeRunFailed, body["error_code"])
}

func TestRunHandler_StartRun_ErrorTypes(t *testing.T) {
	schemaErr := &ingest.SchemaError{Kind: "enrolment", File: "enrol.csv", Missing: []string{"pincode"}}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantError  apierrors.ErrorType
	}{
		{
			name:       "missing columns",
			err:        pipeline.NewExecutionError(pipeline.StageIngest, schemaErr),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeUnprocessable,
			wantError:  apierrors.ErrTypeSchema,
		},
		{
			name: "no input files",
			err: pipeline.NewExecutionError(pipeline.StageIngest,
				fmt.Errorf("enrolment tables in data: %w", ingest.ErrNoInputFiles)),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeUnprocessable,
			wantError:  apierrors.ErrTypeIngest,
		},
		{
			name:       "export failure",
			err:        fmt.Errorf("%w: %w", services.ErrExportFailed, errors.New("disk full")),
			wantStatus: http.StatusInternalServerError,
			wantType:   apierrors.TypeInternal,
			wantError:  apierrors.ErrTypeExport,
		},
		{
			name:       "history write failure",
			err:        fmt.Errorf("%w: %w", services.ErrSaveFailed, errors.New("database is locked")),
			wantStatus: http.StatusInternalServerError,
			wantType:   apierrors.TypeInternal,
			wantError:  apierrors.ErrTypeStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			failed := testRun("run-7")
			failed.Status = domain.RunStatusFailed
			svc.On("Run").Return(&services.Result{Run: failed}, tt.err)

			w, body := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/v1/runs")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, string(tt.wantError), body["error_type"])
			if tt.wantStatus < http.StatusInternalServerError {
				ctx := body["context"].(map[string]interface{})
				assert.Equal(t, "run-7", ctx["run_id"])
				assert.Equal(t, pipeline.StageIngest, ctx["stage"])
			} else {
				assert.NotContains(t, body, "context")
			}
		})
	}

	t.Run("schema context names the columns", func(t *testing.T) {
		svc := new(MockAnalysisService)
		svc.On("Run").Return(&services.Result{Run: testRun("run-8")},
			pipeline.NewExecutionError(pipeline.StageIngest, schemaErr))

		_, body := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/v1/runs")
		ctx := body["context"].(map[string]interface{})
		assert.Equal(t, "enrol.csv", ctx["file"])
		assert.Equal(t, []interface{}{"pincode"}, ctx["missing"])
	})
}

func TestRunHandler_ListRuns(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		setupMock  func(*MockAnalysisService)
		wantStatus int
		wantCount  float64
	}{
		{
			name:  "default limit",
			query: "",
			setupMock: func(m *MockAnalysisService) {
				m.On("ListRuns", DefaultRunListLimit).Return([]domain.Run{testRun("a"), testRun("b")}, nil)
			},
			wantStatus: http.StatusOK,
			wantCount:  2,
		},
		{
			name:  "explicit limit",
			query: "?limit=1",
			setupMock: func(m *MockAnalysisService) {
				m.On("ListRuns", 1).Return([]domain.Run{testRun("a")}, nil)
			},
			wantStatus: http.StatusOK,
			wantCount:  1,
		},
		{
			name:       "invalid limit",
			query:      "?limit=zero",
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "store failure",
			query: "",
			setupMock: func(m *MockAnalysisService) {
				m.On("ListRuns", DefaultRunListLimit).Return(nil, errors.New("database is locked"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)

			w, body := doRequest(t, newTestRouter(svc), http.MethodGet, "/api/v1/runs"+tt.query)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "success", body["status"])
				assert.Equal(t, tt.wantCount, body["count"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRunHandler_GetRun(t *testing.T) {
	svc := new(MockAnalysisService)
	run := testRun("known")
	svc.On("GetRun", "known").Return(&run, nil)
	svc.On("GetRun", "missing").Return(nil, fmt.Errorf("%w: missing", services.ErrRunNotFound))
	svc.On("RunAnomalies", "known").Return([]domain.ScoredRecord{{}}, nil)
	svc.On("RunIntegrity", "known").Return([]domain.IntegrityRow{{
		GeoAggregate: domain.GeoAggregate{Key: domain.GeoKey{State: "Bihar"}, EnrollmentTotal: 2000},
		FraudTypes:   []domain.FraudType{domain.FraudGhostEnrollments},
		Primary:      domain.FraudGhostEnrollments,
	}}, nil)

	router := newTestRouter(svc)

	w, body := doRequest(t, router, http.MethodGet, "/api/v1/runs/known")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "known", body["id"])
	flags, ok := body["integrity_flags"].([]interface{})
	require.True(t, ok, "run detail carries integrity flags")
	require.Len(t, flags, 1)
	assert.Equal(t, string(domain.FraudGhostEnrollments), flags[0].(map[string]interface{})["primary"])

	w, body = doRequest(t, router, http.MethodGet, "/api/v1/runs/known/integrity")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["count"])

	w, body = doRequest(t, router, http.MethodGet, "/api/v1/runs/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.TypeRunNotFound, body["type"])

	w, body = doRequest(t, router, http.MethodGet, "/api/v1/runs/known/anomalies")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["count"])

	w, _ = doRequest(t, router, http.MethodGet, "/api/v1/runs/missing/anomalies")
	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertNotCalled(t, "RunAnomalies", "missing")
	svc.AssertNotCalled(t, "RunIntegrity", "missing")
}

func TestRunHandler_DeleteRun(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		err        error
		wantStatus int
	}{
		{name: "deleted", id: "known", wantStatus: http.StatusNoContent},
		{name: "unknown run", id: "missing", err: fmt.Errorf("%w: missing", services.ErrRunNotFound), wantStatus: http.StatusNotFound},
		{name: "history disabled", id: "known", err: services.ErrHistoryDisabled, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			svc.On("DeleteRun", tt.id).Return(tt.err)

			w, _ := doRequest(t, newTestRouter(svc), http.MethodDelete, "/api/v1/runs/"+tt.id)
			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_NoResult(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("States").Return(nil, services.ErrNoResult)
	svc.On("Summary").Return(domain.Summary{}, services.ErrNoResult)
	svc.On("Anomalies", mock.Anything).Return(nil, services.ErrNoResult)
	svc.On("Integrity", "").Return(nil, services.ErrNoResult)
	svc.On("IntegrityOverview").Return(domain.IntegrityOverview{}, services.ErrNoResult)

	router := newTestRouter(svc)
	for _, path := range []string{
		"/api/v1/states", "/api/v1/summary", "/api/v1/anomalies", "/api/v1/integrity", "/api/v1/integrity/overview",
	} {
		t.Run(path, func(t *testing.T) {
			w, body := doRequest(t, router, http.MethodGet, path)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.Equal(t, apierrors.TypeNoResult, body["type"])
		})
	}
}

func TestAnalysisHandler_GetAnomalies(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantFilter *services.AnomalyFilter
		wantStatus int
	}{
		{
			name:       "defaults",
			wantFilter: &services.AnomalyFilter{Limit: services.DefaultAnomalyLimit},
			wantStatus: http.StatusOK,
		},
		{
			name:       "state and limit",
			query:      "?state=Uttar%20Pradesh&limit=5",
			wantFilter: &services.AnomalyFilter{State: "Uttar Pradesh", Limit: 5},
			wantStatus: http.StatusOK,
		},
		{
			name:       "limit out of range",
			query:      "?limit=5000",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "state with invalid characters",
			query:      "?state=Bihar%3B1",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			if tt.wantFilter != nil {
				svc.On("Anomalies", *tt.wantFilter).Return([]domain.ScoredRecord{{}, {}}, nil)
			}

			w, body := doRequest(t, newTestRouter(svc), http.MethodGet, "/api/v1/anomalies"+tt.query)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, float64(2), body["count"])
			} else {
				assert.Equal(t, apierrors.TypeValidation, body["type"])
				svc.AssertNotCalled(t, "Anomalies", mock.Anything)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_GetIntegrity(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantFilter string
		wantStatus int
	}{
		{name: "no filter", wantFilter: "", wantStatus: http.StatusOK},
		{name: "alias", query: "?fraud_type=ghost", wantFilter: "ghost", wantStatus: http.StatusOK},
		{name: "alias any case", query: "?fraud_type=GHOST", wantFilter: "ghost", wantStatus: http.StatusOK},
		{
			name:       "full name",
			query:      "?fraud_type=biometric-demographic%20mismatch",
			wantFilter: string(domain.FraudBioMismatch),
			wantStatus: http.StatusOK,
		},
		{name: "unknown", query: "?fraud_type=bogus", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			if tt.wantStatus == http.StatusOK {
				svc.On("Integrity", tt.wantFilter).Return([]domain.IntegrityRow{{Primary: domain.FraudGhostEnrollments}}, nil)
			}

			w, body := doRequest(t, newTestRouter(svc), http.MethodGet, "/api/v1/integrity"+tt.query)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, float64(1), body["count"])
			} else {
				assert.Equal(t, apierrors.TypeValidation, body["type"])
				svc.AssertNotCalled(t, "Integrity", mock.Anything)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_GetIntegrityOverview(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("IntegrityOverview").Return(domain.IntegrityOverview{
		Stats:   domain.RatioStats{Units: 4, MedianDemo: 0.8},
		Flagged: 1,
		GhostDistricts: []domain.IntegrityRow{{GeoAggregate: domain.GeoAggregate{
			Key: domain.GeoKey{State: "Bihar", District: "Gaya"},
		}}},
		DeadDistricts: []domain.GeoKey{{State: "Goa", District: "South Goa"}},
	}, nil)

	w, body := doRequest(t, newTestRouter(svc), http.MethodGet, "/api/v1/integrity/overview")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["flagged"])
	assert.Len(t, body["ghost_districts"], 1)
	assert.Len(t, body["dead_districts"], 1)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(4), stats["units"])
}

func TestAnalysisHandler_GetStatesAndSummary(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("States").Return([]domain.GeoAggregate{
		{Key: domain.GeoKey{State: "Bihar"}, EnrollmentTotal: 120},
	}, nil)
	svc.On("Summary").Return(domain.Summary{}, nil)

	router := newTestRouter(svc)

	w, body := doRequest(t, router, http.MethodGet, "/api/v1/states")
	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	state := data[0].(map[string]interface{})
	assert.Equal(t, float64(120), state["enrollment_total"])

	w, _ = doRequest(t, router, http.MethodGet, "/api/v1/summary")
	assert.Equal(t, http.StatusOK, w.Code)
}
