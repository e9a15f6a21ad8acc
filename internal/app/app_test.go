package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aadhaarcli/internal/config"
	apierrors "aadhaarcli/internal/errors"
	"aadhaarcli/internal/shared/testutil"
	"aadhaarcli/pkg/contracts/domain"
	"aadhaarcli/pkg/contracts/events"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	testutil.WriteDataset(t, base)

	cfg := config.Default()
	cfg.Paths = config.PathsConfig{
		BaseDir:        base,
		EnrollmentDir:  string(domain.KindEnrollment),
		DemographicDir: string(domain.KindDemographic),
		BiometricDir:   string(domain.KindBiometric),
		OutputDir:      "output",
	}
	cfg.Store.Path = filepath.Join("db", "runs.db")
	cfg.Anomaly.Contamination = 0.1
	cfg.Anomaly.Trees = 50
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := NewServer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func serve(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))

	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

// TestApplication_RunLifecycle drives the API from no result through a run
func TestApplication_RunLifecycle(t *testing.T) {
	a := newTestServer(t, testConfig(t))
	router := a.Router

	w, body := serve(t, router, http.MethodGet, "/api/v1/states")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apierrors.TypeNoResult, body["type"])

	w, _ = serve(t, router, http.MethodGet, "/healthz/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, body = serve(t, router, http.MethodPost, "/api/v1/runs")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	run := body["run"].(map[string]interface{})
	runID := run["id"].(string)
	assert.Equal(t, string(domain.RunStatusCompleted), run["status"])
	assert.Len(t, body["exports"], 4)

	w, body = serve(t, router, http.MethodGet, "/api/v1/states")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, body["count"], float64(0))

	w, _ = serve(t, router, http.MethodGet, "/api/v1/anomalies?limit=5")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = serve(t, router, http.MethodGet, "/api/v1/integrity?fraud_type=ghost")
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = serve(t, router, http.MethodGet, "/api/v1/summary")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "trend")

	w, body = serve(t, router, http.MethodGet, "/api/v1/runs")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["count"])

	w, body = serve(t, router, http.MethodGet, "/api/v1/runs/"+runID)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, runID, body["id"])

	w, body = serve(t, router, http.MethodGet, "/api/v1/runs/unknown-run")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.TypeRunNotFound, body["type"])

	w, _ = serve(t, router, http.MethodGet, "/healthz/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = serve(t, router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pipeline_stage_duration_seconds")
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

// TestApplication_RunEventsOverWebSocket subscribes to run progress and
// starts a run through the API
func TestApplication_RunEventsOverWebSocket(t *testing.T) {
	a := newTestServer(t, testConfig(t))
	server := httptest.NewServer(a.Router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + config.WebSocketEndpoint
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() events.RunEvent {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
		var event events.RunEvent
		require.NoError(t, conn.ReadJSON(&event))
		return event
	}

	greeting := read()
	require.Equal(t, events.TypeConnection, greeting.Type)
	require.Eventually(t, func() bool { return a.Hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/runs", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var received []events.RunEvent
	for {
		event := read()
		received = append(received, event)
		if event.Type == events.TypeRunFinished {
			break
		}
	}

	require.GreaterOrEqual(t, len(received), 3)
	assert.Equal(t, events.TypeRunStarted, received[0].Type)
	runID := received[0].RunID
	assert.NotEmpty(t, runID)

	last := received[len(received)-1]
	assert.Equal(t, runID, last.RunID)
	assert.Equal(t, string(domain.RunStatusCompleted), last.Status)

	completed := 0
	for _, e := range received {
		assert.Equal(t, runID, e.RunID)
		if e.Type == events.TypeStageCompleted {
			completed++
		}
	}
	assert.Greater(t, completed, 0)
}

// TestApplication_Routing tests the router level error responses
func TestApplication_Routing(t *testing.T) {
	a := newTestServer(t, testConfig(t))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK},
		{name: "liveness", method: http.MethodGet, path: "/healthz/live", wantStatus: http.StatusOK},
		{name: "version", method: http.MethodGet, path: "/api/v1/version", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nothing", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodDelete, path: "/api/v1/states", wantStatus: http.StatusMethodNotAllowed},
		{name: "bad limit", method: http.MethodGet, path: "/api/v1/anomalies?limit=-3", wantStatus: http.StatusBadRequest},
		{name: "unknown fraud type", method: http.MethodGet, path: "/api/v1/integrity?fraud_type=forgery", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := serve(t, a.Router, tt.method, tt.path)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
			}
		})
	}
}

// TestApplication_RateLimit tests that the API is rate limited but probes are not
func TestApplication_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.RateLimit.RPS = 0.001
	cfg.Server.RateLimit.Burst = 1
	a := newTestServer(t, cfg)

	w, _ := serve(t, a.Router, http.MethodGet, "/api/v1/version")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = serve(t, a.Router, http.MethodGet, "/api/v1/version")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w, _ = serve(t, a.Router, http.MethodGet, "/healthz/live")
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestNew_WithoutStore tests the CLI wiring with run history disabled
func TestNew_WithoutStore(t *testing.T) {
	cfg := testConfig(t)
	logger, _ := testutil.NewTestLogger(t)

	a, err := New(context.Background(), cfg, logger, Options{NoStore: true})
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Nil(t, a.Store)
	assert.Nil(t, a.Router)

	result, err := a.Analysis.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Exports)

	runs, err := a.Analysis.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.Run.ID, runs[0].ID)

	assert.Error(t, a.Start(context.Background(), func() {}))
}

// TestApplication_StartupHealthCheck tests directory warnings
func TestApplication_StartupHealthCheck(t *testing.T) {
	cfg := testConfig(t)
	a := newTestServer(t, cfg)
	assert.NoError(t, a.performStartupHealthCheck(context.Background()))

	a.Config.Paths.BiometricDir = "missing"
	err := a.performStartupHealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(domain.KindBiometric))
}
