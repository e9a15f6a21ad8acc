package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewIngestError("no input files found", nil),
			want: "[INGEST] no input files found",
		},
		{
			name: "with cause",
			err:  NewStorageError("save run", errors.New("disk full")),
			want: "[STORAGE] save run: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_UnwrapAndContext(t *testing.T) {
	cause := errors.New("missing column date")
	err := NewSchemaError("enrollment.csv", cause).WithContext("file", "enrollment.csv")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "enrollment.csv", err.Context["file"])

	var appErr *AppError
	wrapped := errors.Join(errors.New("outer"), err)
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, ErrTypeSchema, appErr.Type)

	bare := &AppError{Type: ErrTypeExport}
	bare.WithContext("key", 1)
	assert.Equal(t, 1, bare.Context["key"])
}

func TestAppError_StatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewSchemaError("schema", nil), http.StatusUnprocessableEntity},
		{NewIngestError("ingest", nil), http.StatusUnprocessableEntity},
		{NewUnavailableError("later", nil), http.StatusServiceUnavailable},
		{NewExportError("export", nil), http.StatusInternalServerError},
		{NewStorageError("storage", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestAPIErrorHelpers(t *testing.T) {
	err := RunNotFoundError("abc")
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, CodeRunNotFound, err.ErrorCode)
	assert.Equal(t, "run abc not found", err.Error())

	failed := RunFailedError("abc", "ingest", errors.New("no input files"))
	assert.Equal(t, http.StatusInternalServerError, failed.StatusCode)
	assert.Equal(t, "ingest", failed.Details.(map[string]string)["stage"])

	v := ErrValidation("limit", "limit must be at most 1000")
	require.IsType(t, ValidationErrors{}, v.Details)
	assert.Equal(t, "limit", v.Details.(ValidationErrors).Errors[0].Field)

	assert.Equal(t, http.StatusBadRequest, InvalidRequestWithError(errors.New("eof")).StatusCode)
	assert.Equal(t, "state not found", NotFoundError("state").Message)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrRunInProgress)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, CodeRunInProgress, resp.Error.ErrorCode)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeRunNotFound, "Not Found", "run abc not found", "/api/v1/runs/abc").
		WithExtension("trace_id", "req-1")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, TypeRunNotFound, got["type"])
	assert.Equal(t, float64(http.StatusNotFound), got["status"])
	assert.Equal(t, "run abc not found", got["detail"])
	assert.Equal(t, "/api/v1/runs/abc", got["instance"])
	assert.Equal(t, "req-1", got["trace_id"])

	// Extensions cannot override standard members
	pd.WithExtension("status", 200)
	data, err = json.Marshal(pd)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(http.StatusNotFound), got["status"])

	empty := &ProblemDetails{Status: 500}
	empty.WithExtension("k", "v")
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "detail")
}
