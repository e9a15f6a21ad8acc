package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "aadhaarcli/internal/errors"
	"aadhaarcli/internal/ingest"
	"aadhaarcli/internal/pipeline"
	"aadhaarcli/internal/services"
)

// listResponse wraps collection responses
type listResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Count  int         `json:"count"`
}

func newListResponse(data interface{}, count int) listResponse {
	return listResponse{Status: "success", Data: data, Count: count}
}

// writeServiceError maps service sentinels onto API errors
func writeServiceError(eh *apierrors.ErrorHandler, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoResult):
		eh.HandleError(w, r, apierrors.ErrNoResult)
	case errors.Is(err, services.ErrRunInProgress):
		eh.HandleError(w, r, apierrors.ErrRunInProgress)
	case errors.Is(err, services.ErrRunNotFound):
		eh.HandleError(w, r, apierrors.RunNotFoundError(chi.URLParam(r, "id")))
	case errors.Is(err, services.ErrHistoryDisabled):
		eh.HandleError(w, r, apierrors.NewUnavailableError("run history is disabled", err))
	case errors.Is(err, services.ErrUnknownFraudType):
		eh.HandleError(w, r, apierrors.ErrValidation("fraud_type", err.Error()))
	case errors.Is(err, services.ErrInvalidInput):
		eh.HandleError(w, r, apierrors.InvalidRequestWithError(err))
	default:
		eh.HandleError(w, r, err)
	}
}

// runFailure describes a run that returned an error along with its result.
// Input problems are the caller's to fix and surface as 422 with context.
func runFailure(result *services.Result, err error) error {
	if result == nil {
		return err
	}
	id := result.Run.ID
	stage, ok := pipeline.FailedStage(err)
	if !ok {
		stage = "finalize"
	}

	var schemaErr *ingest.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		return apierrors.NewSchemaError(schemaErr.Error(), err).
			WithContext("run_id", id).
			WithContext("stage", stage).
			WithContext("file", schemaErr.File).
			WithContext("missing", schemaErr.Missing)
	case errors.Is(err, ingest.ErrNoInputFiles):
		return apierrors.NewIngestError("no input files found", err).
			WithContext("run_id", id).
			WithContext("stage", stage)
	case errors.Is(err, services.ErrExportFailed):
		return apierrors.NewExportError("report export failed", err).WithContext("run_id", id)
	case errors.Is(err, services.ErrSaveFailed):
		return apierrors.NewStorageError("run history could not be saved", err).WithContext("run_id", id)
	}
	return apierrors.RunFailedError(id, stage, err)
}
