package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "aadhaarcli/internal/errors"
	custommw "aadhaarcli/internal/middleware"
	"aadhaarcli/internal/services"
	"aadhaarcli/pkg/contracts/domain"
)

// DefaultRunListLimit is the page size of GET /runs without a limit
const DefaultRunListLimit = 20

// writeGrace is left after a run deadline to write the response
const writeGrace = 10 * time.Second

type runIDKey struct{}

// RunHandler handles run execution and run history requests
type RunHandler struct {
	service      AnalysisServiceInterface
	queries      *custommw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewRunHandler creates a new run handler
func NewRunHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RunHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunHandler{
		service:      service,
		queries:      custommw.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "run_handler")),
		errorHandler: errorHandler,
	}
}

// RegisterHistoryRoutes registers the run history routes
func (h *RunHandler) RegisterHistoryRoutes(r chi.Router) {
	r.Get("/runs", h.ListRuns)
	r.Route("/runs/{id}", func(r chi.Router) {
		r.Use(h.RunCtx)
		r.Get("/", h.GetRun)
		r.Get("/anomalies", h.GetRunAnomalies)
		r.Get("/integrity", h.GetRunIntegrity)
		r.Delete("/", h.DeleteRun)
	})
}

// RunCtx validates the run ID path parameter
func (h *RunHandler) RunCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" || len(id) > 64 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "run id is required and must be at most 64 characters"))
			return
		}
		ctx := context.WithValue(r.Context(), runIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func runIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(runIDKey{}).(string); ok {
		return id
	}
	return chi.URLParam(r, "id")
}

// StartRun handles POST /api/v1/runs. The run executes within the request
// and the complete result is returned.
func (h *RunHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.logger.InfoContext(ctx, "starting analysis run",
		slog.String("request_id", middleware.GetReqID(ctx)))

	// The server write timeout is shorter than a run
	rc := http.NewResponseController(w)
	if deadline, ok := ctx.Deadline(); ok {
		_ = rc.SetWriteDeadline(deadline.Add(writeGrace))
	} else {
		_ = rc.SetWriteDeadline(time.Time{})
	}

	result, err := h.service.Run(ctx)
	if err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			writeServiceError(h.errorHandler, w, r, err)
			return
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, runFailure(result, err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// ListRuns handles GET /api/v1/runs?limit=
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queries.ValidateInt(w, r, "limit", 1, 1000, DefaultRunListLimit)
	if !ok {
		return
	}

	runs, err := h.service.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list runs", slog.String("error", err.Error()))
		writeServiceError(h.errorHandler, w, r, err)
		return
	}
	render.JSON(w, r, newListResponse(runs, len(runs)))
}

// runDetail is a stored run with the integrity flags recorded for it
type runDetail struct {
	domain.Run
	IntegrityFlags []domain.IntegrityRow `json:"integrity_flags"`
}

// GetRun handles GET /api/v1/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := runIDFrom(r)
	run, err := h.service.GetRun(r.Context(), id)
	if err != nil {
		writeServiceError(h.errorHandler, w, r, err)
		return
	}

	flags, err := h.service.RunIntegrity(r.Context(), id)
	if err != nil {
		writeServiceError(h.errorHandler, w, r, err)
		return
	}
	render.JSON(w, r, runDetail{Run: *run, IntegrityFlags: flags})
}

// GetRunIntegrity handles GET /api/v1/runs/{id}/integrity
func (h *RunHandler) GetRunIntegrity(w http.ResponseWriter, r *http.Request) {
	flags, err := h.service.RunIntegrity(r.Context(), runIDFrom(r))
	if err != nil {
		writeServiceError(h.errorHandler, w, r, err)
		return
	}
	render.JSON(w, r, newListResponse(flags, len(flags)))
}

// GetRunAnomalies handles GET /api/v1/runs/{id}/anomalies
func (h *RunHandler) GetRunAnomalies(w http.ResponseWriter, r *http.Request) {
	id := runIDFrom(r)
	if _, err := h.service.GetRun(r.Context(), id); err != nil {
		writeServiceError(h.errorHandler, w, r, err)
		return
	}

	records, err := h.service.RunAnomalies(r.Context(), id)
	if err != nil {
		writeServiceError(h.errorHandler, w, r, err)
		return
	}
	render.JSON(w, r, newListResponse(records, len(records)))
}

// DeleteRun handles DELETE /api/v1/runs/{id}
func (h *RunHandler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRun(r.Context(), runIDFrom(r)); err != nil {
		writeServiceError(h.errorHandler, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
