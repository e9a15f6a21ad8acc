package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "aadhaarcli/internal/errors"
	custommw "aadhaarcli/internal/middleware"
	"aadhaarcli/internal/services"
)

// AnalysisHandler serves queries over the latest completed run
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	validator    *custommw.ValidationMiddleware
	queries      *custommw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service:      service,
		validator:    custommw.NewValidationMiddleware(logger, errorHandler),
		queries:      custommw.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// RegisterRoutes registers the analysis query routes
func (h *AnalysisHandler) RegisterRoutes(r chi.Router) {
	r.Get("/states", h.GetStates)
	r.Get("/anomalies", h.GetAnomalies)
	r.Get("/integrity", h.GetIntegrity)
	r.Get("/integrity/overview", h.GetIntegrityOverview)
	r.Get("/summary", h.GetSummary)
}

// GetStates handles GET /api/v1/states
func (h *AnalysisHandler) GetStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.service.States()
	if err != nil {
		writeServiceError(h.errorHandler, w, r, err)
		return
	}
	render.JSON(w, r, newListResponse(states, len(states)))
}

// GetAnomalies handles GET /api/v1/anomalies?state=&limit=
func (h *AnalysisHandler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queries.ValidateInt(w, r, "limit", 1, 1000, services.DefaultAnomalyLimit)
	if !ok {
		return
	}

	filter := services.AnomalyFilter{
		State: r.URL.Query().Get("state"),
		Limit: limit,
	}
	if err := h.validator.ValidateStruct(filter); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	records, err := h.service.Anomalies(filter)
	if err != nil {
		writeServiceError(h.errorHandler, w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "anomalies served",
		slog.String("state", filter.State),
		slog.Int("count", len(records)))
	render.JSON(w, r, newListResponse(records, len(records)))
}

// GetIntegrity handles GET /api/v1/integrity?fraud_type=
func (h *AnalysisHandler) GetIntegrity(w http.ResponseWriter, r *http.Request) {
	fraudType, ok := h.queries.ValidateEnum(w, r, "fraud_type", services.FraudTypeNames(), "")
	if !ok {
		return
	}

	rows, err := h.service.Integrity(fraudType)
	if err != nil {
		writeServiceError(h.errorHandler, w, r, err)
		return
	}
	render.JSON(w, r, newListResponse(rows, len(rows)))
}

// GetIntegrityOverview handles GET /api/v1/integrity/overview
func (h *AnalysisHandler) GetIntegrityOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.IntegrityOverview()
	if err != nil {
		writeServiceError(h.errorHandler, w, r, err)
		return
	}
	render.JSON(w, r, overview)
}

// GetSummary handles GET /api/v1/summary
func (h *AnalysisHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary()
	if err != nil {
		writeServiceError(h.errorHandler, w, r, err)
		return
	}
	render.JSON(w, r, summary)
}
