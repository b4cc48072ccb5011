package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"fertility-platform/internal/analysis"
	"fertility-platform/internal/models"
	"fertility-platform/internal/repository"
	"fertility-platform/internal/services"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// FertilityHandler handles fertility indicator API endpoints
type FertilityHandler struct {
	service *services.FertilityService
	health  HealthChecker
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewFertilityHandler creates a new fertility handler. health may be nil
// when indicators are served straight from files.
func NewFertilityHandler(
	service *services.FertilityService,
	health HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *FertilityHandler {
	return &FertilityHandler{
		service: service,
		health:  health,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// indicatorFunc computes one indicator for a parsed query.
type indicatorFunc func(ctx context.Context, r *http.Request, q services.Query) (interface{}, error)

// serve parses the common query parameters, runs fn and writes its result.
func (h *FertilityHandler) serve(endpoint string, fn indicatorFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithOperation(r.Context(), endpoint)
		startTime := time.Now()

		defer func() {
			duration := time.Since(startTime)
			h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
		}()

		q, err := parseQuery(r)
		if err != nil {
			h.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := fn(ctx, r, q)
		if err != nil {
			h.handleError(ctx, w, r, endpoint, err)
			return
		}

		h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
		h.sendJSON(w, data, http.StatusOK)
	}
}

// parseQuery reads from, to and policy.
func parseQuery(r *http.Request) (services.Query, error) {
	var q services.Query
	values := r.URL.Query()

	from, err := optionalInt(values.Get("from"), "from")
	if err != nil {
		return q, err
	}
	to, err := optionalInt(values.Get("to"), "to")
	if err != nil {
		return q, err
	}
	if from != nil {
		q.Years.From = *from
	}
	if to != nil {
		q.Years.To = *to
	}
	if q.Years.From != 0 && q.Years.To != 0 && q.Years.From > q.Years.To {
		return q, &models.ValidationError{Field: "from", Value: values.Get("from"), Message: "from must not be after to"}
	}

	if p := values.Get("policy"); p != "" {
		policy, err := analysis.ParseJoinPolicy(p)
		if err != nil {
			return q, &models.ValidationError{Field: "policy", Value: p, Message: err.Error()}
		}
		q.Policy = &policy
	}
	return q, nil
}

func optionalInt(raw, field string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &models.ValidationError{Field: field, Value: raw, Message: "invalid " + field + ", expected an integer"}
	}
	return &v, nil
}

// intList accepts repeated parameters and comma separated values.
func intList(values []string, field string) ([]int, error) {
	var out []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, &models.ValidationError{Field: field, Value: part, Message: "invalid " + field + ", expected a list of years"}
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// handleError maps service errors to status codes.
func (h *FertilityHandler) handleError(ctx context.Context, w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *repository.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		h.metrics.RecordAPIError("validation_error", endpoint)
		h.sendError(w, r, endpoint, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, r, endpoint, notFoundErr.Error(), http.StatusNotFound)
	case errors.Is(err, analysis.ErrUnmatchedKeys), errors.Is(err, analysis.ErrInsufficientData):
		h.metrics.RecordAPIError("unprocessable", endpoint)
		h.sendError(w, r, endpoint, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error(ctx, "[API_INDICATOR_ERROR] Failed to compute indicator", logging.Fields{
			"endpoint": endpoint,
			"query":    r.URL.RawQuery,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, "failed to compute indicator", http.StatusInternalServerError)
	}
}

// GetRates handles GET /api/fertility/rates
func (h *FertilityHandler) GetRates(ctx context.Context, _ *http.Request, q services.Query) (interface{}, error) {
	return h.service.Rates(ctx, q)
}

// GetIntensity handles GET /api/fertility/intensity
func (h *FertilityHandler) GetIntensity(ctx context.Context, _ *http.Request, q services.Query) (interface{}, error) {
	return h.service.Intensity(ctx, q)
}

// GetASFR handles GET /api/fertility/asfr
func (h *FertilityHandler) GetASFR(ctx context.Context, _ *http.Request, q services.Query) (interface{}, error) {
	return h.service.ASFR(ctx, q)
}

// GetHeatmap handles GET /api/fertility/asfr/heatmap
func (h *FertilityHandler) GetHeatmap(ctx context.Context, r *http.Request, q services.Query) (interface{}, error) {
	var nats []models.Nationality
	if raw := r.URL.Query().Get("nationality"); raw != "" {
		var n models.Nationality
		if err := n.UnmarshalText([]byte(raw)); err != nil {
			return nil, err
		}
		nats = append(nats, n)
	}
	return h.service.Heatmaps(ctx, q, nats...)
}

// GetTFR handles GET /api/fertility/tfr
func (h *FertilityHandler) GetTFR(ctx context.Context, _ *http.Request, q services.Query) (interface{}, error) {
	return h.service.TFR(ctx, q)
}

// GetReconciliation handles GET /api/fertility/tfr/reconciliation
func (h *FertilityHandler) GetReconciliation(ctx context.Context, _ *http.Request, q services.Query) (interface{}, error) {
	return h.service.Reconciliation(ctx, q)
}

// GetMAC handles GET /api/fertility/mac
func (h *FertilityHandler) GetMAC(ctx context.Context, _ *http.Request, q services.Query) (interface{}, error) {
	return h.service.MAC(ctx, q)
}

// GetObservations handles GET /api/fertility/observations
func (h *FertilityHandler) GetObservations(ctx context.Context, _ *http.Request, q services.Query) (interface{}, error) {
	return h.service.Observations(ctx, q)
}

// GetKitagawa handles GET /api/fertility/kitagawa
func (h *FertilityHandler) GetKitagawa(ctx context.Context, r *http.Request, q services.Query) (interface{}, error) {
	years, err := intList(r.URL.Query()["year"], "year")
	if err != nil {
		return nil, err
	}
	return h.service.Kitagawa(ctx, q, years)
}

// GetCohorts handles GET /api/fertility/cohorts
func (h *FertilityHandler) GetCohorts(ctx context.Context, r *http.Request, q services.Query) (interface{}, error) {
	values := r.URL.Query()
	lo, err := optionalInt(values.Get("cohort_min"), "cohort_min")
	if err != nil {
		return nil, err
	}
	hi, err := optionalInt(values.Get("cohort_max"), "cohort_max")
	if err != nil {
		return nil, err
	}

	var bounds *analysis.CohortBounds
	if lo != nil || hi != nil {
		bounds = &analysis.CohortBounds{Min: lo, Max: hi}
	}
	return h.service.Cohorts(ctx, q, bounds)
}

// GetSummary handles GET /api/fertility/summary
func (h *FertilityHandler) GetSummary(ctx context.Context, r *http.Request, q services.Query) (interface{}, error) {
	years, err := intList(r.URL.Query()["year"], "year")
	if err != nil {
		return nil, err
	}
	return h.service.Summary(ctx, q, years)
}

// HealthCheck handles GET /health
func (h *FertilityHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.health != nil {
		if err := h.health.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK] Backing store unavailable", logging.Fields{
				"error": err.Error(),
			})
			status["status"] = "unhealthy"
			h.sendJSON(w, status, http.StatusServiceUnavailable)
			return
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *FertilityHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *FertilityHandler) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Code:      statusCode,
		RequestID: logging.RequestIDFrom(r.Context()),
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all fertility API routes
func (h *FertilityHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/fertility").Subrouter()
	api.HandleFunc("/rates", h.serve("/api/fertility/rates", h.GetRates)).Methods("GET")
	api.HandleFunc("/intensity", h.serve("/api/fertility/intensity", h.GetIntensity)).Methods("GET")
	api.HandleFunc("/asfr", h.serve("/api/fertility/asfr", h.GetASFR)).Methods("GET")
	api.HandleFunc("/asfr/heatmap", h.serve("/api/fertility/asfr/heatmap", h.GetHeatmap)).Methods("GET")
	api.HandleFunc("/tfr", h.serve("/api/fertility/tfr", h.GetTFR)).Methods("GET")
	api.HandleFunc("/tfr/reconciliation", h.serve("/api/fertility/tfr/reconciliation", h.GetReconciliation)).Methods("GET")
	api.HandleFunc("/mac", h.serve("/api/fertility/mac", h.GetMAC)).Methods("GET")
	api.HandleFunc("/observations", h.serve("/api/fertility/observations", h.GetObservations)).Methods("GET")
	api.HandleFunc("/kitagawa", h.serve("/api/fertility/kitagawa", h.GetKitagawa)).Methods("GET")
	api.HandleFunc("/cohorts", h.serve("/api/fertility/cohorts", h.GetCohorts)).Methods("GET")
	api.HandleFunc("/summary", h.serve("/api/fertility/summary", h.GetSummary)).Methods("GET")

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
