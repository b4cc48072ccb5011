package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"fertility-platform/internal/analysis"
	"fertility-platform/internal/models"
	"fertility-platform/internal/services"
	"fertility-platform/internal/services/mocks"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
)

var allYears = models.YearRange{From: 2002, To: 2024}

func testRates(year int) []models.FertilityRate {
	var out []models.FertilityRate
	for _, band := range models.FertileAgeBands {
		out = append(out,
			models.FertilityRate{Year: year, AgeBandRaw: band.String(), NationalityLabel: "Española", Rate: 40},
			models.FertilityRate{Year: year, AgeBandRaw: band.String(), NationalityLabel: "Extranjera", Rate: 55},
		)
	}
	return out
}

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context) error { return s.err }

func newTestRouter(t *testing.T, src services.DataSource, health HealthChecker) *mux.Router {
	t.Helper()
	m := metrics.NewCollectorWith("handler_test", prometheus.NewRegistry())
	svc := services.NewFertilityService(src, services.Options{Policy: analysis.DropUnmatched, Years: allYears}, logging.Discard(), m)

	router := mux.NewRouter()
	router.Use(RequestID)
	NewFertilityHandler(svc, health, logging.Discard(), m).RegisterRoutes(router)
	return router
}

func doGet(router http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIndicatorEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		setup      func(src *mocks.MockDataSource)
		wantStatus int
		check      func(*testing.T, map[string]interface{})
	}{
		{
			name:   "asfr comparison",
			target: "/api/fertility/asfr",
			setup: func(src *mocks.MockDataSource) {
				src.EXPECT().FertilityRates(gomock.Any(), allYears).Return(testRates(2020), nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].([]interface{})
				require.Len(t, data, 7)
				first := data[0].(map[string]interface{})
				assert.Equal(t, "15-19", first["age_band"])
				assert.InDelta(t, 15.0, first["abs_diff"], 1e-9)
				assert.InDelta(t, 1.375, first["ratio"], 1e-9)
				assert.Equal(t, "drop", body["join_policy"])
			},
		},
		{
			name:   "tfr narrowed by from and to",
			target: "/api/fertility/tfr?from=2020&to=2021",
			setup: func(src *mocks.MockDataSource) {
				src.EXPECT().FertilityRates(gomock.Any(), models.YearRange{From: 2020, To: 2021}).Return(testRates(2020), nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].([]interface{})
				require.Len(t, data, 2)
				assert.InDelta(t, 1.4, data[0].(map[string]interface{})["tfr"], 1e-12)
			},
		},
		{
			name:   "heatmap of one class",
			target: "/api/fertility/asfr/heatmap?nationality=foreign",
			setup: func(src *mocks.MockDataSource) {
				src.EXPECT().FertilityRates(gomock.Any(), allYears).Return(testRates(2020), nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].([]interface{})
				require.Len(t, data, 1)
				assert.Equal(t, "foreign", data[0].(map[string]interface{})["nationality"])
			},
		},
		{
			name:       "unknown nationality is a bad request",
			target:     "/api/fertility/asfr/heatmap?nationality=martian",
			setup:      func(*mocks.MockDataSource) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed year is a bad request",
			target:     "/api/fertility/mac?from=abc",
			setup:      func(*mocks.MockDataSource) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown policy is a bad request",
			target:     "/api/fertility/mac?policy=maybe",
			setup:      func(*mocks.MockDataSource) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "empty rate table is not found",
			target: "/api/fertility/cohorts",
			setup: func(src *mocks.MockDataSource) {
				src.EXPECT().FertilityRates(gomock.Any(), allYears).Return(nil, nil)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "fail policy with unmatched keys is unprocessable",
			target: "/api/fertility/asfr?policy=fail",
			setup: func(src *mocks.MockDataSource) {
				rates := append(testRates(2020), models.FertilityRate{Year: 2021, AgeBandRaw: "20-24", NationalityLabel: "Española", Rate: 40})
				src.EXPECT().FertilityRates(gomock.Any(), allYears).Return(rates, nil)
			},
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Contains(t, body["message"], "unmatched join keys")
				assert.NotEmpty(t, body["request_id"])
			},
		},
		{
			name:   "source failure is an internal error",
			target: "/api/fertility/mac",
			setup: func(src *mocks.MockDataSource) {
				src.EXPECT().FertilityRates(gomock.Any(), allYears).Return(nil, errors.New("disk gone"))
			},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "failed to compute indicator", body["message"])
			},
		},
		{
			name:   "kitagawa year list",
			target: "/api/fertility/kitagawa?year=2019,2020",
			setup: func(src *mocks.MockDataSource) {
				var pop []models.PopulationCount
				for _, band := range models.FertileAgeBands {
					pop = append(pop,
						models.PopulationCount{Period: "2020", Year: 2020, AgeBandRaw: band.String(), NationalityLabel: "Española", Population: 1000},
						models.PopulationCount{Period: "2020", Year: 2020, AgeBandRaw: band.String(), NationalityLabel: "Extranjera", Population: 100},
					)
				}
				src.EXPECT().Population(gomock.Any(), allYears).Return(pop, nil)
				src.EXPECT().FertilityRates(gomock.Any(), allYears).Return(testRates(2020), nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				require.Len(t, body["data"], 1)
				require.Len(t, body["warnings"], 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			src := mocks.NewMockDataSource(ctrl)
			tt.setup(src)

			rec := doGet(newTestRouter(t, src, nil), tt.target)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			if tt.check != nil {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				tt.check(t, body)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	ctrl := gomock.NewController(t)

	rec := doGet(newTestRouter(t, mocks.NewMockDataSource(ctrl), stubHealth{}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doGet(newTestRouter(t, mocks.NewMockDataSource(ctrl), stubHealth{err: errors.New("down")}), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := newTestRouter(t, mocks.NewMockDataSource(ctrl), nil)

	rec := doGet(router, "/health")
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "123e4567-e89b-12d3-a456-426614174000")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "not a uuid")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEqual(t, "not a uuid", rec.Header().Get(RequestIDHeader))
}

func TestOpenAPISpec(t *testing.T) {
	rec := httptest.NewRecorder()
	OpenAPISpec(rec, httptest.NewRequest(http.MethodGet, "/api/docs/openapi.json", nil))

	var spec map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	paths := spec["paths"].(map[string]interface{})
	for _, p := range []string{
		"/api/fertility/rates", "/api/fertility/intensity", "/api/fertility/asfr",
		"/api/fertility/asfr/heatmap", "/api/fertility/tfr", "/api/fertility/tfr/reconciliation",
		"/api/fertility/mac", "/api/fertility/observations", "/api/fertility/kitagawa",
		"/api/fertility/cohorts", "/api/fertility/summary", "/health",
	} {
		assert.Contains(t, paths, p)
	}
}
