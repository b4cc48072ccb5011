package handlers

import (
	"encoding/json"
	"net/http"
)

// commonParameters are accepted by every indicator endpoint.
var commonParameters = []map[string]interface{}{
	{
		"name":        "from",
		"in":          "query",
		"description": "First year, narrowed to the configured range",
		"required":    false,
		"schema":      map[string]string{"type": "integer"},
	},
	{
		"name":        "to",
		"in":          "query",
		"description": "Last year, narrowed to the configured range",
		"required":    false,
		"schema":      map[string]string{"type": "integer"},
	},
	{
		"name":        "policy",
		"in":          "query",
		"description": "Join policy for keys present on one side only: drop or fail",
		"required":    false,
		"schema":      map[string]interface{}{"type": "string", "enum": []string{"drop", "fail"}},
	},
}

var yearListParameter = map[string]interface{}{
	"name":        "year",
	"in":          "query",
	"description": "Years to include; repeat or comma separate",
	"required":    false,
	"schema":      map[string]interface{}{"type": "array", "items": map[string]string{"type": "integer"}},
}

// measure is a number encoded as null when undefined.
var measure = map[string]interface{}{"type": "number", "nullable": true}

// indicatorPath documents a GET endpoint returning a services.Result whose
// data is described by data.
func indicatorPath(summary, description string, data map[string]interface{}, extra ...map[string]interface{}) map[string]interface{} {
	params := append(append([]map[string]interface{}{}, commonParameters...), extra...)
	return map[string]interface{}{
		"get": map[string]interface{}{
			"summary":     summary,
			"description": description,
			"parameters":  params,
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "Successful response",
					"content": map[string]interface{}{
						"application/json": map[string]interface{}{
							"schema": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"data": data,
									"years": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"from": map[string]string{"type": "integer"},
											"to":   map[string]string{"type": "integer"},
										},
									},
									"join_policy":  map[string]string{"type": "string"},
									"dropped_keys": map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
									"warnings":     map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
								},
							},
						},
					},
				},
				"400": map[string]string{"description": "Invalid query parameter"},
				"404": map[string]string{"description": "A required input table has no rows in the year range"},
				"422": map[string]string{"description": "Unmatched join keys under the fail policy, or a year that cannot be decomposed"},
			},
		},
	}
}

func rows(properties map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "object", "properties": properties},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Fertility Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	nationality := map[string]interface{}{"type": "string", "enum": []string{"native", "foreign"}}
	ageBand := map[string]interface{}{"type": "string", "example": "25-29"}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Fertility Platform API",
			"description": "Fertility indicators by nationality: crude birth rates, ASFR, TFR, mean age at childbearing, Kitagawa decomposition and pseudo-cohorts",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Fertility Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/fertility/rates": indicatorPath(
				"Crude birth rates",
				"Births per 1,000 women aged 15-49 by year and nationality, with a centred 3-year rolling mean",
				rows(map[string]interface{}{
					"year":            map[string]string{"type": "integer"},
					"nationality":     nationality,
					"births":          map[string]string{"type": "number"},
					"mean_population": map[string]string{"type": "number"},
					"rate_per_1000":   measure,
					"rate_smoothed":   measure,
				}),
			),
			"/api/fertility/intensity": indicatorPath(
				"Fertility intensity ratio",
				"Foreign over native crude birth rate by year",
				rows(map[string]interface{}{
					"year":           map[string]string{"type": "integer"},
					"rate_native":    measure,
					"rate_foreign":   measure,
					"ratio":          measure,
					"ratio_smoothed": measure,
				}),
			),
			"/api/fertility/asfr": indicatorPath(
				"ASFR comparison",
				"Native and foreign age-specific fertility rates per 1,000 women by year and age band",
				rows(map[string]interface{}{
					"year":         map[string]string{"type": "integer"},
					"age_band":     ageBand,
					"rate_native":  map[string]string{"type": "number"},
					"rate_foreign": map[string]string{"type": "number"},
					"abs_diff":     map[string]string{"type": "number"},
					"ratio":        measure,
				}),
			),
			"/api/fertility/asfr/heatmap": indicatorPath(
				"ASFR heatmap",
				"Age band by year rate matrix of each nationality",
				rows(map[string]interface{}{
					"nationality": nationality,
					"age_bands":   map[string]interface{}{"type": "array", "items": ageBand},
					"years":       map[string]interface{}{"type": "array", "items": map[string]string{"type": "integer"}},
					"values": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "array", "items": measure},
					},
				}),
				map[string]interface{}{
					"name":        "nationality",
					"in":          "query",
					"description": "Restrict to one class",
					"required":    false,
					"schema":      nationality,
				},
			),
			"/api/fertility/tfr": indicatorPath(
				"Total fertility rate",
				"Children per woman by year and nationality; partial age schedules are listed in warnings",
				rows(map[string]interface{}{
					"year":          map[string]string{"type": "integer"},
					"nationality":   nationality,
					"tfr":           map[string]string{"type": "number"},
					"bands_covered": map[string]string{"type": "integer"},
				}),
			),
			"/api/fertility/tfr/reconciliation": indicatorPath(
				"Official TFR reconciliation",
				"Official TFR series in children per woman next to the computed TFR, rescaled by the mean computed/official ratio of each class",
				map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"rows": rows(map[string]interface{}{
							"year":        map[string]string{"type": "integer"},
							"nationality": nationality,
							"official":    map[string]string{"type": "number"},
							"computed":    map[string]string{"type": "number"},
							"rescaled":    measure,
						}),
						"scale_factors": map[string]interface{}{
							"type":                 "object",
							"additionalProperties": map[string]string{"type": "number"},
						},
					},
				},
			),
			"/api/fertility/mac": indicatorPath(
				"Mean age at childbearing",
				"Rate-weighted mean of the band central ages by year and nationality",
				rows(map[string]interface{}{
					"year":        map[string]string{"type": "integer"},
					"nationality": nationality,
					"mean_age":    measure,
				}),
			),
			"/api/fertility/observations": indicatorPath(
				"Population and rate merge",
				"Mean population and ASFR per year, age band and nationality with expected births",
				rows(map[string]interface{}{
					"year":            map[string]string{"type": "integer"},
					"age_band":        ageBand,
					"nationality":     nationality,
					"population":      map[string]string{"type": "number"},
					"rate":            map[string]string{"type": "number"},
					"expected_births": map[string]string{"type": "number"},
				}),
			),
			"/api/fertility/kitagawa": indicatorPath(
				"Kitagawa decomposition",
				"Foreign minus native crude-rate gap split into age-structure and rate effects, in births per woman",
				rows(map[string]interface{}{
					"year":             map[string]string{"type": "integer"},
					"total_diff":       measure,
					"structure_effect": measure,
					"rate_effect":      measure,
					"crude_native":     measure,
					"crude_foreign":    measure,
					"per_age_breakdown": rows(map[string]interface{}{
						"age_band":         ageBand,
						"structure_effect": measure,
						"rate_effect":      measure,
					}),
					"incomplete":    map[string]string{"type": "boolean"},
					"missing_bands": map[string]interface{}{"type": "array", "items": ageBand},
				}),
				yearListParameter,
			),
			"/api/fertility/cohorts": indicatorPath(
				"Pseudo-cohorts",
				"Mean rate per approximate birth cohort, age and nationality",
				rows(map[string]interface{}{
					"cohort_year":  map[string]string{"type": "integer"},
					"age":          map[string]string{"type": "number"},
					"nationality":  nationality,
					"mean_rate":    map[string]string{"type": "number"},
					"observations": map[string]string{"type": "integer"},
				}),
				map[string]interface{}{
					"name": "cohort_min", "in": "query", "required": false,
					"description": "Earliest cohort", "schema": map[string]string{"type": "integer"},
				},
				map[string]interface{}{
					"name": "cohort_max", "in": "query", "required": false,
					"description": "Latest cohort", "schema": map[string]string{"type": "integer"},
				},
			),
			"/api/fertility/summary": indicatorPath(
				"Annual summary",
				"Crude rate, TFR and mean age at childbearing by year and nationality",
				rows(map[string]interface{}{
					"year":          map[string]string{"type": "integer"},
					"nationality":   nationality,
					"rate_per_1000": measure,
					"tfr":           map[string]string{"type": "number"},
					"mean_age":      measure,
				}),
				yearListParameter,
			),
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its store are reachable",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API is healthy",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"status": map[string]string{"type": "string"},
										},
									},
								},
							},
						},
						"503": map[string]string{"description": "Store unreachable"},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
