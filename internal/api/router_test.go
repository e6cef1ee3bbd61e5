package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routeEcho(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := map[string]string{"route": name}
		if id := chi.URLParam(r, "patternID"); id != "" {
			params["patternID"] = id
		}
		if id := chi.URLParam(r, "sessionID"); id != "" {
			params["sessionID"] = id
		}
		JSON(w, http.StatusOK, params)
	}
}

func testRouter(checks map[string]HealthCheck) http.Handler {
	allow := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				HandleError(w, ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	return NewRouter(RouterConfig{Checks: checks}, HandlerSet{
		ListPatterns:      routeEcho("list-patterns"),
		GetPattern:        routeEcho("get-pattern"),
		DeletePattern:     routeEcho("delete-pattern"),
		MatchPattern:      routeEcho("match-pattern"),
		ListPatternEvents: routeEcho("pattern-events"),
		SubmitAutomation:  routeEcho("submit"),
		RespondToGuidance: routeEcho("guidance-response"),
		StartTraining:     routeEcho("start-training"),
		GetTraining:       routeEcho("get-training"),
		RequestSelection:  routeEcho("request-selection"),
		ConfirmSelection:  routeEcho("confirm"),
		CancelSelection:   routeEcho("cancel"),
		EndTraining:       routeEcho("end-training"),
		AuthMiddleware:    allow,
	})
}

func TestRouter_Routes(t *testing.T) {
	router := testRouter(nil)

	tests := []struct {
		method, path, route string
	}{
		{http.MethodGet, "/api/v1/patterns", "list-patterns"},
		{http.MethodPost, "/api/v1/patterns/match", "match-pattern"},
		{http.MethodGet, "/api/v1/patterns/p1", "get-pattern"},
		{http.MethodDelete, "/api/v1/patterns/p1", "delete-pattern"},
		{http.MethodGet, "/api/v1/patterns/p1/events", "pattern-events"},
		{http.MethodPost, "/api/v1/automation/requests", "submit"},
		{http.MethodPost, "/api/v1/automation/guidance-responses", "guidance-response"},
		{http.MethodPost, "/api/v1/training/sessions", "start-training"},
		{http.MethodGet, "/api/v1/training/sessions/s1", "get-training"},
		{http.MethodDelete, "/api/v1/training/sessions/s1", "end-training"},
		{http.MethodPost, "/api/v1/training/sessions/s1/selection", "request-selection"},
		{http.MethodPost, "/api/v1/training/sessions/s1/confirm", "confirm"},
		{http.MethodPost, "/api/v1/training/sessions/s1/cancel", "cancel"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer x")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var body struct {
				Data map[string]string `json:"data"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.route, body.Data["route"])
		})
	}
}

func TestRouter_APIRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patterns", nil)
	rec := httptest.NewRecorder()
	testRouter(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	t.Run("all healthy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		testRouter(map[string]HealthCheck{"database": ok, "redis": ok}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"redis":"healthy"`)
	})

	t.Run("one dependency down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		testRouter(map[string]HealthCheck{"database": ok, "nats": down}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"nats":"unhealthy"`)
		assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	})

	t.Run("liveness ignores dependencies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		testRouter(map[string]HealthCheck{"nats": down}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
