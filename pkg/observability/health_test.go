package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
)

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestHealthChecker_Check(t *testing.T) {
	t.Run("no dependencies", func(t *testing.T) {
		status := NewHealthChecker(nil, nil, "").Check(context.Background())
		if status.Status != StatusHealthy {
			t.Errorf("status = %s, want healthy", status.Status)
		}
		if len(status.Dependencies) != 0 {
			t.Errorf("expected no dependencies, got %v", status.Dependencies)
		}
	})

	t.Run("redis up", func(t *testing.T) {
		_, client := newRedis(t)
		status := NewHealthChecker(client, fixedCounter(4), "1.0.0").Check(context.Background())

		if status.Status != StatusHealthy {
			t.Errorf("status = %s, want healthy", status.Status)
		}
		if status.Modules != 4 {
			t.Errorf("modules = %d, want 4", status.Modules)
		}
		if status.Version != "1.0.0" {
			t.Errorf("version = %s, want 1.0.0", status.Version)
		}
		if status.Dependencies["redis"].Status != StatusHealthy {
			t.Errorf("redis status = %s, want healthy", status.Dependencies["redis"].Status)
		}
	})

	t.Run("redis down", func(t *testing.T) {
		mr, client := newRedis(t)
		mr.Close()

		status := NewHealthChecker(client, nil, "").Check(context.Background())
		if status.Status != StatusUnhealthy {
			t.Errorf("status = %s, want unhealthy", status.Status)
		}
		if status.Dependencies["redis"].Message == "" {
			t.Error("expected an error message for redis")
		}
	})
}

func TestHealthRoutes(t *testing.T) {
	mr, client := newRedis(t)

	router := mux.NewRouter()
	RegisterHealthRoutes(router, NewHealthChecker(client, fixedCounter(2), ""))

	tests := []struct {
		name       string
		path       string
		stopRedis  bool
		wantStatus int
		wantHealth string
	}{
		{"liveness", "/health/live", false, http.StatusOK, StatusHealthy},
		{"readiness", "/health/ready", false, http.StatusOK, StatusHealthy},
		{"combined", "/health", false, http.StatusOK, StatusHealthy},
		{"liveness with redis down", "/health/live", true, http.StatusOK, StatusHealthy},
		{"readiness with redis down", "/health/ready", true, http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.stopRedis {
				mr.Close()
			}

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %s, want application/json", ct)
			}

			var body map[string]interface{}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body["status"] != tt.wantHealth {
				t.Errorf("status = %v, want %s", body["status"], tt.wantHealth)
			}
		})
	}
}
