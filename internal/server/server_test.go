package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/warehouselens/warehouse-sentinel/internal/config"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	return f.err
}

func TestHealthEndpoints(t *testing.T) {
	cfg := &config.ServerConfig{
		Port:      8080,
		DeepCheck: false, // Disable deep check for tests without DB
	}

	srv := New(cfg, nil, nil)

	t.Run("GET /livez", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/livez", nil)
		w := httptest.NewRecorder()

		srv.handleLive(w, req)

		resp := w.Result()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Status code = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var health HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if health.Status != "alive" {
			t.Errorf("Status = %s, want alive", health.Status)
		}
	})

	t.Run("GET /healthz without deep check", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()

		srv.handleHealth(w, req)

		resp := w.Result()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Status code = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var health HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if health.Status != "ok" {
			t.Errorf("Status = %s, want ok", health.Status)
		}

		// Database should not be checked when deep check is disabled
		if health.Database != nil {
			t.Error("Database should be nil when deep check is disabled")
		}
	})

	t.Run("GET /readyz without DB", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/readyz", nil)
		w := httptest.NewRecorder()

		srv.handleReady(w, req)

		resp := w.Result()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Status code = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})
}

func TestReadyzWithBrokenDatabase(t *testing.T) {
	cfg := &config.ServerConfig{Port: 8080}
	srv := New(cfg, &fakePinger{err: errors.New("connection refused")}, nil)

	req := httptest.NewRequest("GET", "/readyz", nil)
	w := httptest.NewRecorder()

	srv.handleReady(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Status code = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if health.Database == nil || health.Database.Connected {
		t.Errorf("Database health = %+v, want a disconnected report", health.Database)
	}
}

func TestHealthzDeepCheck(t *testing.T) {
	cfg := &config.ServerConfig{Port: 8080, DeepCheck: true}
	srv := New(cfg, &fakePinger{}, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	srv.handleHealth(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status code = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if health.Database == nil || !health.Database.Connected {
		t.Errorf("Database health = %+v, want a connected report", health.Database)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	cfg := &config.ServerConfig{Port: 8080}

	triggered := make(chan struct{}, 1)
	srv := New(cfg, nil, func() { triggered <- struct{}{} })

	t.Run("POST triggers a refresh", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/refresh", nil)
		w := httptest.NewRecorder()

		srv.handleRefresh(w, req)

		if w.Result().StatusCode != http.StatusAccepted {
			t.Errorf("Status code = %d, want %d", w.Result().StatusCode, http.StatusAccepted)
		}

		select {
		case <-triggered:
		case <-time.After(time.Second):
			t.Error("refresh callback was not invoked")
		}
	})

	t.Run("GET is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/refresh", nil)
		w := httptest.NewRecorder()

		srv.handleRefresh(w, req)

		if w.Result().StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Status code = %d, want %d", w.Result().StatusCode, http.StatusMethodNotAllowed)
		}
	})
}

func TestRefreshEndpointWithoutCallback(t *testing.T) {
	cfg := &config.ServerConfig{Port: 8080}
	srv := New(cfg, nil, nil)

	req := httptest.NewRequest("POST", "/refresh", nil)
	w := httptest.NewRecorder()

	srv.handleRefresh(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Status code = %d, want %d", w.Result().StatusCode, http.StatusServiceUnavailable)
	}
}
