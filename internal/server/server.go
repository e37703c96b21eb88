// Package server provides the HTTP server for health checks and the manual
// refresh hook.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/warehouselens/warehouse-sentinel/internal/config"
)

// Pinger checks connectivity to the telemetry database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server provides HTTP endpoints for health checks and monitoring.
type Server struct {
	cfg    *config.ServerConfig
	pinger Pinger

	// refresh drops cached telemetry and triggers a fresh analysis run.
	refresh func()

	server   *http.Server
	mu       sync.Mutex
	started  time.Time
	lastPing time.Time
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Database  *DBHealth `json:"database,omitempty"`
}

// DBHealth represents database connectivity status.
type DBHealth struct {
	Connected bool   `json:"connected"`
	Latency   string `json:"latency,omitempty"`
	Error     string `json:"error,omitempty"`
}

// New creates a new Server. refresh may be nil, which disables the
// /refresh endpoint.
func New(cfg *config.ServerConfig, pinger Pinger, refresh func()) *Server {
	return &Server{
		cfg:     cfg,
		pinger:  pinger,
		refresh: refresh,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/livez", s.handleLive)
	mux.HandleFunc("/refresh", s.handleRefresh)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.started = time.Now()

	go func() {
		log.Printf("Health server listening on :%d", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("Health server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

// handleHealth handles /healthz endpoint (combined check).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}

	// Perform deep check if enabled
	if s.cfg.DeepCheck && s.pinger != nil {
		dbHealth := s.checkDatabase(r.Context())
		response.Database = dbHealth
		if !dbHealth.Connected {
			response.Status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if response.Status != "ok" {
		statusCode = http.StatusServiceUnavailable
	}

	s.writeJSON(w, statusCode, response)
}

// handleReady handles /readyz endpoint (readiness probe).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Check if we can connect to the database
	if s.pinger != nil {
		dbHealth := s.checkDatabase(r.Context())
		if !dbHealth.Connected {
			s.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:    "not ready",
				Timestamp: time.Now(),
				Database:  dbHealth,
			})
			return
		}
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
	})
}

// handleLive handles /livez endpoint (liveness probe).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	// Simple liveness check - if we can respond, we're alive
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleRefresh handles POST /refresh: invalidate cached telemetry and kick
// off a fresh analysis. The run happens in the background; the endpoint only
// acknowledges the trigger.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": "use POST",
		})
		return
	}
	if s.refresh == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "refresh is not available",
		})
		return
	}

	go s.refresh()

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "refresh triggered",
	})
}

// checkDatabase tests database connectivity.
func (s *Server) checkDatabase(ctx context.Context) *DBHealth {
	health := &DBHealth{}

	start := time.Now()
	err := s.pinger.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		health.Connected = false
		health.Error = err.Error()
	} else {
		health.Connected = true
		health.Latency = latency.String()
		s.lastPing = time.Now()
	}

	return health
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
