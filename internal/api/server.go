// Package api hosts the status dashboard: run history, manual triggers and
// the websocket update stream.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/api/handlers"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/api/middleware"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs"
)

// NewRouter assembles the dashboard routes and middleware chain. inputPath
// and outputPath are the defaults for manual triggers.
func NewRouter(runs jobs.RunStore, trigger jobs.Trigger, events handlers.RunEvents, inputPath, outputPath string, log zerolog.Logger) http.Handler {
	runsHandler := handlers.NewRunsHandler(runs, trigger, inputPath, outputPath, log)
	wsHandler := handlers.NewWSHandler(runs, events, log)

	mux := http.NewServeMux()

	// Runs endpoints
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			runsHandler.ListRuns(w, r)
		case http.MethodPost:
			runsHandler.TriggerRun(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract run ID from path
			runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
			if runID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Run ID is required")
				return
			}
			runsHandler.GetRun(w, r, runID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Live run updates
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)
}

// Server wraps the dashboard HTTP server lifecycle.
type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// NewServer creates a dashboard server listening on addr.
func NewServer(addr string, handler http.Handler, log zerolog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Start serves until Shutdown is called. It reports nil on a clean shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("Starting status server")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
