package api

import (
	"context"
	"fmt"
	"net/http"

	"geopoints/pkg/store"

	"github.com/rs/zerolog/log"
)

// APIServer represents the REST API server
type APIServer struct {
	repo   *store.PointsRepository
	port   int
	server *http.Server
}

// NewAPIServer creates a new API server instance
func NewAPIServer(repo *store.PointsRepository, port int) *APIServer {
	return &APIServer{
		repo: repo,
		port: port,
	}
}

// Handler builds the routed, logged handler of the server
func (s *APIServer) Handler() http.Handler {
	handler := NewAPIHandler(s.repo)

	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/api/v1/files", handler.ListFilesHandler)
	mux.HandleFunc("/api/v1/points", handler.PointsHandler)
	mux.HandleFunc("/api/v1/clip", handler.ClipHandler)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return RequestLogger(mux)
}

// Start starts the REST API server
func (s *APIServer) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	log.Info().Int("port", s.port).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Stop gracefully stops the REST API server
func (s *APIServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
