package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driving"
	"github.com/Terronex-dev/aifbin-recall/internal/logger"
)

// maxBodyBytes caps request bodies at 10 MiB.
const maxBodyBytes = 10 << 20

// Settings is the static configuration reported by GET /settings.
type Settings struct {
	DBPath         string  `json:"db_path"`
	EmbeddingModel string  `json:"embedding_model"`
	EmbeddingDims  int     `json:"embedding_dims"`
	HybridWeight   float64 `json:"hybrid_weight"`
	Limit          int     `json:"limit"`
}

// Server binds the recall facade to HTTP.
type Server struct {
	service  driving.RecallService
	settings Settings
	mux      *http.ServeMux
}

// NewServer creates the HTTP server around the facade.
func NewServer(service driving.RecallService, settings Settings) *Server {
	s := &Server{
		service:  service,
		settings: settings,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return withCORS(withBodyLimit(s.mux))
}

// Run serves on addr until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	logger.Info("HTTP API listening on %s", addr)
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// routes registers all endpoints.
func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /collections", s.handleListCollections)
	s.mux.HandleFunc("GET /collections/{name}", s.handleGetCollection)
	s.mux.HandleFunc("POST /collections/{name}", s.handleCreateCollection)
	s.mux.HandleFunc("DELETE /collections/{name}", s.handleDeleteCollection)
	s.mux.HandleFunc("POST /search", s.handleSearch)
	s.mux.HandleFunc("GET /search", s.handleSearchGet)
	s.mux.HandleFunc("GET /recall/{id}", s.handleRecall)
	s.mux.HandleFunc("POST /index", s.handleIndex)
	s.mux.HandleFunc("GET /files", s.handleListFiles)
	s.mux.HandleFunc("GET /files/{path...}", s.handleGetFile)
	s.mux.HandleFunc("DELETE /files/{path...}", s.handleDeleteFile)
	s.mux.HandleFunc("DELETE /chunks/{id}", s.handleDeleteChunk)
	s.mux.HandleFunc("GET /settings", s.handleSettings)
}

// withBodyLimit caps request body sizes.
func withBodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// withCORS allows cross-origin browser clients.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// errorEnvelope is the JSON error body.
type errorEnvelope struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// writeJSON encodes v with the JSON content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError maps domain error kinds onto HTTP statuses without losing
// kind information.
func writeError(w http.ResponseWriter, err error) {
	env := errorEnvelope{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownCollection):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrDimMismatch):
		status = http.StatusBadRequest
		env.Hint = "query vector length must match the collection's embedding dimensionality"
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		status = http.StatusServiceUnavailable
		env.Hint = "supply an embedding in the request or configure the local encoder"
	}

	writeJSON(w, status, env)
}
