package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/docalign/rag-engine/internal/analysis"
	"github.com/docalign/rag-engine/internal/auth"
	"github.com/docalign/rag-engine/internal/ingest"
)

// ServerConfig wires the server's collaborators.
type ServerConfig struct {
	Orchestrator *analysis.Orchestrator
	Ingestor     *ingest.Service
	// Auth is optional; when nil the API is open (local development).
	Auth           auth.Service
	Logger         *slog.Logger
	AllowedOrigins []string
	EmbeddingModel string
	OracleModel    string
	DefaultTopK    int
	MaxTopK        int
}

type Server struct {
	router       *chi.Mux
	orchestrator *analysis.Orchestrator
	ingestor     *ingest.Service
	validate     *validator.Validate
	logger       *slog.Logger
	httpServer   *http.Server

	embeddingModel string
	oracleModel    string
	defaultTopK    int
	maxTopK        int
}

// NewServer creates the HTTP server with routes and middleware set up.
func NewServer(config ServerConfig) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = 3
	}
	if config.MaxTopK <= 0 {
		config.MaxTopK = 20
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:         r,
		orchestrator:   config.Orchestrator,
		ingestor:       config.Ingestor,
		validate:       validator.New(),
		logger:         config.Logger,
		embeddingModel: config.EmbeddingModel,
		oracleModel:    config.OracleModel,
		defaultTopK:    config.DefaultTopK,
		maxTopK:        config.MaxTopK,
	}
	s.setupRoutes(config.Auth)

	return s
}

func (s *Server) setupRoutes(authService auth.Service) {
	// Health check
	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		if authService != nil {
			r.Use(auth.Middleware(authService))
		}

		r.Route("/consistency", func(r chi.Router) {
			r.Post("/analyze-pair", s.handleAnalyzePair)
		})

		r.Route("/embeddings", func(r chi.Router) {
			r.Post("/ingest-document", s.handleIngestDocument)
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts serving on addr and blocks until the listener fails or the
// server is shut down.
func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
