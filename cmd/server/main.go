package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/docalign/rag-engine/internal/analysis"
	"github.com/docalign/rag-engine/internal/api"
	"github.com/docalign/rag-engine/internal/auth"
	"github.com/docalign/rag-engine/internal/config"
	"github.com/docalign/rag-engine/internal/embeddings"
	"github.com/docalign/rag-engine/internal/ingest"
	"github.com/docalign/rag-engine/internal/storage"
	"github.com/docalign/rag-engine/internal/vectorindex"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	paragraphs := storage.NewPostgresParagraphStore(db)
	documents := storage.NewPostgresDocumentRepository(db)

	client := embeddings.NewClient(os.Getenv(cfg.Embeddings.APIKeyEnv),
		embeddings.WithBaseURL(cfg.Embeddings.BaseURL),
		embeddings.WithModel(cfg.Embeddings.Model),
		embeddings.WithBatchSize(cfg.Embeddings.BatchSize),
		embeddings.WithMaxConcurrent(cfg.Embeddings.MaxConcurrent),
		embeddings.WithTimeout(cfg.EmbeddingsTimeout()),
	)
	embedder := embeddings.NewCachedProvider(client, embeddings.NewMemoryCache())

	index, err := buildVectorIndex(cfg, db)
	if err != nil {
		logger.Error("failed to build vector index", "error", err)
		os.Exit(1)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := index.Init(initCtx, embedder.Dimension()); err != nil {
		// The index may already exist or the backend may not be up yet;
		// queries will fail loudly if it truly is unreachable.
		logger.Warn("vector index init", "type", cfg.VectorIndex.Type, "error", err)
	}
	cancel()

	judge := analysis.NewOracleJudge(analysis.OracleConfig{
		APIKey:  os.Getenv(cfg.Oracle.APIKeyEnv),
		BaseURL: cfg.Oracle.BaseURL,
		Model:   cfg.Oracle.Model,
		Timeout: cfg.OracleTimeout(),
		Logger:  logger,
	})

	retriever := analysis.NewCandidateRetriever(index, embedder, logger)
	orchestrator := analysis.NewOrchestrator(paragraphs, documents, retriever, judge, analysis.OrchestratorConfig{
		MaxConcurrent:       cfg.Analysis.MaxConcurrent,
		UndeterminedRetries: cfg.Analysis.UndeterminedRetries,
		Logger:              logger,
	})
	ingestor := ingest.NewService(paragraphs, index, embedder, logger)

	var authService auth.Service
	if cfg.Server.AuthSecret != "" {
		authService = auth.NewJWTService(auth.Config{SecretKey: cfg.Server.AuthSecret})
	} else {
		logger.Warn("AUTH_SECRET not set, API is open")
	}

	server := api.NewServer(api.ServerConfig{
		Orchestrator:   orchestrator,
		Ingestor:       ingestor,
		Auth:           authService,
		Logger:         logger,
		AllowedOrigins: strings.Split(cfg.Server.AllowOrigins, ","),
		EmbeddingModel: cfg.Embeddings.Model,
		OracleModel:    cfg.Oracle.Model,
		DefaultTopK:    cfg.Analysis.DefaultTopK,
		MaxTopK:        cfg.Analysis.MaxTopK,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr, "vector_index", cfg.VectorIndex.Type)
		errCh <- server.Run(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}

func buildVectorIndex(cfg *config.Config, db *sql.DB) (vectorindex.Index, error) {
	switch cfg.VectorIndex.Type {
	case "pgvector":
		return vectorindex.NewPgvectorIndex(db), nil
	case "qdrant":
		q := cfg.VectorIndex.Qdrant
		apiKey := q.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("QDRANT_API_KEY")
		}
		return vectorindex.NewQdrantIndex(vectorindex.QdrantConfig{
			URL:        q.URL,
			APIKey:     apiKey,
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	case "memory":
		return vectorindex.NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unknown vector index type %q", cfg.VectorIndex.Type)
	}
}
