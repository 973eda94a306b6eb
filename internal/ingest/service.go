package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/docalign/rag-engine/internal/embeddings"
	"github.com/docalign/rag-engine/internal/storage"
	"github.com/docalign/rag-engine/internal/vectorindex"
)

// ErrNoParagraphs is returned when the document to ingest has no paragraphs.
var ErrNoParagraphs = fmt.Errorf("document has no paragraphs")

// Service embeds a document's paragraphs and stores the vectors in the index.
type Service struct {
	paragraphs storage.ParagraphStore
	index      vectorindex.Index
	embedder   embeddings.Provider
	logger     *slog.Logger
}

// NewService creates a new ingestion service.
func NewService(paragraphs storage.ParagraphStore, index vectorindex.Index, embedder embeddings.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		paragraphs: paragraphs,
		index:      index,
		embedder:   embedder,
		logger:     logger,
	}
}

// IngestDocument fetches all paragraphs of the document, embeds them in one
// batch call and upserts the vectors keyed by paragraph. Re-ingesting
// replaces stored vectors wholesale. Returns the number of paragraphs
// processed.
func (s *Service) IngestDocument(ctx context.Context, projectID, documentID uuid.UUID) (int, error) {
	paragraphs, err := s.paragraphs.ListByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("list paragraphs: %w", err)
	}
	if len(paragraphs) == 0 {
		return 0, ErrNoParagraphs
	}

	s.logger.Info("ingesting document",
		"project", projectID,
		"document", documentID,
		"paragraphs", len(paragraphs),
	)

	texts := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		texts[i] = p.Text
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed paragraphs: %w", err)
	}
	if len(vectors) != len(paragraphs) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(paragraphs))
	}

	points := make([]vectorindex.Point, len(paragraphs))
	for i, p := range paragraphs {
		points[i] = vectorindex.Point{
			Key:         p.ID,
			Vector:      vectors[i],
			ProjectID:   projectID,
			DocumentID:  p.DocumentID,
			PositionTag: p.PositionTag,
			Index:       p.Index,
		}
	}

	if err := s.index.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("upsert vectors: %w", err)
	}

	s.logger.Info("document ingested", "document", documentID, "paragraphs", len(paragraphs))
	return len(paragraphs), nil
}
