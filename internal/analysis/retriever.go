package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/docalign/rag-engine/internal/embeddings"
	"github.com/docalign/rag-engine/internal/storage"
	"github.com/docalign/rag-engine/internal/vectorindex"
)

// CandidateRetriever finds, for one source paragraph, the most similar
// paragraphs in a target document.
type CandidateRetriever struct {
	index    vectorindex.Index
	embedder embeddings.Provider
	logger   *slog.Logger
}

// NewCandidateRetriever creates a new CandidateRetriever.
func NewCandidateRetriever(index vectorindex.Index, embedder embeddings.Provider, logger *slog.Logger) *CandidateRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &CandidateRetriever{
		index:    index,
		embedder: embedder,
		logger:   logger,
	}
}

// Retrieve returns up to topK candidate matches in the target document,
// ordered by descending similarity. The source vector comes from the index;
// when the index has no vector for the paragraph yet, one is computed on the
// fly. No minimum score is enforced: weak candidates are filtered by the
// judge downstream, not here.
func (r *CandidateRetriever) Retrieve(ctx context.Context, source *storage.Paragraph, projectID, targetDocumentID uuid.UUID, topK int) ([]vectorindex.Match, error) {
	vector, err := r.index.GetVector(ctx, source.ID)
	if err != nil {
		if !errors.Is(err, vectorindex.ErrVectorNotFound) {
			return nil, fmt.Errorf("get vector for %s: %w", source.PositionTag, err)
		}

		r.logger.Debug("no stored vector, embedding on demand", "paragraph", source.PositionTag)
		vector, err = r.embedder.EmbedText(ctx, source.Text)
		if err != nil {
			return nil, fmt.Errorf("embed paragraph %s: %w", source.PositionTag, err)
		}
	}

	matches, err := r.index.QueryNearest(ctx, vector, vectorindex.Filter{
		ProjectID:  projectID,
		DocumentID: targetDocumentID,
	}, topK)
	if err != nil {
		return nil, fmt.Errorf("query candidates for %s: %w", source.PositionTag, err)
	}

	return matches, nil
}
