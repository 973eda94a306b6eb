package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/docalign/rag-engine/internal/analysis"
	"github.com/docalign/rag-engine/pkg/models"
)

// handleAnalyzePair runs the pairwise inconsistency analysis for two
// documents of one project.
func (s *Server) handleAnalyzePair(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzePairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	projectID, _ := uuid.Parse(req.ProjectID)
	doc1ID, _ := uuid.Parse(req.Doc1ID)
	doc2ID, _ := uuid.Parse(req.Doc2ID)

	topK := req.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}

	result, err := s.orchestrator.Analyze(r.Context(), projectID, doc1ID, doc2ID, topK)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrNoParagraphs):
			respondError(w, http.StatusNotFound, "one or both documents have no paragraphs")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respondError(w, http.StatusServiceUnavailable, "analysis cancelled")
		default:
			s.logger.Error("analysis failed", "error", err)
			respondError(w, http.StatusInternalServerError, "analysis failed")
		}
		return
	}

	inconsistencies := make([]models.Inconsistency, len(result.Records))
	for i, rec := range result.Records {
		inconsistencies[i] = toInconsistency(rec)
	}

	respondJSON(w, http.StatusOK, models.AnalyzePairResponse{
		Success:           true,
		Message:           fmt.Sprintf("Analysis complete. Found %d inconsistencies.", len(inconsistencies)),
		PairsAnalyzed:     result.PairsAnalyzed,
		PairsUndetermined: result.PairsUndetermined,
		Inconsistencies:   inconsistencies,
	})
}

func toInconsistency(rec analysis.Record) models.Inconsistency {
	return models.Inconsistency{
		SourceDocumentID:  rec.SourceDocumentID.String(),
		TargetDocumentID:  rec.TargetDocumentID.String(),
		SourceParagraphID: rec.SourceParagraphID,
		TargetParagraphID: rec.TargetParagraphID,
		SourceExcerpt:     rec.SourceExcerpt,
		TargetExcerpt:     rec.TargetExcerpt,
		SourceLocation: models.Location{
			ParagraphID: rec.SourceParagraphID,
			StartOffset: rec.SourceLocation.StartOffset,
			EndOffset:   rec.SourceLocation.EndOffset,
		},
		TargetLocation: models.Location{
			ParagraphID: rec.TargetParagraphID,
			StartOffset: rec.TargetLocation.StartOffset,
			EndOffset:   rec.TargetLocation.EndOffset,
		},
		InconsistencyType: string(rec.Type),
		Severity:          string(rec.Severity),
		Description:       rec.Description,
		Explanation:       rec.Explanation,
		Recommendation:    rec.Recommendation,
	}
}
