package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/docalign/rag-engine/internal/ingest"
	"github.com/docalign/rag-engine/pkg/models"
)

// handleIngestDocument embeds a document's paragraphs and stores the vectors
// in the index.
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req models.IngestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	projectID, _ := uuid.Parse(req.ProjectID)
	documentID, _ := uuid.Parse(req.DocumentID)

	processed, err := s.ingestor.IngestDocument(r.Context(), projectID, documentID)
	if err != nil {
		if errors.Is(err, ingest.ErrNoParagraphs) {
			respondError(w, http.StatusNotFound, "no paragraphs found for document")
			return
		}
		s.logger.Error("ingestion failed", "error", err)
		respondError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	respondJSON(w, http.StatusOK, models.IngestDocumentResponse{
		Success:             true,
		Message:             fmt.Sprintf("Successfully ingested %d paragraphs", processed),
		ParagraphsProcessed: processed,
	})
}
