package api

import (
	"net/http"

	"github.com/docalign/rag-engine/pkg/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:         "ok",
		Service:        "rag-engine",
		EmbeddingModel: s.embeddingModel,
		LLMModel:       s.oracleModel,
	})
}
