package models

// AnalyzePairRequest asks for a pairwise consistency analysis of two
// documents within a project.
type AnalyzePairRequest struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	Doc1ID    string `json:"doc1_id" validate:"required,uuid4"`
	Doc2ID    string `json:"doc2_id" validate:"required,uuid4"`
	TopK      int    `json:"top_k" validate:"omitempty,min=1"`
}

// Location points into one paragraph's text. Offsets originate from the
// language model and are advisory hints, not verified spans.
type Location struct {
	ParagraphID string `json:"paragraph_id"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// Inconsistency is one confirmed semantic conflict between two paragraphs.
type Inconsistency struct {
	SourceDocumentID  string   `json:"source_document_id"`
	TargetDocumentID  string   `json:"target_document_id"`
	SourceParagraphID string   `json:"source_paragraph_id"`
	TargetParagraphID string   `json:"target_paragraph_id"`
	SourceExcerpt     string   `json:"source_excerpt"`
	TargetExcerpt     string   `json:"target_excerpt"`
	SourceLocation    Location `json:"source_location"`
	TargetLocation    Location `json:"target_location"`
	InconsistencyType string   `json:"inconsistency_type"`
	Severity          string   `json:"severity"`
	Description       string   `json:"description"`
	Explanation       string   `json:"explanation"`
	Recommendation    string   `json:"recommendation"`
}

// AnalyzePairResponse reports the outcome of one analysis run.
// PairsUndetermined counts candidate pairs whose judgment failed; they carry
// no inconsistencies and signal reduced analysis coverage.
type AnalyzePairResponse struct {
	Success           bool            `json:"success"`
	Message           string          `json:"message"`
	PairsAnalyzed     int             `json:"pairs_analyzed"`
	PairsUndetermined int             `json:"pairs_undetermined"`
	Inconsistencies   []Inconsistency `json:"inconsistencies"`
}

// IngestDocumentRequest asks for a document's paragraphs to be embedded and
// indexed.
type IngestDocumentRequest struct {
	ProjectID  string `json:"project_id" validate:"required,uuid4"`
	DocumentID string `json:"document_id" validate:"required,uuid4"`
}

// IngestDocumentResponse reports an ingestion outcome.
type IngestDocumentResponse struct {
	Success             bool   `json:"success"`
	Message             string `json:"message"`
	ParagraphsProcessed int    `json:"paragraphs_processed"`
}

// HealthResponse describes the running service.
type HealthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	EmbeddingModel string `json:"embedding_model"`
	LLMModel       string `json:"llm_model"`
}
