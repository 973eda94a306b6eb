package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const defaultQdrantTimeout = 15 * time.Second

// QdrantIndex is a minimal REST client to Qdrant. It assumes cosine distance
// and creates the collection on Init if missing.
type QdrantIndex struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// QdrantConfig holds connection details for a Qdrant index.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewQdrantIndex creates a new QdrantIndex.
func NewQdrantIndex(cfg QdrantConfig) *QdrantIndex {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultQdrantTimeout
	}
	return &QdrantIndex{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Init creates the collection with cosine distance if it does not exist.
func (x *QdrantIndex) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 for an existing collection with the same schema.
	return x.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", x.collection), body, nil)
}

// Upsert inserts or replaces points with their filter payload.
func (x *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qp := make([]map[string]any, len(points))
	for i, p := range points {
		qp[i] = map[string]any{
			"id":     p.Key.String(),
			"vector": p.Vector,
			"payload": map[string]any{
				"project_id":      p.ProjectID.String(),
				"document_id":     p.DocumentID.String(),
				"paragraph_id":    p.PositionTag,
				"paragraph_index": p.Index,
			},
		}
	}

	body := map[string]any{"points": qp}
	return x.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", x.collection), body, nil)
}

// GetVector retrieves a stored vector by point ID.
func (x *QdrantIndex) GetVector(ctx context.Context, key uuid.UUID) ([]float32, error) {
	body := map[string]any{
		"ids":         []string{key.String()},
		"with_vector": true,
	}

	var resp struct {
		Result []struct {
			Vector []float32 `json:"vector"`
		} `json:"result"`
	}
	if err := x.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points", x.collection), body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Result) == 0 || len(resp.Result[0].Vector) == 0 {
		return nil, ErrVectorNotFound
	}

	return resp.Result[0].Vector, nil
}

// QueryNearest searches the collection restricted to one project/document.
func (x *QdrantIndex) QueryNearest(ctx context.Context, vector []float32, filter Filter, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 5
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": false,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "project_id", "match": map[string]any{"value": filter.ProjectID.String()}},
				{"key": "document_id", "match": map[string]any{"value": filter.DocumentID.String()}},
			},
		},
	}

	var resp struct {
		Result []struct {
			ID    string  `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}
	if err := x.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", x.collection), body, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		key, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("unexpected point id %q: %w", r.ID, err)
		}
		matches = append(matches, Match{Key: key, Score: r.Score})
	}

	return matches, nil
}

// DeleteByDocument removes all points matching one project/document pair.
func (x *QdrantIndex) DeleteByDocument(ctx context.Context, projectID, documentID uuid.UUID) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "project_id", "match": map[string]any{"value": projectID.String()}},
				{"key": "document_id", "match": map[string]any{"value": documentID.String()}},
			},
		},
	}
	return x.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", x.collection), body, nil)
}

func (x *QdrantIndex) do(ctx context.Context, method, path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.url+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qdrant error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
