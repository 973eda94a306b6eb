package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestQdrantIndex_QueryNearest(t *testing.T) {
	projectID := uuid.New()
	documentID := uuid.New()
	key := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/test/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req struct {
			Vector []float32      `json:"vector"`
			Limit  int            `json:"limit"`
			Filter map[string]any `json:"filter"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Limit != 3 {
			t.Errorf("expected limit 3, got %d", req.Limit)
		}
		must, ok := req.Filter["must"].([]any)
		if !ok || len(must) != 2 {
			t.Errorf("expected 2 must conditions, got %v", req.Filter["must"])
		}

		fmt.Fprintf(w, `{"result":[{"id":"%s","score":0.88}]}`, key)
	}))
	defer srv.Close()

	idx := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "test"})

	matches, err := idx.QueryNearest(context.Background(), []float32{0.5, 0.5}, Filter{ProjectID: projectID, DocumentID: documentID}, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}

	if matches[0].Key != key || matches[0].Score != 0.88 {
		t.Errorf("unexpected match: %+v", matches[0])
	}
}

func TestQdrantIndex_GetVector_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":[]}`)
	}))
	defer srv.Close()

	idx := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "test"})

	_, err := idx.GetVector(context.Background(), uuid.New())
	if err != ErrVectorNotFound {
		t.Errorf("expected ErrVectorNotFound, got %v", err)
	}
}

func TestQdrantIndex_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection missing", http.StatusNotFound)
	}))
	defer srv.Close()

	idx := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "test"})

	_, err := idx.QueryNearest(context.Background(), []float32{1}, Filter{}, 1)
	if err == nil {
		t.Error("expected error for non-200 status")
	}
}
