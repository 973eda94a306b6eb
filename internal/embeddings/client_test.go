package embeddings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestClient_EmbedTexts_PreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		// Return embeddings deliberately out of order; the client must
		// reassemble by index.
		resp := EmbeddingResponse{Model: req.Model}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, EmbeddingData{
				Index:     i,
				Embedding: []float32{float32(i)},
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))

	results, err := client.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(results))
	}

	for i, emb := range results {
		if len(emb) != 1 || emb[0] != float32(i) {
			t.Errorf("embedding %d out of order: %v", i, emb)
		}
	}
}

func TestClient_EmbedTexts_Batching(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		var req EmbeddingRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := EmbeddingResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, EmbeddingData{Index: i, Embedding: []float32{1}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithBatchSize(2))

	texts := []string{"a", "b", "c", "d", "e"}
	results, err := client.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	if len(results) != len(texts) {
		t.Errorf("expected %d embeddings, got %d", len(texts), len(results))
	}

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 batch calls for 5 texts with batch size 2, got %d", got)
	}
}

func TestClient_EmbedText_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))

	_, err := client.EmbedText(context.Background(), "some text")
	if err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestCachedProvider_SkipsProviderOnHit(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		var req EmbeddingRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := EmbeddingResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, EmbeddingData{Index: i, Embedding: []float32{42}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	provider := NewCachedProvider(NewClient("test-key", WithBaseURL(srv.URL)), NewMemoryCache())

	for i := 0; i < 2; i++ {
		results, err := provider.EmbedTexts(context.Background(), []string{"same text"})
		if err != nil {
			t.Fatalf("embed round %d: %v", i, err)
		}
		if len(results) != 1 || results[0][0] != 42 {
			t.Fatalf("unexpected result round %d: %v", i, results)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 provider call with warm cache, got %d", got)
	}
}

func TestGenerateCacheKey_Distinct(t *testing.T) {
	a := GenerateCacheKey(DefaultModel, "text one")
	b := GenerateCacheKey(DefaultModel, "text two")
	c := GenerateCacheKey(ModelTextEmbedding3Large, "text one")

	if a == b {
		t.Error("different texts must produce different keys")
	}
	if a == c {
		t.Error("different models must produce different keys")
	}
	if len(a) != 16 {
		t.Errorf("expected 16-char key, got %d", len(a))
	}
}

func TestClient_Truncate_LongInput(t *testing.T) {
	client := NewClient("test-key")
	if client.encoder == nil {
		t.Skip("token encoder unavailable")
	}

	long := ""
	for i := 0; i < maxInputTokens+100; i++ {
		long += fmt.Sprintf("word%d ", i)
	}

	truncated := client.truncate(long)
	if len(truncated) >= len(long) {
		t.Error("expected over-limit input to be truncated")
	}

	if got := client.encoder.Encode(truncated, nil, nil); len(got) > maxInputTokens {
		t.Errorf("truncated input still exceeds token limit: %d", len(got))
	}
}
