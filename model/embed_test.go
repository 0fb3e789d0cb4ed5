package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"ragserver/types"
)

// fakeEmbeddingServer answers like the external embedding service: one
// vector per input, derived from the input text so order is checkable.
func fakeEmbeddingServer(t *testing.T, requests *atomic.Int64, maxBatch *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if requests != nil {
			requests.Add(1)
		}
		if maxBatch != nil && int64(len(req.Input)) > maxBatch.Load() {
			maxBatch.Store(int64(len(req.Input)))
		}

		type item struct {
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i, text := range req.Input {
			data[i] = item{Embedding: []float32{float32(len(text)), 1}}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func TestHTTPEmbedder_OrderPreserving(t *testing.T) {
	srv := fakeEmbeddingServer(t, nil, nil)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, 32)
	texts := []string{"a", "bb", "ccc", "dddd"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, text := range texts {
		if vectors[i][0] != float32(len(text)) {
			t.Errorf("vector %d out of order: got %v for %q", i, vectors[i], text)
		}
	}
}

func TestHTTPEmbedder_BatchingDoesNotChangeOutput(t *testing.T) {
	var requests, maxBatch atomic.Int64
	srv := fakeEmbeddingServer(t, &requests, &maxBatch)
	defer srv.Close()

	texts := make([]string, 7)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%0*d", i+1, i)
	}

	small := NewHTTPEmbedder(srv.URL, 2)
	batched, err := small.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if got := requests.Load(); got != 4 {
		t.Errorf("expected 4 batches of size 2, got %d requests", got)
	}
	if got := maxBatch.Load(); got > 2 {
		t.Errorf("batch size %d exceeds configured 2", got)
	}

	big := NewHTTPEmbedder(srv.URL, 32)
	whole, err := big.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	for i := range whole {
		if whole[i][0] != batched[i][0] {
			t.Errorf("batching changed output at index %d", i)
		}
	}
}

func TestHTTPEmbedder_ServiceError(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) > 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1}}, {"embedding": []float32{2}}},
		})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, 2)
	texts := []string{"a", "b", "c", "d"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err == nil {
		t.Fatal("expected error from failing batch")
	}
	var embErr *types.EmbeddingServiceError
	if !errors.As(err, &embErr) {
		t.Fatalf("expected EmbeddingServiceError, got %T", err)
	}
	if vectors != nil {
		t.Error("partial results must be discarded on failure")
	}
}

func TestHTTPEmbedder_EmptyInput(t *testing.T) {
	e := NewHTTPEmbedder("http://unused", 32)
	vectors, err := e.EmbedBatch(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Errorf("expected nil, nil for empty input, got %v, %v", vectors, err)
	}
}
