package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"ragserver/types"
)

func newTestAgent(url string) *LLMAgent {
	return NewLLMAgent(url, "test-model", "test-key", zap.NewNop().Sugar())
}

func TestLLMAgent_GenerateAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("unexpected model: %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "retrieved passage") {
			t.Errorf("context texts missing from prompt: %q", req.Messages[1].Content)
		}
		if !strings.Contains(req.Messages[1].Content, "Question: What is X?") {
			t.Errorf("question missing from prompt: %q", req.Messages[1].Content)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "X is Y."}}},
		})
	}))
	defer srv.Close()

	answer, err := newTestAgent(srv.URL).GenerateAnswer(context.Background(), "What is X?", []string{"retrieved passage"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if answer != "X is Y." {
		t.Errorf("unexpected answer: %q", answer)
	}
}

func TestLLMAgent_EmptyContextMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !strings.Contains(req.Messages[1].Content, noContextMarker) {
			t.Errorf("empty context must be replaced with marker, got: %q", req.Messages[1].Content)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	if _, err := newTestAgent(srv.URL).GenerateAnswer(context.Background(), "q", nil); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
}

func TestLLMAgent_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestAgent(srv.URL).GenerateAnswer(context.Background(), "q", nil)
	var genErr *types.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("unexpected status in error: %d", genErr.StatusCode)
	}
}

func TestLLMAgent_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	_, err := newTestAgent(srv.URL).GenerateAnswer(context.Background(), "q", nil)
	var genErr *types.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError for malformed body, got %v", err)
	}
}

func TestLLMAgent_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	_, err := newTestAgent(srv.URL).GenerateAnswer(context.Background(), "q", nil)
	var genErr *types.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError for empty choices, got %v", err)
	}
}
