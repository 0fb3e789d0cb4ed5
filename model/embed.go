package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragserver/types"
)

// EmbedderInterface converts a batch of texts into one vector per text,
// preserving input order.
type EmbedderInterface interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// HTTPEmbedder calls an external embedding service. Requests are split
// into fixed-size batches to bound request size; batching never changes
// the output for identical input.
type HTTPEmbedder struct {
	apiURL    string
	batchSize int
	client    *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func NewHTTPEmbedder(apiURL string, batchSize int) *HTTPEmbedder {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &HTTPEmbedder{
		apiURL:    apiURL,
		batchSize: batchSize,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

// EmbedBatch embeds all texts in order. A failed batch discards every
// prior result and returns *types.EmbeddingServiceError.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedOne(ctx, texts[i:end])
		if err != nil {
			return nil, &types.EmbeddingServiceError{Batch: i / e.batchSize, Err: err}
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

func (e *HTTPEmbedder) embedOne(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: batch})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embResp.Data) != len(batch) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(embResp.Data), len(batch))
	}

	vectors := make([][]float32, len(embResp.Data))
	for i, item := range embResp.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}
