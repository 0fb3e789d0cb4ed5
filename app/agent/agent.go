package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"ragserver/types"
)

// Generator invokes an external text-generation capability with a
// question and retrieved context, returning one answer or failing.
type Generator interface {
	GenerateAnswer(ctx context.Context, question string, contextTexts []string) (string, error)
}

const systemPrompt = "You are a helpful assistant. Use the provided context to answer the question. " +
	"If the answer is not in the context, try to answer from your knowledge."

const noContextMarker = "No additional context provided."

type LLMAgent struct {
	apiURL string
	model  string
	apiKey string
	client *http.Client
	logger *zap.SugaredLogger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewLLMAgent(apiURL, model, apiKey string, logger *zap.SugaredLogger) *LLMAgent {
	return &LLMAgent{
		apiURL: apiURL,
		model:  model,
		apiKey: apiKey,
		client: &http.Client{Timeout: 120 * time.Second},
		logger: logger,
	}
}

// GenerateAnswer makes a single completion attempt. Any non-success
// response or malformed body is surfaced as *types.GenerationError; there
// is no retry.
func (a *LLMAgent) GenerateAnswer(ctx context.Context, question string, contextTexts []string) (string, error) {
	contextText := strings.Join(contextTexts, "\n\n")
	if contextText == "" {
		contextText = noContextMarker
	}

	reqBody, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)},
		},
	})
	if err != nil {
		return "", &types.GenerationError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	if count, err := countTokens(reqBody); err == nil {
		a.logger.Infow("prompt built", "tokens", count, "bytes", len(reqBody))
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", &types.GenerationError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", &types.GenerationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &types.GenerationError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("llm API error: %s", string(body)),
		}
	}

	var genResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", &types.GenerationError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(genResp.Choices) == 0 || genResp.Choices[0].Message.Content == "" {
		return "", &types.GenerationError{Err: errors.New("empty completion in response")}
	}

	a.logger.Infow("llm answered", "took", time.Since(start))
	return genResp.Choices[0].Message.Content, nil
}

func countTokens(data []byte) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(string(data), nil, nil)), nil
}
