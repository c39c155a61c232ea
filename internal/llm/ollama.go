package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agora/internal/logging"
)

// OllamaClient generates text through the native Ollama API.
type OllamaClient struct {
	endpoint string
	client   *http.Client
}

// NewOllamaClient creates a client for a local Ollama server.
// Per-call deadlines come from the caller's context, so the underlying HTTP
// client carries no timeout of its own.
func NewOllamaClient(endpoint string) *OllamaClient {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &OllamaClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{},
	}
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Generate issues a non-streaming generation call.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	timer := logging.StartTimer(logging.CategoryAPI, fmt.Sprintf("ollama generate model=%s role=%s", req.Model, req.RoleHint))
	defer timer.Stop()

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  req.Model,
		System: req.SystemPrompt,
		Prompt: req.Prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		logging.Get(logging.CategoryAPI).Error("ollama request failed: %v", err)
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		logging.Get(logging.CategoryAPI).Error("%v", err)
		return nil, &GenerateError{Kind: FailureMalformedOutput, Err: err}
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &GenerateError{Kind: FailureMalformedOutput, Err: fmt.Errorf("decode response: %w", err)}
	}
	if result.Response == "" {
		return nil, &GenerateError{Kind: FailureMalformedOutput, Err: fmt.Errorf("empty response from model %s", req.Model)}
	}

	logging.APIDebug("ollama generate ok: model=%s tokens=%d chars=%d", req.Model, result.EvalCount, len(result.Response))
	return &GenerateResponse{Text: result.Response, TokensUsed: result.EvalCount}, nil
}

// ListModels returns the model names available on the server.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d listing models", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &GenerateError{Kind: FailureMalformedOutput, Err: fmt.Errorf("decode tags: %w", err)}
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// HealthCheck verifies the server answers within a short deadline.
func (c *OllamaClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("ollama health check: %w", err)
	}
	return nil
}
