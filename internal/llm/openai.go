package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"agora/internal/logging"
)

// OpenAIClient generates text through an OpenAI-compatible chat completions
// API, the surface most local serving stacks (vLLM, llama.cpp server, LM
// Studio, Ollama's /v1 shim) expose.
type OpenAIClient struct {
	endpoint string
	client   *http.Client
}

// NewOpenAIClient creates a client for an OpenAI-compatible server.
func NewOpenAIClient(endpoint string) *OpenAIClient {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &OpenAIClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	User        string        `json:"user,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate issues a chat completion call.
func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	timer := logging.StartTimer(logging.CategoryAPI, fmt.Sprintf("openai generate model=%s role=%s", req.Model, req.RoleHint))
	defer timer.Stop()

	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		User:        req.RoleHint,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		logging.Get(logging.CategoryAPI).Error("openai-compatible request failed: %v", err)
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		logging.Get(logging.CategoryAPI).Error("%v", err)
		return nil, &GenerateError{Kind: FailureMalformedOutput, Err: err}
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &GenerateError{Kind: FailureMalformedOutput, Err: fmt.Errorf("decode response: %w", err)}
	}
	if result.Error != nil {
		return nil, &GenerateError{Kind: FailureMalformedOutput, Err: fmt.Errorf("backend error: %s", result.Error.Message)}
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return nil, &GenerateError{Kind: FailureMalformedOutput, Err: fmt.Errorf("no completion choices for model %s", req.Model)}
	}

	text := result.Choices[0].Message.Content
	logging.APIDebug("openai generate ok: model=%s tokens=%d chars=%d", req.Model, result.Usage.CompletionTokens, len(text))
	return &GenerateResponse{Text: text, TokensUsed: result.Usage.CompletionTokens}, nil
}
