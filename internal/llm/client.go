// Package llm provides text-generation clients for local model-serving
// backends. Two wire surfaces are supported: the native Ollama API and the
// OpenAI-compatible chat completions API many local servers expose.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Client is the text-generation interface consumed by debate agents.
type Client interface {
	// Generate produces text for the given request. Failures are returned
	// as *GenerateError so callers can inspect the failure kind.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// HealthChecker is an optional interface for clients that can verify the
// backend is reachable before a debate starts.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ModelLister is an optional interface for clients that can enumerate the
// models available on the serving backend.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// GenerateRequest describes one generation call.
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float64

	// RoleHint names the requesting role for backend-side logging and
	// request attribution. Never interpreted by the client.
	RoleHint string
}

// GenerateResponse is the result of a successful generation call.
type GenerateResponse struct {
	Text string

	// TokensUsed is the completion token count reported by the backend,
	// or 0 when the backend does not report usage.
	TokensUsed int
}

// FailureKind classifies generation failures.
type FailureKind string

const (
	FailureTimeout           FailureKind = "timeout"
	FailureConnectionRefused FailureKind = "connection-refused"
	FailureMalformedOutput   FailureKind = "malformed-output"
)

// GenerateError carries the failure kind alongside the underlying cause.
type GenerateError struct {
	Kind FailureKind
	Err  error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerateError) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or an empty kind when err is not a
// generation failure.
func KindOf(err error) FailureKind {
	var ge *GenerateError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// classifyTransportError maps transport-level errors onto the failure
// taxonomy. Context expiry and net timeouts are timeouts; everything else on
// the dial path is a refused connection.
func classifyTransportError(err error) *GenerateError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &GenerateError{Kind: FailureTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &GenerateError{Kind: FailureTimeout, Err: err}
	}
	if strings.Contains(err.Error(), "context deadline exceeded") {
		return &GenerateError{Kind: FailureTimeout, Err: err}
	}
	return &GenerateError{Kind: FailureConnectionRefused, Err: err}
}

// Config selects and configures a generation backend.
type Config struct {
	// Provider: "ollama" or "openai".
	Provider string

	// Endpoint of the serving process, e.g. "http://localhost:11434".
	Endpoint string
}

// NewClient creates a generation client for the configured provider.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaClient(cfg.Endpoint), nil
	case "openai":
		return NewOpenAIClient(cfg.Endpoint), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s (use 'ollama' or 'openai')", cfg.Provider)
	}
}
