// Package config holds all agora configuration. Configuration is an explicit
// struct passed to the debate manager at start time; nothing in the core reads
// process-wide state.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfiguration marks invalid session parameters. All validation failures
// wrap this sentinel so callers can reject bad configs with errors.Is.
var ErrConfiguration = errors.New("invalid configuration")

// Config holds the full configuration for a debate session.
type Config struct {
	// MaxRounds caps the number of debate rounds. Must be >= 1.
	MaxRounds int `yaml:"max_rounds" json:"max_rounds"`

	// ConsensusThreshold is the minimum aggregate pairwise similarity
	// required to end the debate successfully. Must be in (0, 1].
	ConsensusThreshold float64 `yaml:"consensus_threshold" json:"consensus_threshold"`

	// Debaters configures the independent debater roles. At least two.
	Debaters []RoleConfig `yaml:"debaters" json:"debaters"`

	// Orchestrator configures the role that reviews responses, produces
	// convergence feedback, and writes the final summary.
	Orchestrator RoleConfig `yaml:"orchestrator" json:"orchestrator"`

	// Generation configures the text-generation backend.
	Generation GenerationConfig `yaml:"generation" json:"generation"`

	// Similarity configures the embedding backend used for consensus.
	Similarity SimilarityConfig `yaml:"similarity" json:"similarity"`

	// Logging configures debug-gated category logging.
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Store configures the optional archive of finished debates.
	Store StoreConfig `yaml:"store" json:"store"`
}

// GenerationConfig configures the text-generation client and the
// orchestration-level call policy.
type GenerationConfig struct {
	// Provider: "ollama" (native API) or "openai" (OpenAI-compatible /v1).
	Provider string `yaml:"provider" json:"provider"`

	// Endpoint of the local model-serving process.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// CallTimeout bounds each individual generation call.
	CallTimeout time.Duration `yaml:"call_timeout" json:"call_timeout"`

	// RoundBudget bounds the total wait for one round of concurrent
	// debater calls, guarding against cumulative stalls.
	RoundBudget time.Duration `yaml:"round_budget" json:"round_budget"`

	// DebaterRetries is the number of extra attempts per debater call
	// before the failure is recorded as a failed response.
	DebaterRetries int `yaml:"debater_retries" json:"debater_retries"`

	// RetryFailedRound re-dispatches a round once when fewer than two
	// debaters succeeded, before the session fails.
	RetryFailedRound bool `yaml:"retry_failed_round" json:"retry_failed_round"`

	// MinResponseLength / MaxResponseLength bound acceptable response
	// sizes in characters. Out-of-bounds responses are flagged, not dropped.
	MinResponseLength int `yaml:"min_response_length" json:"min_response_length"`
	MaxResponseLength int `yaml:"max_response_length" json:"max_response_length"`
}

// SimilarityConfig configures the embedding backend for consensus scoring.
type SimilarityConfig struct {
	// Provider: "ollama" (local) or "genai" (Google GenAI).
	Provider string `yaml:"provider" json:"provider"`

	// Endpoint of the Ollama server (ollama provider only).
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Model is the embedding model name.
	Model string `yaml:"model" json:"model"`

	// APIKey for the genai provider.
	APIKey string `yaml:"api_key" json:"api_key"`
}

// LoggingConfig configures the category logging subsystem.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode"`
	Level      string          `yaml:"level" json:"level"`
	Categories map[string]bool `yaml:"categories" json:"categories"`
}

// StoreConfig configures the optional SQLite debate archive.
type StoreConfig struct {
	// Enabled turns on archiving of terminal sessions.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Path to the SQLite database file.
	Path string `yaml:"path" json:"path"`
}

// Default returns the stock three-debater configuration: an analytical, a
// creative, and a practical debater moderated by a small orchestrator model,
// all served by a local Ollama instance.
func Default() *Config {
	return &Config{
		MaxRounds:          3,
		ConsensusThreshold: 0.85,
		Debaters:           DefaultDebaters(),
		Orchestrator:       DefaultOrchestrator(),
		Generation: GenerationConfig{
			Provider:          "ollama",
			Endpoint:          "http://localhost:11434",
			CallTimeout:       60 * time.Second,
			RoundBudget:       3 * time.Minute,
			DebaterRetries:    1,
			RetryFailedRound:  true,
			MinResponseLength: 50,
			MaxResponseLength: 1000,
		},
		Similarity: SimilarityConfig{
			Provider: "ollama",
			Endpoint: "http://localhost:11434",
			Model:    "embeddinggemma",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Validate checks the configuration against the session invariants. Any
// violation is reported as an ErrConfiguration-wrapped error.
func (c *Config) Validate() error {
	if c.MaxRounds < 1 {
		return fmt.Errorf("%w: max_rounds must be >= 1, got %d", ErrConfiguration, c.MaxRounds)
	}
	if c.ConsensusThreshold <= 0 || c.ConsensusThreshold > 1 {
		return fmt.Errorf("%w: consensus_threshold must be in (0,1], got %g", ErrConfiguration, c.ConsensusThreshold)
	}
	if len(c.Debaters) < 2 {
		return fmt.Errorf("%w: at least two debater roles required, got %d", ErrConfiguration, len(c.Debaters))
	}
	seen := make(map[string]bool, len(c.Debaters))
	for i := range c.Debaters {
		d := &c.Debaters[i]
		if err := d.validate("debater"); err != nil {
			return err
		}
		if seen[d.Name] {
			return fmt.Errorf("%w: duplicate debater name %q", ErrConfiguration, d.Name)
		}
		seen[d.Name] = true
	}
	if err := c.Orchestrator.validate("orchestrator"); err != nil {
		return err
	}
	if c.Generation.MinResponseLength < 0 ||
		(c.Generation.MaxResponseLength > 0 && c.Generation.MaxResponseLength < c.Generation.MinResponseLength) {
		return fmt.Errorf("%w: response length bounds inverted (%d > %d)",
			ErrConfiguration, c.Generation.MinResponseLength, c.Generation.MaxResponseLength)
	}
	if c.Generation.DebaterRetries < 0 {
		return fmt.Errorf("%w: debater_retries must be >= 0", ErrConfiguration)
	}
	return nil
}

// Models returns every model the configuration references, orchestrator first.
// Used by the CLI to check availability against the serving backend.
func (c *Config) Models() []string {
	models := make([]string, 0, len(c.Debaters)+1)
	models = append(models, c.Orchestrator.Model)
	for _, d := range c.Debaters {
		models = append(models, d.Model)
	}
	return models
}
