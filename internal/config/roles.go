package config

import "fmt"

// RoleConfig describes one debate participant: its model, sampling settings,
// and persona.
type RoleConfig struct {
	// Name identifies the role in rounds and transcripts. Unique per debate.
	Name string `yaml:"name" json:"name"`

	// Model is the backend model identifier (e.g. "gemma2:2b").
	Model string `yaml:"model" json:"model"`

	// Temperature for generation.
	Temperature float64 `yaml:"temperature" json:"temperature"`

	// MaxTokens caps per-call output. Must be >= 1.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`

	// Personality is a short descriptor woven into prompts.
	Personality string `yaml:"personality" json:"personality"`

	// SystemPrompt is the fixed persona text.
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`
}

func (r *RoleConfig) validate(kind string) error {
	if r.Name == "" {
		return fmt.Errorf("%w: %s role missing name", ErrConfiguration, kind)
	}
	if r.Model == "" {
		return fmt.Errorf("%w: %s role %q missing model", ErrConfiguration, kind, r.Name)
	}
	if r.MaxTokens < 1 {
		return fmt.Errorf("%w: %s role %q max_tokens must be >= 1, got %d",
			ErrConfiguration, kind, r.Name, r.MaxTokens)
	}
	return nil
}

// DefaultOrchestrator returns the stock orchestrator role.
func DefaultOrchestrator() RoleConfig {
	return RoleConfig{
		Name:        "Orchestrator",
		Model:       "llama3.2:3b",
		Temperature: 0.3,
		MaxTokens:   2000,
		Personality: "analytical and diplomatic",
		SystemPrompt: `You are an expert debate orchestrator. Your role is to:
1. Analyze responses from the debater LLMs
2. Determine if they have reached consensus
3. Provide feedback to help them converge
4. Synthesize final summaries when consensus is reached
Be objective, thorough, and focus on finding common ground.`,
	}
}

// DefaultDebaters returns the stock three-debater panel.
func DefaultDebaters() []RoleConfig {
	return []RoleConfig{
		{
			Name:        "Analytical_Debater",
			Model:       "gemma2:2b",
			Temperature: 0.6,
			MaxTokens:   800,
			Personality: "analytical and fact-focused",
			SystemPrompt: `You are an analytical debater who focuses on facts, data, and logical reasoning.
Provide well-structured arguments based on evidence and clear reasoning.
Be thorough but concise in your responses.`,
		},
		{
			Name:        "Creative_Debater",
			Model:       "phi3:mini",
			Temperature: 0.8,
			MaxTokens:   800,
			Personality: "creative and perspective-oriented",
			SystemPrompt: `You are a creative debater who brings unique perspectives and innovative thinking.
Explore different angles, consider alternative viewpoints, and think outside the box.
Challenge assumptions while remaining constructive.`,
		},
		{
			Name:        "Practical_Debater",
			Model:       "tinyllama:1.1b",
			Temperature: 0.7,
			MaxTokens:   800,
			Personality: "practical and solution-focused",
			SystemPrompt: `You are a practical debater focused on real-world applications and solutions.
Emphasize actionable insights, practical implications, and concrete examples.
Bridge theory with practice in your arguments.`,
		},
	}
}
