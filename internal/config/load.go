package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, layers it over defaults, applies environment
// overrides, and validates the result. An empty path returns the defaults
// (with env overrides applied).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers environment variables over the loaded config.
// Endpoint overrides apply to both generation and similarity backends when
// they point at the same server kind.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AGORA_OLLAMA_ENDPOINT"); v != "" {
		if c.Generation.Provider == "ollama" || c.Generation.Provider == "" {
			c.Generation.Endpoint = v
		}
		if c.Similarity.Provider == "ollama" || c.Similarity.Provider == "" {
			c.Similarity.Endpoint = v
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Similarity.APIKey = v
		if c.Similarity.Provider == "" {
			c.Similarity.Provider = "genai"
		}
	}
	if v := os.Getenv("AGORA_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
		if c.Logging.Level == "" {
			c.Logging.Level = "debug"
		}
	}
}
