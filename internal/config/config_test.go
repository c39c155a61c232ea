package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.MaxRounds)
	assert.InDelta(t, 0.85, cfg.ConsensusThreshold, 1e-9)
	assert.Len(t, cfg.Debaters, 3)
	assert.Len(t, cfg.Models(), 4)
}

func TestValidate(t *testing.T) {
	t.Run("max_rounds zero rejected", func(t *testing.T) {
		cfg := Default()
		cfg.MaxRounds = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfiguration))
	})

	t.Run("threshold bounds", func(t *testing.T) {
		for _, threshold := range []float64{0, -0.1, 1.01} {
			cfg := Default()
			cfg.ConsensusThreshold = threshold
			assert.ErrorIs(t, cfg.Validate(), ErrConfiguration, "threshold %g", threshold)
		}
		cfg := Default()
		cfg.ConsensusThreshold = 1.0 // closed interval upper bound
		assert.NoError(t, cfg.Validate())
	})

	t.Run("fewer than two debaters rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Debaters = cfg.Debaters[:1]
		assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
	})

	t.Run("duplicate debater names rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Debaters[1].Name = cfg.Debaters[0].Name
		assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
	})

	t.Run("token limit must be positive", func(t *testing.T) {
		cfg := Default()
		cfg.Debaters[0].MaxTokens = 0
		assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)

		cfg = Default()
		cfg.Orchestrator.MaxTokens = -1
		assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
	})

	t.Run("inverted length bounds rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Generation.MinResponseLength = 500
		cfg.Generation.MaxResponseLength = 100
		assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
	})
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agora.yaml")
	content := []byte(`
max_rounds: 5
consensus_threshold: 0.9
generation:
  provider: openai
  endpoint: http://localhost:8080
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxRounds)
	assert.InDelta(t, 0.9, cfg.ConsensusThreshold, 1e-9)
	assert.Equal(t, "openai", cfg.Generation.Provider)
	assert.Equal(t, "http://localhost:8080", cfg.Generation.Endpoint)
	// Unspecified sections keep defaults.
	assert.Len(t, cfg.Debaters, 3)
}

func TestLoadInvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agora.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_rounds: 0\n"), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("ollama endpoint", func(t *testing.T) {
		t.Setenv("AGORA_OLLAMA_ENDPOINT", "http://10.0.0.5:11434")
		cfg := Default()
		cfg.applyEnvOverrides()
		assert.Equal(t, "http://10.0.0.5:11434", cfg.Generation.Endpoint)
		assert.Equal(t, "http://10.0.0.5:11434", cfg.Similarity.Endpoint)
	})

	t.Run("gemini key switches similarity provider only when unset", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "key-123")
		cfg := Default()
		cfg.Similarity.Provider = ""
		cfg.applyEnvOverrides()
		assert.Equal(t, "genai", cfg.Similarity.Provider)
		assert.Equal(t, "key-123", cfg.Similarity.APIKey)

		cfg = Default() // provider already "ollama"
		cfg.applyEnvOverrides()
		assert.Equal(t, "ollama", cfg.Similarity.Provider)
		assert.Equal(t, "key-123", cfg.Similarity.APIKey)
	})

	t.Run("debug flag", func(t *testing.T) {
		t.Setenv("AGORA_DEBUG", "1")
		cfg := Default()
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Logging.DebugMode)
	})
}
