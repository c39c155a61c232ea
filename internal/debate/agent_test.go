package debate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/config"
	"agora/internal/llm"
)

type flakyClient struct {
	failures int
	calls    int
	text     string
	err      error
}

func (c *flakyClient) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	c.calls++
	if c.calls <= c.failures {
		err := c.err
		if err == nil {
			err = &llm.GenerateError{Kind: llm.FailureTimeout, Err: context.DeadlineExceeded}
		}
		return nil, err
	}
	return &llm.GenerateResponse{Text: c.text, TokensUsed: 42}, nil
}

func testRole() config.RoleConfig {
	return config.RoleConfig{Name: "Analytical_Debater", Model: "gemma2:2b", MaxTokens: 800}
}

func TestDebaterRetriesWithinBudget(t *testing.T) {
	client := &flakyClient{failures: 1, text: "recovered answer"}
	gen := config.GenerationConfig{DebaterRetries: 1}
	agent := NewDebater(testRole(), gen, client)

	resp := agent.Respond(context.Background(), PromptRequest{Kind: PromptInitial, Question: "q", Round: 1})

	require.True(t, resp.Success)
	assert.Equal(t, "recovered answer", resp.Text)
	assert.Equal(t, 42, resp.TokenCount)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, "Analytical_Debater", resp.Agent)
}

func TestDebaterFailureIsDataNotError(t *testing.T) {
	client := &flakyClient{failures: 10}
	gen := config.GenerationConfig{DebaterRetries: 1}
	agent := NewDebater(testRole(), gen, client)

	resp := agent.Respond(context.Background(), PromptRequest{Kind: PromptInitial, Question: "q", Round: 1})

	assert.False(t, resp.Success)
	assert.Equal(t, string(llm.FailureTimeout), resp.FailureReason)
	assert.Equal(t, 2, client.calls, "one configured retry, then give up")
	assert.Equal(t, 1, resp.Round)
}

func TestDebaterZeroRetriesSingleAttempt(t *testing.T) {
	client := &flakyClient{failures: 10}
	agent := NewDebater(testRole(), config.GenerationConfig{}, client)

	resp := agent.Respond(context.Background(), PromptRequest{Kind: PromptInitial, Question: "q", Round: 1})

	assert.False(t, resp.Success)
	assert.Equal(t, 1, client.calls)
}

func TestOrchestratorAgentRetriesOnce(t *testing.T) {
	client := &flakyClient{failures: 1, text: "feedback text"}
	agent := NewOrchestratorAgent(testRole(), config.GenerationConfig{DebaterRetries: 5}, client)

	resp := agent.Respond(context.Background(), PromptRequest{Kind: PromptFeedback, Question: "q", Round: 1})

	assert.True(t, resp.Success)
	assert.Equal(t, 2, client.calls, "orchestrator budget is fixed at two attempts")
}

func TestRespondHonorsCancelledContext(t *testing.T) {
	client := &flakyClient{text: "never used"}
	agent := NewDebater(testRole(), config.GenerationConfig{DebaterRetries: 3}, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := agent.Respond(ctx, PromptRequest{Kind: PromptInitial, Question: "q", Round: 1})

	assert.False(t, resp.Success)
	assert.Equal(t, 0, client.calls, "no attempts once the context is done")
	assert.NotEmpty(t, resp.FailureReason)
}

func TestResponseLengthFlags(t *testing.T) {
	gen := config.GenerationConfig{MinResponseLength: 10, MaxResponseLength: 20}

	cases := []struct {
		name string
		text string
		want LengthFlag
	}{
		{"within bounds", "a dozen chars.", LengthOK},
		{"too short", "tiny", LengthTooShort},
		{"too long", "this response runs well past the cap", LengthTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			agent := NewDebater(testRole(), gen, &flakyClient{text: tc.text})
			resp := agent.Respond(context.Background(), PromptRequest{Kind: PromptInitial, Question: "q", Round: 1})
			require.True(t, resp.Success)
			assert.Equal(t, tc.want, resp.LengthFlag)
		})
	}
}

func TestFailureReasonForPlainError(t *testing.T) {
	client := &flakyClient{failures: 10, err: errors.New("wire corrupted")}
	agent := NewDebater(testRole(), config.GenerationConfig{}, client)

	resp := agent.Respond(context.Background(), PromptRequest{Kind: PromptInitial, Question: "q", Round: 1})

	assert.False(t, resp.Success)
	assert.Equal(t, "wire corrupted", resp.FailureReason)
}
