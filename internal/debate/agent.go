package debate

import (
	"context"
	"time"

	"agora/internal/config"
	"agora/internal/consensus"
	"agora/internal/llm"
	"agora/internal/logging"
)

// Role tags an agent's function in the debate.
type Role string

const (
	// RoleDebater produces an independent opinion each round.
	RoleDebater Role = "debater"

	// RoleOrchestrator reviews all responses, produces convergence
	// feedback, and the final summary.
	RoleOrchestrator Role = "orchestrator"
)

// PromptKind selects which prompt an agent renders.
type PromptKind int

const (
	PromptInitial PromptKind = iota
	PromptRebuttal
	PromptFeedback
	PromptSummary
)

// PromptRequest carries everything an agent needs to respond in a round.
type PromptRequest struct {
	Kind     PromptKind
	Question string
	Round    int

	// Snapshot is the immutable shared-context view for this round.
	Snapshot ContextSnapshot

	// OwnPrevious is the agent's previous-round response text (rebuttals).
	OwnPrevious string

	// RoundResponses and Verdict feed the orchestrator prompts.
	RoundResponses []Response
	Verdict        *consensus.Verdict
}

// Agent wraps one role configuration and the generation client. Generation
// failures are absorbed into the returned Response, never raised: the
// orchestration layer applies its own retry and continuation policy over
// failure-as-data.
type Agent struct {
	role   Role
	cfg    config.RoleConfig
	gen    config.GenerationConfig
	client llm.Client
}

// NewDebater creates a debater agent.
func NewDebater(rc config.RoleConfig, gen config.GenerationConfig, client llm.Client) *Agent {
	return &Agent{role: RoleDebater, cfg: rc, gen: gen, client: client}
}

// NewOrchestratorAgent creates the orchestrator agent.
func NewOrchestratorAgent(rc config.RoleConfig, gen config.GenerationConfig, client llm.Client) *Agent {
	return &Agent{role: RoleOrchestrator, cfg: rc, gen: gen, client: client}
}

// Name returns the agent's configured role name.
func (a *Agent) Name() string { return a.cfg.Name }

// Role returns the agent's role tag.
func (a *Agent) Role() Role { return a.role }

// attempts returns the total call attempts for this agent: debaters retry
// per configuration, the orchestrator exactly once.
func (a *Agent) attempts() int {
	if a.role == RoleOrchestrator {
		return 2
	}
	return 1 + a.gen.DebaterRetries
}

// Respond renders the prompt for req and calls the generation backend,
// retrying within the agent's attempt budget. The returned Response reports
// failure through its Success flag and FailureReason.
func (a *Agent) Respond(ctx context.Context, req PromptRequest) Response {
	prompt := a.renderPrompt(req)

	resp := Response{Agent: a.cfg.Name, Round: req.Round}
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= a.attempts(); attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if a.gen.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, a.gen.CallTimeout)
		}
		result, err := a.client.Generate(callCtx, llm.GenerateRequest{
			Model:        a.cfg.Model,
			SystemPrompt: a.cfg.SystemPrompt,
			Prompt:       prompt,
			MaxTokens:    a.cfg.MaxTokens,
			Temperature:  a.cfg.Temperature,
			RoleHint:     a.cfg.Name,
		})
		if cancel != nil {
			cancel()
		}

		if err == nil {
			resp.Latency = time.Since(start)
			resp.Success = true
			resp.Text = result.Text
			resp.TokenCount = result.TokensUsed
			resp.LengthFlag = a.lengthFlag(result.Text)
			logging.Agent("%s responded in round %d: %d chars, %d tokens, attempt %d",
				a.cfg.Name, req.Round, len(result.Text), result.TokensUsed, attempt)
			return resp
		}

		lastErr = err
		logging.Get(logging.CategoryAgent).Warn("%s generation attempt %d/%d failed: %v",
			a.cfg.Name, attempt, a.attempts(), err)
	}

	resp.Latency = time.Since(start)
	resp.Success = false
	if kind := llm.KindOf(lastErr); kind != "" {
		resp.FailureReason = string(kind)
	} else if lastErr != nil {
		resp.FailureReason = lastErr.Error()
	} else {
		resp.FailureReason = string(llm.FailureTimeout)
	}
	return resp
}

func (a *Agent) renderPrompt(req PromptRequest) string {
	switch req.Kind {
	case PromptRebuttal:
		return renderRebuttalPrompt(a.cfg, req.Question, req.Snapshot, req.OwnPrevious)
	case PromptFeedback:
		return renderFeedbackPrompt(req.Question, req.Round, req.RoundResponses, req.Verdict)
	case PromptSummary:
		return renderSummaryPrompt(req.Question, req.Snapshot)
	default:
		return renderInitialPrompt(a.cfg, req.Question, req.Snapshot,
			a.gen.MinResponseLength, a.gen.MaxResponseLength)
	}
}

// lengthFlag validates response length against the configured bounds.
// Out-of-bounds responses are flagged but kept.
func (a *Agent) lengthFlag(text string) LengthFlag {
	if a.gen.MinResponseLength > 0 && len(text) < a.gen.MinResponseLength {
		return LengthTooShort
	}
	if a.gen.MaxResponseLength > 0 && len(text) > a.gen.MaxResponseLength {
		return LengthTooLong
	}
	return LengthOK
}
