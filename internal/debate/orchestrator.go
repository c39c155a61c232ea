package debate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"agora/internal/config"
	"agora/internal/consensus"
	"agora/internal/llm"
	"agora/internal/logging"
)

// machineState names the orchestration state machine's states. States are
// internal; callers observe sessions through Status and Progress.
type machineState string

const (
	stateInitializing   machineState = "initializing"
	stateRoundDispatch  machineState = "round-dispatch"
	stateRoundCollect   machineState = "round-collect"
	stateConsensusCheck machineState = "consensus-check"
	stateFeedback       machineState = "feedback"
	stateFinalizing     machineState = "finalizing"
	stateTerminated     machineState = "terminated"
	stateFailed         machineState = "failed"
)

// Orchestrator drives one debate session through its rounds: concurrent
// debater dispatch, consensus evaluation, orchestrator feedback, and the
// final summary. It exclusively owns the session and the shared context for
// the session's lifetime.
type Orchestrator struct {
	mu      sync.RWMutex
	state   machineState
	session *Session

	shared   *SharedContext
	debaters []*Agent
	lead     *Agent
	engine   *consensus.Engine
	cfg      *config.Config

	cancelRequested bool
	done            chan struct{}

	// onTerminal, when set, runs once with the final session snapshot.
	onTerminal func(*Session)
}

// NewOrchestrator builds the orchestrator for one session. The config must
// already be validated.
func NewOrchestrator(id, question string, cfg *config.Config, client llm.Client, engine *consensus.Engine) *Orchestrator {
	debaters := make([]*Agent, len(cfg.Debaters))
	for i, rc := range cfg.Debaters {
		debaters[i] = NewDebater(rc, cfg.Generation, client)
	}

	return &Orchestrator{
		state: stateInitializing,
		session: &Session{
			ID:        id,
			Question:  question,
			Config:    cfg,
			Status:    StatusInProgress,
			StartedAt: time.Now(),
		},
		shared:   NewSharedContext(),
		debaters: debaters,
		lead:     NewOrchestratorAgent(cfg.Orchestrator, cfg.Generation, client),
		engine:   engine,
		cfg:      cfg,
		done:     make(chan struct{}),
	}
}

// Done is closed when the session reaches a terminal status.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Cancel requests best-effort cancellation. It is honored at the next round
// boundary; in-flight generation calls complete or time out naturally.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	o.cancelRequested = true
	o.mu.Unlock()
	logging.Orchestrator("session %s: cancellation requested", o.session.ID)
}

// Snapshot returns a deep copy of the session as of now.
func (o *Orchestrator) Snapshot() *Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.session.clone()
}

// Progress returns a non-blocking progress view.
func (o *Orchestrator) Progress() Progress {
	o.mu.RLock()
	defer o.mu.RUnlock()

	p := Progress{
		ID:           o.session.ID,
		Status:       o.session.Status,
		CurrentRound: len(o.session.Rounds),
		TotalRounds:  o.cfg.MaxRounds,
	}
	if o.session.Status.Terminal() {
		p.ProgressFraction = 1.0
	} else if o.cfg.MaxRounds > 0 {
		p.ProgressFraction = float64(len(o.session.Rounds)) / float64(o.cfg.MaxRounds)
	}
	return p
}

// Run executes the debate to a terminal status. Blocks until done; callers
// wanting asynchronous execution run it on its own goroutine.
func (o *Orchestrator) Run(ctx context.Context) {
	logging.Session("session %s: starting debate with %d debaters, max %d rounds, threshold %.2f",
		o.session.ID, len(o.debaters), o.cfg.MaxRounds, o.cfg.ConsensusThreshold)

	for index := 1; index <= o.cfg.MaxRounds; index++ {
		o.setState(stateRoundDispatch)

		if o.cancelled(ctx) {
			o.fail(fmt.Errorf("cancelled before round %d", index))
			return
		}

		round, err := o.runRound(ctx, index)
		if err != nil {
			o.fail(err)
			return
		}

		final := round.Verdict.Reached || index == o.cfg.MaxRounds
		if final {
			o.finalize(ctx, round.Verdict.Reached)
			return
		}

		o.setState(stateFeedback)
		if err := o.feedbackStep(ctx, round); err != nil {
			o.fail(err)
			return
		}
	}
}

// runRound dispatches one round, collects responses, evaluates consensus,
// and folds the outcome into the shared context. A round with fewer than two
// successful responses is re-dispatched once when configured, then fatal.
func (o *Orchestrator) runRound(ctx context.Context, index int) (*Round, error) {
	responses := o.dispatchRound(ctx, index)
	retried := false

	if successCount(responses) < 2 && o.cfg.Generation.RetryFailedRound {
		logging.Get(logging.CategoryOrchestrator).Warn(
			"session %s: round %d produced %d successful responses, retrying round",
			o.session.ID, index, successCount(responses))
		retried = true
		responses = o.dispatchRound(ctx, index)
	}

	round := Round{Index: index, Responses: responses, Retried: retried}

	if successCount(responses) < 2 {
		// Record the failed round before escalating so the result shows
		// what each agent returned.
		o.appendRound(round)
		o.shared.AppendResponses(responses)
		return nil, fmt.Errorf("%w: round %d had %d successful responses",
			consensus.ErrInsufficientResponses, index, successCount(responses))
	}

	o.setState(stateConsensusCheck)

	statements := make([]consensus.Statement, 0, len(responses))
	for _, r := range responses {
		if r.Success {
			statements = append(statements, consensus.Statement{Agent: r.Agent, Text: r.Text})
		}
	}

	verdict, err := o.engine.Evaluate(ctx, statements, o.cfg.ConsensusThreshold)
	if err != nil {
		o.appendRound(round)
		o.shared.AppendResponses(responses)
		return nil, fmt.Errorf("consensus evaluation for round %d: %w", index, err)
	}
	round.Verdict = verdict

	o.appendRound(round)
	o.mu.Lock()
	o.session.ConsensusTrajectory = append(o.session.ConsensusTrajectory, verdict.AggregateSimilarity)
	o.mu.Unlock()

	// Context mutation happens here, once, after the round's work is known.
	o.shared.AppendResponses(responses)
	if verdict.Reached {
		for _, s := range statements {
			for _, point := range consensus.KeyPoints(s.Text) {
				o.shared.AddAgreedFact(point)
			}
		}
	} else {
		for _, area := range consensus.DisagreementAreas(statements) {
			o.shared.AddDisputedPoint(area)
		}
		for _, p := range verdict.DisputedPairs {
			o.shared.AddDisputedPoint(fmt.Sprintf("%s and %s hold diverging positions", p.AgentA, p.AgentB))
		}
	}

	logging.Orchestrator("session %s: round %d aggregate=%.3f reached=%v",
		o.session.ID, index, verdict.AggregateSimilarity, verdict.Reached)
	return o.lastRound(), nil
}

// dispatchRound fires all debater calls concurrently and waits for every one
// to settle. Debaters receive the pre-round context snapshot, never each
// other's same-round output. The whole round shares a sum-bounded budget on
// top of the per-call timeouts.
func (o *Orchestrator) dispatchRound(ctx context.Context, index int) []Response {
	snap := o.shared.Snapshot()

	kind := PromptInitial
	if index > 1 {
		kind = PromptRebuttal
	}

	roundCtx := ctx
	var cancel context.CancelFunc
	if o.cfg.Generation.RoundBudget > 0 {
		roundCtx, cancel = context.WithTimeout(ctx, o.cfg.Generation.RoundBudget)
		defer cancel()
	}

	responses := make([]Response, len(o.debaters))
	g, gctx := errgroup.WithContext(roundCtx)
	for i, agent := range o.debaters {
		g.Go(func() error {
			responses[i] = agent.Respond(gctx, PromptRequest{
				Kind:        kind,
				Question:    o.session.Question,
				Round:       index,
				Snapshot:    snap,
				OwnPrevious: previousText(snap.History, agent.Name()),
			})
			return nil
		})
	}
	g.Wait() // agents report failure as data, never as an error

	o.setState(stateRoundCollect)
	return responses
}

// feedbackStep asks the orchestrator agent for convergence feedback and
// appends it to the shared context. The agent retries once internally; a
// failure here is fatal to the session.
func (o *Orchestrator) feedbackStep(ctx context.Context, round *Round) error {
	resp := o.lead.Respond(ctx, PromptRequest{
		Kind:           PromptFeedback,
		Question:       o.session.Question,
		Round:          round.Index,
		RoundResponses: round.Responses,
		Verdict:        round.Verdict,
	})
	if !resp.Success {
		return fmt.Errorf("%w: feedback after round %d failed (%s)",
			ErrOrchestratorUnavailable, round.Index, resp.FailureReason)
	}

	o.mu.Lock()
	o.session.Rounds[len(o.session.Rounds)-1].Feedback = resp.Text
	o.mu.Unlock()
	o.shared.SetFeedback(resp.Text)

	logging.Orchestrator("session %s: feedback recorded for round %d (%d chars)",
		o.session.ID, round.Index, len(resp.Text))
	return nil
}

// finalize asks the orchestrator agent for the final summary and terminates
// the session. The session never terminates without a summary unless the
// summary call itself fails after retry, which is recorded as hard failure.
func (o *Orchestrator) finalize(ctx context.Context, reached bool) {
	o.setState(stateFinalizing)

	resp := o.lead.Respond(ctx, PromptRequest{
		Kind:     PromptSummary,
		Question: o.session.Question,
		Round:    len(o.session.Rounds),
		Snapshot: o.shared.Snapshot(),
	})
	if !resp.Success {
		o.fail(fmt.Errorf("%w: final summary failed (%s)", ErrOrchestratorUnavailable, resp.FailureReason))
		return
	}

	summary := resp.Text
	status := StatusConsensusReached
	if !reached {
		status = StatusRoundsExhausted
		summary += fmt.Sprintf("\n\nNote: Consensus was not fully reached after %d rounds. Final similarity score: %.3f",
			o.cfg.MaxRounds, o.lastAggregate())
	}

	o.mu.Lock()
	o.session.FinalSummary = summary
	o.session.Status = status
	o.session.CompletedAt = time.Now()
	o.mu.Unlock()
	o.setState(stateTerminated)

	logging.Session("session %s: terminated with status %s after %d rounds",
		o.session.ID, status, len(o.session.Rounds))
	o.notifyTerminal()
}

// fail moves the session to the absorbing failed state.
func (o *Orchestrator) fail(reason error) {
	o.mu.Lock()
	o.session.Status = StatusFailed
	o.session.FailureReason = reason.Error()
	o.session.CompletedAt = time.Now()
	o.mu.Unlock()
	o.setState(stateFailed)

	logging.Get(logging.CategorySession).Error("session %s: failed: %v", o.session.ID, reason)
	o.notifyTerminal()
}

func (o *Orchestrator) notifyTerminal() {
	if o.onTerminal != nil {
		o.onTerminal(o.Snapshot())
	}
	close(o.done)
}

func (o *Orchestrator) setState(s machineState) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	if prev != s {
		logging.OrchestratorDebug("session %s: %s -> %s", o.session.ID, prev, s)
	}
}

func (o *Orchestrator) cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cancelRequested
}

func (o *Orchestrator) appendRound(r Round) {
	o.mu.Lock()
	o.session.Rounds = append(o.session.Rounds, r)
	o.mu.Unlock()
}

func (o *Orchestrator) lastRound() *Round {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return &o.session.Rounds[len(o.session.Rounds)-1]
}

func (o *Orchestrator) lastAggregate() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if n := len(o.session.ConsensusTrajectory); n > 0 {
		return o.session.ConsensusTrajectory[n-1]
	}
	return 0
}

func successCount(responses []Response) int {
	n := 0
	for _, r := range responses {
		if r.Success {
			n++
		}
	}
	return n
}

// previousText returns the agent's most recent successful response text.
func previousText(history []Response, agent string) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Agent == agent && history[i].Success {
			return history[i].Text
		}
	}
	return ""
}
