package debate

import (
	"errors"
	"time"

	"agora/internal/config"
	"agora/internal/consensus"
)

// Status is the lifecycle status of a debate session.
type Status string

const (
	// StatusInProgress indicates the session is still running rounds.
	StatusInProgress Status = "in-progress"

	// StatusConsensusReached indicates the debaters converged.
	StatusConsensusReached Status = "consensus-reached"

	// StatusRoundsExhausted indicates the round budget ran out first.
	StatusRoundsExhausted Status = "rounds-exhausted"

	// StatusFailed indicates an unrecoverable error ended the session.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusConsensusReached || s == StatusRoundsExhausted || s == StatusFailed
}

// Session-fatal error conditions.
var (
	// ErrOrchestratorUnavailable: the feedback or summary call failed
	// after its retry. The session cannot produce its artifact.
	ErrOrchestratorUnavailable = errors.New("orchestrator agent unavailable")

	// ErrSessionNotFound: no session with the given id.
	ErrSessionNotFound = errors.New("debate session not found")

	// ErrSessionActive: the result was requested before the session
	// reached a terminal status.
	ErrSessionActive = errors.New("debate session still in progress")
)

// LengthFlag marks a response outside the configured length bounds.
// Flagged responses still participate in the round.
type LengthFlag string

const (
	LengthOK       LengthFlag = ""
	LengthTooShort LengthFlag = "too-short"
	LengthTooLong  LengthFlag = "too-long"
)

// Response is one agent's output for one round. Never mutated after creation.
type Response struct {
	Agent      string        `json:"agent"`
	Round      int           `json:"round"`
	Text       string        `json:"text"`
	TokenCount int           `json:"token_count"`
	Latency    time.Duration `json:"latency"`
	Success    bool          `json:"success"`

	// FailureReason carries the generation failure kind when Success is
	// false: "timeout", "connection-refused" or "malformed-output".
	FailureReason string `json:"failure_reason,omitempty"`

	// LengthFlag marks responses outside the configured min/max bounds.
	LengthFlag LengthFlag `json:"length_flag,omitempty"`
}

// Round records one debate iteration. Fully populated once all responses and
// the verdict are in; immutable afterward.
type Round struct {
	// Index is 1-based.
	Index int `json:"index"`

	// Responses in dispatch order, one per debater.
	Responses []Response `json:"responses"`

	// Verdict is nil when the round failed before consensus evaluation.
	Verdict *consensus.Verdict `json:"verdict,omitempty"`

	// Feedback is the orchestrator's convergence feedback, set only on
	// non-final rounds.
	Feedback string `json:"feedback,omitempty"`

	// Retried marks rounds whose first dispatch yielded fewer than two
	// successful responses and were re-dispatched once.
	Retried bool `json:"retried,omitempty"`
}

// Session is the root aggregate for one debate. The orchestrator owns the
// live session; everything handed out through Snapshot or Result is a copy.
type Session struct {
	ID       string         `json:"id"`
	Question string         `json:"question"`
	Config   *config.Config `json:"config"`

	Rounds       []Round `json:"rounds"`
	Status       Status  `json:"status"`
	FinalSummary string  `json:"final_summary,omitempty"`

	// FailureReason is a human-readable reason, set only when Status is
	// StatusFailed.
	FailureReason string `json:"failure_reason,omitempty"`

	// ConsensusTrajectory holds the aggregate similarity of each
	// evaluated round, in order.
	ConsensusTrajectory []float64 `json:"consensus_trajectory,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Progress is a non-blocking view of a running session.
type Progress struct {
	ID               string  `json:"id"`
	Status           Status  `json:"status"`
	CurrentRound     int     `json:"current_round"`
	TotalRounds      int     `json:"total_rounds"`
	ProgressFraction float64 `json:"progress_fraction"`
}

// clone deep-copies the session so callers can never observe or affect the
// orchestrator's live state.
func (s *Session) clone() *Session {
	out := *s
	out.Rounds = make([]Round, len(s.Rounds))
	for i, r := range s.Rounds {
		rc := r
		rc.Responses = append([]Response(nil), r.Responses...)
		out.Rounds[i] = rc
	}
	out.ConsensusTrajectory = append([]float64(nil), s.ConsensusTrajectory...)
	return &out
}
