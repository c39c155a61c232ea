// Package consensus detects agreement between debater responses. Responses
// are embedded, compared pairwise by cosine similarity, and the mean of all
// pairwise scores is checked against the configured threshold.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"agora/internal/embedding"
	"agora/internal/logging"
)

// ErrInsufficientResponses marks an evaluation attempted with fewer than two
// responses. Agreement between fewer than two positions is undefined.
var ErrInsufficientResponses = errors.New("at least two responses required for consensus evaluation")

// Statement is one agent's position in a round.
type Statement struct {
	Agent string
	Text  string
}

// DisputedPair identifies two agents whose positions score below threshold.
type DisputedPair struct {
	AgentA string  `json:"agent_a"`
	AgentB string  `json:"agent_b"`
	Score  float64 `json:"score"`
}

// Verdict is the result of one consensus evaluation. It is immutable once
// returned.
type Verdict struct {
	// Agents lists the evaluated agents in input order. Matrix rows and
	// columns follow this order.
	Agents []string `json:"agents"`

	// Matrix is the symmetric pairwise similarity matrix, diagonal 1.0.
	Matrix [][]float64 `json:"matrix"`

	// AggregateSimilarity is the arithmetic mean of the strictly-upper-
	// triangular entries. This, not any single pair, decides consensus.
	AggregateSimilarity float64 `json:"aggregate_similarity"`

	// Threshold is the threshold the aggregate was compared against.
	Threshold float64 `json:"threshold"`

	// Reached is true iff AggregateSimilarity >= Threshold.
	Reached bool `json:"reached"`

	// DisputedPairs lists all pairs scoring below threshold, sorted
	// ascending by score so the widest disagreement comes first.
	DisputedPairs []DisputedPair `json:"disputed_pairs,omitempty"`
}

// Engine evaluates consensus between debater responses. It holds no state
// beyond the embedding backend: identical inputs always yield identical
// verdicts for a deterministic embedder.
type Engine struct {
	embedder embedding.Engine
}

// NewEngine creates a consensus engine over the given embedding backend.
func NewEngine(embedder embedding.Engine) *Engine {
	return &Engine{embedder: embedder}
}

// Evaluate computes the consensus verdict for one round of statements.
// Embedding failures are returned unchanged (wrapping
// embedding.ErrUnavailable); no fallback metric is substituted.
func (e *Engine) Evaluate(ctx context.Context, statements []Statement, threshold float64) (*Verdict, error) {
	if len(statements) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientResponses, len(statements))
	}

	timer := logging.StartTimer(logging.CategoryConsensus, fmt.Sprintf("evaluate n=%d", len(statements)))
	defer timer.Stop()

	texts := make([]string, len(statements))
	agents := make([]string, len(statements))
	for i, s := range statements {
		texts[i] = Normalize(s.Text)
		agents[i] = s.Agent
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		logging.Get(logging.CategoryConsensus).Error("embedding failed: %v", err)
		return nil, err
	}

	n := len(statements)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}

	var sum float64
	var disputed []DisputedPair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim, err := embedding.CosineSimilarity(vectors[i], vectors[j])
			if err != nil {
				return nil, fmt.Errorf("similarity %s vs %s: %w", agents[i], agents[j], err)
			}
			matrix[i][j] = sim
			matrix[j][i] = sim
			sum += sim
			if sim < threshold {
				disputed = append(disputed, DisputedPair{AgentA: agents[i], AgentB: agents[j], Score: sim})
			}
		}
	}

	pairs := n * (n - 1) / 2
	aggregate := sum / float64(pairs)

	sort.SliceStable(disputed, func(a, b int) bool {
		return disputed[a].Score < disputed[b].Score
	})

	verdict := &Verdict{
		Agents:              agents,
		Matrix:              matrix,
		AggregateSimilarity: aggregate,
		Threshold:           threshold,
		Reached:             aggregate >= threshold,
		DisputedPairs:       disputed,
	}

	logging.Consensus("evaluated %d statements: aggregate=%.3f threshold=%.3f reached=%v disputed=%d",
		n, aggregate, threshold, verdict.Reached, len(disputed))
	return verdict, nil
}
