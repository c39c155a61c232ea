package debate

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"agora/internal/config"
	"agora/internal/consensus"
	"agora/internal/embedding"
	"agora/internal/llm"
	"agora/internal/logging"
)

// Archiver persists terminal sessions. The SQLite store implements it; tests
// substitute their own.
type Archiver interface {
	Save(ctx context.Context, session *Session) error
}

// Manager owns the session registry. It starts debates on their own
// goroutines and serves polling, results, and cancellation by session ID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Orchestrator

	client  llm.Client
	embed   embedding.Engine
	archive Archiver
}

// Option customizes a Manager, mainly for dependency injection in tests.
type Option func(*Manager)

// WithGenerationClient overrides the per-config LLM client construction.
func WithGenerationClient(c llm.Client) Option {
	return func(m *Manager) { m.client = c }
}

// WithEmbeddingEngine overrides the per-config embedding engine construction.
func WithEmbeddingEngine(e embedding.Engine) Option {
	return func(m *Manager) { m.embed = e }
}

// WithArchive persists every terminal session through the given archiver.
func WithArchive(a Archiver) Option {
	return func(m *Manager) { m.archive = a }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{sessions: make(map[string]*Orchestrator)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start validates the request, registers a new session, and launches it. It
// returns the session ID immediately; the debate runs on its own goroutine
// under ctx.
func (m *Manager) Start(ctx context.Context, question string, cfg *config.Config) (string, error) {
	if question == "" {
		return "", fmt.Errorf("%w: question must not be empty", config.ErrConfiguration)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	client := m.client
	if client == nil {
		var err error
		client, err = llm.NewClient(llm.Config{
			Provider: cfg.Generation.Provider,
			Endpoint: cfg.Generation.Endpoint,
		})
		if err != nil {
			return "", fmt.Errorf("building generation client: %w", err)
		}
	}

	embedder := m.embed
	if embedder == nil {
		var err error
		embedder, err = embedding.NewEngine(embedding.Config{
			Provider:       cfg.Similarity.Provider,
			OllamaEndpoint: cfg.Similarity.Endpoint,
			OllamaModel:    cfg.Similarity.Model,
			GenAIAPIKey:    cfg.Similarity.APIKey,
		})
		if err != nil {
			return "", fmt.Errorf("building embedding engine: %w", err)
		}
	}

	id := uuid.NewString()
	orch := NewOrchestrator(id, question, cfg, client, consensus.NewEngine(embedder))
	if m.archive != nil {
		orch.onTerminal = func(s *Session) {
			if err := m.archive.Save(context.Background(), s); err != nil {
				logging.Get(logging.CategoryStore).Error("session %s: archive save failed: %v", s.ID, err)
			}
		}
	}

	m.mu.Lock()
	m.sessions[id] = orch
	m.mu.Unlock()

	go orch.Run(ctx)

	logging.Session("session %s: registered question %q", id, question)
	return id, nil
}

// Poll returns the session's progress without blocking on debate work.
func (m *Manager) Poll(id string) (Progress, error) {
	orch, err := m.lookup(id)
	if err != nil {
		return Progress{}, err
	}
	return orch.Progress(), nil
}

// Result returns the full session once it is terminal. A still-running
// session yields ErrSessionActive.
func (m *Manager) Result(id string) (*Session, error) {
	orch, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	snap := orch.Snapshot()
	if !snap.Status.Terminal() {
		return nil, fmt.Errorf("%w: session %s is %s", ErrSessionActive, id, snap.Status)
	}
	return snap, nil
}

// Wait blocks until the session is terminal or ctx is done, then returns the
// final session.
func (m *Manager) Wait(ctx context.Context, id string) (*Session, error) {
	orch, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-orch.Done():
		return orch.Snapshot(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel requests cancellation of a running session. Cancelling a terminal
// session is a no-op.
func (m *Manager) Cancel(id string) error {
	orch, err := m.lookup(id)
	if err != nil {
		return err
	}
	if orch.Snapshot().Status.Terminal() {
		return nil
	}
	orch.Cancel()
	return nil
}

// List returns a progress view of every known session.
func (m *Manager) List() []Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Progress, 0, len(m.sessions))
	for _, orch := range m.sessions {
		out = append(out, orch.Progress())
	}
	return out
}

func (m *Manager) lookup(id string) (*Orchestrator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orch, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return orch, nil
}
