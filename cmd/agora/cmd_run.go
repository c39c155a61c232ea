package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agora/internal/debate"
	"agora/internal/store"
)

var (
	runRounds    int
	runThreshold float64
	runNoArchive bool
)

// runCmd runs one debate to completion.
var runCmd = &cobra.Command{
	Use:   "run [question]",
	Short: "Run a debate on a question and print the consensus summary",
	Long: `Runs a full debate: every configured debater answers the question in
parallel each round, consensus is scored from response embeddings, and the
orchestrator model guides convergence until the panel agrees or the round
budget runs out.

Example:
  agora run "Should remote work be the default for software teams?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDebate,
}

func init() {
	runCmd.Flags().IntVar(&runRounds, "rounds", 0, "Override the configured max rounds")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0, "Override the configured consensus threshold")
	runCmd.Flags().BoolVar(&runNoArchive, "no-archive", false, "Skip archiving the finished debate")
}

func runDebate(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runRounds > 0 {
		cfg.MaxRounds = runRounds
	}
	if runThreshold > 0 {
		cfg.ConsensusThreshold = runThreshold
	}

	opts := []debate.Option{}
	if cfg.Store.Enabled && !runNoArchive {
		path := cfg.Store.Path
		if path == "" {
			path = filepath.Join(workspace, ".agora", "debates.db")
		}
		archive, err := store.Open(path)
		if err != nil {
			return err
		}
		defer archive.Close()
		opts = append(opts, debate.WithArchive(archive))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	mgr := debate.NewManager(opts...)
	id, err := mgr.Start(ctx, question, cfg)
	if err != nil {
		return err
	}
	logger.Info("debate started",
		zap.String("session", id),
		zap.Int("debaters", len(cfg.Debaters)),
		zap.Int("max_rounds", cfg.MaxRounds),
		zap.Float64("threshold", cfg.ConsensusThreshold))

	panel := make([]string, len(cfg.Debaters))
	for i, d := range cfg.Debaters {
		panel[i] = fmt.Sprintf("%s (%s)", d.Name, d.Model)
	}
	fmt.Printf("Debate %s started: %q\n", id, question)
	fmt.Printf("Panel: %s, moderated by %s\n\n", strings.Join(panel, ", "), cfg.Orchestrator.Model)

	session, err := waitWithProgress(ctx, mgr, id, sigCh)
	if err != nil {
		return err
	}

	printSession(session)
	if session.Status == debate.StatusFailed {
		return fmt.Errorf("debate failed: %s", session.FailureReason)
	}
	return nil
}

// waitWithProgress polls the session for round progress while waiting for
// termination, and cancels on the first interrupt.
func waitWithProgress(ctx context.Context, mgr *debate.Manager, id string, sigCh <-chan os.Signal) (*debate.Session, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	lastRound := 0
	for {
		progress, err := mgr.Poll(id)
		if err != nil {
			return nil, err
		}
		if progress.CurrentRound > lastRound {
			lastRound = progress.CurrentRound
			fmt.Printf("  round %d/%d complete\n", progress.CurrentRound, progress.TotalRounds)
		}
		if progress.Status.Terminal() {
			return mgr.Result(id)
		}

		select {
		case <-ticker.C:
		case <-sigCh:
			fmt.Println("\nInterrupted, cancelling debate...")
			if err := mgr.Cancel(id); err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func printSession(s *debate.Session) {
	fmt.Printf("\n%s\n", strings.Repeat("=", 70))
	fmt.Printf("Debate %s: %s\n", s.ID, s.Status)
	fmt.Printf("%s\n\n", strings.Repeat("=", 70))

	for _, round := range s.Rounds {
		fmt.Printf("Round %d", round.Index)
		if round.Verdict != nil {
			fmt.Printf(" (similarity %.3f, threshold %.2f)", round.Verdict.AggregateSimilarity, round.Verdict.Threshold)
		}
		if round.Retried {
			fmt.Print(" [retried]")
		}
		fmt.Println()

		for _, resp := range round.Responses {
			if resp.Success {
				fmt.Printf("  %s (%d tokens, %s):\n    %s\n", resp.Agent, resp.TokenCount,
					resp.Latency.Round(time.Millisecond), indent(resp.Text))
			} else {
				fmt.Printf("  %s: FAILED (%s)\n", resp.Agent, resp.FailureReason)
			}
		}
		if round.Feedback != "" {
			fmt.Printf("  Orchestrator feedback:\n    %s\n", indent(round.Feedback))
		}
		fmt.Println()
	}

	if len(s.ConsensusTrajectory) > 0 {
		scores := make([]string, len(s.ConsensusTrajectory))
		for i, v := range s.ConsensusTrajectory {
			scores[i] = fmt.Sprintf("%.3f", v)
		}
		fmt.Printf("Consensus trajectory: %s\n\n", strings.Join(scores, " -> "))
	}

	switch s.Status {
	case debate.StatusFailed:
		fmt.Printf("Failure: %s\n", s.FailureReason)
	default:
		fmt.Printf("Final summary:\n%s\n", s.FinalSummary)
	}
}

func indent(text string) string {
	return strings.ReplaceAll(text, "\n", "\n    ")
}
