package debate

import (
	"fmt"
	"strings"

	"agora/internal/config"
	"agora/internal/consensus"
)

// recentHistoryEntries bounds how many historical responses are rendered into
// a prompt, preventing unbounded prompt growth across many rounds. Agreed
// facts and disputed points are always rendered in full.
const recentHistoryEntries = 9

// excerptLen truncates per-response excerpts in the summary prompt.
const excerptLen = 200

func renderInitialPrompt(role config.RoleConfig, question string, snap ContextSnapshot, minLen, maxLen int) string {
	var b strings.Builder

	if len(snap.AgreedFacts) > 0 {
		fmt.Fprintf(&b, "Shared Context: %s\n\n", strings.Join(snap.AgreedFacts, "; "))
	}

	fmt.Fprintf(&b, "Question for debate: %s\n\n", question)
	fmt.Fprintf(&b, "Please provide your perspective on this question. Consider your unique viewpoint as a %s debater.\n\n", role.Personality)
	fmt.Fprintf(&b, "Be thorough but concise (aim for %d-%d characters).\n", minLen, maxLen)
	b.WriteString("Structure your response clearly with key points and supporting reasoning.\n\n")
	b.WriteString("Your response:\n")
	return b.String()
}

func renderRebuttalPrompt(role config.RoleConfig, question string, snap ContextSnapshot, ownPrevious string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Original Question: %s\n", question)

	if len(snap.AgreedFacts) > 0 {
		fmt.Fprintf(&b, "\nAgreed Facts: %s\n", strings.Join(snap.AgreedFacts, "; "))
	}
	if len(snap.DisputedPoints) > 0 {
		fmt.Fprintf(&b, "\nDisputed Points: %s\n", strings.Join(snap.DisputedPoints, "; "))
	}

	others := latestRoundResponses(snap.History, role.Name)
	if len(others) > 0 {
		b.WriteString("\nOther Debaters' Responses:\n")
		for _, r := range others {
			fmt.Fprintf(&b, "\n%s: %s\n", r.Agent, r.Text)
		}
	}

	if snap.LatestFeedback != "" {
		fmt.Fprintf(&b, "\nOrchestrator Feedback: %s\n", snap.LatestFeedback)
	}
	if ownPrevious == "" {
		ownPrevious = "None"
	}
	fmt.Fprintf(&b, "\nYour Previous Response: %s\n\n", ownPrevious)

	b.WriteString("Based on the other responses and feedback, please refine your position. You should:\n")
	b.WriteString("1. Address any valid points raised by other debaters\n")
	b.WriteString("2. Clarify or strengthen your arguments where needed\n")
	b.WriteString("3. Find common ground where possible\n")
	fmt.Fprintf(&b, "4. Maintain your unique %s perspective\n\n", role.Personality)
	b.WriteString("Aim for convergence while preserving the strength of your arguments.\n\n")
	b.WriteString("Your refined response:\n")
	return b.String()
}

func renderFeedbackPrompt(question string, round int, responses []Response, verdict *consensus.Verdict) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Round %d Analysis:\n\n", round)
	fmt.Fprintf(&b, "Original Question: %s\n\n", question)

	b.WriteString("Debater Responses:\n")
	for _, r := range responses {
		if !r.Success {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s\n", r.Agent, r.Text)
	}

	fmt.Fprintf(&b, "\nConsensus Analysis:\n")
	fmt.Fprintf(&b, "- Average Similarity: %.3f\n", verdict.AggregateSimilarity)
	fmt.Fprintf(&b, "- Consensus Reached: %v\n", verdict.Reached)
	if len(verdict.DisputedPairs) > 0 {
		b.WriteString("- Pairs Below Threshold:\n")
		for _, p := range verdict.DisputedPairs {
			fmt.Fprintf(&b, "  - %s vs %s (%.3f)\n", p.AgentA, p.AgentB, p.Score)
		}
	}

	b.WriteString("\nSuggested Convergence Strategies:\n")
	for _, s := range consensus.ConvergenceStrategies(verdict.AggregateSimilarity) {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	b.WriteString("\nPlease provide constructive feedback to help the debaters converge on a consensus. Focus on:\n\n")
	b.WriteString("1. Identifying common ground and shared principles\n")
	b.WriteString("2. Highlighting areas where perspectives can be reconciled\n")
	b.WriteString("3. Suggesting specific ways to address remaining disagreements\n")
	b.WriteString("4. Encouraging integration of different viewpoints\n\n")
	b.WriteString("Keep your feedback concise but actionable (200-400 words).\n\n")
	b.WriteString("Feedback:\n")
	return b.String()
}

func renderSummaryPrompt(question string, snap ContextSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Original Question: %s\n\n", question)

	history := snap.History
	if len(history) > recentHistoryEntries {
		history = history[len(history)-recentHistoryEntries:]
	}
	if len(history) > 0 {
		b.WriteString("Debate Evolution:\n")
		currentRound := 0
		for _, r := range history {
			if !r.Success {
				continue
			}
			if r.Round != currentRound {
				currentRound = r.Round
				fmt.Fprintf(&b, "\nRound %d:\n", currentRound)
			}
			fmt.Fprintf(&b, "- %s: %s\n", r.Agent, excerpt(r.Text))
		}
	}

	if len(snap.AgreedFacts) > 0 {
		facts := snap.AgreedFacts
		if len(facts) > 5 {
			facts = facts[:5]
		}
		fmt.Fprintf(&b, "\nKey Agreed Points: %s\n", strings.Join(facts, "; "))
	}

	b.WriteString("\nPlease provide a comprehensive summary that:\n\n")
	b.WriteString("1. Clearly answers the original question\n")
	b.WriteString("2. Integrates the key insights from all debaters\n")
	b.WriteString("3. Highlights the main points of agreement\n")
	b.WriteString("4. Provides a balanced and nuanced perspective\n")
	b.WriteString("5. Acknowledges any remaining complexities or nuances\n\n")
	b.WriteString("Keep the summary focused and well-structured (aim for 300-800 words).\n\n")
	b.WriteString("Final Summary:\n")
	return b.String()
}

// latestRoundResponses returns the successful responses of the most recent
// round in the history, excluding the named agent's own.
func latestRoundResponses(history []Response, exclude string) []Response {
	maxRound := 0
	for _, r := range history {
		if r.Round > maxRound {
			maxRound = r.Round
		}
	}
	if maxRound == 0 {
		return nil
	}
	var out []Response
	for _, r := range history {
		if r.Round == maxRound && r.Success && r.Agent != exclude {
			out = append(out, r)
		}
	}
	return out
}

func excerpt(text string) string {
	if len(text) <= excerptLen {
		return text
	}
	return text[:excerptLen] + "..."
}
