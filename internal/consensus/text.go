package consensus

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	specialsRe   = regexp.MustCompile(`[^\w\s.,!?;:]`)
	sentenceRe   = regexp.MustCompile(`[.!?]`)
	bulletRe     = regexp.MustCompile(`[-•*]\s*([^.!?\n]*)`)
)

// Normalize prepares text for embedding: collapsed whitespace, lowercased,
// special characters stripped while meaning-bearing punctuation stays.
func Normalize(text string) string {
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	text = specialsRe.ReplaceAllString(text, "")
	return strings.ToLower(text)
}

// KeyPoints extracts up to five salient points from a response: significant
// sentences plus bullet items.
func KeyPoints(text string) []string {
	var points []string

	for _, sentence := range sentenceRe.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) > 20 {
			points = append(points, sentence)
		}
	}

	for _, match := range bulletRe.FindAllStringSubmatch(text, -1) {
		point := strings.TrimSpace(match[1])
		if len(point) > 10 {
			points = append(points, point)
		}
	}

	if len(points) > 5 {
		points = points[:5]
	}
	return points
}

// contradictionPatterns pairs stance keywords whose co-occurrence across
// different agents signals a disagreement worth surfacing in feedback.
var contradictionPatterns = [][2][]string{
	{{"agree", "support", "favor"}, {"disagree", "oppose", "against"}},
	{{"yes", "correct", "true"}, {"no", "incorrect", "false"}},
	{{"beneficial", "positive", "good"}, {"harmful", "negative", "bad"}},
	{{"increase", "more", "higher"}, {"decrease", "less", "lower"}},
}

// DisagreementAreas scans the statements' key points for contradictory stance
// keywords across agents and describes each contradiction found.
func DisagreementAreas(statements []Statement) []string {
	pointsByAgent := make(map[string]string, len(statements))
	agents := make([]string, 0, len(statements))
	for _, s := range statements {
		pointsByAgent[s.Agent] = strings.ToLower(strings.Join(KeyPoints(s.Text), " "))
		agents = append(agents, s.Agent)
	}

	containsAny := func(text string, words []string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	var disagreements []string
	for _, pattern := range contradictionPatterns {
		var pos, neg []string
		for _, agent := range agents {
			text := pointsByAgent[agent]
			if containsAny(text, pattern[0]) {
				pos = append(pos, agent)
			}
			if containsAny(text, pattern[1]) {
				neg = append(neg, agent)
			}
		}
		if len(pos) > 0 && len(neg) > 0 {
			disagreements = append(disagreements,
				fmt.Sprintf("Contradiction on %q: %s vs %s",
					pattern[0][0], strings.Join(pos, ", "), strings.Join(neg, ", ")))
		}
	}
	return disagreements
}

// ConvergenceStrategies suggests feedback angles for the orchestrator based
// on how far apart the debaters currently are.
func ConvergenceStrategies(aggregateSimilarity float64) []string {
	switch {
	case aggregateSimilarity < 0.3:
		return []string{
			"Focus on finding common ground and shared principles",
			"Define key terms to ensure everyone is discussing the same concepts",
		}
	case aggregateSimilarity < 0.6:
		return []string{
			"Identify specific points of disagreement and address them systematically",
			"Look for compromise positions that incorporate elements from different perspectives",
		}
	default:
		return []string{
			"Refine the details and nuances of your shared understanding",
			"Work on integrating your similar viewpoints into a cohesive conclusion",
		}
	}
}
