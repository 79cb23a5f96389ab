package refine

import (
	"strings"

	"github.com/ideacapital/brain/internal/invention"
)

// Classifier completeness values. The classifier asserts these rather than
// computing them from the draft; a materials answer advances the brief
// further than a problem restatement.
const (
	CompletenessHardware = 70
	CompletenessProblem  = 60
	CompletenessGeneric  = 55
)

var (
	hardwareKeywords = []string{"material", "component", "hardware"}
	problemKeywords  = []string{"problem", "solve", "issue"}
)

// TurnResult is the outcome of one refinement turn, live or classified.
type TurnResult struct {
	AgentReply    string         `json:"agent_message"`
	UpdatedFields map[string]any `json:"updated_fields"`
	Completeness  int            `json:"schema_completeness"`
}

// Classify is the deterministic fallback for a refinement turn. Keyword
// groups are checked in a fixed order; hardware wins over problem when both
// match.
func Classify(userMessage string) TurnResult {
	lower := strings.ToLower(userMessage)

	if containsAny(lower, hardwareKeywords) {
		return TurnResult{
			AgentReply: "Great details on the materials. I've updated the hardware requirements. " +
				"Now, can you walk me through the step-by-step process of how a user " +
				"would interact with this invention?",
			UpdatedFields: map[string]any{
				"hardware_requirements": []string{"Based on user input: " + invention.Truncate(userMessage, 100)},
			},
			Completeness: CompletenessHardware,
		}
	}
	if containsAny(lower, problemKeywords) {
		return TurnResult{
			AgentReply: "I've captured the problem statement. This helps strengthen the patent claim. " +
				"What existing solutions have you seen, and what specifically makes your " +
				"approach different?",
			UpdatedFields: map[string]any{
				"background_problem": invention.Truncate(userMessage, 300),
			},
			Completeness: CompletenessProblem,
		}
	}
	return TurnResult{
		AgentReply: "Thanks for that detail. I've updated your brief. " +
			"Can you tell me more about the specific materials or " +
			"components you envision for the prototype?",
		UpdatedFields: map[string]any{},
		Completeness:  CompletenessGeneric,
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
