package structurer

import (
	"strings"

	"github.com/ideacapital/brain/internal/invention"
)

// FallbackStructure derives a draft directly from the input text. It is a
// pure function: identical input yields byte-identical output, which keeps
// the rest of the pipeline deterministic when no generative backend is
// configured.
func FallbackStructure(rawInput string) Structured {
	firstWords := strings.TrimSpace(invention.Truncate(rawInput, 50))
	return Structured{
		DisplayTitle:      "Innovation: " + firstWords + "...",
		ShortPitch:        "A novel approach: " + invention.Truncate(rawInput, 200),
		ViralityTags:      []string{"Innovation", "Technology", "Prototype"},
		TechnicalField:    "General Technology",
		BackgroundProblem: "Extracted from user input - needs refinement",
		SolutionSummary:   invention.Truncate(rawInput, 500),
		CoreMechanics: []invention.CoreMechanic{
			{Step: 1, Description: "Core mechanism to be defined"},
		},
		NoveltyClaims:        []string{"Unique approach - needs AI analysis"},
		HardwareRequirements: []string{},
		SoftwareLogic:        "",
		FeasibilityScore:     5,
		MissingInfo: []string{
			"Specific technical mechanism",
			"Target market/use case",
			"Prototype materials",
		},
		AgentReply: "Interesting idea! I've created an initial draft based on your description. " +
			"To make this stronger, can you tell me: " +
			"1) What specific problem does this solve? " +
			"2) How does the core mechanism work step by step? " +
			"3) What makes this different from existing solutions?",
	}
}
