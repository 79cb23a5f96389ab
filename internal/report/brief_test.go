package report

import (
	"strings"
	"testing"

	"github.com/ideacapital/brain/internal/invention"
)

func testDraft() *invention.Draft {
	return &invention.Draft{
		InventionID: "inv-1",
		Status:      invention.StatusReviewReady,
		SocialMetadata: invention.SocialMetadata{
			DisplayTitle: "Solar Umbrella",
			ShortPitch:   "An umbrella that charges your phone.",
			ViralityTags: []string{"Solar", "Gadget"},
		},
		TechnicalBrief: invention.TechnicalBrief{
			TechnicalField:    "Consumer Electronics",
			BackgroundProblem: "Phones die\noutdoors.",
			SolutionSummary:   "Flexible panels on the canopy.",
			CoreMechanics: []invention.CoreMechanic{
				{Step: 1, Description: "Panels capture sunlight"},
				{Step: 2, Description: "Charge controller feeds USB port"},
			},
			NoveltyClaims: []string{"Canopy-integrated flexible cells"},
		},
		RiskAssessment: invention.RiskAssessment{
			FeasibilityScore: 7,
			PotentialPriorArt: []invention.PriorArtEntry{
				{PatentID: "US-1", Title: "Solar | parasol", SimilarityScore: 0.42, Source: "PatentsView", Notes: "close"},
			},
			MissingInfo: []string{"Panel efficiency"},
		},
	}
}

func TestBuildBriefMarkdownSections(t *testing.T) {
	md := BuildBriefMarkdown(testDraft())

	for _, want := range []string{
		"# Invention Brief: Solar Umbrella",
		"- Status: REVIEW_READY",
		"## Technical Brief",
		"1. Panels capture sunlight",
		"### Novelty Claims",
		"## Risk Assessment",
		"- Feasibility score: 7/10",
		"| Patent | Title | Similarity | Source | Notes |",
		"| US-1 | Solar \\| parasol | 0.42 | PatentsView | close |",
		"### Open Questions",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Phones die\noutdoors") {
		t.Fatal("multi-line field not flattened")
	}
}

func TestBuildBriefMarkdownNoPriorArt(t *testing.T) {
	d := testDraft()
	d.RiskAssessment.PotentialPriorArt = nil
	md := BuildBriefMarkdown(d)
	if !strings.Contains(md, "No prior-art candidates recorded.") {
		t.Fatalf("missing empty prior-art note:\n%s", md)
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(BuildBriefMarkdown(testDraft()))
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if !strings.Contains(html, "<table>") {
		t.Fatal("prior-art table not rendered as HTML table")
	}
	if !strings.Contains(html, "<h1") {
		t.Fatal("heading not rendered")
	}
}
