package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ideacapital/brain/internal/invention"
)

// BuildBriefMarkdown renders an invention draft as a sectioned markdown
// brief for review.
func BuildBriefMarkdown(d *invention.Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Invention Brief: %s\n\n", d.SocialMetadata.DisplayTitle)
	fmt.Fprintf(&b, "- Invention ID: %s\n", d.InventionID)
	fmt.Fprintf(&b, "- Status: %s\n", d.Status)
	fmt.Fprintf(&b, "- Date: %s\n\n", time.Now().Format(time.RFC3339))

	fmt.Fprintf(&b, "## Pitch\n\n")
	fmt.Fprintf(&b, "%s\n\n", d.SocialMetadata.ShortPitch)
	if len(d.SocialMetadata.ViralityTags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(d.SocialMetadata.ViralityTags, ", "))
	}

	fmt.Fprintf(&b, "## Technical Brief\n\n")
	fmt.Fprintf(&b, "- Field: %s\n", d.TechnicalBrief.TechnicalField)
	fmt.Fprintf(&b, "- Problem: %s\n", sanitizeLine(d.TechnicalBrief.BackgroundProblem))
	fmt.Fprintf(&b, "- Solution: %s\n\n", sanitizeLine(d.TechnicalBrief.SolutionSummary))

	if len(d.TechnicalBrief.CoreMechanics) > 0 {
		fmt.Fprintf(&b, "### Core Mechanics\n\n")
		for _, m := range d.TechnicalBrief.CoreMechanics {
			fmt.Fprintf(&b, "%d. %s\n", m.Step, sanitizeLine(m.Description))
		}
		b.WriteString("\n")
	}
	if len(d.TechnicalBrief.NoveltyClaims) > 0 {
		fmt.Fprintf(&b, "### Novelty Claims\n\n")
		for _, c := range d.TechnicalBrief.NoveltyClaims {
			fmt.Fprintf(&b, "- %s\n", sanitizeLine(c))
		}
		b.WriteString("\n")
	}
	if len(d.TechnicalBrief.HardwareRequirements) > 0 {
		fmt.Fprintf(&b, "### Hardware Requirements\n\n")
		for _, h := range d.TechnicalBrief.HardwareRequirements {
			fmt.Fprintf(&b, "- %s\n", sanitizeLine(h))
		}
		b.WriteString("\n")
	}
	if d.TechnicalBrief.SoftwareLogic != "" {
		fmt.Fprintf(&b, "### Software Logic\n\n%s\n\n", d.TechnicalBrief.SoftwareLogic)
	}

	fmt.Fprintf(&b, "## Risk Assessment\n\n")
	fmt.Fprintf(&b, "- Feasibility score: %d/10\n\n", d.RiskAssessment.FeasibilityScore)

	fmt.Fprintf(&b, "### Potential Prior Art\n\n")
	if len(d.RiskAssessment.PotentialPriorArt) == 0 {
		fmt.Fprintf(&b, "No prior-art candidates recorded.\n\n")
	} else {
		fmt.Fprintf(&b, "| Patent | Title | Similarity | Source | Notes |\n")
		fmt.Fprintf(&b, "| --- | --- | --- | --- | --- |\n")
		for _, p := range d.RiskAssessment.PotentialPriorArt {
			fmt.Fprintf(&b, "| %s | %s | %.2f | %s | %s |\n",
				sanitizeCell(p.PatentID), sanitizeCell(p.Title), p.SimilarityScore, sanitizeCell(p.Source), sanitizeCell(p.Notes))
		}
		b.WriteString("\n")
	}

	if len(d.RiskAssessment.MissingInfo) > 0 {
		fmt.Fprintf(&b, "### Open Questions\n\n")
		for _, q := range d.RiskAssessment.MissingInfo {
			fmt.Fprintf(&b, "- %s\n", sanitizeLine(q))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHTML converts a markdown brief into a standalone HTML document.
func RenderHTML(markdown string) (string, error) {
	var content bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Invention Brief</title>" +
		"<style>" + briefCSS + "</style></head><body><div class='brief'>" +
		content.String() +
		"</div></body></html>", nil
}

const briefCSS = `body{font-family:Georgia,serif;color:#1c1917;background:#fff;margin:0;padding:1rem;}
.brief{max-width:900px;margin:0 auto;}
h1{border-bottom:2px solid #92400e;padding-bottom:0.3rem;}
table{width:100%;border-collapse:collapse;font-size:0.85rem;}
th,td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
thead th{background:#f1f5f9;font-weight:700;}`

func sanitizeLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sanitizeCell(s string) string {
	return strings.ReplaceAll(sanitizeLine(s), "|", "\\|")
}
