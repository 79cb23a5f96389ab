package priorart

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/ideacapital/brain/internal/invention"
)

const (
	// MaxQueryChars bounds the query sent to the search collaborator, to
	// bound cost and request size.
	MaxQueryChars = 200

	// MaxCandidates is how many collaborator results are kept for scoring.
	MaxCandidates = 5

	// MaxSimilarity caps computed scores below 1.0; an exact-identity claim
	// from lexical overlap would be false certainty.
	MaxSimilarity = 0.99

	MockSource          = "Patent Search (Mock)"
	mockPatentID        = "US-MOCK-001"
	mockSimilarityScore = 0.45
)

// Candidate is a document returned by the keyword search collaborator.
type Candidate struct {
	PatentID string
	Title    string
	Snippet  string
	Link     string
	Source   string
}

// SearchClient is the external keyword search collaborator.
type SearchClient interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// Matcher retrieves prior-art candidates and ranks them by lexical-overlap
// similarity to the invention. The collaborator's own ranking is not trusted
// as final.
type Matcher struct {
	client SearchClient
}

func NewMatcher(client SearchClient) *Matcher {
	return &Matcher{client: client}
}

// Search returns prior-art entries sorted non-increasing by similarity.
// Both inputs empty is a deliberate short-circuit, not an error. Collaborator
// failure degrades to a single synthetic low-confidence entry; the pipeline
// never fails solely because prior-art search is unavailable.
func (m *Matcher) Search(ctx context.Context, technicalField, solutionSummary string) []invention.PriorArtEntry {
	if technicalField == "" && solutionSummary == "" {
		return []invention.PriorArtEntry{}
	}

	query := invention.Truncate(strings.TrimSpace(technicalField+" "+solutionSummary), MaxQueryChars)

	if m.client == nil {
		return mockResults(query)
	}
	candidates, err := m.client.Search(ctx, query, MaxCandidates)
	if err != nil {
		log.Printf("brain-priorart search_failed err=%q query_chars=%d", err.Error(), len(query))
		return mockResults(query)
	}
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}

	queryTokens := tokenize(query)
	entries := make([]invention.PriorArtEntry, 0, len(candidates))
	for _, c := range candidates {
		source := c.Source
		if source == "" {
			source = "Patent Search"
		}
		entries = append(entries, invention.PriorArtEntry{
			Source:          source,
			PatentID:        c.PatentID,
			Title:           c.Title,
			Snippet:         c.Snippet,
			Link:            c.Link,
			SimilarityScore: Similarity(queryTokens, c.Title+" "+c.Snippet),
			Notes:           "Keyword match against: " + invention.Truncate(query, 100),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SimilarityScore > entries[j].SimilarityScore
	})
	return entries
}

// Similarity is |query ∩ doc| / max(|query|, 1) over lower-cased
// whitespace-split token sets, capped at MaxSimilarity.
func Similarity(queryTokens map[string]struct{}, doc string) float64 {
	docTokens := tokenize(doc)
	overlap := 0
	for tok := range queryTokens {
		if _, ok := docTokens[tok]; ok {
			overlap++
		}
	}
	denom := len(queryTokens)
	if denom < 1 {
		denom = 1
	}
	score := float64(overlap) / float64(denom)
	if score > MaxSimilarity {
		score = MaxSimilarity
	}
	return score
}

func tokenize(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		out[tok] = struct{}{}
	}
	return out
}

func mockResults(query string) []invention.PriorArtEntry {
	return []invention.PriorArtEntry{
		{
			Source:          MockSource,
			PatentID:        mockPatentID,
			SimilarityScore: mockSimilarityScore,
			Notes:           "Related to: " + invention.Truncate(query, 100) + ". Mock result for development.",
		},
	}
}
