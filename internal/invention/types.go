package invention

import "time"

const (
	CapabilityInventionBrain = "invention-brain"

	// Soft schema limits. The live structuring path truncates to these; the
	// deterministic fallback tolerates overruns so its output stays a pure
	// function of the input text.
	MaxTitleChars = 60
	MaxPitchChars = 280

	// HistoryWindow is the number of most recent conversation turns loaded
	// when building a refinement prompt. Enforced store-side.
	HistoryWindow = 20
)

type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusReviewReady Status = "REVIEW_READY"
)

// Action names carried on queue messages. CHAT_RESPONSE only appears on
// completion messages, never inbound.
const (
	ActionInitialAnalysis = "INITIAL_ANALYSIS"
	ActionContinueChat    = "CONTINUE_CHAT"
	ActionChatResponse    = "CHAT_RESPONSE"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type MediaAssets struct {
	HeroImageURL      string   `json:"hero_image_url,omitempty"`
	ExplainerVideoURL string   `json:"explainer_video_url,omitempty"`
	ThumbnailURL      string   `json:"thumbnail_url,omitempty"`
	Gallery           []string `json:"gallery,omitempty"`
}

type SocialMetadata struct {
	DisplayTitle string       `json:"display_title"`
	ShortPitch   string       `json:"short_pitch"`
	ViralityTags []string     `json:"virality_tags"`
	MediaAssets  *MediaAssets `json:"media_assets,omitempty"`
}

type CoreMechanic struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
}

type TechnicalBrief struct {
	TechnicalField       string         `json:"technical_field"`
	BackgroundProblem    string         `json:"background_problem"`
	SolutionSummary      string         `json:"solution_summary"`
	CoreMechanics        []CoreMechanic `json:"core_mechanics"`
	NoveltyClaims        []string       `json:"novelty_claims"`
	HardwareRequirements []string       `json:"hardware_requirements"`
	SoftwareLogic        string         `json:"software_logic"`
}

type PriorArtEntry struct {
	Source          string  `json:"source"`
	PatentID        string  `json:"patent_id"`
	Title           string  `json:"title,omitempty"`
	Snippet         string  `json:"snippet,omitempty"`
	Link            string  `json:"link,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
	Notes           string  `json:"notes"`
}

type RiskAssessment struct {
	PotentialPriorArt []PriorArtEntry `json:"potential_prior_art"`
	FeasibilityScore  int             `json:"feasibility_score"`
	MissingInfo       []string        `json:"missing_info"`
}

// Draft is the evolving structured invention record. Field updates from the
// refinement tracker are additive-only: a turn may add or overwrite a field
// but never infers a deletion.
type Draft struct {
	InventionID    string         `json:"invention_id"`
	CreatorID      string         `json:"creator_id"`
	Status         Status         `json:"status"`
	SocialMetadata SocialMetadata `json:"social_metadata"`
	TechnicalBrief TechnicalBrief `json:"technical_brief"`
	RiskAssessment RiskAssessment `json:"risk_assessment"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty"`
}

// ConversationTurn is append-only; ordering is by creation time.
type ConversationTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ClampFeasibility forces a score into the schema's [1,10] range. Zero (the
// JSON absent-value) maps to the neutral 5.
func ClampFeasibility(score int) int {
	if score == 0 {
		return 5
	}
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// ClampCompleteness forces a completeness percentage into [0,100]. The value
// itself stays backend- or classifier-asserted.
func ClampCompleteness(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Truncate cuts s to at most n bytes. Used for soft schema limits and for
// bounding text carried into prompts and queries.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
