package structurer

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/ideacapital/brain/internal/invention"
)

// Structured is the canonical output schema of a structuring call, live or
// fallback.
type Structured struct {
	DisplayTitle         string                    `json:"display_title"`
	ShortPitch           string                    `json:"short_pitch"`
	ViralityTags         []string                  `json:"virality_tags"`
	TechnicalField       string                    `json:"technical_field"`
	BackgroundProblem    string                    `json:"background_problem"`
	SolutionSummary      string                    `json:"solution_summary"`
	CoreMechanics        []invention.CoreMechanic  `json:"core_mechanics"`
	NoveltyClaims        []string                  `json:"novelty_claims"`
	HardwareRequirements []string                  `json:"hardware_requirements"`
	SoftwareLogic        string                    `json:"software_logic"`
	FeasibilityScore     int                       `json:"feasibility_score"`
	MissingInfo          []string                  `json:"missing_info"`
	AgentReply           string                    `json:"agent_reply"`
}

type Config struct {
	CallTimeout time.Duration
}

// Engine turns a raw aggregated context into a Structured draft. The caller
// may be nil (backend unavailable); every failure path lands on the
// deterministic fallback, so Structure never returns an error.
type Engine struct {
	caller  LLMCaller
	timeout time.Duration
}

func NewEngine(caller LLMCaller, cfg Config) *Engine {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 45 * time.Second
	}
	return &Engine{caller: caller, timeout: cfg.CallTimeout}
}

func (e *Engine) Available() bool { return e.caller != nil }

func (e *Engine) Structure(ctx context.Context, rawContext string) Structured {
	if e.caller == nil {
		return normalize(FallbackStructure(rawContext), false)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	raw, err := e.caller.GenerateJSON(callCtx, SystemPrompt, "Here is the invention idea:\n\n"+rawContext)
	if err != nil {
		class := classifyTransportError(err)
		log.Printf("brain-structurer llm_transport_error class=%d elapsed_ms=%d err=%q", class, time.Since(started).Milliseconds(), err.Error())
		return normalize(FallbackStructure(rawContext), false)
	}

	var out Structured
	clean := stripCodeFences(raw)
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		log.Printf("brain-structurer llm_parse_error elapsed_ms=%d err=%q response_chars=%d", time.Since(started).Milliseconds(), err.Error(), len(clean))
		return normalize(FallbackStructure(rawContext), false)
	}
	log.Printf("brain-structurer llm_success elapsed_ms=%d response_chars=%d", time.Since(started).Milliseconds(), len(clean))
	return normalize(out, true)
}

// normalize enforces hard invariants on a structured draft. Live output gets
// its title/pitch truncated to the schema limits; the fallback's overruns
// are tolerated to keep it a pure function of the input.
func normalize(s Structured, live bool) Structured {
	if strings.TrimSpace(s.DisplayTitle) == "" {
		s.DisplayTitle = "Untitled Invention"
	}
	if live {
		s.DisplayTitle = invention.Truncate(s.DisplayTitle, invention.MaxTitleChars)
		s.ShortPitch = invention.Truncate(s.ShortPitch, invention.MaxPitchChars)
	}
	s.FeasibilityScore = invention.ClampFeasibility(s.FeasibilityScore)
	if s.ViralityTags == nil {
		s.ViralityTags = []string{}
	}
	if s.CoreMechanics == nil {
		s.CoreMechanics = []invention.CoreMechanic{}
	}
	if s.NoveltyClaims == nil {
		s.NoveltyClaims = []string{}
	}
	if s.HardwareRequirements == nil {
		s.HardwareRequirements = []string{}
	}
	if s.MissingInfo == nil {
		s.MissingInfo = []string{}
	}
	if strings.TrimSpace(s.AgentReply) == "" {
		s.AgentReply = "I've drafted your invention summary. Please review and let me know if anything needs adjustment."
	}
	return s
}
