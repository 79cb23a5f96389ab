package agent

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ideacapital/brain/internal/invention"
	"github.com/ideacapital/brain/internal/priorart"
	"github.com/ideacapital/brain/internal/proof"
	"github.com/ideacapital/brain/internal/refine"
	"github.com/ideacapital/brain/internal/structurer"
)

type AnalyzeRequest struct {
	InventionID string `json:"invention_id"`
	CreatorID   string `json:"creator_id"`
	RawText     string `json:"raw_text,omitempty"`
	VoiceURL    string `json:"voice_url,omitempty"`
	SketchURL   string `json:"sketch_url,omitempty"`
}

type AnalyzeResult struct {
	InventionID    string                   `json:"invention_id"`
	Status         invention.Status         `json:"status"`
	SocialMetadata invention.SocialMetadata `json:"social_metadata"`
	TechnicalBrief invention.TechnicalBrief `json:"technical_brief"`
	RiskAssessment invention.RiskAssessment `json:"risk_assessment"`
	AgentMessage   string                   `json:"agent_message"`
}

type ChatRequest struct {
	InventionID string `json:"invention_id"`
	CreatorID   string `json:"creator_id"`
	Message     string `json:"message"`
}

type ChatResult struct {
	InventionID        string         `json:"invention_id"`
	AgentMessage       string         `json:"agent_message"`
	UpdatedFields      map[string]any `json:"updated_fields"`
	SchemaCompleteness int            `json:"schema_completeness"`
}

type ProveNoveltyRequest struct {
	InventionID string `json:"invention_id"`
	Content     string `json:"content"`
}

type ProveNoveltyResult struct {
	InventionID string         `json:"invention_id"`
	Status      string         `json:"status"`
	Proof       proof.Artifact `json:"proof"`
}

// Service is the synchronous surface of the invention brain. It composes the
// aggregator, structuring engine, prior-art matcher, refinement tracker, and
// proof adapter; the dispatcher and the HTTP server both call it.
type Service struct {
	aggregator *Aggregator
	engine     *structurer.Engine
	matcher    *priorart.Matcher
	tracker    *refine.Tracker
	prover     *proof.Prover
	store      invention.Store
	tracer     trace.Tracer
}

func NewService(aggregator *Aggregator, engine *structurer.Engine, matcher *priorart.Matcher, tracker *refine.Tracker, prover *proof.Prover, store invention.Store) *Service {
	return &Service{
		aggregator: aggregator,
		engine:     engine,
		matcher:    matcher,
		tracker:    tracker,
		prover:     prover,
		store:      store,
		tracer:     otel.Tracer("brain-agent"),
	}
}

// Analyze is the initial structuring pass: aggregate the inputs, structure
// them, run prior-art search, and persist the draft. Only an empty request
// fails; every collaborator failure degrades.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	ctx, span := s.tracer.Start(ctx, "analyze",
		trace.WithAttributes(attribute.String("invention.id", req.InventionID)))
	defer span.End()

	started := time.Now()
	log.Printf("brain-agent analyze_start invention_id=%s creator_id=%s", req.InventionID, req.CreatorID)

	inputContext, err := s.aggregator.Aggregate(ctx, RawInput{
		RawText:   req.RawText,
		VoiceURL:  req.VoiceURL,
		SketchURL: req.SketchURL,
	})
	if err != nil {
		return nil, err
	}

	structured := s.engine.Structure(ctx, inputContext)
	priorArt := s.matcher.Search(ctx, structured.TechnicalField, structured.SolutionSummary)

	result := &AnalyzeResult{
		InventionID: req.InventionID,
		Status:      invention.StatusReviewReady,
		SocialMetadata: invention.SocialMetadata{
			DisplayTitle: structured.DisplayTitle,
			ShortPitch:   structured.ShortPitch,
			ViralityTags: structured.ViralityTags,
		},
		TechnicalBrief: invention.TechnicalBrief{
			TechnicalField:       structured.TechnicalField,
			BackgroundProblem:    structured.BackgroundProblem,
			SolutionSummary:      structured.SolutionSummary,
			CoreMechanics:        structured.CoreMechanics,
			NoveltyClaims:        structured.NoveltyClaims,
			HardwareRequirements: structured.HardwareRequirements,
			SoftwareLogic:        structured.SoftwareLogic,
		},
		RiskAssessment: invention.RiskAssessment{
			PotentialPriorArt: priorArt,
			FeasibilityScore:  structured.FeasibilityScore,
			MissingInfo:       structured.MissingInfo,
		},
		AgentMessage: structured.AgentReply,
	}

	draft := &invention.Draft{
		InventionID:    req.InventionID,
		CreatorID:      req.CreatorID,
		Status:         result.Status,
		SocialMetadata: result.SocialMetadata,
		TechnicalBrief: result.TechnicalBrief,
		RiskAssessment: result.RiskAssessment,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.PutDraft(ctx, draft); err != nil {
		log.Printf("brain-agent draft_persist_failed invention_id=%s err=%q", req.InventionID, err.Error())
	}

	log.Printf("brain-agent analyze_done invention_id=%s elapsed_ms=%d prior_art=%d live_backend=%v",
		req.InventionID, time.Since(started).Milliseconds(), len(priorArt), s.engine.Available())
	return result, nil
}

// Chat runs one refinement turn.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	ctx, span := s.tracer.Start(ctx, "chat",
		trace.WithAttributes(attribute.String("invention.id", req.InventionID)))
	defer span.End()

	log.Printf("brain-agent chat_turn invention_id=%s message_chars=%d", req.InventionID, len(req.Message))
	turn := s.tracker.Continue(ctx, req.InventionID, req.Message)
	return &ChatResult{
		InventionID:        req.InventionID,
		AgentMessage:       turn.AgentReply,
		UpdatedFields:      turn.UpdatedFields,
		SchemaCompleteness: turn.Completeness,
	}, nil
}

// ProveNovelty generates a novelty proof and attaches it to the draft. The
// proof is returned even when attaching it fails; only toolchain execution
// failure is an error.
func (s *Service) ProveNovelty(ctx context.Context, req ProveNoveltyRequest) (*ProveNoveltyResult, error) {
	ctx, span := s.tracer.Start(ctx, "prove_novelty",
		trace.WithAttributes(attribute.String("invention.id", req.InventionID)))
	defer span.End()

	artifact, err := s.prover.Prove(ctx, req.Content)
	if err != nil {
		log.Printf("brain-agent proof_failed invention_id=%s err=%q", req.InventionID, err.Error())
		return nil, err
	}
	if err := s.store.UpdateDraftFields(ctx, req.InventionID, map[string]any{"novelty_proof": artifact}); err != nil {
		log.Printf("brain-agent proof_persist_failed invention_id=%s err=%q", req.InventionID, err.Error())
	}
	return &ProveNoveltyResult{
		InventionID: req.InventionID,
		Status:      "PROOF_GENERATED",
		Proof:       artifact,
	}, nil
}
