package structurer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrNoBackend reports that no generative backend is configured. Callers fall
// back to their deterministic path without logging it as a failure.
var ErrNoBackend = errors.New("structurer: no generative backend configured")

// Refinement is the outcome of one conversation turn.
type Refinement struct {
	AgentReply    string         `json:"agent_reply"`
	UpdatedFields map[string]any `json:"updated_fields"`
	Completeness  int            `json:"completeness_percentage"`
}

// Refine runs one refinement turn against the backend. draftJSON is the
// serialized current draft, history the role-prefixed conversation so far.
// Transport and parse failures come back as errors; the caller decides the
// fallback.
func (e *Engine) Refine(ctx context.Context, draftJSON, history, userMessage string) (Refinement, error) {
	if e.caller == nil {
		return Refinement{}, ErrNoBackend
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := fmt.Sprintf(ConversationPromptFormat, draftJSON, history, userMessage)
	started := time.Now()
	raw, err := e.caller.GenerateJSON(callCtx, SystemPrompt, prompt)
	if err != nil {
		class := classifyTransportError(err)
		log.Printf("brain-structurer refine_transport_error class=%d elapsed_ms=%d err=%q", class, time.Since(started).Milliseconds(), err.Error())
		return Refinement{}, err
	}

	var out Refinement
	clean := stripCodeFences(raw)
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		log.Printf("brain-structurer refine_parse_error elapsed_ms=%d err=%q response_chars=%d", time.Since(started).Milliseconds(), err.Error(), len(clean))
		return Refinement{}, err
	}
	if out.UpdatedFields == nil {
		out.UpdatedFields = map[string]any{}
	}
	return out, nil
}
