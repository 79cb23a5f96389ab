package refine

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ideacapital/brain/internal/invention"
	"github.com/ideacapital/brain/internal/structurer"
)

// Tracker drives multi-turn refinement of an invention draft. Each turn loads
// the draft and recent history, asks the structuring engine for a refinement,
// and falls back to the deterministic classifier on any failure. Updated
// fields and the conversation exchange are persisted best-effort; a store
// failure never fails the turn.
type Tracker struct {
	store  invention.Store
	engine *structurer.Engine

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTracker(store invention.Store, engine *structurer.Engine) *Tracker {
	return &Tracker{store: store, engine: engine, locks: map[string]*sync.Mutex{}}
}

// Continue runs one refinement turn. Concurrent turns for the same invention
// are serialized within the process so interleaved reads and writes cannot
// produce a draft neither turn intended. Cross-process writes remain
// last-writer-wins.
func (t *Tracker) Continue(ctx context.Context, inventionID, userMessage string) TurnResult {
	lock := t.inventionLock(inventionID)
	lock.Lock()
	defer lock.Unlock()

	res, err := t.refineLive(ctx, inventionID, userMessage)
	if err != nil {
		if !errors.Is(err, structurer.ErrNoBackend) {
			log.Printf("brain-refine live_turn_failed invention_id=%s err=%q", inventionID, err.Error())
		}
		res = Classify(userMessage)
	}
	res.Completeness = invention.ClampCompleteness(res.Completeness)
	if res.UpdatedFields == nil {
		res.UpdatedFields = map[string]any{}
	}

	if len(res.UpdatedFields) > 0 {
		if err := t.store.UpdateDraftFields(ctx, inventionID, res.UpdatedFields); err != nil {
			log.Printf("brain-refine apply_fields_failed invention_id=%s fields=%d err=%q", inventionID, len(res.UpdatedFields), err.Error())
		} else {
			log.Printf("brain-refine fields_applied invention_id=%s fields=%d", inventionID, len(res.UpdatedFields))
		}
	}

	now := time.Now().UTC()
	err = t.store.AppendTurns(ctx, inventionID,
		invention.ConversationTurn{Role: invention.RoleUser, Content: userMessage, CreatedAt: now},
		invention.ConversationTurn{Role: invention.RoleAssistant, Content: res.AgentReply, CreatedAt: now},
	)
	if err != nil {
		log.Printf("brain-refine append_turns_failed invention_id=%s err=%q", inventionID, err.Error())
	}
	return res
}

func (t *Tracker) refineLive(ctx context.Context, inventionID, userMessage string) (TurnResult, error) {
	if t.engine == nil || !t.engine.Available() {
		return TurnResult{}, structurer.ErrNoBackend
	}

	draftJSON := "{}"
	if draft, err := t.store.GetDraft(ctx, inventionID); err == nil {
		if b, err := json.MarshalIndent(draft, "", "  "); err == nil {
			draftJSON = string(b)
		}
	} else if !errors.Is(err, invention.ErrNotFound) {
		log.Printf("brain-refine load_draft_failed invention_id=%s err=%q", inventionID, err.Error())
	}

	turns, err := t.store.RecentTurns(ctx, inventionID, invention.HistoryWindow)
	if err != nil {
		log.Printf("brain-refine load_history_failed invention_id=%s err=%q", inventionID, err.Error())
		turns = nil
	}

	ref, err := t.engine.Refine(ctx, draftJSON, FormatHistory(turns), userMessage)
	if err != nil {
		return TurnResult{}, err
	}
	return TurnResult{
		AgentReply:    ref.AgentReply,
		UpdatedFields: ref.UpdatedFields,
		Completeness:  ref.Completeness,
	}, nil
}

// FormatHistory renders turns oldest-first as "ROLE: content" lines for the
// refinement prompt.
func FormatHistory(turns []invention.ConversationTurn) string {
	if len(turns) == 0 {
		return "(No prior conversation)"
	}
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, strings.ToUpper(turn.Role)+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}

// inventionLock returns the per-invention mutex, creating it on first use.
// Entries are never evicted; the active invention set per process is small.
func (t *Tracker) inventionLock(inventionID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[inventionID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[inventionID] = lock
	}
	return lock
}
