package invention

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.GetDraft when no draft exists for the id.
var ErrNotFound = errors.New("invention: draft not found")

// Store is the document-store contract the pipeline depends on. Reads and
// writes are per-call atomic; no transactional discipline beyond that is
// assumed. RecentTurns returns at most limit turns, oldest first among the
// most recent limit — the windowing is a store-side query, not client-side
// truncation of an unbounded fetch.
type Store interface {
	GetDraft(ctx context.Context, inventionID string) (*Draft, error)
	PutDraft(ctx context.Context, draft *Draft) error
	UpdateDraftFields(ctx context.Context, inventionID string, fields map[string]any) error
	AppendTurns(ctx context.Context, inventionID string, turns ...ConversationTurn) error
	RecentTurns(ctx context.Context, inventionID string, limit int) ([]ConversationTurn, error)
}
