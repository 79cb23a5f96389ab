package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ideacapital/brain/internal/invention"
)

// SQLiteStore persists invention drafts and conversation turns. The draft is
// stored as one JSON document per invention; field updates from refinement
// turns are routed into the right nested section before the document is
// written back.
type SQLiteStore struct {
	db *sqlx.DB
	mu sync.Mutex
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS drafts (
	invention_id TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'DRAFT',
	doc          TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS conversation_turns (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	invention_id TEXT NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_invention ON conversation_turns (invention_id, id);
`

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetDraft(ctx context.Context, inventionID string) (*invention.Draft, error) {
	var doc string
	err := s.db.QueryRowxContext(ctx, "SELECT doc FROM drafts WHERE invention_id = ?", inventionID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, invention.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var d invention.Draft
	if err := json.Unmarshal([]byte(doc), &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", inventionID, err)
	}
	return &d, nil
}

func (s *SQLiteStore) PutDraft(ctx context.Context, d *invention.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	doc, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO drafts (invention_id, status, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		d.InventionID,
		string(d.Status),
		string(doc),
		timeToString(d.CreatedAt),
		timeToString(d.UpdatedAt),
	)
	return err
}

// fieldSection routes a flat schema field name to its nested section of the
// draft document. Unknown fields land at the top level unchanged.
var fieldSection = map[string]string{
	"display_title": "social_metadata",
	"short_pitch":   "social_metadata",
	"virality_tags": "social_metadata",
	"media_assets":  "social_metadata",

	"technical_field":       "technical_brief",
	"background_problem":    "technical_brief",
	"solution_summary":      "technical_brief",
	"core_mechanics":        "technical_brief",
	"novelty_claims":        "technical_brief",
	"hardware_requirements": "technical_brief",
	"software_logic":        "technical_brief",

	"potential_prior_art": "risk_assessment",
	"feasibility_score":   "risk_assessment",
	"missing_info":        "risk_assessment",
}

// UpdateDraftFields applies flat field updates to the stored document.
// Updates are additive-only: a field is added or overwritten, never removed.
func (s *SQLiteStore) UpdateDraftFields(ctx context.Context, inventionID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var docJSON, createdAt string
	err := s.db.QueryRowxContext(ctx, "SELECT doc, created_at FROM drafts WHERE invention_id = ?", inventionID).Scan(&docJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return invention.ErrNotFound
	}
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		return fmt.Errorf("decode draft %s: %w", inventionID, err)
	}
	for key, value := range fields {
		section, ok := fieldSection[key]
		if !ok {
			doc[key] = value
			continue
		}
		nested, _ := doc[section].(map[string]any)
		if nested == nil {
			nested = map[string]any{}
		}
		nested[key] = value
		doc[section] = nested
	}
	now := time.Now().UTC()
	doc["updated_at"] = now.Format(time.RFC3339Nano)

	updated, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	status, _ := doc["status"].(string)
	_, err = s.db.ExecContext(ctx, `UPDATE drafts SET doc = ?, status = ?, updated_at = ? WHERE invention_id = ?`,
		string(updated), status, timeToString(now), inventionID)
	return err
}

func (s *SQLiteStore) AppendTurns(ctx context.Context, inventionID string, turns ...invention.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, turn := range turns {
		created := turn.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO conversation_turns (invention_id, role, content, created_at)
			VALUES (?, ?, ?, ?)`,
			inventionID, turn.Role, turn.Content, timeToString(created)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// RecentTurns returns the last limit turns oldest-first. The window is
// applied in the query, not by loading the full history.
func (s *SQLiteStore) RecentTurns(ctx context.Context, inventionID string, limit int) ([]invention.ConversationTurn, error) {
	if limit <= 0 {
		limit = invention.HistoryWindow
	}
	rows, err := s.db.QueryContext(ctx, `SELECT role, content, created_at FROM conversation_turns
		WHERE invention_id = ? ORDER BY id DESC LIMIT ?`, inventionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := []invention.ConversationTurn{}
	for rows.Next() {
		var t invention.ConversationTurn
		var createdAt string
		if err := rows.Scan(&t.Role, &t.Content, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

var _ invention.Store = (*SQLiteStore)(nil)
