package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ideacapital/brain/internal/agent"
	"github.com/ideacapital/brain/internal/invention"
	"github.com/ideacapital/brain/internal/priorart"
	"github.com/ideacapital/brain/internal/proof"
	"github.com/ideacapital/brain/internal/refine"
	"github.com/ideacapital/brain/internal/structurer"
)

type memStore struct {
	drafts map[string]*invention.Draft
}

func newMemStore() *memStore {
	return &memStore{drafts: map[string]*invention.Draft{}}
}

func (m *memStore) GetDraft(ctx context.Context, id string) (*invention.Draft, error) {
	d, ok := m.drafts[id]
	if !ok {
		return nil, invention.ErrNotFound
	}
	return d, nil
}

func (m *memStore) PutDraft(ctx context.Context, d *invention.Draft) error {
	m.drafts[d.InventionID] = d
	return nil
}

func (m *memStore) UpdateDraftFields(ctx context.Context, id string, fields map[string]any) error {
	return nil
}

func (m *memStore) AppendTurns(ctx context.Context, id string, turns ...invention.ConversationTurn) error {
	return nil
}

func (m *memStore) RecentTurns(ctx context.Context, id string, limit int) ([]invention.ConversationTurn, error) {
	return nil, nil
}

type fakeRenderer struct {
	pdf []byte
	err error
}

func (f *fakeRenderer) Render(ctx context.Context, markdown string) ([]byte, error) {
	return f.pdf, f.err
}

func newTestHandler(store invention.Store, renderer PDFRenderer) http.Handler {
	engine := structurer.NewEngine(nil, structurer.Config{})
	svc := agent.NewService(
		agent.NewAggregator(nil, nil),
		engine,
		priorart.NewMatcher(nil),
		refine.NewTracker(store, engine),
		proof.NewProver(proof.Config{}),
		store,
	)
	return NewServer(svc, store, renderer)
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpoint(t *testing.T) {
	h := newTestHandler(newMemStore(), nil)

	rec := postJSON(t, h, "/api/brain/analyze", `{"invention_id":"inv-1","creator_id":"c","raw_text":"a folding drone"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var res agent.AnalyzeResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != invention.StatusReviewReady {
		t.Fatalf("status = %q", res.Status)
	}
	if res.AgentMessage == "" {
		t.Fatal("agent message empty")
	}
}

func TestAnalyzeEndpointNoInput(t *testing.T) {
	h := newTestHandler(newMemStore(), nil)

	rec := postJSON(t, h, "/api/brain/analyze", `{"invention_id":"inv-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "At least one input required") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAnalyzeEndpointMissingID(t *testing.T) {
	h := newTestHandler(newMemStore(), nil)
	rec := postJSON(t, h, "/api/brain/analyze", `{"raw_text":"idea"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	h := newTestHandler(newMemStore(), nil)

	rec := postJSON(t, h, "/api/brain/chat", `{"invention_id":"inv-1","message":"the material is steel"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var res agent.ChatResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.SchemaCompleteness != refine.CompletenessHardware {
		t.Fatalf("completeness = %d", res.SchemaCompleteness)
	}
}

func TestChatEndpointRequiresMessage(t *testing.T) {
	h := newTestHandler(newMemStore(), nil)
	rec := postJSON(t, h, "/api/brain/chat", `{"invention_id":"inv-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProveNoveltyEndpoint(t *testing.T) {
	h := newTestHandler(newMemStore(), nil)

	rec := postJSON(t, h, "/api/brain/prove_novelty", `{"invention_id":"inv-1","content":"secret sauce"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var res agent.ProveNoveltyResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != "PROOF_GENERATED" {
		t.Fatalf("status = %q", res.Status)
	}
	if len(res.Proof.PublicSignals) != 1 {
		t.Fatalf("public signals = %v", res.Proof.PublicSignals)
	}
}

func TestReportEndpointMarkdown(t *testing.T) {
	store := newMemStore()
	store.drafts["inv-1"] = &invention.Draft{
		InventionID:    "inv-1",
		Status:         invention.StatusReviewReady,
		SocialMetadata: invention.SocialMetadata{DisplayTitle: "Solar Umbrella"},
	}
	h := newTestHandler(store, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/brain/inventions/inv-1/report", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/markdown") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "# Invention Brief: Solar Umbrella") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestReportEndpointHTML(t *testing.T) {
	store := newMemStore()
	store.drafts["inv-1"] = &invention.Draft{InventionID: "inv-1"}
	h := newTestHandler(store, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/brain/inventions/inv-1/report?format=html", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<!doctype html>") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestReportEndpointPDFUnavailable(t *testing.T) {
	store := newMemStore()
	store.drafts["inv-1"] = &invention.Draft{InventionID: "inv-1"}
	h := newTestHandler(store, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/brain/inventions/inv-1/report?format=pdf", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestReportEndpointPDF(t *testing.T) {
	store := newMemStore()
	store.drafts["inv-1"] = &invention.Draft{InventionID: "inv-1"}
	h := newTestHandler(store, &fakeRenderer{pdf: []byte("%PDF-1.7")})

	req := httptest.NewRequest(http.MethodGet, "/api/brain/inventions/inv-1/report?format=pdf", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestReportEndpointNotFound(t *testing.T) {
	h := newTestHandler(newMemStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/brain/inventions/missing/report", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestReportEndpointRendererFailure(t *testing.T) {
	store := newMemStore()
	store.drafts["inv-1"] = &invention.Draft{InventionID: "inv-1"}
	h := newTestHandler(store, &fakeRenderer{err: errors.New("chromium crashed")})

	req := httptest.NewRequest(http.MethodGet, "/api/brain/inventions/inv-1/report?format=pdf", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(newMemStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invention-brain") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(newMemStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/brain/analyze", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
