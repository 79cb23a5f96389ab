package refine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ideacapital/brain/internal/invention"
	"github.com/ideacapital/brain/internal/structurer"
)

type memStore struct {
	mu     sync.Mutex
	drafts map[string]*invention.Draft
	fields map[string]map[string]any
	turns  map[string][]invention.ConversationTurn

	updateErr error
	appendErr error
}

func newMemStore() *memStore {
	return &memStore{
		drafts: map[string]*invention.Draft{},
		fields: map[string]map[string]any{},
		turns:  map[string][]invention.ConversationTurn{},
	}
}

func (m *memStore) GetDraft(ctx context.Context, inventionID string) (*invention.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[inventionID]
	if !ok {
		return nil, invention.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *memStore) PutDraft(ctx context.Context, d *invention.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *d
	m.drafts[d.InventionID] = &copied
	return nil
}

func (m *memStore) UpdateDraftFields(ctx context.Context, inventionID string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.fields[inventionID] == nil {
		m.fields[inventionID] = map[string]any{}
	}
	for k, v := range fields {
		m.fields[inventionID][k] = v
	}
	return nil
}

func (m *memStore) AppendTurns(ctx context.Context, inventionID string, turns ...invention.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.turns[inventionID] = append(m.turns[inventionID], turns...)
	return nil
}

func (m *memStore) RecentTurns(ctx context.Context, inventionID string, limit int) ([]invention.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.turns[inventionID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]invention.ConversationTurn, len(all))
	copy(out, all)
	return out, nil
}

type fakeCaller struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCaller) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeCaller) ModelName() string { return "fake-model" }

func TestClassifyHardwareKeywords(t *testing.T) {
	res := Classify("The main component is a titanium frame")
	if res.Completeness != CompletenessHardware {
		t.Fatalf("completeness = %d, want %d", res.Completeness, CompletenessHardware)
	}
	hw, ok := res.UpdatedFields["hardware_requirements"].([]string)
	if !ok || len(hw) != 1 {
		t.Fatalf("unexpected hardware_requirements: %#v", res.UpdatedFields)
	}
	if !strings.HasPrefix(hw[0], "Based on user input: The main component") {
		t.Fatalf("hardware entry = %q", hw[0])
	}
}

func TestClassifyProblemKeywords(t *testing.T) {
	long := "This would solve " + strings.Repeat("x", 400)
	res := Classify(long)
	if res.Completeness != CompletenessProblem {
		t.Fatalf("completeness = %d, want %d", res.Completeness, CompletenessProblem)
	}
	bp, _ := res.UpdatedFields["background_problem"].(string)
	if len(bp) != 300 {
		t.Fatalf("background_problem length = %d, want 300", len(bp))
	}
}

func TestClassifyHardwareWinsOverProblem(t *testing.T) {
	res := Classify("the hardware solves the problem")
	if res.Completeness != CompletenessHardware {
		t.Fatalf("completeness = %d, want hardware priority %d", res.Completeness, CompletenessHardware)
	}
}

func TestClassifyGeneric(t *testing.T) {
	res := Classify("it spins really fast")
	if res.Completeness != CompletenessGeneric {
		t.Fatalf("completeness = %d, want %d", res.Completeness, CompletenessGeneric)
	}
	if len(res.UpdatedFields) != 0 {
		t.Fatalf("generic turn must not update fields: %#v", res.UpdatedFields)
	}
}

func TestContinueWithoutBackendUsesClassifierAndPersists(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store, structurer.NewEngine(nil, structurer.Config{}))

	res := tracker.Continue(context.Background(), "inv-1", "the material is carbon fiber")
	if res.Completeness != CompletenessHardware {
		t.Fatalf("completeness = %d", res.Completeness)
	}
	if _, ok := store.fields["inv-1"]["hardware_requirements"]; !ok {
		t.Fatal("updated fields were not applied to the store")
	}
	turns := store.turns["inv-1"]
	if len(turns) != 2 {
		t.Fatalf("expected 2 appended turns, got %d", len(turns))
	}
	if turns[0].Role != invention.RoleUser || turns[1].Role != invention.RoleAssistant {
		t.Fatalf("turn roles = %s, %s", turns[0].Role, turns[1].Role)
	}
}

func TestContinueLiveTurnParsesResponse(t *testing.T) {
	store := newMemStore()
	store.drafts["inv-2"] = &invention.Draft{InventionID: "inv-2", Status: invention.StatusDraft}
	store.turns["inv-2"] = []invention.ConversationTurn{
		{Role: invention.RoleUser, Content: "hello", CreatedAt: time.Now()},
	}
	caller := &fakeCaller{response: "```json\n" +
		`{"agent_reply":"Noted.","updated_fields":{"solution_summary":"better"},"completeness_percentage":80}` +
		"\n```"}
	tracker := NewTracker(store, structurer.NewEngine(caller, structurer.Config{}))

	res := tracker.Continue(context.Background(), "inv-2", "the solution is simpler now")
	if res.AgentReply != "Noted." || res.Completeness != 80 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := store.fields["inv-2"]["solution_summary"]; got != "better" {
		t.Fatalf("solution_summary = %v", got)
	}
	if len(caller.prompts) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(caller.prompts))
	}
	prompt := caller.prompts[0]
	if !strings.Contains(prompt, "USER: hello") {
		t.Fatalf("prompt missing history: %q", prompt)
	}
	if !strings.Contains(prompt, `"invention_id": "inv-2"`) {
		t.Fatalf("prompt missing serialized draft: %q", prompt)
	}
}

func TestContinueLiveFailureFallsBackToClassifier(t *testing.T) {
	store := newMemStore()
	caller := &fakeCaller{err: errors.New("status code: 500")}
	tracker := NewTracker(store, structurer.NewEngine(caller, structurer.Config{}))

	res := tracker.Continue(context.Background(), "inv-3", "what problem does it solve")
	if res.Completeness != CompletenessProblem {
		t.Fatalf("completeness = %d, want classifier fallback %d", res.Completeness, CompletenessProblem)
	}
}

func TestContinueClampsCompleteness(t *testing.T) {
	store := newMemStore()
	caller := &fakeCaller{response: `{"agent_reply":"ok","updated_fields":{},"completeness_percentage":250}`}
	tracker := NewTracker(store, structurer.NewEngine(caller, structurer.Config{}))

	res := tracker.Continue(context.Background(), "inv-4", "more detail")
	if res.Completeness != 100 {
		t.Fatalf("completeness = %d, want clamp to 100", res.Completeness)
	}
}

func TestContinueStoreFailureDoesNotFailTurn(t *testing.T) {
	store := newMemStore()
	store.updateErr = errors.New("db down")
	store.appendErr = errors.New("db down")
	tracker := NewTracker(store, structurer.NewEngine(nil, structurer.Config{}))

	res := tracker.Continue(context.Background(), "inv-5", "hardware details")
	if res.AgentReply == "" {
		t.Fatal("turn failed on store error")
	}
}

func TestFormatHistory(t *testing.T) {
	if got := FormatHistory(nil); got != "(No prior conversation)" {
		t.Fatalf("empty history = %q", got)
	}
	got := FormatHistory([]invention.ConversationTurn{
		{Role: invention.RoleUser, Content: "hi"},
		{Role: invention.RoleAssistant, Content: "hello"},
	})
	want := "USER: hi\nASSISTANT: hello"
	if got != want {
		t.Fatalf("history = %q, want %q", got, want)
	}
}

func TestContinueSerializesPerInvention(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store, structurer.NewEngine(nil, structurer.Config{}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Continue(context.Background(), "inv-6", "component details")
		}()
	}
	wg.Wait()

	if got := len(store.turns["inv-6"]); got != 16 {
		t.Fatalf("expected 16 turns, got %d", got)
	}
}
