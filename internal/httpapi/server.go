package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ideacapital/brain/internal/agent"
	"github.com/ideacapital/brain/internal/invention"
	"github.com/ideacapital/brain/internal/report"
)

// PDFRenderer prints a markdown brief to PDF. Nil means PDF output is not
// available on this deployment.
type PDFRenderer interface {
	Render(ctx context.Context, markdown string) ([]byte, error)
}

type Server struct {
	svc      *agent.Service
	store    invention.Store
	renderer PDFRenderer
}

func NewServer(svc *agent.Service, store invention.Store, renderer PDFRenderer) http.Handler {
	s := &Server{svc: svc, store: store, renderer: renderer}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/brain/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/brain/chat", s.handleChat)
	mux.HandleFunc("/api/brain/prove_novelty", s.handleProveNovelty)
	mux.HandleFunc("/api/brain/inventions/", s.handleInventionReport)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrNoInput):
		writeError(w, http.StatusBadRequest, "validation", "At least one input required")
	case errors.Is(err, invention.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "invention draft not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func decodeJSONBody(r *http.Request, dst any) error {
	blob, err := readBody(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(blob, dst)
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req agent.AnalyzeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.InventionID) == "" {
		writeError(w, http.StatusBadRequest, "validation", "invention_id is required")
		return
	}
	res, err := s.svc.Analyze(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req agent.ChatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.InventionID) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "validation", "invention_id and message are required")
		return
	}
	res, err := s.svc.Chat(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleProveNovelty(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req agent.ProveNoveltyRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.InventionID) == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "validation", "invention_id and content are required")
		return
	}
	res, err := s.svc.ProveNovelty(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInventionReport(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/brain/inventions/")
	if !strings.HasSuffix(path, "/report") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	inventionID := strings.TrimSuffix(strings.TrimSuffix(path, "/report"), "/")
	if inventionID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	draft, err := s.store.GetDraft(r.Context(), inventionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	markdown := report.BuildBriefMarkdown(draft)

	switch strings.TrimSpace(r.URL.Query().Get("format")) {
	case "", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(markdown))
	case "html":
		html, err := report.RenderHTML(markdown)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(html))
	case "pdf":
		if s.renderer == nil {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "PDF rendering not configured")
			return
		}
		pdf, err := s.renderer.Render(r.Context(), markdown)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
	default:
		writeError(w, http.StatusBadRequest, "validation", "format must be md, html, or pdf")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": invention.CapabilityInventionBrain,
	})
}
