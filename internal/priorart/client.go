package priorart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	PatentsViewBaseURL    = "https://search.patentsview.org"
	patentsViewPatentPath = "/api/v1/patent/"
	patentLinkFormat      = "https://patents.google.com/patent/US%s"
)

type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// PatentsViewClient runs keyword searches against the PatentsView patent
// endpoint. It implements SearchClient.
type PatentsViewClient struct {
	cfg ClientConfig
}

func NewPatentsViewClient(cfg ClientConfig) (*PatentsViewClient, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("PATENTSVIEW_API_KEY not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = PatentsViewBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &PatentsViewClient{cfg: cfg}, nil
}

type patentAPIResponse struct {
	Error   bool `json:"error"`
	Count   int  `json:"count"`
	Patents []struct {
		PatentID string `json:"patent_id"`
		Title    string `json:"patent_title"`
		Abstract string `json:"patent_abstract"`
	} `json:"patents"`
}

func (c *PatentsViewClient) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = MaxCandidates
	}
	body := map[string]any{
		"q": map[string]any{"_or": []any{
			map[string]any{"_text_any": map[string]any{"patent_title": query}},
			map[string]any{"_text_any": map[string]any{"patent_abstract": query}},
		}},
		"f": []string{"patent_id", "patent_title", "patent_abstract"},
		"s": []map[string]string{{"patent_date": "desc"}, {"patent_id": "asc"}},
		"o": map[string]int{"size": limit},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+patentsViewPatentPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.APIKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<20))

	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("status code: %d body=%s", res.StatusCode, string(b))
	}
	var parsed patentAPIResponse
	if err := json.Unmarshal(b, &parsed); err != nil {
		return nil, err
	}
	if parsed.Error {
		return nil, fmt.Errorf("patentsview error flag true body=%s", string(b))
	}

	out := make([]Candidate, 0, len(parsed.Patents))
	for _, p := range parsed.Patents {
		id := strings.TrimSpace(p.PatentID)
		if id == "" {
			continue
		}
		out = append(out, Candidate{
			PatentID: id,
			Title:    strings.TrimSpace(p.Title),
			Snippet:  strings.TrimSpace(p.Abstract),
			Link:     fmt.Sprintf(patentLinkFormat, id),
			Source:   "PatentsView",
		})
	}
	return out, nil
}
