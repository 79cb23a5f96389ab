package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"google.golang.org/genai"
)

const DefaultSketchModel = "gemini-2.0-flash"

const sketchPrompt = "You are analyzing an inventor's sketch or diagram for a patent application. " +
	"Describe in detail:\n" +
	"1. What the sketch depicts (components, connections, layout)\n" +
	"2. The apparent purpose or function of the invention\n" +
	"3. Any text, labels, or annotations visible\n" +
	"4. Technical components or mechanisms you can identify\n" +
	"Be specific and technical. This description will be used to generate a patent brief."

// SketchDescriber downloads a sketch image and describes it with a vision
// model.
type SketchDescriber struct {
	client *genai.Client
	http   *http.Client
	model  string
}

func NewSketchDescriber(ctx context.Context, apiKey, model string) (*SketchDescriber, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY not configured")
	}
	if model == "" {
		model = DefaultSketchModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &SketchDescriber{
		client: client,
		http:   &http.Client{Timeout: 30 * time.Second},
		model:  model,
	}, nil
}

// Describe fetches the image at sketchURL and returns a technical description
// of what it depicts.
func (s *SketchDescriber) Describe(ctx context.Context, sketchURL string) (string, error) {
	image, err := fetchBytes(ctx, s.http, sketchURL)
	if err != nil {
		return "", fmt.Errorf("download sketch: %w", err)
	}
	mime := http.DetectContentType(image)

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(sketchPrompt),
		genai.NewPartFromBytes(image, mime),
	}, genai.RoleUser)}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.2),
		MaxOutputTokens: 1024,
	})
	if err != nil {
		return "", fmt.Errorf("sketch analysis: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("sketch analysis returned no text")
	}
	log.Printf("brain-media sketch_analyzed chars=%d mime=%s", len(text), mime)
	return text, nil
}
