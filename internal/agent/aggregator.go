package agent

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/ideacapital/brain/internal/invention"
)

// ErrNoInput reports an analyze request with no text, voice, or sketch.
var ErrNoInput = errors.New("agent: at least one input required")

// Transcriber turns a voice note URL into text.
type Transcriber interface {
	Transcribe(ctx context.Context, voiceURL string) (string, error)
}

// SketchAnalyzer turns a sketch URL into a technical description.
type SketchAnalyzer interface {
	Describe(ctx context.Context, sketchURL string) (string, error)
}

// RawInput is the multi-modal input of an analyze request.
type RawInput struct {
	RawText   string
	VoiceURL  string
	SketchURL string
}

func (in RawInput) empty() bool {
	return in.RawText == "" && in.VoiceURL == "" && in.SketchURL == ""
}

// Aggregator merges the available inputs into one labelled text context.
// Collaborator failures degrade to bounded placeholders; only a fully empty
// request is an error. Either collaborator may be nil.
type Aggregator struct {
	voice  Transcriber
	sketch SketchAnalyzer
}

func NewAggregator(voice Transcriber, sketch SketchAnalyzer) *Aggregator {
	return &Aggregator{voice: voice, sketch: sketch}
}

// Aggregate renders the inputs in fixed order: text, then voice, then
// sketch. Each contributes one labelled line.
func (a *Aggregator) Aggregate(ctx context.Context, in RawInput) (string, error) {
	if in.empty() {
		return "", ErrNoInput
	}

	var b strings.Builder
	if in.RawText != "" {
		b.WriteString("Text description: " + in.RawText + "\n")
	}
	if in.VoiceURL != "" {
		b.WriteString("Voice transcription: " + a.transcribe(ctx, in.VoiceURL) + "\n")
	}
	if in.SketchURL != "" {
		b.WriteString("Sketch analysis: " + a.describe(ctx, in.SketchURL) + "\n")
	}
	return b.String(), nil
}

func (a *Aggregator) transcribe(ctx context.Context, voiceURL string) string {
	if a.voice == nil {
		return "[Voice note uploaded — transcription unavailable]"
	}
	text, err := a.voice.Transcribe(ctx, voiceURL)
	if err != nil {
		log.Printf("brain-agent voice_transcription_failed err=%q", err.Error())
		return "[Voice note uploaded — transcription failed: " + invention.Truncate(err.Error(), 100) + "]"
	}
	return text
}

func (a *Aggregator) describe(ctx context.Context, sketchURL string) string {
	if a.sketch == nil {
		return "[Sketch uploaded — visual analysis unavailable]"
	}
	text, err := a.sketch.Describe(ctx, sketchURL)
	if err != nil {
		log.Printf("brain-agent sketch_analysis_failed err=%q", err.Error())
		return "[Sketch uploaded — visual analysis failed: " + invention.Truncate(err.Error(), 100) + "]"
	}
	return text
}
