package media

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

// EmptyTranscript is returned when recognition succeeds but yields no speech.
const EmptyTranscript = "[Voice note was empty or inaudible]"

// VoiceTranscriber downloads a voice note and transcribes it with Cloud
// Speech-to-Text.
type VoiceTranscriber struct {
	client *speech.Client
	http   *http.Client
}

func NewVoiceTranscriber(ctx context.Context) (*VoiceTranscriber, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &VoiceTranscriber{
		client: c,
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (v *VoiceTranscriber) Close() error {
	return v.client.Close()
}

// Transcribe fetches the audio at voiceURL and returns its transcript. An
// audible-but-empty recording is not an error; the placeholder transcript
// flows into the aggregated context like any other.
func (v *VoiceTranscriber) Transcribe(ctx context.Context, voiceURL string) (string, error) {
	audio, err := fetchBytes(ctx, v.http, voiceURL)
	if err != nil {
		return "", fmt.Errorf("download voice note: %w", err)
	}

	resp, err := v.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode: "en-US",
			Model:        "latest_long",
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("speech recognize: %w", err)
	}

	var sb strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		transcript := strings.TrimSpace(result.Alternatives[0].Transcript)
		if transcript == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(transcript)
	}
	out := strings.TrimSpace(sb.String())
	log.Printf("brain-media voice_transcribed chars=%d", len(out))
	if out == "" {
		return EmptyTranscript, nil
	}
	return out, nil
}
