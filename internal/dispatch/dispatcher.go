package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ideacapital/brain/internal/agent"
	"github.com/ideacapital/brain/internal/invention"
	"github.com/ideacapital/brain/internal/queue"
)

// ProcessingMessage is the inbound queue payload from the upstream backend.
type ProcessingMessage struct {
	Action      string `json:"action"`
	InventionID string `json:"invention_id"`
	CreatorID   string `json:"creator_id,omitempty"`
	RawText     string `json:"raw_text,omitempty"`
	VoiceURL    string `json:"voice_url,omitempty"`
	SketchURL   string `json:"sketch_url,omitempty"`
	Message     string `json:"message,omitempty"`
}

// CompletionMessage is published when a handler finishes. For chat turns the
// action echoes back as CHAT_RESPONSE.
type CompletionMessage struct {
	InventionID    string `json:"invention_id"`
	Action         string `json:"action"`
	StructuredData any    `json:"structured_data"`
}

// Service is the slice of the agent surface the dispatcher routes to.
type Service interface {
	Analyze(ctx context.Context, req agent.AnalyzeRequest) (*agent.AnalyzeResult, error)
	Chat(ctx context.Context, req agent.ChatRequest) (*agent.ChatResult, error)
}

type Config struct {
	HandleTimeout time.Duration
}

// Dispatcher consumes processing messages, routes them to the agent service,
// and publishes completions. A recognized message is acked on handoff and the
// handler runs async; a handler failure after the ack is logged, never
// redelivered. Only messages that fail before handoff are nacked.
type Dispatcher struct {
	consumer  queue.Consumer
	publisher queue.Publisher
	svc       Service
	timeout   time.Duration
	wg        sync.WaitGroup
}

func New(consumer queue.Consumer, publisher queue.Publisher, svc Service, cfg Config) *Dispatcher {
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = 120 * time.Second
	}
	return &Dispatcher{
		consumer:  consumer,
		publisher: publisher,
		svc:       svc,
		timeout:   cfg.HandleTimeout,
	}
}

// Run consumes until ctx is done, then waits for in-flight handlers.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("brain-dispatch started")
	for {
		m, err := d.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("brain-dispatch receive_failed err=%q", err.Error())
			sleepCtx(ctx, time.Second)
			continue
		}
		d.Process(ctx, m)
	}
	d.wg.Wait()
	log.Printf("brain-dispatch stopped")
}

// Process routes one delivery. Exported for tests; Run is the loop around it.
func (d *Dispatcher) Process(ctx context.Context, m queue.Message) {
	var pm ProcessingMessage
	if err := json.Unmarshal(m.Body, &pm); err != nil {
		log.Printf("brain-dispatch malformed_message id=%s attempt=%d err=%q", m.ID, m.Attempt, err.Error())
		d.nack(ctx, m)
		return
	}
	if pm.Action == "" || pm.InventionID == "" {
		log.Printf("brain-dispatch incomplete_message id=%s attempt=%d action=%q invention_id=%q", m.ID, m.Attempt, pm.Action, pm.InventionID)
		d.nack(ctx, m)
		return
	}

	switch pm.Action {
	case invention.ActionInitialAnalysis, invention.ActionContinueChat:
	default:
		log.Printf("brain-dispatch unknown_action id=%s action=%q invention_id=%s", m.ID, pm.Action, pm.InventionID)
		d.ack(ctx, m)
		return
	}

	log.Printf("brain-dispatch message_received action=%s invention_id=%s attempt=%d", pm.Action, pm.InventionID, m.Attempt)
	d.ack(ctx, m)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.handle(pm)
	}()
}

func (d *Dispatcher) handle(pm ProcessingMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var completion CompletionMessage
	switch pm.Action {
	case invention.ActionInitialAnalysis:
		res, err := d.svc.Analyze(ctx, agent.AnalyzeRequest{
			InventionID: pm.InventionID,
			CreatorID:   pm.CreatorID,
			RawText:     pm.RawText,
			VoiceURL:    pm.VoiceURL,
			SketchURL:   pm.SketchURL,
		})
		if err != nil {
			log.Printf("brain-dispatch analyze_failed invention_id=%s err=%q", pm.InventionID, err.Error())
			return
		}
		completion = CompletionMessage{
			InventionID: pm.InventionID,
			Action:      invention.ActionInitialAnalysis,
			StructuredData: map[string]any{
				"social_metadata": res.SocialMetadata,
				"technical_brief": res.TechnicalBrief,
				"risk_assessment": res.RiskAssessment,
			},
		}
	case invention.ActionContinueChat:
		res, err := d.svc.Chat(ctx, agent.ChatRequest{
			InventionID: pm.InventionID,
			CreatorID:   pm.CreatorID,
			Message:     pm.Message,
		})
		if err != nil {
			log.Printf("brain-dispatch chat_failed invention_id=%s err=%q", pm.InventionID, err.Error())
			return
		}
		completion = CompletionMessage{
			InventionID:    pm.InventionID,
			Action:         invention.ActionChatResponse,
			StructuredData: res.UpdatedFields,
		}
	}

	if err := d.publisher.PublishCompletion(ctx, completion); err != nil {
		log.Printf("brain-dispatch publish_failed invention_id=%s action=%s err=%q", pm.InventionID, completion.Action, err.Error())
		return
	}
	log.Printf("brain-dispatch completion_published invention_id=%s action=%s", pm.InventionID, completion.Action)
}

// Wait blocks until all in-flight handlers finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) ack(ctx context.Context, m queue.Message) {
	if err := d.consumer.Ack(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("brain-dispatch ack_failed id=%s err=%q", m.ID, err.Error())
	}
}

func (d *Dispatcher) nack(ctx context.Context, m queue.Message) {
	if err := d.consumer.Nack(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("brain-dispatch nack_failed id=%s err=%q", m.ID, err.Error())
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
