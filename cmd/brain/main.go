package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ideacapital/brain/internal/agent"
	"github.com/ideacapital/brain/internal/dispatch"
	"github.com/ideacapital/brain/internal/httpapi"
	"github.com/ideacapital/brain/internal/media"
	"github.com/ideacapital/brain/internal/observability"
	"github.com/ideacapital/brain/internal/priorart"
	"github.com/ideacapital/brain/internal/proof"
	"github.com/ideacapital/brain/internal/queue"
	"github.com/ideacapital/brain/internal/refine"
	"github.com/ideacapital/brain/internal/report"
	"github.com/ideacapital/brain/internal/store"
	"github.com/ideacapital/brain/internal/structurer"
)

func main() {
	var (
		addr   = flag.String("addr", ":8091", "HTTP listen address")
		dbPath = flag.String("db", "./brain.db", "SQLite database path")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	otelShutdown := observability.Init(ctx, observability.Config{
		ServiceName:  "invention-brain",
		Environment:  envOr("BRAIN_ENV", "development"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Insecure:     os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
	})

	db, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer db.Close()

	var caller structurer.LLMCaller
	if c, err := structurer.NewAnthropicCallerFromEnv(); err != nil {
		log.Printf("brain llm_unavailable err=%q (running on deterministic fallbacks)", err.Error())
	} else {
		caller = c
		log.Printf("brain llm_ready model=%s", c.ModelName())
	}
	engine := structurer.NewEngine(caller, structurer.Config{})

	var searchClient priorart.SearchClient
	if key := strings.TrimSpace(os.Getenv("PATENTSVIEW_API_KEY")); key != "" {
		client, err := priorart.NewPatentsViewClient(priorart.ClientConfig{APIKey: key})
		if err != nil {
			log.Printf("brain patent_search_unavailable err=%q", err.Error())
		} else {
			searchClient = client
		}
	} else {
		log.Printf("brain patent_search_unavailable err=%q", "PATENTSVIEW_API_KEY not configured")
	}
	matcher := priorart.NewMatcher(searchClient)

	var transcriber agent.Transcriber
	if t, err := media.NewVoiceTranscriber(ctx); err != nil {
		log.Printf("brain voice_unavailable err=%q", err.Error())
	} else {
		transcriber = t
	}

	var sketcher agent.SketchAnalyzer
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		s, err := media.NewSketchDescriber(ctx, key, envOr("BRAIN_SKETCH_MODEL", media.DefaultSketchModel))
		if err != nil {
			log.Printf("brain sketch_unavailable err=%q", err.Error())
		} else {
			sketcher = s
		}
	} else {
		log.Printf("brain sketch_unavailable err=%q", "GEMINI_API_KEY not configured")
	}

	prover := proof.NewProver(proof.Config{
		SnarkjsBin:  os.Getenv("BRAIN_SNARKJS_BIN"),
		CircuitWasm: os.Getenv("BRAIN_CIRCUIT_WASM"),
		ProvingKey:  os.Getenv("BRAIN_PROVING_KEY"),
	})

	tracker := refine.NewTracker(db, engine)
	svc := agent.NewService(agent.NewAggregator(transcriber, sketcher), engine, matcher, tracker, prover, db)

	var dispatcher *dispatch.Dispatcher
	if redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); redisAddr != "" {
		q, err := queue.NewRedisQueue(ctx, queue.Config{
			Addr:         redisAddr,
			ConsumerName: envOr("BRAIN_CONSUMER_NAME", hostnameOr("brain-1")),
		})
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer q.Close()
		dispatcher = dispatch.New(q, q, svc, dispatch.Config{})
		go dispatcher.Run(ctx)
		log.Printf("brain queue_consumer_started addr=%s", redisAddr)
	} else {
		log.Printf("brain queue_disabled reason=%q", "REDIS_ADDR not configured")
	}

	handler := httpapi.NewServer(svc, db, report.NewChromiumPDFRenderer())
	srv := &http.Server{Addr: *addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("brain listening addr=%s db=%s", *addr, *dbPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
	if otelShutdown != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		_ = otelShutdown(flushCtx)
	}
	log.Println("brain stopped")
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func hostnameOr(fallback string) string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return fallback
	}
	return h
}
