// Package app assembles the service from configuration: provider selection,
// session manager, turn pipeline, and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Pranav-shellkode/voice-agent-learning/internal/archive"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/config"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/generate"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/httpapi"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/knowledge"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/observability"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/pipeline"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/session"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/synthesize"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/transcribe"
)

// Pending archive saves get slightly longer than one save's own timeout
// before shutdown closes the store under them.
const archiveDrainTimeout = 3 * time.Second

type ProviderInfo struct {
	Transcriber string
	Generator   string
	Synthesizer string
}

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Sessions     *session.Manager
	Orchestrator *pipeline.Orchestrator
	Metrics      *observability.Metrics
	Providers    ProviderInfo

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	kb, err := knowledge.Load(cfg.KnowledgeBasePath)
	if err != nil {
		return nil, fmt.Errorf("knowledge base init failed: %w", err)
	}
	if !kb.Loaded() {
		log.Printf("knowledge base not found at %s, starting without company knowledge", cfg.KnowledgeBasePath)
	}

	store, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("turn archive init failed: %w", err)
	}

	providers := ProviderInfo{Transcriber: "mock", Generator: "mock", Synthesizer: "mock"}
	var transcriber transcribe.Transcriber = transcribe.NewMockTranscriber()
	var synthesizer synthesize.Synthesizer = synthesize.NewMockSynthesizer()
	if cfg.DeepgramAPIKey != "" {
		transcriber = transcribe.NewDeepgramTranscriber(transcribe.DeepgramConfig{
			APIKey:  cfg.DeepgramAPIKey,
			BaseURL: cfg.DeepgramBaseURL,
			Model:   cfg.DeepgramSTTModel,
		})
		synthesizer = synthesize.NewDeepgramSynthesizer(synthesize.DeepgramConfig{
			APIKey:  cfg.DeepgramAPIKey,
			BaseURL: cfg.DeepgramBaseURL,
			Model:   cfg.DeepgramTTSModel,
		})
		providers.Transcriber = "deepgram"
		providers.Synthesizer = "deepgram"
	}

	var generator generate.Generator = generate.NewMockGenerator()
	if cfg.LLMAPIKey != "" {
		generator = generate.NewOpenAIGenerator(generate.OpenAIConfig{
			APIKey:      cfg.LLMAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: float32(cfg.LLMTemperature),
		})
		providers.Generator = "openai"
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Sessions:      sessions,
		Transcriber:   transcriber,
		Generator:     generator,
		Synthesizer:   synthesizer,
		KnowledgeBase: kb,
		ArchiveStore:  store,
		Metrics:       metrics,
		Pool:          pipeline.NewWorkerPool(cfg.WorkerPoolSize),
		HistoryWindow: cfg.HistoryWindow,
		TurnTimeout:   cfg.TurnTimeout,
	})

	api := httpapi.New(cfg, sessions, orchestrator, kb, store, metrics)

	cleanup := func() error {
		drainCtx, cancel := context.WithTimeout(context.Background(), archiveDrainTimeout)
		defer cancel()
		if err := orchestrator.DrainArchives(drainCtx); err != nil {
			log.Printf("app: archive drain cut short: %v", err)
		}
		return store.Close()
	}

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Sessions:     sessions,
		Orchestrator: orchestrator,
		Metrics:      metrics,
		Providers:    providers,
		Cleanup:      cleanup,
	}, nil
}
