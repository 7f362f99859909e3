package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ignite/ads-pilot/internal/ads"
	"github.com/ignite/ads-pilot/internal/analysis"
	"github.com/ignite/ads-pilot/internal/api"
	"github.com/ignite/ads-pilot/internal/config"
	"github.com/ignite/ads-pilot/internal/creative"
	"github.com/ignite/ads-pilot/internal/experiments"
	"github.com/ignite/ads-pilot/internal/meta"
	"github.com/ignite/ads-pilot/internal/metrics"
	"github.com/ignite/ads-pilot/internal/pipeline"
	"github.com/ignite/ads-pilot/internal/repository/postgres"
	"github.com/ignite/ads-pilot/internal/storage"
	"github.com/ignite/ads-pilot/internal/validation"
)

func buildStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "s3":
		return storage.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.AWSProfile)
	case "redis":
		return storage.NewRedisStore(ctx, cfg.RedisAddr)
	case "postgres":
		return postgres.Open(cfg.DatabaseURL)
	default:
		return storage.NewMemoryStore(), nil
	}
}

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	mode := cfg.Mode()
	log.Printf("[Server] starting in %s mode (storage: %s)", mode, cfg.Storage.Type)

	ctx := context.Background()

	store, err := buildStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Live mode talks to the Meta Marketing API for both metrics ingestion
	// and ad mutations; demo mode synthesizes data and mutates local records
	// only.
	var source metrics.Source
	var mutator ads.Mutator
	var images creative.ImageProvider = creative.PlaceholderProvider{}
	if mode == config.ModeLive {
		client := meta.NewClient(cfg.Meta)
		source = client
		mutator = client
	}
	if cfg.Image.Configured() {
		images = creative.NewHTTPImageProvider(cfg.Image)
	}

	seed := time.Now().UnixNano()
	ingester := metrics.NewIngester(source, metrics.NewSyntheticGenerator(seed))
	executor := ads.NewExecutor(ads.NewMemoryRepo(), mutator)
	experimentMgr := experiments.NewManager(seed)

	var engine analysis.Engine = analysis.NewRuleEngine(cfg.Analysis, analysis.NewRandomExplore(seed, 0.3, 0.2))
	if cfg.OpenAI.Configured() {
		engine = analysis.NewLLMEngine(cfg.OpenAI, engine)
		log.Printf("[Server] LLM analysis enabled (model %s)", cfg.OpenAI.Model)
	}

	generator := creative.NewGenerator(
		images,
		validation.New(seed),
		pipeline.StoreUploader{Store: store},
		executor,
		cfg.Pipeline.MaxCreativeAttempts,
	)

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Ingester:      ingester,
		Engine:        engine,
		Generator:     generator,
		Executor:      executor,
		Experiments:   experimentMgr,
		Store:         store,
		DateRangeDays: cfg.Pipeline.DateRangeDays,
		MaxDecisions:  cfg.Pipeline.MaxDecisions,
	})

	apiMetrics := api.NewMetrics(prometheus.NewRegistry())
	handlers := api.NewHandlers(orchestrator, executor, experimentMgr, store, apiMetrics)
	server := api.NewServer(cfg.Server, handlers)

	go func() {
		log.Printf("[Server] listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil {
			log.Printf("[Server] HTTP server stopped: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[Server] shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] shutdown error: %v", err)
	}
	log.Println("[Server] stopped")
}
