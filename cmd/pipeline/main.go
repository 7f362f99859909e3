// Command pipeline runs one optimization cycle and exits. Exit code 1 means
// the run failed; the run log is printed either way.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/ignite/ads-pilot/internal/ads"
	"github.com/ignite/ads-pilot/internal/analysis"
	"github.com/ignite/ads-pilot/internal/config"
	"github.com/ignite/ads-pilot/internal/creative"
	"github.com/ignite/ads-pilot/internal/experiments"
	"github.com/ignite/ads-pilot/internal/meta"
	"github.com/ignite/ads-pilot/internal/metrics"
	"github.com/ignite/ads-pilot/internal/pipeline"
	"github.com/ignite/ads-pilot/internal/storage"
	"github.com/ignite/ads-pilot/internal/validation"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	days := flag.Int("days", 0, "date range in days (0 uses the configured default)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	mode := cfg.Mode()
	log.Printf("[Pipeline] one-shot run in %s mode", mode)

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
	store := storage.NewMemoryStore()
	executor := ads.NewExecutor(ads.NewMemoryRepo(), mutator)

	var engine analysis.Engine = analysis.NewRuleEngine(cfg.Analysis, analysis.NewRandomExplore(seed, 0.3, 0.2))
	if cfg.OpenAI.Configured() {
		engine = analysis.NewLLMEngine(cfg.OpenAI, engine)
	}

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Ingester:      metrics.NewIngester(source, metrics.NewSyntheticGenerator(seed)),
		Engine:        engine,
		Generator:     creative.NewGenerator(images, validation.New(seed), pipeline.StoreUploader{Store: store}, executor, cfg.Pipeline.MaxCreativeAttempts),
		Executor:      executor,
		Experiments:   experiments.NewManager(seed),
		Store:         store,
		DateRangeDays: cfg.Pipeline.DateRangeDays,
		MaxDecisions:  cfg.Pipeline.MaxDecisions,
	})

	result := orchestrator.Run(context.Background(), pipeline.Options{DateRangeDays: *days})

	for _, entry := range result.Logs {
		log.Printf("[%s] %s", entry.Level, entry.Message)
	}

	if !result.Success {
		log.Printf("[Pipeline] run failed: %s", result.Error)
		os.Exit(1)
	}
	log.Printf("[Pipeline] %s", result.Message)
}
