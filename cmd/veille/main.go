// Command veille runs one cycle of the cybersecurity news watch: fetch the
// registered sources, select the most relevant unseen articles, summarize them
// and post the digest to Discord.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/raphael-attias/clubcyber/internal/config"
	"github.com/raphael-attias/clubcyber/internal/feed"
	"github.com/raphael-attias/clubcyber/internal/gemini"
	"github.com/raphael-attias/clubcyber/internal/ledger"
	"github.com/raphael-attias/clubcyber/internal/logger"
	"github.com/raphael-attias/clubcyber/internal/metrics"
	"github.com/raphael-attias/clubcyber/internal/mistral"
	"github.com/raphael-attias/clubcyber/internal/notify"
	"github.com/raphael-attias/clubcyber/internal/pipeline"
	"github.com/raphael-attias/clubcyber/internal/ratelimit"
	"github.com/raphael-attias/clubcyber/internal/retry"
	"github.com/raphael-attias/clubcyber/internal/score"
	"github.com/raphael-attias/clubcyber/internal/sources"
	"github.com/raphael-attias/clubcyber/internal/summarize"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogFile, cfg.Debug)

	if err := cfg.ValidateVeille(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	ctx := context.Background()

	sites, err := sources.Load(cfg.SitesConfigPath)
	if err != nil {
		logger.Error("invalid sites config", "path", cfg.SitesConfigPath, "error", err)
		os.Exit(1)
	}

	policy := retry.Default(cfg.RetryDelay)
	policy.MaxAttempts = cfg.RetryAttempts

	mistralClient := mistral.NewClient(cfg.MistralAPIKey, cfg.MistralEndpoint, cfg.MistralModel)

	var geminiClient *gemini.Client
	if cfg.GeminiAPIKey != "" {
		geminiClient, err = gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Warn("gemini unavailable, running without fallback", "error", err)
		} else {
			defer geminiClient.Close()
		}
	}

	budget := ratelimit.NewAIBudget(cfg.MaxMistralRequests, cfg.MaxGeminiRequests, cfg.MaxAIRequests)

	p := pipeline.New(
		sites,
		feed.NewMultiFetcher(cfg.RequestTimeout),
		score.New(),
		ledger.New(cfg.ProcessedFile),
		summarize.NewCascade(mistralClient, geminiClient, budget),
		notify.NewDiscord(cfg.NewsWebhookURL, cfg.RequestTimeout, policy),
		pipeline.Options{
			MaxPerRun:          cfg.MaxArticlesPerRun,
			MinContentLength:   cfg.MinContentLength,
			DuplicateThreshold: cfg.DuplicateThreshold,
			ShuffleSources:     cfg.ShuffleSources,
			DeliveryPause:      cfg.DeliveryPause,
		},
	)

	// Per-article failures are logged inside the run; only a run that cannot
	// start at all exits non-zero, so the scheduler does not retry a partially
	// delivered digest.
	if err := p.Run(ctx); err != nil {
		metrics.Global.SetError(err.Error())
		logger.Error("run failed", "error", err)
	}
	logger.Info("veille done", "stats", metrics.Global.GetStats())
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := metrics.Global.GetStats()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "ok",
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		})
	})
	http.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(metrics.Global.GetStats())
	})

	log.Printf("monitoring server listening on :%s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Printf("monitoring server error: %v", err)
	}
}
