// Command mapbadip maintains the attack-map dataset: merge the latest
// blocklist into the stored address list, geolocate the addresses that are not
// enriched yet (classic API first, Mistral fallback), and regenerate the
// per-country aggregate.
package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/raphael-attias/clubcyber/internal/aggregate"
	"github.com/raphael-attias/clubcyber/internal/blocklist"
	"github.com/raphael-attias/clubcyber/internal/config"
	"github.com/raphael-attias/clubcyber/internal/geo"
	"github.com/raphael-attias/clubcyber/internal/logger"
	"github.com/raphael-attias/clubcyber/internal/metrics"
	"github.com/raphael-attias/clubcyber/internal/mistral"
	"github.com/raphael-attias/clubcyber/internal/notify"
	"github.com/raphael-attias/clubcyber/internal/retry"
)

const enrichPause = time.Second

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogFile, cfg.Debug)

	if err := cfg.ValidateMapBadIP(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	policy := retry.Default(cfg.RetryDelay)
	policy.MaxAttempts = cfg.RetryAttempts

	store := blocklist.NewStore(cfg.DataDir)
	client := blocklist.NewClient(cfg.RequestTimeout, policy)

	current, err := client.Fetch(ctx, cfg.BlocklistURL)
	if err != nil {
		logger.Error("blocklist fetch failed", "url", cfg.BlocklistURL, "error", err)
	} else {
		total, err := store.Merge(current)
		if err != nil {
			logger.Error("ip store merge failed", "error", err)
			return
		}
		logger.Info("ip store updated", "fetched", len(current), "total", total)
	}

	// Enrich from the stored union, so addresses fetched in earlier runs get
	// another chance after a failed enrichment.
	stored, err := store.Load()
	if err != nil {
		logger.Error("ip store load failed", "error", err)
		return
	}
	ips := blocklist.Diff(stored, nil)

	classic := geo.NewClassic(cfg.GeoAPIURL, cfg.GeoAPIKey, cfg.RequestTimeout, policy)
	fallback := geo.NewAIResolver(mistral.NewClient(cfg.MistralAPIKey, cfg.MistralEndpoint, cfg.MistralModel))
	csvStore := geo.NewCSVStore(filepath.Join(cfg.DataDir, "geo_enriched.csv"))

	enricher := geo.NewEnricher(classic, fallback, csvStore, enrichPause)
	enriched, err := enricher.Run(ctx, ips)
	if err != nil {
		logger.Error("enrichment aborted", "enriched", enriched, "error", err)
		return
	}
	logger.Info("enrichment done", "enriched", enriched, "candidates", len(ips))

	countries, err := aggregate.Run(csvStore, filepath.Join(cfg.DataDir, "agg_by_country.csv"))
	if err != nil {
		logger.Error("aggregation failed", "error", err)
		return
	}
	logger.Info("aggregation done", "countries", countries)

	if cfg.IPWebhookURL != "" {
		discord := notify.NewDiscord(cfg.IPWebhookURL, cfg.RequestTimeout, policy)
		discord.NotifyCompletion(ctx, ":white_check_mark: mapbadip run terminé avec succès!")
	}
	logger.Info("mapbadip done", "stats", metrics.Global.GetStats())
}
