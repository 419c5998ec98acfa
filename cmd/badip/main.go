// Command badip downloads the Barracuda-style IP blocklist, reports addresses
// not seen in previous runs to the Discord channel, then records them so the
// next run stays quiet about them.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/raphael-attias/clubcyber/internal/blocklist"
	"github.com/raphael-attias/clubcyber/internal/config"
	"github.com/raphael-attias/clubcyber/internal/ledger"
	"github.com/raphael-attias/clubcyber/internal/logger"
	"github.com/raphael-attias/clubcyber/internal/notify"
	"github.com/raphael-attias/clubcyber/internal/retry"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogFile, cfg.Debug)

	if err := cfg.ValidateBadIP(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	policy := retry.Default(cfg.RetryDelay)
	policy.MaxAttempts = cfg.RetryAttempts

	client := blocklist.NewClient(cfg.RequestTimeout, policy)
	seenLedger := ledger.New(cfg.SeenIPsFile)
	discord := notify.NewDiscord(cfg.IPWebhookURL, cfg.RequestTimeout, policy)

	current, err := client.Fetch(ctx, cfg.BlocklistURL)
	if err != nil {
		logger.Error("blocklist fetch failed", "url", cfg.BlocklistURL, "error", err)
		return
	}
	logger.Info("blocklist fetched", "total", len(current))

	seenSet, err := seenLedger.Load()
	if err != nil {
		logger.Error("seen-ip ledger load failed", "error", err)
		return
	}

	fresh := blocklist.Diff(current, seenSet)
	if len(fresh) == 0 {
		logger.Info("no new ip in blocklist")
		return
	}
	logger.Info("new ips found", "count", len(fresh))

	// Record only after the alert went out, so a failed post gets re-alerted
	// next run instead of silently swallowed.
	if err := discord.Send(ctx, notify.FormatNewIPs(fresh)); err != nil {
		logger.Error("alert delivery failed, ips stay unrecorded", "error", err)
		return
	}
	for _, ip := range fresh {
		if err := seenLedger.Record(ip); err != nil {
			logger.Error("seen-ip ledger append failed", "ip", ip, "error", err)
			return
		}
	}
	logger.Info("badip done", "reported", len(fresh))
}
