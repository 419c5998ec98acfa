// Package pipeline orchestrates one news-watch run: fetch articles from every
// source, filter and score them, rank the survivors, then summarize and
// deliver the top candidates.
package pipeline

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/raphael-attias/clubcyber/internal/dedup"
	"github.com/raphael-attias/clubcyber/internal/feed"
	"github.com/raphael-attias/clubcyber/internal/ledger"
	"github.com/raphael-attias/clubcyber/internal/logger"
	"github.com/raphael-attias/clubcyber/internal/metrics"
	"github.com/raphael-attias/clubcyber/internal/score"
	"github.com/raphael-attias/clubcyber/internal/sources"
)

// Candidate is an article that passed every filter and scored above zero.
// Candidates live for one run only; the ledger persists delivered URLs.
type Candidate struct {
	feed.Article
	Score  int
	Source string
}

// Ledger is the persisted already-delivered set.
type Ledger interface {
	Load() (map[string]struct{}, error)
	Record(entry string) error
}

// Summarizer condenses article content for delivery.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Notifier posts one summarized article to the chat channel.
type Notifier interface {
	SendArticle(ctx context.Context, source, title, url, summary string) error
}

// Options tune a run; zero values fall back to the defaults used in
// production.
type Options struct {
	MaxPerRun          int
	MinContentLength   int
	DuplicateThreshold int
	ShuffleSources     bool
	DeliveryPause      time.Duration
}

func (o *Options) withDefaults() {
	if o.MaxPerRun <= 0 {
		o.MaxPerRun = 3
	}
	if o.MinContentLength <= 0 {
		o.MinContentLength = 200
	}
	if o.DuplicateThreshold <= 0 {
		o.DuplicateThreshold = dedup.DefaultThreshold
	}
}

type Pipeline struct {
	sites      []sources.Site
	fetcher    feed.Fetcher
	scorer     *score.Scorer
	ledger     Ledger
	summarizer Summarizer
	notifier   Notifier
	opts       Options
}

func New(sites []sources.Site, fetcher feed.Fetcher, scorer *score.Scorer,
	led Ledger, summarizer Summarizer, notifier Notifier, opts Options) *Pipeline {
	opts.withDefaults()
	return &Pipeline{
		sites:      sites,
		fetcher:    fetcher,
		scorer:     scorer,
		ledger:     led,
		summarizer: summarizer,
		notifier:   notifier,
		opts:       opts,
	}
}

// Run executes a full watch cycle. Per-item failures are logged and skipped;
// only a ledger that cannot even be loaded is a run-level error.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.Global.RecordRun(time.Since(start))
	}()

	processed, err := p.ledger.Load()
	if err != nil {
		return err
	}
	logger.Info("ledger loaded", "processed", len(processed))

	candidates := p.Collect(ctx, processed, p.opts.MaxPerRun)
	if len(candidates) == 0 {
		logger.Info("no relevant article found")
		return nil
	}

	sent := p.Deliver(ctx, candidates)
	logger.Info("run finished", "sent", sent, "max", p.opts.MaxPerRun)
	return nil
}

type sourceResult struct {
	site     sources.Site
	articles []feed.Article
	err      error
}

// Collect fetches all sources, filters and scores their articles, and returns
// at most max candidates ranked by descending score. Fetches run one goroutine
// per source with results gathered over a channel; filtering then walks the
// sources in a fixed order so the first-seen-title dedup stays deterministic.
func (p *Pipeline) Collect(ctx context.Context, processed map[string]struct{}, max int) []Candidate {
	results := make(chan sourceResult, len(p.sites))
	for _, site := range p.sites {
		go func(s sources.Site) {
			articles, err := p.fetcher.Fetch(ctx, s)
			results <- sourceResult{site: s, articles: articles, err: err}
		}(site)
	}

	fetched := make(map[string][]feed.Article, len(p.sites))
	for range p.sites {
		r := <-results
		if r.err != nil {
			logger.Error("source fetch failed", "source", r.site.Name, "error", r.err)
			metrics.Global.IncrementSourceFailures()
			continue
		}
		logger.Info("source fetched", "source", r.site.Name, "articles", len(r.articles))
		fetched[r.site.Name] = r.articles
	}

	order := p.sites
	if p.opts.ShuffleSources {
		order = make([]sources.Site, len(p.sites))
		copy(order, p.sites)
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	var seen dedup.SeenTitles
	var candidates []Candidate
	for _, site := range order {
		for _, article := range fetched[site.Name] {
			metrics.Global.IncrementArticlesProcessed()

			if article.URL == "" {
				continue
			}
			key := ledger.NormalizeURL(article.URL)
			if _, done := processed[key]; done {
				continue
			}
			if len(article.Content) < p.opts.MinContentLength {
				continue
			}
			if seen.IsDuplicate(article.Title, p.opts.DuplicateThreshold) {
				logger.Debug("near-duplicate title skipped", "title", article.Title)
				metrics.Global.IncrementDuplicatesFiltered()
				continue
			}

			sc := p.scorer.Score(article.Title + " " + article.Content)
			if sc == 0 {
				continue
			}

			candidates = append(candidates, Candidate{Article: article, Score: sc, Source: site.Name})
			seen.Add(article.Title)
		}
	}

	// Global ranking happens only after every source contributed, so an
	// early low-score source cannot crowd out a later high-score one.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

// Deliver summarizes and posts candidates in rank order. A failed candidate is
// not recorded in the ledger, so it stays eligible for a future run. Returns
// the number of delivered articles.
func (p *Pipeline) Deliver(ctx context.Context, candidates []Candidate) int {
	sent := 0
	for i, c := range candidates {
		if i > 0 && p.opts.DeliveryPause > 0 {
			select {
			case <-ctx.Done():
				return sent
			case <-time.After(p.opts.DeliveryPause):
			}
		}

		logger.Info("delivering article", "score", c.Score, "source", c.Source, "title", c.Title)

		summary, err := p.summarizer.Summarize(ctx, c.Content)
		if err != nil || strings.TrimSpace(summary) == "" {
			logger.Warn("summarization failed, skipping", "url", c.URL, "error", err)
			metrics.Global.IncrementDeliveryFailures()
			continue
		}

		if err := p.notifier.SendArticle(ctx, c.Source, c.Title, c.URL, summary); err != nil {
			logger.Warn("delivery failed, skipping", "url", c.URL, "error", err)
			metrics.Global.IncrementDeliveryFailures()
			continue
		}

		if err := p.ledger.Record(ledger.NormalizeURL(c.URL)); err != nil {
			// Non-fatal: the article may be re-delivered next run.
			logger.Error("ledger append failed", "url", c.URL, "error", err)
		}
		metrics.Global.IncrementArticlesSent()
		sent++
	}
	return sent
}
