package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/raphael-attias/clubcyber/internal/feed"
	"github.com/raphael-attias/clubcyber/internal/score"
	"github.com/raphael-attias/clubcyber/internal/sources"
)

type fakeFetcher struct {
	bySite map[string][]feed.Article
	errs   map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, site sources.Site) ([]feed.Article, error) {
	if err := f.errs[site.Name]; err != nil {
		return nil, err
	}
	return f.bySite[site.Name], nil
}

type fakeLedger struct {
	entries  map[string]struct{}
	recorded []string
}

func newFakeLedger(entries ...string) *fakeLedger {
	l := &fakeLedger{entries: map[string]struct{}{}}
	for _, e := range entries {
		l.entries[e] = struct{}{}
	}
	return l
}

func (l *fakeLedger) Load() (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(l.entries))
	for e := range l.entries {
		out[e] = struct{}{}
	}
	return out, nil
}

func (l *fakeLedger) Record(entry string) error {
	l.entries[entry] = struct{}{}
	l.recorded = append(l.recorded, entry)
	return nil
}

type fakeSummarizer struct {
	failFor map[string]bool
}

func (s *fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	if s.failFor[text] {
		return "", errors.New("provider down")
	}
	return "résumé: " + text[:20], nil
}

type fakeNotifier struct {
	sent    []string
	failFor map[string]bool
}

func (n *fakeNotifier) SendArticle(_ context.Context, source, title, url, summary string) error {
	if n.failFor[url] {
		return errors.New("webhook 500")
	}
	n.sent = append(n.sent, url)
	return nil
}

func padded(prefix string) string {
	return prefix + " " + strings.Repeat("cybersecurity incident response detail ", 10)
}

func newTestPipeline(sites []sources.Site, fetcher feed.Fetcher, led Ledger,
	sum Summarizer, not Notifier) *Pipeline {
	return New(sites, fetcher, score.New(), led, sum, not, Options{
		MaxPerRun: 3,
	})
}

func TestCollectRejectsShortContent(t *testing.T) {
	sites := []sources.Site{{Name: "a", URL: "http://a", Kind: sources.KindHTML}}
	fetcher := &fakeFetcher{bySite: map[string][]feed.Article{
		"a": {{URL: "http://a/1", Title: "Ransomware attack", Content: "too short"}},
	}}

	p := newTestPipeline(sites, fetcher, newFakeLedger(), &fakeSummarizer{}, &fakeNotifier{})
	got := p.Collect(context.Background(), map[string]struct{}{}, 3)
	if len(got) != 0 {
		t.Errorf("expected short article to be rejected, got %d candidates", len(got))
	}
}

func TestCollectRejectsZeroScore(t *testing.T) {
	sites := []sources.Site{{Name: "a", URL: "http://a", Kind: sources.KindHTML}}
	fetcher := &fakeFetcher{bySite: map[string][]feed.Article{
		"a": {{URL: "http://a/1", Title: "Garden tips",
			Content: strings.Repeat("flowers and watering schedules for spring ", 10)}},
	}}

	p := newTestPipeline(sites, fetcher, newFakeLedger(), &fakeSummarizer{}, &fakeNotifier{})
	got := p.Collect(context.Background(), map[string]struct{}{}, 3)
	if len(got) != 0 {
		t.Errorf("expected zero-score article to be rejected, got %d candidates", len(got))
	}
}

func TestCollectSkipsLedgeredURL(t *testing.T) {
	sites := []sources.Site{{Name: "a", URL: "http://a", Kind: sources.KindHTML}}
	fetcher := &fakeFetcher{bySite: map[string][]feed.Article{
		"a": {{URL: "http://a/1?utm=x", Title: "Ransomware hits hospital", Content: padded("malware")}},
	}}

	// Ledger holds the normalized form; the tracking-link variant must match it.
	p := newTestPipeline(sites, fetcher, newFakeLedger("http://a/1"), &fakeSummarizer{}, &fakeNotifier{})
	processed, _ := p.ledger.Load()
	got := p.Collect(context.Background(), processed, 3)
	if len(got) != 0 {
		t.Errorf("expected ledgered article to be skipped, got %d candidates", len(got))
	}
}

func TestCollectFiltersNearDuplicateTitles(t *testing.T) {
	sites := []sources.Site{
		{Name: "a", URL: "http://a", Kind: sources.KindHTML},
		{Name: "b", URL: "http://b", Kind: sources.KindHTML},
	}
	fetcher := &fakeFetcher{bySite: map[string][]feed.Article{
		"a": {{URL: "http://a/1", Title: "Massive Data Breach Hits Acme Corp", Content: padded("breach")}},
		"b": {{URL: "http://b/1", Title: "Massive Data Breach Hits Acme Systems", Content: padded("breach")}},
	}}

	p := newTestPipeline(sites, fetcher, newFakeLedger(), &fakeSummarizer{}, &fakeNotifier{})
	got := p.Collect(context.Background(), map[string]struct{}{}, 3)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate after dedup, got %d", len(got))
	}
	if got[0].URL != "http://a/1" {
		t.Errorf("first-seen title should win, got %s", got[0].URL)
	}
}

func TestCollectRanksByScoreAndTruncates(t *testing.T) {
	sites := []sources.Site{{Name: "a", URL: "http://a", Kind: sources.KindHTML}}
	// Scores: super keyword "zero-day" weighs 3, ordinary keywords 1 each.
	articles := []feed.Article{
		{URL: "http://a/low", Title: "Phishing wave",
			Content: padded("phishing campaign reported")},
		{URL: "http://a/high", Title: "Zero-day exploited in ransomware breach",
			Content: padded("zero-day ransomware breach malware exploit")},
		{URL: "http://a/mid", Title: "Ransomware and malware surge",
			Content: padded("ransomware malware botnet")},
		{URL: "http://a/mid2", Title: "Vulnerability in firewall firmware",
			Content: padded("vulnerability exploit patch")},
	}
	fetcher := &fakeFetcher{bySite: map[string][]feed.Article{"a": articles}}

	p := newTestPipeline(sites, fetcher, newFakeLedger(), &fakeSummarizer{}, &fakeNotifier{})
	got := p.Collect(context.Background(), map[string]struct{}{}, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].URL != "http://a/high" {
		t.Errorf("highest score should rank first, got %s", got[0].URL)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("candidates out of order at %d: %d > %d", i, got[i].Score, got[i-1].Score)
		}
	}
}

func TestCollectIsDeterministic(t *testing.T) {
	sites := []sources.Site{
		{Name: "a", URL: "http://a", Kind: sources.KindHTML},
		{Name: "b", URL: "http://b", Kind: sources.KindHTML},
	}
	fetcher := &fakeFetcher{bySite: map[string][]feed.Article{
		"a": {
			{URL: "http://a/1", Title: "Ransomware incident at vendor", Content: padded("ransomware")},
			{URL: "http://a/2", Title: "New botnet discovered by researchers", Content: padded("botnet")},
		},
		"b": {
			{URL: "http://b/1", Title: "Critical vulnerability patched", Content: padded("vulnerability")},
		},
	}}

	p := newTestPipeline(sites, fetcher, newFakeLedger(), &fakeSummarizer{}, &fakeNotifier{})

	var first []string
	for run := 0; run < 5; run++ {
		got := p.Collect(context.Background(), map[string]struct{}{}, 3)
		urls := make([]string, len(got))
		for i, c := range got {
			urls[i] = c.URL
		}
		if run == 0 {
			first = urls
			continue
		}
		if fmt.Sprint(urls) != fmt.Sprint(first) {
			t.Fatalf("run %d differs: %v vs %v", run, urls, first)
		}
	}
}

func TestCollectSurvivesFailingSource(t *testing.T) {
	sites := []sources.Site{
		{Name: "down", URL: "http://down", Kind: sources.KindHTML},
		{Name: "up", URL: "http://up", Kind: sources.KindHTML},
	}
	fetcher := &fakeFetcher{
		bySite: map[string][]feed.Article{
			"up": {{URL: "http://up/1", Title: "Malware campaign detailed", Content: padded("malware")}},
		},
		errs: map[string]error{"down": errors.New("connection refused")},
	}

	p := newTestPipeline(sites, fetcher, newFakeLedger(), &fakeSummarizer{}, &fakeNotifier{})
	got := p.Collect(context.Background(), map[string]struct{}{}, 3)
	if len(got) != 1 || got[0].Source != "up" {
		t.Errorf("expected the healthy source's article, got %+v", got)
	}
}

func TestDeliverRecordsOnlySuccesses(t *testing.T) {
	led := newFakeLedger()
	not := &fakeNotifier{failFor: map[string]bool{"http://a/fail": true}}
	p := New(nil, &fakeFetcher{}, score.New(), led, &fakeSummarizer{}, not, Options{MaxPerRun: 3})

	candidates := []Candidate{
		{Article: feed.Article{URL: "http://a/ok", Title: "t1", Content: padded("ransomware")}, Score: 5, Source: "a"},
		{Article: feed.Article{URL: "http://a/fail", Title: "t2", Content: padded("malware")}, Score: 4, Source: "a"},
	}
	sent := p.Deliver(context.Background(), candidates)
	if sent != 1 {
		t.Fatalf("expected 1 delivered, got %d", sent)
	}
	if len(led.recorded) != 1 || led.recorded[0] != "http://a/ok" {
		t.Errorf("ledger should hold only the delivered URL, got %v", led.recorded)
	}
}

func TestDeliverSkipsFailedSummary(t *testing.T) {
	led := newFakeLedger()
	content := padded("ransomware")
	sum := &fakeSummarizer{failFor: map[string]bool{content: true}}
	not := &fakeNotifier{}
	p := New(nil, &fakeFetcher{}, score.New(), led, sum, not, Options{MaxPerRun: 3})

	candidates := []Candidate{
		{Article: feed.Article{URL: "http://a/1", Title: "t", Content: content}, Score: 3, Source: "a"},
	}
	if sent := p.Deliver(context.Background(), candidates); sent != 0 {
		t.Fatalf("expected 0 delivered, got %d", sent)
	}
	if len(not.sent) != 0 {
		t.Error("notifier should not be called when summarization fails")
	}
	if len(led.recorded) != 0 {
		t.Error("failed candidate must not be recorded")
	}
}

func TestRunEndToEnd(t *testing.T) {
	sites := []sources.Site{{Name: "a", URL: "http://a", Kind: sources.KindHTML}}
	fetcher := &fakeFetcher{bySite: map[string][]feed.Article{
		"a": {{URL: "http://a/1", Title: "Ransomware gang breaches hospital", Content: padded("ransomware breach")}},
	}}
	led := newFakeLedger()
	not := &fakeNotifier{}

	p := newTestPipeline(sites, fetcher, led, &fakeSummarizer{}, not)
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(not.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(not.sent))
	}
	if _, ok := led.entries["http://a/1"]; !ok {
		t.Error("delivered URL missing from ledger")
	}

	// A second run over the updated ledger delivers nothing.
	not.sent = nil
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(not.sent) != 0 {
		t.Errorf("second run should deliver nothing, sent %v", not.sent)
	}
}
