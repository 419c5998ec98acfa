package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesProcessed  int64
	DuplicatesFiltered int64
	ArticlesSent       int64
	DeliveryFailures   int64
	SourceFailures     int64
	IPsEnriched        int64
	AIFallbacks        int64

	// Timings
	LastRunDuration time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
}

var Global = &Metrics{}

func (m *Metrics) IncrementArticlesProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesProcessed++
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementArticlesSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesSent++
}

func (m *Metrics) IncrementDeliveryFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliveryFailures++
}

func (m *Metrics) IncrementSourceFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceFailures++
}

func (m *Metrics) IncrementIPsEnriched() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IPsEnriched++
}

func (m *Metrics) IncrementAIFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AIFallbacks++
}

func (m *Metrics) RecordRun(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunDuration = duration
	m.LastRunTime = time.Now()
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"articles_processed":   m.ArticlesProcessed,
		"duplicates_filtered":  m.DuplicatesFiltered,
		"articles_sent":        m.ArticlesSent,
		"delivery_failures":    m.DeliveryFailures,
		"source_failures":      m.SourceFailures,
		"ips_enriched":         m.IPsEnriched,
		"ai_fallbacks":         m.AIFallbacks,
		"last_run_duration_ms": m.LastRunDuration.Milliseconds(),
		"last_run_time":        m.LastRunTime.Format(time.RFC3339),
		"last_error":           m.LastError,
	}
}
