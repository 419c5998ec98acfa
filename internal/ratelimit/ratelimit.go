// Package ratelimit caps AI calls per run so a noisy news day cannot burn
// through provider quotas.
package ratelimit

import (
	"fmt"
	"sync"

	"github.com/raphael-attias/clubcyber/internal/logger"
)

type AIBudget struct {
	mu           sync.Mutex
	mistralCount int
	geminiCount  int
	totalCount   int
	maxMistral   int
	maxGemini    int
	maxTotal     int
}

// NewAIBudget creates a budget with per-provider and total limits; zero means
// unlimited.
func NewAIBudget(maxMistral, maxGemini, maxTotal int) *AIBudget {
	return &AIBudget{
		maxMistral: maxMistral,
		maxGemini:  maxGemini,
		maxTotal:   maxTotal,
	}
}

// CanUseMistral checks whether another Mistral request fits the budget.
func (b *AIBudget) CanUseMistral() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fits(b.mistralCount, b.maxMistral)
}

// CanUseGemini checks whether another Gemini request fits the budget.
func (b *AIBudget) CanUseGemini() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fits(b.geminiCount, b.maxGemini)
}

// UseMistral consumes one Mistral request.
func (b *AIBudget) UseMistral() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.fits(b.mistralCount, b.maxMistral) {
		return fmt.Errorf("mistral budget exhausted (%d/%d)", b.mistralCount, b.maxMistral)
	}
	b.mistralCount++
	b.totalCount++
	logger.Debug("ai usage", "mistral", b.mistralCount, "gemini", b.geminiCount, "total", b.totalCount)
	return nil
}

// UseGemini consumes one Gemini request.
func (b *AIBudget) UseGemini() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.fits(b.geminiCount, b.maxGemini) {
		return fmt.Errorf("gemini budget exhausted (%d/%d)", b.geminiCount, b.maxGemini)
	}
	b.geminiCount++
	b.totalCount++
	logger.Debug("ai usage", "mistral", b.mistralCount, "gemini", b.geminiCount, "total", b.totalCount)
	return nil
}

func (b *AIBudget) fits(count, max int) bool {
	if max > 0 && count >= max {
		return false
	}
	if b.maxTotal > 0 && b.totalCount >= b.maxTotal {
		return false
	}
	return true
}

// Stats returns a snapshot of consumed requests.
func (b *AIBudget) Stats() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]int{
		"mistral_used":  b.mistralCount,
		"mistral_limit": b.maxMistral,
		"gemini_used":   b.geminiCount,
		"gemini_limit":  b.maxGemini,
		"total_used":    b.totalCount,
		"total_limit":   b.maxTotal,
	}
}
