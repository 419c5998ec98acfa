// Package summarize turns scraped article text into a short French digest.
// Mistral is the primary provider; Gemini takes over when Mistral errors or
// runs out of budget.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/raphael-attias/clubcyber/internal/gemini"
	"github.com/raphael-attias/clubcyber/internal/logger"
	"github.com/raphael-attias/clubcyber/internal/mistral"
	"github.com/raphael-attias/clubcyber/internal/ratelimit"
)

const maxInputRunes = 8000

const promptTemplate = "Tu es une IA spécialisée en cybersécurité et en intelligence artificielle. " +
	"Voici un article de presse scrappé automatiquement sur ces thématiques. " +
	"Fais un résumé clair, concis et professionnel, en **français**, en moins de 15 lignes. " +
	"Fais ressortir les points essentiels : le sujet principal, les acteurs impliqués, " +
	"les conséquences, et les faits marquants. Ignore les phrases promotionnelles ou vagues. " +
	"S'il s'agit d'un contenu peu informatif, conclus simplement par : " +
	"\"Contenu promotionnel ou peu informatif.\"\n\n%s"

// Cascade tries providers in order under a shared budget.
type Cascade struct {
	mistral *mistral.Client
	gemini  *gemini.Client
	budget  *ratelimit.AIBudget
}

func NewCascade(primary *mistral.Client, fallback *gemini.Client, budget *ratelimit.AIBudget) *Cascade {
	return &Cascade{mistral: primary, gemini: fallback, budget: budget}
}

// Summarize returns the digest for one article's text. Errors from the
// primary provider are logged and absorbed by the fallback; only a cascade
// with nothing left to try returns an error.
func (c *Cascade) Summarize(ctx context.Context, text string) (string, error) {
	text = clip(text)

	if c.mistral != nil && c.budget.CanUseMistral() {
		if err := c.budget.UseMistral(); err == nil {
			summary, err := c.mistral.Complete(ctx, fmt.Sprintf(promptTemplate, text))
			if err == nil && strings.TrimSpace(summary) != "" {
				return summary, nil
			}
			logger.Warn("mistral summarization failed, trying fallback", "error", err)
		}
	}

	if c.gemini != nil && c.budget.CanUseGemini() {
		if err := c.budget.UseGemini(); err == nil {
			summary, err := c.gemini.Summarize(ctx, text)
			if err == nil && strings.TrimSpace(summary) != "" {
				return summary, nil
			}
			logger.Warn("gemini summarization failed", "error", err)
		}
	}

	return "", fmt.Errorf("no summarization provider available")
}

func clip(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxInputRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxInputRunes])
}
