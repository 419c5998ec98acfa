// Package gemini is the fallback summarization provider, used when Mistral is
// unavailable or over budget.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	modelName      = "gemini-1.5-flash"
	maxPromptRunes = 6000
)

type Client struct {
	client *genai.Client
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Summarize returns a short French summary of the article text.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	model := c.client.GenerativeModel(modelName)

	prompt := fmt.Sprintf(
		"Tu es une IA spécialisée en cybersécurité et en intelligence artificielle. "+
			"Voici un article de presse scrappé automatiquement sur ces thématiques. "+
			"Fais un résumé clair, concis et professionnel, en français, en moins de 15 lignes. "+
			"Fais ressortir les points essentiels : le sujet principal, les acteurs impliqués, "+
			"les conséquences, et les faits marquants. Ignore les phrases promotionnelles ou vagues. "+
			"S'il s'agit d'un contenu peu informatif, conclus simplement par : "+
			"\"Contenu promotionnel ou peu informatif.\"\n\n%s",
		truncate(text))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	return strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])), nil
}

// truncate keeps prompts bounded, cutting at a sentence end when one is close.
func truncate(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxPromptRunes {
		return text
	}
	runes := []rune(text)
	trimmed := string(runes[:maxPromptRunes])
	if idx := strings.LastIndex(trimmed, ". "); idx > 1200 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed
}
