package feed

import (
	"context"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/raphael-attias/clubcyber/internal/sources"
)

// RSSFetcher reads a site's RSS/Atom feed and maps items to articles.
type RSSFetcher struct {
	parser *gofeed.Parser
}

func NewRSSFetcher(client *http.Client) *RSSFetcher {
	parser := gofeed.NewParser()
	parser.Client = client
	return &RSSFetcher{parser: parser}
}

func (f *RSSFetcher) Fetch(ctx context.Context, site sources.Site) ([]Article, error) {
	parsed, err := f.parser.ParseURLWithContext(site.URL, ctx)
	if err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}
		content := item.Content
		if strings.TrimSpace(content) == "" {
			content = item.Description
		}
		articles = append(articles, Article{
			URL:     item.Link,
			Title:   strings.TrimSpace(item.Title),
			Content: stripTags(content),
		})
	}
	return articles, nil
}
