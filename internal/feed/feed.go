// Package feed pulls raw articles from the configured news sources. RSS
// sources go through gofeed, plain HTML listings through goquery.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/raphael-attias/clubcyber/internal/sources"
)

// Article is one raw article as fetched from a source. Records are ephemeral:
// produced here, consumed within a single run.
type Article struct {
	URL     string
	Title   string
	Content string
}

// Fetcher returns the articles currently visible on a site.
type Fetcher interface {
	Fetch(ctx context.Context, site sources.Site) ([]Article, error)
}

// MultiFetcher dispatches to the adapter matching the site kind.
type MultiFetcher struct {
	rss  *RSSFetcher
	html *HTMLFetcher
}

func NewMultiFetcher(timeout time.Duration) *MultiFetcher {
	client := &http.Client{Timeout: timeout}
	return &MultiFetcher{
		rss:  NewRSSFetcher(client),
		html: NewHTMLFetcher(client),
	}
}

func (m *MultiFetcher) Fetch(ctx context.Context, site sources.Site) ([]Article, error) {
	switch site.Kind {
	case sources.KindRSS:
		return m.rss.Fetch(ctx, site)
	case sources.KindHTML:
		return m.html.Fetch(ctx, site)
	default:
		return nil, fmt.Errorf("unknown source kind %q for %s", site.Kind, site.Name)
	}
}
